package analysis

import "strings"

const minDisclaimerLen = 20

const (
	defaultDisclaimer = "This analysis is for informational purposes only and is not medical advice. " +
		"Always consult a qualified healthcare provider about your lab results."
	summaryFallback = "An automated summary could not be produced for this report. " +
		"Please consult a healthcare provider to review the results."
	consultAdviceFallback = "Please consult a healthcare provider to review these results."
)

// defaultLifestyleSuggestions is the fixed set of generic wellness tips
// used when the model omits the field. Unlike the list fields that
// default to empty, suggestions always have a useful generic answer.
var defaultLifestyleSuggestions = []string{
	"Stay hydrated throughout the day.",
	"Eat a balanced diet rich in vegetables and whole grains.",
	"Aim for regular physical activity most days of the week.",
	"Prioritize consistent, adequate sleep.",
}

// fillDefaults repairs recoverable gaps in a type-valid result.
// Findings and explanations become empty slices, missing suggestions
// get the fixed generic tips, blank narrative fields get conservative
// fallbacks, and finding statuses are mapped into the known set.
func fillDefaults(r *Result) {
	if r.KeyFindings == nil {
		r.KeyFindings = []KeyFinding{}
	}
	if r.Explanations == nil {
		r.Explanations = []Explanation{}
	}
	if r.LifestyleSuggestions == nil {
		r.LifestyleSuggestions = append([]string(nil), defaultLifestyleSuggestions...)
	}
	if strings.TrimSpace(r.Summary) == "" {
		r.Summary = summaryFallback
	}
	if strings.TrimSpace(r.DoctorConsultationAdvice) == "" {
		r.DoctorConsultationAdvice = consultAdviceFallback
	}
	for i := range r.KeyFindings {
		r.KeyFindings[i].Status = normalizeStatus(r.KeyFindings[i].Status)
	}
}

// enforceDisclaimer is a hard floor, not a repair: even a present
// disclaimer is replaced when it is too short to mean anything.
func enforceDisclaimer(r *Result) {
	if len(strings.TrimSpace(r.Disclaimer)) < minDisclaimerLen {
		r.Disclaimer = defaultDisclaimer
	}
}

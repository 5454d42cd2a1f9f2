// Package analysis turns extracted report text into a structured,
// validated AnalysisResult using an injected LLM client.
package analysis

import "strings"

// FindingStatus is the closed set of per-finding markers.
type FindingStatus string

const (
	StatusNormal       FindingStatus = "normal"
	StatusHigh         FindingStatus = "high"
	StatusLow          FindingStatus = "low"
	StatusCriticalHigh FindingStatus = "critical_high"
	StatusCriticalLow  FindingStatus = "critical_low"
)

// KeyFinding is one measured value extracted from the report. Status
// is empty when the model reported something outside the known set.
type KeyFinding struct {
	Test        string        `json:"test"`
	Value       string        `json:"value"`
	NormalRange string        `json:"normalRange"`
	Status      FindingStatus `json:"status,omitempty"`
}

// Explanation is a plain-language note for one test.
type Explanation struct {
	Test    string `json:"test"`
	Meaning string `json:"meaning"`
}

// Result is the normalized analysis payload persisted on completed
// reports and returned to clients.
type Result struct {
	Summary                  string        `json:"summary"`
	KeyFindings              []KeyFinding  `json:"keyFindings"`
	Explanations             []Explanation `json:"explanations"`
	LifestyleSuggestions     []string      `json:"lifestyleSuggestions"`
	DoctorConsultationAdvice string        `json:"doctorConsultationAdvice"`
	Disclaimer               string        `json:"disclaimer"`
}

// normalizeStatus maps model output into the closed status set.
// Common synonyms collapse to their enum member; anything else becomes
// the empty string, so an abnormal finding is never relabeled normal
// just because the wording was unexpected.
func normalizeStatus(s FindingStatus) FindingStatus {
	cleaned := FindingStatus(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(string(s))), " ", "_"))
	switch cleaned {
	case StatusNormal, StatusHigh, StatusLow, StatusCriticalHigh, StatusCriticalLow:
		return cleaned
	case "elevated", "raised", "above_range", "above_normal":
		return StatusHigh
	case "decreased", "reduced", "below_range", "below_normal":
		return StatusLow
	case "critically_high", "very_high":
		return StatusCriticalHigh
	case "critically_low", "very_low":
		return StatusCriticalLow
	}
	return ""
}

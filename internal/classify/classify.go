// Package classify tags extracted lab-report text with a report-type
// category using ordered keyword heuristics.
package classify

import "strings"

// ReportType is the closed set of report categories.
type ReportType string

const (
	TypeBloodTest      ReportType = "blood_test"
	TypeUrineTest      ReportType = "urine_test"
	TypeLipidPanel     ReportType = "lipid_panel"
	TypeLiverFunction  ReportType = "liver_function"
	TypeKidneyFunction ReportType = "kidney_function"
	TypeThyroid        ReportType = "thyroid"
	TypeGeneral        ReportType = "general"
	TypeOther          ReportType = "other"
)

// Valid reports whether t is a member of the closed enumeration.
func (t ReportType) Valid() bool {
	switch t {
	case TypeBloodTest, TypeUrineTest, TypeLipidPanel, TypeLiverFunction,
		TypeKidneyFunction, TypeThyroid, TypeGeneral, TypeOther:
		return true
	}
	return false
}

type category struct {
	reportType ReportType
	keywords   []string
}

// Categories are checked in order; the first keyword hit wins.
var categories = []category{
	{TypeBloodTest, []string{"hemoglobin", "haemoglobin", "wbc", "rbc", "platelet", "hematocrit", "complete blood count", "cbc", "blood count"}},
	{TypeUrineTest, []string{"urine", "urinalysis", "urinary"}},
	{TypeLipidPanel, []string{"cholesterol", "triglyceride", "hdl", "ldl", "lipid"}},
	{TypeLiverFunction, []string{"bilirubin", "sgpt", "sgot", "alt", "ast", "alkaline phosphatase", "liver"}},
	{TypeKidneyFunction, []string{"creatinine", "urea", "bun", "egfr", "kidney", "renal"}},
	{TypeThyroid, []string{"tsh", "thyroid", "t3", "t4", "thyroxine"}},
}

// Classify maps normalized report text to a ReportType. It is total:
// any input, including the empty string, yields a category, falling
// back to TypeGeneral when nothing matches.
func Classify(text string) ReportType {
	lower := strings.ToLower(text)
	words := wordSet(lower)
	for _, cat := range categories {
		for _, kw := range cat.keywords {
			if matches(lower, words, kw) {
				return cat.reportType
			}
		}
	}
	return TypeGeneral
}

// Short abbreviations like ALT or TSH must match whole words only;
// substring matching would fire on words like "health".
func matches(lower string, words map[string]struct{}, kw string) bool {
	if strings.ContainsRune(kw, ' ') || len(kw) > 4 {
		return strings.Contains(lower, kw)
	}
	_, ok := words[kw]
	return ok
}

func wordSet(lower string) map[string]struct{} {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

package analysis

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// resultSchema checks field TYPES only. Missing fields are allowed
// here and handled by the repair pass; a present field with the wrong
// type is unrepairable and rejected as malformed.
const resultSchema = `{
  "type": "object",
  "properties": {
    "summary": {"type": "string"},
    "keyFindings": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "test": {"type": "string"},
          "value": {"type": "string"},
          "normalRange": {"type": "string"},
          "status": {"type": "string"}
        }
      }
    },
    "explanations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "test": {"type": "string"},
          "meaning": {"type": "string"}
        }
      }
    },
    "lifestyleSuggestions": {"type": "array", "items": {"type": "string"}},
    "doctorConsultationAdvice": {"type": "string"},
    "disclaimer": {"type": "string"}
  }
}`

var compiledResultSchema = mustCompileSchema(resultSchema)

func mustCompileSchema(raw string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("result.json", strings.NewReader(raw)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("result.json")
}

func validateResultShape(v any) error {
	return compiledResultSchema.Validate(v)
}

package schema

import "fmt"

const (
	CodeMissingGenerationMethod = "MissingGenerationMethod"
	CodeUnresolvedDefinition    = "UnresolvedDefinition"
	CodeNonSerializableSchema   = "NonSerializableSchema"
)

// ValidationError reports a malformed schema with the path of the offending
// field. These are caller errors and are never retried.
type ValidationError struct {
	Code   string
	Path   string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Path, e.Detail)
}

// IsValidation reports whether err is a schema validation error.
func IsValidation(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

func missingMethod(path string) error {
	return &ValidationError{
		Code:   CodeMissingGenerationMethod,
		Path:   path,
		Detail: "field has neither generationMethod nor a recognized alias",
	}
}

func unresolvedDefinition(path, ref string) error {
	return &ValidationError{
		Code:   CodeUnresolvedDefinition,
		Path:   path,
		Detail: fmt.Sprintf("reference %q does not resolve within definitions", ref),
	}
}

func nonSerializable(path, detail string) error {
	return &ValidationError{
		Code:   CodeNonSerializableSchema,
		Path:   path,
		Detail: detail,
	}
}

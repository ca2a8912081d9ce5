// Package validator checks use case inputs against `validate` struct tags.
package validator

// Validator validates structs annotated with `validate` tags.
type Validator interface {
	Validate(data any) error
}

package dromos

import "strings"

// M is shorthand for a map[string]any. It is provided as a convenience for
// defining JSON objects in a more concise manner.
type M map[string]any

// Error represents a JSON wrapped error. If you want to return a JSON wrapped
// error, you can use this type. The JSON response will be
// {"error": "your error message"}.
type Error string

// A FieldError can be used as a response body to indicate that a request
// body failed validation. The response will be a JSON object like
// { "error": "Validation error", "fields": [ { "field": "error message" } ] }.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a set of FieldErrors that handlers can return as an
// error. The response status is 400 and the body is the same as for a
// []FieldError value.
type ValidationError []FieldError

func (e ValidationError) Error() string {
	messages := make([]string, 0, len(e))
	for _, fieldErr := range e {
		messages = append(messages, fieldErr.Field+": "+fieldErr.Error)
	}
	return "validation error: " + strings.Join(messages, "; ")
}

// shapeBody converts the body types above into the objects that are actually
// encoded. Other values pass through unchanged.
func shapeBody(body any) any {
	switch v := body.(type) {
	case []FieldError:
		return M{
			"error":  "Validation error",
			"fields": genFieldsField(v),
		}
	case ValidationError:
		return M{
			"error":  "Validation error",
			"fields": genFieldsField(v),
		}
	case FieldError:
		return M{
			"error":  "Validation error",
			"fields": genFieldsField([]FieldError{v}),
		}
	case Error:
		return M{"error": string(v)}
	}
	return body
}

func genFieldsField(errors []FieldError) []M {
	var fields []M
	for _, err := range errors {
		field := M{}
		field[err.Field] = err.Error
		fields = append(fields, field)
	}
	return fields
}

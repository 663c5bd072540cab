package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared; validator caches struct metadata and is safe for
// concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// InputError is a payload problem; the message names the offending field.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

// DecodeInput parses and validates a job payload.
func DecodeInput(raw json.RawMessage) (Input, error) {
	var in Input
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return in, &InputError{Message: "input is required"}
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, decodeError(err)
	}
	if err := ValidateInput(in); err != nil {
		return in, err
	}
	return in, nil
}

func ValidateInput(in Input) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &InputError{Message: err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return &InputError{Message: strings.Join(msgs, "; ")}
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field %q is required", field)
	case "url":
		return fmt.Sprintf("field %q must be a valid URL", field)
	case "gt":
		return fmt.Sprintf("field %q must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("field %q must be at least %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("field %q must be less than %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("field %q must contain at least %s item(s)", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("field %q must be one of [%s]", field, fe.Param())
	}
	return fmt.Sprintf("field %q failed %q validation", field, fe.Tag())
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "input"
		}
		return &InputError{Message: fmt.Sprintf("field %q must be %s, got %s", field, jsonKind(typeErr.Type), typeErr.Value)}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &InputError{Message: fmt.Sprintf("malformed input at offset %d: %v", syntaxErr.Offset, err)}
	}
	return &InputError{Message: fmt.Sprintf("malformed input: %v", err)}
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return jsonKind(t.Elem())
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Slice, reflect.Array:
		return "a list"
	case reflect.Map, reflect.Struct:
		return "an object"
	case reflect.Bool:
		return "a boolean"
	}
	return t.String()
}

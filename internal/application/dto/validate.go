package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	domainErrors "task-api/internal/domain/errors"
)

const (
	msgPasswordDigit   = "password must contain at least one digit"
	msgPasswordSpecial = "password must contain at least one special character"

	passwordSpecialChars = `!@#$%^&*(),.?":{}|<>`
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with the custom rules registered.
// Field errors are keyed by the json name of the field.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		if err := v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return len(PasswordViolations(fl.Field().String())) == 0
		}); err != nil {
			panic(fmt.Sprintf("register password rule: %v", err))
		}
		validate = v
	})
	return validate
}

// PasswordViolations runs the digit and special-character checks
// independently and returns one message per failed check.
func PasswordViolations(password string) []string {
	var hasDigit, hasSpecial bool
	for _, r := range password {
		if r >= '0' && r <= '9' {
			hasDigit = true
		}
		if strings.ContainsRune(passwordSpecialChars, r) {
			hasSpecial = true
		}
	}

	var out []string
	if !hasDigit {
		out = append(out, msgPasswordDigit)
	}
	if !hasSpecial {
		out = append(out, msgPasswordSpecial)
	}
	return out
}

// ValidateStruct validates s and turns every failed constraint into a
// ValidationError keyed by json field name.
func ValidateStruct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domainErrors.NewInternalError("validation could not run", err)
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		fields[name] = append(fields[name], describe(fe)...)
	}
	return domainErrors.NewValidationError(fields)
}

func describe(fe validator.FieldError) []string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return []string{field + " is required"}
	case "min":
		if fe.Kind() == reflect.String {
			return []string{fmt.Sprintf("%s must be at least %s characters", field, fe.Param())}
		}
		return []string{fmt.Sprintf("%s must be at least %s", field, fe.Param())}
	case "max":
		if fe.Kind() == reflect.String {
			return []string{fmt.Sprintf("%s must be at most %s characters", field, fe.Param())}
		}
		return []string{fmt.Sprintf("%s must be at most %s", field, fe.Param())}
	case "gte":
		return []string{fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())}
	case "lte":
		return []string{fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())}
	case "email":
		return []string{field + " must be a valid email address"}
	case "uuid":
		return []string{field + " must be a valid UUID"}
	case "password":
		value, _ := fe.Value().(string)
		return PasswordViolations(value)
	default:
		return []string{fmt.Sprintf("%s failed %s validation", field, fe.Tag())}
	}
}

// Decode reads a single JSON object from r into dst. Malformed JSON, unknown
// fields and trailing data are reported as a ValidationError on "body".
func Decode(r io.Reader, dst interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return bodyError(err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		return bodyError(errors.New("body must contain a single JSON object"))
	}
	return nil
}

func bodyError(err error) error {
	msg := err.Error()

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		msg = "body must not be empty"
	case errors.As(err, &syntaxErr):
		msg = fmt.Sprintf("body contains malformed JSON at offset %d", syntaxErr.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		msg = "body contains malformed JSON"
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			ve := domainErrors.NewValidationError(map[string][]string{
				typeErr.Field: {fmt.Sprintf("%s has the wrong type", typeErr.Field)},
			})
			ve.Cause = err
			return ve
		}
		msg = "body has the wrong JSON type"
	case strings.HasPrefix(msg, "json: unknown field "):
		name := strings.Trim(strings.TrimPrefix(msg, "json: unknown field "), `"`)
		ve := domainErrors.NewValidationError(map[string][]string{
			name: {fmt.Sprintf("unknown field %q", name)},
		})
		ve.Cause = err
		return ve
	}

	ve := domainErrors.NewValidationError(map[string][]string{"body": {msg}})
	ve.Cause = err
	return ve
}

package validation

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	errors "github.com/Merchously/iRun/internal"
)

type ValidatorFunc func(interface{}) *errors.AppError

type FieldValidator struct {
	FieldName  string
	Value      interface{}
	Validators []ValidatorFunc
}

// ValidationBuilder checks fields in declaration order and stops at the first violation.
type ValidationBuilder struct {
	fields []*FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]*FieldValidator, 0),
	}
}

func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	fv := &FieldValidator{
		FieldName:  name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return fv
}

func (v *ValidationBuilder) Validate() *errors.AppError {
	for _, field := range v.fields {
		for _, validator := range field.Validators {
			if err := validator(field.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// deref unwraps pointer values; present is false for nil pointers and empty strings.
func deref(value interface{}) (interface{}, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case string:
		return v, v != ""
	case *string:
		if v == nil || *v == "" {
			return nil, false
		}
		return *v, true
	case *int:
		if v == nil {
			return nil, false
		}
		return int64(*v), true
	case int:
		return int64(v), true
	case *int64:
		if v == nil {
			return nil, false
		}
		return *v, true
	case *float64:
		if v == nil {
			return nil, false
		}
		return *v, true
	case *time.Time:
		if v == nil || v.IsZero() {
			return nil, false
		}
		return *v, true
	case time.Time:
		return v, !v.IsZero()
	default:
		return value, true
	}
}

func (fv *FieldValidator) fail(message string, code errors.ErrorCode) *errors.AppError {
	return errors.NewValidationFieldError(fv.FieldName, message, code)
}

func (fv *FieldValidator) Required() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if _, ok := deref(value); !ok {
			return fv.fail(fmt.Sprintf("%s is required", fv.FieldName), errors.ErrCodeRequired)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MinLength(min int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := deref(value); ok {
			if s, ok := v.(string); ok && utf8.RuneCountInString(s) < min {
				return fv.fail(fmt.Sprintf("%s must be at least %d characters", fv.FieldName, min), errors.ErrCodeTooShort)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxLength(max int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := deref(value); ok {
			if s, ok := v.(string); ok && utf8.RuneCountInString(s) > max {
				return fv.fail(fmt.Sprintf("%s must not exceed %d characters", fv.FieldName, max), errors.ErrCodeTooLong)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Pattern(re *regexp.Regexp, message string) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := deref(value); ok {
			if s, ok := v.(string); ok && !re.MatchString(s) {
				return fv.fail(message, errors.ErrCodeInvalidFormat)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) OneOf(options ...string) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		v, ok := deref(value)
		if !ok {
			return nil
		}
		s, ok := v.(string)
		if !ok {
			return nil
		}
		for _, opt := range options {
			if s == opt {
				return nil
			}
		}
		return fv.fail(fmt.Sprintf("%s must be one of: %s", fv.FieldName, strings.Join(options, ", ")), errors.ErrCodeInvalidOption)
	})
	return fv
}

func (fv *FieldValidator) MinInt(min int64) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := deref(value); ok {
			if n, ok := v.(int64); ok && n < min {
				return fv.fail(fmt.Sprintf("%s must be at least %d", fv.FieldName, min), errors.ErrCodeOutOfRange)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxInt(max int64) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := deref(value); ok {
			if n, ok := v.(int64); ok && n > max {
				return fv.fail(fmt.Sprintf("%s must not exceed %d", fv.FieldName, max), errors.ErrCodeOutOfRange)
			}
		}
		return nil
	})
	return fv
}

// FloatRange bounds a float field inclusively.
func (fv *FieldValidator) FloatRange(min, max float64) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := deref(value); ok {
			if f, ok := v.(float64); ok && (f < min || f > max) {
				return fv.fail(fmt.Sprintf("%s must be between %g and %g", fv.FieldName, min, max), errors.ErrCodeOutOfRange)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) PositiveFloat() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := deref(value); ok {
			if f, ok := v.(float64); ok && f <= 0 {
				return fv.fail(fmt.Sprintf("%s must be positive", fv.FieldName), errors.ErrCodeOutOfRange)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) NonNegativeFloat() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := deref(value); ok {
			if f, ok := v.(float64); ok && f < 0 {
				return fv.fail(fmt.Sprintf("%s must not be negative", fv.FieldName), errors.ErrCodeOutOfRange)
			}
		}
		return nil
	})
	return fv
}

// URL accepts absolute http(s) URLs.
func (fv *FieldValidator) URL() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		v, ok := deref(value)
		if !ok {
			return nil
		}
		s, _ := v.(string)
		u, err := url.Parse(s)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fv.fail(fmt.Sprintf("%s must be a valid URL", fv.FieldName), errors.ErrCodeInvalidFormat)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Email() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		v, ok := deref(value)
		if !ok {
			return nil
		}
		s, _ := v.(string)
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return fv.fail("invalid email address", errors.ErrCodeInvalidFormat)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Custom(validator func(interface{}) *errors.AppError) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

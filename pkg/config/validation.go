package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes one rejected configuration field.
type ValidationError struct {
	Field   string
	Tag     string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s failed validation on %q", e.Field, e.Tag)
}

// ValidationErrors aggregates every rejected field of one config.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	messages := make([]string, 0, len(e))
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("invalid configuration: %s", strings.Join(messages, "; "))
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validate checks every struct tag rule plus the cross-field rules the tags
// cannot express. A nil error means the config is runnable.
func (c *Config) Validate() error {
	validateOnce.Do(func() {
		validate = validator.New()
	})

	var errs ValidationErrors
	if err := validate.Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				errs = append(errs, ValidationError{
					Field:   fe.Namespace(),
					Tag:     fe.Tag(),
					Value:   fe.Value(),
					Message: validationMessage(fe),
				})
			}
		} else {
			errs = append(errs, ValidationError{Message: err.Error()})
		}
	}

	if c.GA.MutationFraction+c.GA.CrossoverFraction > 1 {
		errs = append(errs, ValidationError{
			Field:   "GA",
			Tag:     "fractions",
			Message: "mutation_fraction and crossover_fraction must sum to at most 1",
		})
	}
	if c.Cache.Type == "sqlite" && c.Cache.Enabled && c.Cache.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "Cache.Path",
			Tag:     "required",
			Message: "cache path is required for the sqlite cache",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Namespace(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Namespace(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Namespace(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Namespace(), fe.Param())
	default:
		return fmt.Sprintf("%s failed validation on %q", fe.Namespace(), fe.Tag())
	}
}

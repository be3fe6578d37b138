// Package validator checks configuration structs against their `validate`
// tags and reports violations by their config key names.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
	ValidateField(field string, value interface{}, rules ...string) error
}

// Rule is a custom string check registered under a tag name.
type Rule func(string) bool

// Option configures a Validator
type Option func(*validator.Validate) error

// WithRule registers fn as the tag name.
func WithRule(name string, fn Rule) Option {
	return func(v *validator.Validate) error {
		return v.RegisterValidation(name, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		})
	}
}

type structValidator struct {
	v *validator.Validate
}

func New(opts ...Option) (Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(keyName)
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	return &structValidator{v: v}, nil
}

// keyName reports fields by their mapstructure key.
func keyName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

func (s *structValidator) Validate(obj interface{}) error {
	return describe(s.v.Struct(obj))
}

func (s *structValidator) ValidateField(field string, value interface{}, rules ...string) error {
	if err := describe(s.v.Var(value, strings.Join(rules, ","))); err != nil {
		return fmt.Errorf("%s %w", field, err)
	}
	return nil
}

func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, message(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func message(fe validator.FieldError) string {
	key := fe.Namespace()
	// Drop the root type name.
	if i := strings.Index(key, "."); i >= 0 {
		key = key[i+1:]
	}
	if key == "" {
		key = "value"
	}
	switch fe.Tag() {
	case "required", "required_if":
		return key + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", key, fe.Param(), fe.Value())
	case "gt", "gte", "lt", "lte", "min", "max":
		return fmt.Sprintf("%s must be %s %s, got %v", key, fe.Tag(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q check, got %v", key, fe.Tag(), fe.Value())
	}
}

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ConfigurationError reports missing or invalid configuration. It is always
// fatal: nothing is processed once it occurs.
type ConfigurationError struct {
	// Field names the offending setting: a YAML key path, an environment
	// variable or a file path.
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validatorInstance reports field names by their env or yaml tag so messages
// match what the user actually wrote.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"env", "yaml"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return "-"
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
	})
	return validate
}

// validateStruct runs tag validation on v and converts failures into a
// *ConfigurationError naming the first offending field.
func validateStruct(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ConfigurationError{Field: "config", Err: err}
	}

	msgs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Errorf("%s failed %q validation (value %q)", displayName(fe), fe.Tag(), redact(fe)))
	}

	return &ConfigurationError{Field: displayName(fieldErrs[0]), Err: errors.Join(msgs...)}
}

// displayName drops the root struct name from the namespace: "Config.upload.url"
// becomes "upload.url". Environment variables are reported as is.
func displayName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// redact keeps secrets out of error messages.
func redact(fe validator.FieldError) string {
	if fe.Field() == EnvAPIKey {
		return "<redacted>"
	}
	return fmt.Sprint(fe.Value())
}

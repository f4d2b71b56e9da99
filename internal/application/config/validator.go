package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/doeshing/fif-go/internal/domain"
)

var logLevels = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true, "none": true}

var structValidator = newStructValidator()

// newStructValidator reports fields by their settings key (general.batTheme)
// instead of the Go field name.
func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("searchpolicy", func(fl validator.FieldLevel) bool {
		return domain.SearchPolicy(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return describe(fieldErrs[0])
		}
		return err
	}
	if err := validateCustomTasks(cfg.CustomTasks); err != nil {
		return err
	}
	if !logLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("log.level must be debug|info|warn|error|none, got %s", cfg.Log.Level)
	}
	return nil
}

func describe(fe validator.FieldError) error {
	key := fe.Namespace()
	if i := strings.Index(key, "."); i >= 0 {
		key = key[i+1:]
	}
	switch fe.Tag() {
	case "searchpolicy":
		return fmt.Errorf("%s must be always|never|noWorkspaceOnly, got %q", key, fe.Value())
	case "notblank":
		return fmt.Errorf("%s must be set", key)
	case "oneof":
		return fmt.Errorf("%s %v is not supported", key, fe.Value())
	default:
		return fmt.Errorf("%s failed %s check", key, fe.Tag())
	}
}

func validateCustomTasks(tasks []domain.CustomTask) error {
	seen := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		if seen[task.Name] {
			return fmt.Errorf("custom task %s is defined twice", task.Name)
		}
		seen[task.Name] = true
	}
	return nil
}

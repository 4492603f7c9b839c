// Package validate checks analysis requests and configuration before use.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/ppiankov/docket/internal/model"
)

// ErrInvalidRequest marks a request the caller must fix
var ErrInvalidRequest = errors.New("invalid request")

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
	})
	return instance
}

// Request validates an analysis request. A non-blank complaint or a
// non-empty conversation history is required.
func Request(req model.AnalysisRequest) error {
	if req.ToComplaint().IsEmpty() {
		return fmt.Errorf("%w: complaint text or conversation history is required", ErrInvalidRequest)
	}
	if err := get().Struct(req); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, describe(err))
	}
	return nil
}

// Config validates service configuration
func Config(cfg *model.Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}
	if err := get().Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %s", describe(err))
	}
	if cfg.Statutes.Backend == "postgres" && strings.TrimSpace(cfg.Statutes.DatabaseURL) == "" {
		return errors.New("configuration validation failed: statutes.database_url is required for the postgres backend")
	}
	if cfg.Statutes.Backend == "memory" && strings.TrimSpace(cfg.Statutes.SeedFile) == "" {
		return errors.New("configuration validation failed: statutes.seed_file is required for the memory backend")
	}
	return nil
}

// describe renders validation errors as field messages
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s exceeds maximum of %s", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(msgs, "; ")
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

package types

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the struct-level invariants of a normalized event.
func (e *CanonicalEvent) Validate() error {
	if err := structValidator().Struct(e); err != nil {
		return NewAppError(ErrCodeValidationInvalidEvent, "event failed validation", err)
	}
	return nil
}

// Validate checks the envelope and every event it carries.
func (b *EventBatch) Validate() error {
	if err := structValidator().Struct(b); err != nil {
		return NewAppError(ErrCodeValidationInvalidEvent, "event batch failed validation", err)
	}
	return nil
}

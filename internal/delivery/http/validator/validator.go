// Package validator adapts go-playground/validator to echo's Validator
// interface so handlers can call c.Validate on bound request structs.
package validator

import (
	domainerrors "gatekeeper/internal/domain/errors"

	playground "github.com/go-playground/validator/v10"
)

// EchoValidator wraps a configured validate instance.
type EchoValidator struct {
	validate *playground.Validate
}

// New builds the validator used by the echo server. Struct tags on the
// request DTOs drive the rules.
func New() *EchoValidator {
	return &EchoValidator{validate: playground.New(playground.WithRequiredStructEnabled())}
}

// Validate checks the bound struct and converts rule violations into the
// shared validation error so the error middleware renders them as 400s.
func (v *EchoValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	return nil
}

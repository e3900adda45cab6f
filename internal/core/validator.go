package core

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"mergington/internal/types"
)

// Validator wraps go-playground/validator and translates field failures into
// structured AppErrors that the response layer can serialize.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator with struct tag validation enabled.
func NewValidator(logger *slog.Logger) *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// ValidateStruct validates a request DTO against its `validate` tags. On
// failure it returns a *types.AppError whose Details map field names to the
// failed rule.
func (v *Validator) ValidateStruct(dst interface{}) error {
	err := v.validate.Struct(dst)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"validation target is not a struct",
			err,
		)
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]any, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			"request validation failed",
			err,
			details,
		)
	}

	return types.NewAppError(types.ErrCodeInternalUnexpected, "validation failed", err)
}

// ValidateEmail checks a single address against the validator's email rule.
func (v *Validator) ValidateEmail(email string) error {
	if err := v.validate.Var(email, "required,email"); err != nil {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidEmail,
			"invalid email address",
			err,
			map[string]any{"email": email},
		)
	}
	return nil
}

package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs the `validate` tags of v and folds failures into ErrValidation.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
}

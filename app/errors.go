package app

import (
	"affiliate/pkg/docstore"
	"affiliate/pkg/httperror"
	"errors"

	"github.com/go-playground/validator/v10"
)

// FieldError is one entry of a 422 response's details list.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func validationError(code string, err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return httperror.InternalServerError(
			code+".validation_error",
			"An unexpected validation error occurred",
			nil,
		).WithCause(err)
	}

	details := make([]FieldError, 0, len(ve))
	for _, fe := range ve {
		details = append(details, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: fieldMessage(fe),
		})
	}

	return httperror.UnprocessableEntity(
		code+".validation_failed",
		"Validation failed for the request",
		details,
	)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "slug":
		return "must contain only lowercase letters, digits and hyphens"
	case "http_url":
		return "must be a valid http or https URL"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed on the '" + fe.Tag() + "' rule"
	}
}

// storeError maps document store failures to client-facing errors.
func storeError(code, message string, err error) error {
	if errors.Is(err, docstore.ErrStoreUnavailable) {
		return httperror.ServiceUnavailable(
			"store.unavailable",
			"Database not available",
			nil,
		).WithCause(err)
	}

	return httperror.InternalServerError(code, message, nil).WithCause(err)
}

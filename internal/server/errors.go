package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/method-advisor/internal/llm"
	"github.com/jonathan/method-advisor/internal/recommend"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var validationErr *ErrValidation
	var configErr *llm.ConfigurationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &configErr):
		return http.StatusBadRequest
	case errors.Is(err, recommend.ErrEmptyCatalog):
		return http.StatusServiceUnavailable
	case errors.Is(err, recommend.ErrCancelled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

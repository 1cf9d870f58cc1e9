// Package httpx holds the JSON response and error mapping shared by the
// orders and cart handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/joao-fontenele/foodflow/internal/domain"
)

const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidQuantity = "INVALID_QUANTITY"
	CodeItemNotFound    = "ITEM_NOT_FOUND"
	CodeItemUnavailable = "ITEM_UNAVAILABLE"
	CodeInvalidStatus   = "INVALID_STATUS"
	CodeTerminalState   = "TERMINAL_STATE_VIOLATION"
	CodeNotFound        = "NOT_FOUND"
	CodePersistence     = "PERSISTENCE_FAILURE"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeInternal        = "INTERNAL"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, logger *slog.Logger, status int, code, message string) {
	WriteJSON(w, logger, status, ErrorResponse{Error: message, Code: code})
}

// WriteDomainError maps a core error onto its HTTP status. Persistence and
// unknown errors are logged and reported without internal detail.
func WriteDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code := Classify(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err, "code", code)
		message = "internal server error"
	}
	WriteError(w, logger, status, code, message)
}

func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest, CodeInvalidQuantity
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, domain.ErrItemNotFound):
		return http.StatusUnprocessableEntity, CodeItemNotFound
	case errors.Is(err, domain.ErrItemUnavailable):
		return http.StatusUnprocessableEntity, CodeItemUnavailable
	case errors.Is(err, domain.ErrTerminalState):
		return http.StatusConflict, CodeTerminalState
	case errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusConflict, CodeInvalidStatus
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusInternalServerError, CodePersistence
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// Decode reads a JSON body into v and runs its validate tags. An empty body
// decodes as the zero value. Failures wrap domain.ErrValidation.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}
	if err := validate.Struct(v); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			msgs := make([]string, 0, len(vErrs))
			for _, vErr := range vErrs {
				msgs = append(msgs, describe(vErr))
			}
			return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func describe(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "min", "gte":
		return field + " must be at least " + e.Param()
	case "max", "lte":
		return field + " must be at most " + e.Param()
	case "oneof":
		return field + " must be one of " + e.Param()
	default:
		return field + " is invalid"
	}
}

// Router is the registration surface of http.ServeMux, so handlers can be
// mounted on a plain mux or on one that decorates every route.
type Router interface {
	HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request))
}

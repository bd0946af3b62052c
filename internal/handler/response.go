package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/rice-ledger/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// AppErrorFor maps a domain error onto its API error. Unknown errors map to
// ErrInternalError.
func AppErrorFor(err error) *AppError {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return ErrResourceNotFound
	case errors.Is(err, domain.ErrUnknownField):
		return ErrUnknownField
	case errors.Is(err, domain.ErrNotEditable):
		return ErrNotEditable
	case errors.Is(err, domain.ErrInvalidOption):
		return ErrInvalidOption
	case errors.Is(err, domain.ErrEmptyImport):
		return ErrEmptyImport
	case errors.Is(err, domain.ErrNotEditing):
		return ErrNotEditing
	case errors.Is(err, domain.ErrNoPendingDelete):
		return ErrNoPendingDelete
	case errors.Is(err, domain.ErrImportKeyTaken):
		return ErrIdempotencyConflict
	case errors.Is(err, domain.ErrInvalidRequest):
		return ErrInvalidRequest
	default:
		return ErrInternalError
	}
}

func RespondDomainError(w http.ResponseWriter, err error) {
	appErr := AppErrorFor(err)
	if appErr == ErrInternalError {
		slog.Error("unhandled domain error", "error", err)
	}
	RespondAppError(w, appErr, nil)
}

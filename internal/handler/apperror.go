package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrPayloadTooLarge  = &AppError{http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body is too large"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrUnknownField          = &AppError{http.StatusBadRequest, "UNKNOWN_FIELD", "Unknown field"}
	ErrNotEditable           = &AppError{http.StatusUnprocessableEntity, "FIELD_NOT_EDITABLE", "Field is computed and cannot be edited"}
	ErrInvalidOption         = &AppError{http.StatusUnprocessableEntity, "INVALID_OPTION", "Value is not one of the allowed options"}
	ErrConfirmRequired       = &AppError{http.StatusPreconditionRequired, "CONFIRMATION_REQUIRED", "Deleting a record requires confirm=true"}
	ErrEmptyImport           = &AppError{http.StatusUnprocessableEntity, "EMPTY_IMPORT", "The file has no importable rows"}
	ErrUnsupportedFormat     = &AppError{http.StatusBadRequest, "UNSUPPORTED_FORMAT", "Export format must be csv or xlsx"}
	ErrNotEditing            = &AppError{http.StatusConflict, "NOT_EDITING", "No cell is being edited"}
	ErrNoPendingDelete       = &AppError{http.StatusConflict, "NO_PENDING_DELETE", "No delete is awaiting confirmation"}
	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used for a different file"}
)

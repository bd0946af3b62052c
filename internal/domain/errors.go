package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrUnknownField    = errors.New("unknown field")
	ErrNotEditable     = errors.New("field is not editable")
	ErrInvalidOption   = errors.New("value is not one of the field options")
	ErrNotEditing      = errors.New("no cell is being edited")
	ErrNoPendingDelete = errors.New("no delete awaiting confirmation")
	ErrEmptyImport     = errors.New("import has no data rows")

	// ErrImportKeyTaken is returned when an idempotency key already holds an
	// unexpired import receipt.
	ErrImportKeyTaken = errors.New("import key already used")
)

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
	"github.com/josh-kwaku/rice-ledger/internal/ledger"
	"github.com/josh-kwaku/rice-ledger/internal/logging"
	"github.com/josh-kwaku/rice-ledger/internal/service"
)

const (
	maxImportBytes    = 10 << 20
	maxIdempotencyKey = 255

	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "X-Idempotent-Replayed"
)

type recordService interface {
	List(ctx context.Context, owner uuid.UUID, q ledger.Query) ([]domain.Record, error)
	Stats(ctx context.Context, owner uuid.UUID, q ledger.Query) (ledger.Stats, error)
	AddRow(ctx context.Context, owner uuid.UUID, afterID string) (*domain.Record, error)
	UpdateField(ctx context.Context, owner uuid.UUID, id, key, value string) (*domain.Record, error)
	Delete(ctx context.Context, owner uuid.UUID, id string) error
	ImportOnce(ctx context.Context, owner uuid.UUID, key string, body []byte) (service.ImportResult, error)
	Export(ctx context.Context, owner uuid.UUID, q ledger.Query, format service.ExportFormat, w io.Writer) error
}

type RecordHandler struct {
	records recordService
	calc    *calc.Calculator
}

func NewRecordHandler(records recordService, c *calc.Calculator) *RecordHandler {
	return &RecordHandler{records: records, calc: c}
}

type fieldDTO struct {
	Key          string   `json:"key"`
	Label        string   `json:"label"`
	Kind         string   `json:"kind"`
	Editable     bool     `json:"editable"`
	Autocomplete bool     `json:"autocomplete,omitempty"`
	Options      []string `json:"options,omitempty"`
}

type recordDTO struct {
	domain.Record
	Tone calc.Tone `json:"tone,omitempty"`
}

func (h *RecordHandler) toRecordDTO(r domain.Record) recordDTO {
	return recordDTO{Record: r, Tone: h.calc.Tone(r)}
}

type createRecordRequest struct {
	AfterID string `json:"after_id"`
}

type updateFieldRequest struct {
	Field string  `json:"field"`
	Value *string `json:"value"`
}

func (r *updateFieldRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Field == "" {
		errs = append(errs, FieldError{Field: "field", Message: "required"})
	}
	if r.Value == nil {
		errs = append(errs, FieldError{Field: "value", Message: "required"})
	}
	return errs
}

// Fields describes the table columns in order.
func (h *RecordHandler) Fields(w http.ResponseWriter, r *http.Request) {
	fields := domain.AllFields()
	out := make([]fieldDTO, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldDTO{
			Key:          f.Key(),
			Label:        f.Label(),
			Kind:         string(f.Kind()),
			Editable:     f.Editable(),
			Autocomplete: f.Autocomplete(),
			Options:      f.Options(),
		})
	}
	RespondSuccess(w, http.StatusOK, out)
}

func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, appErr := ownerFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	q, fields := parseQuery(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	records, err := h.records.List(r.Context(), owner, q)
	if err != nil {
		logging.FromContext(r.Context()).Warn("record list failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	out := make([]recordDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, h.toRecordDTO(rec))
	}
	RespondSuccess(w, http.StatusOK, out)
}

func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, appErr := ownerFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	rec, err := h.records.AddRow(r.Context(), owner, req.AfterID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("record creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/records/%s", rec.ID))
	RespondSuccess(w, http.StatusCreated, h.toRecordDTO(*rec))
}

// Update commits one field of a record.
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, appErr := ownerFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req updateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	rec, err := h.records.UpdateField(r.Context(), owner, r.PathValue("id"), req.Field, *req.Value)
	if err != nil {
		logging.FromContext(r.Context()).Warn("record update failed", "field", req.Field, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, h.toRecordDTO(*rec))
}

func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, appErr := ownerFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if r.URL.Query().Get("confirm") != "true" {
		RespondAppError(w, ErrConfirmRequired, nil)
		return
	}

	if err := h.records.Delete(r.Context(), owner, r.PathValue("id")); err != nil {
		logging.FromContext(r.Context()).Warn("record delete failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordHandler) Stats(w http.ResponseWriter, r *http.Request) {
	owner, appErr := ownerFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	q, fields := parseQuery(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	stats, err := h.records.Stats(r.Context(), owner, q)
	if err != nil {
		logging.FromContext(r.Context()).Warn("stats failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, stats)
}

// Export downloads the filtered view as csv (default) or xlsx.
func (h *RecordHandler) Export(w http.ResponseWriter, r *http.Request) {
	owner, appErr := ownerFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	q, fields := parseQuery(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	format := service.ExportFormat(strings.ToLower(r.URL.Query().Get("format")))
	if format == "" {
		format = service.ExportCSV
	}
	if format != service.ExportCSV && format != service.ExportXLSX {
		RespondAppError(w, ErrUnsupportedFormat, nil)
		return
	}

	var buf bytes.Buffer
	if err := h.records.Export(r.Context(), owner, q, format, &buf); err != nil {
		logging.FromContext(r.Context()).Error("export failed", "format", format, "error", err)
		RespondDomainError(w, err)
		return
	}

	filename := fmt.Sprintf("rice-ledger-%s.%s", h.calc.Today(), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Error("failed to write export", "error", err)
	}
}

type importResponse struct {
	Imported int  `json:"imported"`
	Replayed bool `json:"replayed"`
}

// Import accepts a CSV export either as the raw body or as the "file" part of
// a multipart form. The Idempotency-Key header is required: a retry carrying
// the same key and file reports the first import instead of adding the rows
// twice.
func (h *RecordHandler) Import(w http.ResponseWriter, r *http.Request) {
	owner, appErr := ownerFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if key == "" {
		RespondAppError(w, ErrMissingIdempotencyKey, nil)
		return
	}
	if len(key) > maxIdempotencyKey {
		RespondValidationError(w, []FieldError{{Field: idempotencyKeyHeader, Message: "must be at most 255 characters"}})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var src io.Reader = r.Body
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			respondBodyError(w, err)
			return
		}
		defer file.Close()
		src = file
	}
	body, err := io.ReadAll(src)
	if err != nil {
		respondBodyError(w, err)
		return
	}

	res, err := h.records.ImportOnce(r.Context(), owner, key, body)
	if err != nil {
		logging.FromContext(r.Context()).Warn("import failed", "idempotency_key", key, "error", err)
		RespondDomainError(w, err)
		return
	}

	if res.Replayed {
		w.Header().Set(replayedHeader, "true")
	}
	RespondSuccess(w, http.StatusCreated, importResponse{Imported: res.Imported, Replayed: res.Replayed})
}

func respondBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondAppError(w, ErrPayloadTooLarge, nil)
		return
	}
	RespondAppError(w, ErrInvalidRequest, nil)
}

// parseQuery reads the view parameters shared by list, stats and export.
func parseQuery(r *http.Request) (ledger.Query, []FieldError) {
	v := r.URL.Query()
	q := ledger.Query{
		Search: v.Get("search"),
		Status: v.Get("status"),
		From:   calc.NormalizeDate(v.Get("from")),
		To:     calc.NormalizeDate(v.Get("to")),
	}

	var errs []FieldError
	if s := v.Get("sort"); s != "" {
		f, err := domain.ParseField(s)
		if err != nil {
			errs = append(errs, FieldError{Field: "sort", Message: "unknown field"})
		}
		q.SortBy = f
	}
	switch strings.ToLower(v.Get("dir")) {
	case "", "asc":
	case "desc":
		q.Desc = true
	default:
		errs = append(errs, FieldError{Field: "dir", Message: "must be asc or desc"})
	}
	for _, key := range []string{"from", "to"} {
		if d := v.Get(key); d != "" {
			if _, ok := calc.ParseDate(d); !ok {
				errs = append(errs, FieldError{Field: key, Message: "must be a date (YYYY-MM-DD or DD-MM-YYYY)"})
			}
		}
	}
	return q, errs
}

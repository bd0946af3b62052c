package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/rice-ledger/internal/auth"
	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
	"github.com/josh-kwaku/rice-ledger/internal/ledger"
	"github.com/josh-kwaku/rice-ledger/internal/service"
)

type mockRecordService struct {
	records  []domain.Record
	err      error
	query    ledger.Query
	afterID  string
	updated  [3]string
	deleted  string
	format   service.ExportFormat

	importKey string
	imported  string
	replay    bool
}

func (m *mockRecordService) List(_ context.Context, _ uuid.UUID, q ledger.Query) ([]domain.Record, error) {
	m.query = q
	return m.records, m.err
}

func (m *mockRecordService) Stats(_ context.Context, _ uuid.UUID, q ledger.Query) (ledger.Stats, error) {
	m.query = q
	if m.err != nil {
		return ledger.Stats{}, m.err
	}
	return ledger.Stats{Total: len(m.records)}, nil
}

func (m *mockRecordService) AddRow(_ context.Context, _ uuid.UUID, afterID string) (*domain.Record, error) {
	m.afterID = afterID
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Record{ID: "rec-1", Date: "2025-03-15"}, nil
}

func (m *mockRecordService) UpdateField(_ context.Context, _ uuid.UUID, id, key, value string) (*domain.Record, error) {
	m.updated = [3]string{id, key, value}
	if m.err != nil {
		return nil, m.err
	}
	rec := domain.Record{ID: id}
	f, _ := domain.ParseField(key)
	rec.Set(f, value)
	return &rec, nil
}

func (m *mockRecordService) Delete(_ context.Context, _ uuid.UUID, id string) error {
	m.deleted = id
	return m.err
}

func (m *mockRecordService) ImportOnce(_ context.Context, _ uuid.UUID, key string, body []byte) (service.ImportResult, error) {
	m.importKey = key
	m.imported = string(body)
	if m.err != nil {
		return service.ImportResult{}, m.err
	}
	return service.ImportResult{Imported: strings.Count(strings.TrimSpace(m.imported), "\n"), Replayed: m.replay}, nil
}

func (m *mockRecordService) Export(_ context.Context, _ uuid.UUID, q ledger.Query, format service.ExportFormat, w io.Writer) error {
	m.query = q
	m.format = format
	if m.err != nil {
		return m.err
	}
	_, err := io.WriteString(w, "Date,Miller Name\n")
	return err
}

func testCalc() *calc.Calculator {
	return calc.New(func() time.Time { return time.Date(2025, 3, 15, 9, 0, 0, 0, time.Local) })
}

func newTestRouter(svc *mockRecordService) http.Handler {
	h := NewRecordHandler(svc, testCalc())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/fields", h.Fields)
	mux.HandleFunc("GET /api/v1/records", h.List)
	mux.HandleFunc("POST /api/v1/records", h.Create)
	mux.HandleFunc("PATCH /api/v1/records/{id}", h.Update)
	mux.HandleFunc("DELETE /api/v1/records/{id}", h.Delete)
	mux.HandleFunc("GET /api/v1/records/export", h.Export)
	mux.HandleFunc("POST /api/v1/records/import", h.Import)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	return mux
}

func doRequest(t *testing.T, router http.Handler, req *http.Request, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	if authed {
		req = req.WithContext(auth.ContextWithOwnerID(req.Context(), uuid.New()))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestFields(t *testing.T) {
	router := newTestRouter(&mockRecordService{})
	rr := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/fields", nil), true)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data []fieldDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data, len(domain.AllFields()))
	assert.Equal(t, "date", resp.Data[0].Key)
	assert.Equal(t, "Miller Name", resp.Data[1].Label)
	assert.True(t, resp.Data[1].Autocomplete)

	var cc fieldDTO
	for _, f := range resp.Data {
		if f.Key == "ccPct" {
			cc = f
		}
	}
	assert.Equal(t, "select", cc.Kind)
	assert.Equal(t, []string{"", "1%", "2%", "3%", "4%"}, cc.Options)
}

func TestListRecords(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		authed     bool
		svcErr     error
		wantStatus int
		wantCode   string
		check      func(t *testing.T, q ledger.Query)
	}{
		{
			name:       "defaults",
			url:        "/api/v1/records",
			authed:     true,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, q ledger.Query) {
				assert.Equal(t, ledger.Query{}, q)
			},
		},
		{
			name:       "filters and sort",
			url:        "/api/v1/records?search=balaji&status=PENDING&from=01-02-2025&to=2025-02-28&sort=amount&dir=desc",
			authed:     true,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, q ledger.Query) {
				assert.Equal(t, "balaji", q.Search)
				assert.Equal(t, ledger.StatusPending, q.Status)
				assert.Equal(t, "2025-02-01", q.From)
				assert.Equal(t, "2025-02-28", q.To)
				assert.Equal(t, domain.FieldAmount, q.SortBy)
				assert.True(t, q.Desc)
			},
		},
		{
			name:       "unknown sort field",
			url:        "/api/v1/records?sort=colour",
			authed:     true,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "bad direction",
			url:        "/api/v1/records?dir=sideways",
			authed:     true,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "bad date",
			url:        "/api/v1/records?from=yesterday",
			authed:     true,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "missing owner",
			url:        "/api/v1/records",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "MISSING_TOKEN",
		},
		{
			name:       "store failure",
			url:        "/api/v1/records",
			authed:     true,
			svcErr:     errors.New("connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockRecordService{
				records: []domain.Record{{ID: "a", Date: "2025-02-01", Status: "42 DAYS PENDING"}},
				err:     tc.svcErr,
			}
			rr := doRequest(t, newTestRouter(svc), httptest.NewRequest(http.MethodGet, tc.url, nil), tc.authed)
			assert.Equal(t, tc.wantStatus, rr.Code)

			resp := decodeResponse(t, rr)
			if tc.wantCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
				return
			}
			assert.True(t, resp.Success)
			if tc.check != nil {
				tc.check(t, svc.query)
			}
		})
	}
}

func TestListRecordsIncludesTone(t *testing.T) {
	svc := &mockRecordService{records: []domain.Record{
		{ID: "old", Date: "2025-01-01"},
		{ID: "paid", Date: "2025-01-01", PaymentDate: "2025-01-05"},
	}}
	rr := doRequest(t, newTestRouter(svc), httptest.NewRequest(http.MethodGet, "/api/v1/records", nil), true)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data []map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "old", resp.Data[0]["id"])
	assert.Equal(t, string(calc.ToneOverdue), resp.Data[0]["tone"])
	assert.Equal(t, string(calc.ToneCleared), resp.Data[1]["tone"])
}

func TestCreateRecord(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		svcErr      error
		wantStatus  int
		wantAfterID string
		wantCode    string
	}{
		{name: "empty body", wantStatus: http.StatusCreated},
		{name: "insert below", body: `{"after_id":"r9"}`, wantStatus: http.StatusCreated, wantAfterID: "r9"},
		{name: "malformed body", body: `{"after_id":`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
		{name: "unknown anchor", body: `{"after_id":"gone"}`, svcErr: fmt.Errorf("AddRow: %w", domain.ErrNotFound), wantStatus: http.StatusNotFound, wantCode: "RESOURCE_NOT_FOUND"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockRecordService{err: tc.svcErr}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/records", strings.NewReader(tc.body))
			rr := doRequest(t, newTestRouter(svc), req, true)
			assert.Equal(t, tc.wantStatus, rr.Code)

			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, decodeResponse(t, rr).Error.Code)
				return
			}
			assert.Equal(t, tc.wantAfterID, svc.afterID)
			assert.Equal(t, "/api/v1/records/rec-1", rr.Header().Get("Location"))
		})
	}
}

func TestUpdateRecord(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{name: "commit", body: `{"field":"qty","value":"38.16"}`, wantStatus: http.StatusOK},
		{name: "clear value", body: `{"field":"bank","value":""}`, wantStatus: http.StatusOK},
		{name: "missing value", body: `{"field":"qty"}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "missing field", body: `{"value":"1"}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "not json", body: `qty=1`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
		{name: "derived field", body: `{"field":"amount","value":"1"}`, svcErr: domain.ErrNotEditable, wantStatus: http.StatusUnprocessableEntity, wantCode: "FIELD_NOT_EDITABLE"},
		{name: "unknown field", body: `{"field":"colour","value":"red"}`, svcErr: domain.ErrUnknownField, wantStatus: http.StatusBadRequest, wantCode: "UNKNOWN_FIELD"},
		{name: "bad option", body: `{"field":"ccPct","value":"9%"}`, svcErr: domain.ErrInvalidOption, wantStatus: http.StatusUnprocessableEntity, wantCode: "INVALID_OPTION"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockRecordService{err: tc.svcErr}
			req := httptest.NewRequest(http.MethodPatch, "/api/v1/records/r1", strings.NewReader(tc.body))
			rr := doRequest(t, newTestRouter(svc), req, true)
			assert.Equal(t, tc.wantStatus, rr.Code)

			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, decodeResponse(t, rr).Error.Code)
				return
			}
			assert.Equal(t, "r1", svc.updated[0])
		})
	}
}

func TestDeleteRecord(t *testing.T) {
	t.Run("requires confirmation", func(t *testing.T) {
		svc := &mockRecordService{}
		rr := doRequest(t, newTestRouter(svc), httptest.NewRequest(http.MethodDelete, "/api/v1/records/r1", nil), true)
		assert.Equal(t, http.StatusPreconditionRequired, rr.Code)
		assert.Empty(t, svc.deleted)
	})

	t.Run("confirmed", func(t *testing.T) {
		svc := &mockRecordService{}
		rr := doRequest(t, newTestRouter(svc), httptest.NewRequest(http.MethodDelete, "/api/v1/records/r1?confirm=true", nil), true)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "r1", svc.deleted)
	})

	t.Run("unknown record", func(t *testing.T) {
		svc := &mockRecordService{err: domain.ErrNotFound}
		rr := doRequest(t, newTestRouter(svc), httptest.NewRequest(http.MethodDelete, "/api/v1/records/r1?confirm=true", nil), true)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestExportRecords(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantFormat service.ExportFormat
		wantType   string
	}{
		{name: "csv by default", url: "/api/v1/records/export", wantStatus: http.StatusOK, wantFormat: service.ExportCSV, wantType: "text/csv; charset=utf-8"},
		{name: "xlsx", url: "/api/v1/records/export?format=XLSX", wantStatus: http.StatusOK, wantFormat: service.ExportXLSX, wantType: service.ExportXLSX.ContentType()},
		{name: "unsupported", url: "/api/v1/records/export?format=pdf", wantStatus: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockRecordService{}
			rr := doRequest(t, newTestRouter(svc), httptest.NewRequest(http.MethodGet, tc.url, nil), true)
			assert.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantStatus != http.StatusOK {
				return
			}
			assert.Equal(t, tc.wantFormat, svc.format)
			assert.Equal(t, tc.wantType, rr.Header().Get("Content-Type"))
			assert.Contains(t, rr.Header().Get("Content-Disposition"), "rice-ledger-2025-03-15."+string(tc.wantFormat))
		})
	}
}

func importRequest(body io.Reader, contentType, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/records/import", body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestImportRecords(t *testing.T) {
	const csvBody = "Date,Miller Name\n2025-02-02,Sri Balaji Mills\n2025-03-05,Lotus\n"

	t.Run("raw body", func(t *testing.T) {
		svc := &mockRecordService{}
		rr := doRequest(t, newTestRouter(svc), importRequest(strings.NewReader(csvBody), "text/csv", "import-1"), true)
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp struct {
			Data importResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, importResponse{Imported: 2}, resp.Data)
		assert.Equal(t, csvBody, svc.imported)
		assert.Equal(t, "import-1", svc.importKey)
		assert.Empty(t, rr.Header().Get(replayedHeader))
	})

	t.Run("multipart file", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "ledger.csv")
		require.NoError(t, err)
		_, err = io.WriteString(part, csvBody)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		svc := &mockRecordService{}
		rr := doRequest(t, newTestRouter(svc), importRequest(&body, mw.FormDataContentType(), "import-2"), true)
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, csvBody, svc.imported)
	})

	t.Run("replayed retry", func(t *testing.T) {
		svc := &mockRecordService{replay: true}
		rr := doRequest(t, newTestRouter(svc), importRequest(strings.NewReader(csvBody), "text/csv", "import-1"), true)
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "true", rr.Header().Get(replayedHeader))

		var resp struct {
			Data importResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, importResponse{Imported: 2, Replayed: true}, resp.Data)
	})

	multipartWithoutFile := func() (io.Reader, string) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		_ = mw.WriteField("note", "no file")
		_ = mw.Close()
		return &body, mw.FormDataContentType()
	}
	noFileBody, noFileType := multipartWithoutFile()

	tests := []struct {
		name       string
		svc        *mockRecordService
		req        *http.Request
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing key",
			svc:        &mockRecordService{},
			req:        importRequest(strings.NewReader(csvBody), "text/csv", ""),
			wantStatus: http.StatusBadRequest,
			wantCode:   "MISSING_IDEMPOTENCY_KEY",
		},
		{
			name:       "oversized key",
			svc:        &mockRecordService{},
			req:        importRequest(strings.NewReader(csvBody), "text/csv", strings.Repeat("k", 256)),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "multipart without file",
			svc:        &mockRecordService{},
			req:        importRequest(noFileBody, noFileType, "import-3"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "no rows",
			svc:        &mockRecordService{err: domain.ErrEmptyImport},
			req:        importRequest(strings.NewReader("Date\n"), "text/csv", "import-4"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "EMPTY_IMPORT",
		},
		{
			name:       "key reused for another file",
			svc:        &mockRecordService{err: fmt.Errorf("ImportOnce: %w", domain.ErrImportKeyTaken)},
			req:        importRequest(strings.NewReader(csvBody), "text/csv", "import-1"),
			wantStatus: http.StatusConflict,
			wantCode:   "IDEMPOTENCY_CONFLICT",
		},
		{
			name:       "too large",
			svc:        &mockRecordService{},
			req:        importRequest(strings.NewReader(strings.Repeat("x", maxImportBytes+1)), "text/csv", "import-5"),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "PAYLOAD_TOO_LARGE",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, newTestRouter(tc.svc), tc.req, true)
			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Equal(t, tc.wantCode, decodeResponse(t, rr).Error.Code)
		})
	}
}

func TestStats(t *testing.T) {
	svc := &mockRecordService{records: make([]domain.Record, 3)}
	rr := doRequest(t, newTestRouter(svc), httptest.NewRequest(http.MethodGet, "/api/v1/stats?status=Cleared", nil), true)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.EqualValues(t, 3, resp.Data["total"])
	assert.Equal(t, "Cleared", svc.query.Status)
}

func TestAppErrorFor(t *testing.T) {
	tests := []struct {
		err  error
		want *AppError
	}{
		{fmt.Errorf("Get: %w", domain.ErrNotFound), ErrResourceNotFound},
		{domain.ErrUnknownField, ErrUnknownField},
		{domain.ErrNotEditable, ErrNotEditable},
		{domain.ErrInvalidOption, ErrInvalidOption},
		{domain.ErrEmptyImport, ErrEmptyImport},
		{domain.ErrNotEditing, ErrNotEditing},
		{domain.ErrNoPendingDelete, ErrNoPendingDelete},
		{domain.ErrInvalidRequest, ErrInvalidRequest},
		{fmt.Errorf("ImportOnce: %w", domain.ErrImportKeyTaken), ErrIdempotencyConflict},
		{errors.New("boom"), ErrInternalError},
	}

	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Same(t, tc.want, AppErrorFor(tc.err))
		})
	}
}

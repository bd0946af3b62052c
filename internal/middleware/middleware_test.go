package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/rice-ledger/internal/auth"
	"github.com/josh-kwaku/rice-ledger/internal/handler"
	"github.com/josh-kwaku/rice-ledger/internal/logging"
)

const testSecret = "test-secret-for-middleware"

func errorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func ownerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, ok := auth.OwnerIDFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		fmt.Fprint(w, owner.String())
	})
}

func TestAuth(t *testing.T) {
	owner := uuid.New()
	valid, err := auth.GenerateToken(owner, "Ravi", testSecret, time.Hour)
	require.NoError(t, err)
	foreign, err := auth.GenerateToken(owner, "Ravi", "another-secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		method     string
		target     string
		header     string
		wantStatus int
		wantCode   string
	}{
		{name: "bearer header", method: http.MethodGet, target: "/api/v1/records", header: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "query token on GET", method: http.MethodGet, target: "/ws?token=" + valid, wantStatus: http.StatusOK},
		{name: "query token on POST", method: http.MethodPost, target: "/api/v1/records?token=" + valid, wantStatus: http.StatusUnauthorized, wantCode: "MISSING_TOKEN"},
		{name: "missing", method: http.MethodGet, target: "/api/v1/records", wantStatus: http.StatusUnauthorized, wantCode: "MISSING_TOKEN"},
		{name: "not bearer", method: http.MethodGet, target: "/api/v1/records", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_TOKEN"},
		{name: "wrong secret", method: http.MethodGet, target: "/api/v1/records", header: "Bearer " + foreign, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_TOKEN"},
	}

	h := Auth(testSecret)(ownerEcho())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, errorCode(t, rr.Body))
				return
			}
			assert.Equal(t, owner.String(), rr.Body.String())
		})
	}
}

func TestRecovery(t *testing.T) {
	tests := []struct {
		name       string
		next       http.HandlerFunc
		wantStatus int
		wantBody   bool
	}{
		{
			name:       "panic before writing",
			next:       func(http.ResponseWriter, *http.Request) { panic("boom") },
			wantStatus: http.StatusInternalServerError,
			wantBody:   true,
		},
		{
			name: "panic after the response started",
			next: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = io.WriteString(w, "Date,Miller Name\n")
				panic("boom")
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := RequestID(Recovery(tc.next))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/records/export", nil)
			req.Header.Set(requestIDHeader, "req-7")
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			if !tc.wantBody {
				assert.Equal(t, "Date,Miller Name\n", rr.Body.String())
				return
			}
			var resp handler.APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
			assert.Equal(t, map[string]any{"request_id": "req-7"}, resp.Error.Details)
		})
	}
}

func TestRecoveryRepanicsOnAbort(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		wantKept bool
	}{
		{name: "client id kept", incoming: "req-42.retry_1", wantKept: true},
		{name: "missing", incoming: ""},
		{name: "log injection", incoming: "abc\nlevel=ERROR msg=forged"},
		{name: "spaces", incoming: "req 42"},
		{name: "too long", incoming: strings.Repeat("a", maxRequestID+1)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = logging.RequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.incoming != "" {
				req.Header.Set(requestIDHeader, tc.incoming)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, seen, rr.Header().Get(requestIDHeader))
			if tc.wantKept {
				assert.Equal(t, tc.incoming, seen)
				return
			}
			_, err := uuid.Parse(seen)
			assert.NoError(t, err)
		})
	}
}

func TestLoggingTagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	owner := uuid.New()
	h := RequestID(Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Info("listing records")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	req.Header.Set(requestIDHeader, "req-9")
	h.ServeHTTP(httptest.NewRecorder(), req.WithContext(auth.ContextWithOwnerID(req.Context(), owner)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, "req-9", entry["request_id"])
		assert.Equal(t, owner.String(), entry["owner_id"])
	}
}

func TestLoggingPassesWebsocketUpgrades(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		_ = ws.WriteMessage(websocket.TextMessage, []byte("hello"))
	})))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()

	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(msg))
}

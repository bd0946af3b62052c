package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/rice-ledger/internal/logging"
)

const (
	requestIDHeader = "X-Request-ID"
	maxRequestID    = 64
)

// RequestID tags every request with an id and echoes it in the response.
// A client-supplied X-Request-ID is kept when it is a short token; anything
// else is replaced so it cannot inject text into the logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestID {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

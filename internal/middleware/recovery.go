package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"runtime/debug"

	"github.com/josh-kwaku/rice-ledger/internal/handler"
	"github.com/josh-kwaku/rice-ledger/internal/logging"
)

// startedWriter notes whether the response has begun, so a late panic does
// not append an error body to a half-written export or a hijacked websocket.
type startedWriter struct {
	http.ResponseWriter
	started bool
}

func (w *startedWriter) WriteHeader(code int) {
	w.started = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *startedWriter) Write(b []byte) (int, error) {
	w.started = true
	return w.ResponseWriter.Write(b)
}

func (w *startedWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.started = true
	return h.Hijack()
}

// Recovery logs a handler panic and answers 500 with the request id in the
// error details. http.ErrAbortHandler is re-raised so the server still drops
// the connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &startedWriter{ResponseWriter: w}
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			logging.FromContext(r.Context()).Error("panic recovered",
				"error", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			if sw.started {
				return
			}
			handler.RespondAppError(w, handler.ErrInternalError, map[string]string{
				"request_id": logging.RequestID(r.Context()),
			})
		}()
		next.ServeHTTP(sw, r)
	})
}

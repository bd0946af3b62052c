// Package live serves editing sessions over websockets. Each connection owns
// a session.Session fed by the owner's change feed.
package live

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/josh-kwaku/rice-ledger/internal/auth"
	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
	"github.com/josh-kwaku/rice-ledger/internal/feed"
	"github.com/josh-kwaku/rice-ledger/internal/handler"
	"github.com/josh-kwaku/rice-ledger/internal/logging"
	"github.com/josh-kwaku/rice-ledger/internal/service"
	"github.com/josh-kwaku/rice-ledger/internal/session"
)

type storeFactory interface {
	ForOwner(owner uuid.UUID) *service.OwnerStore
}

type recordFeed interface {
	Subscribe(ctx context.Context, owner uuid.UUID, fn feed.Handler) (func(), error)
}

type Handler struct {
	stores       storeFactory
	feed         recordFeed
	calc         *calc.Calculator
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

func NewHandler(stores storeFactory, f recordFeed, c *calc.Calculator, writeTimeout time.Duration, allowedOrigins []string) *Handler {
	return &Handler{
		stores:       stores,
		feed:         f,
		calc:         c,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker allows same-origin requests, plus any origin in allowed. A
// single "*" allows everything.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin] || origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}

// Serve upgrades the request and runs an editing session until the client
// disconnects.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.OwnerIDFromContext(r.Context())
	if !ok {
		handler.RespondAppError(w, handler.ErrMissingToken, nil)
		return
	}
	requestID := logging.RequestID(r.Context())
	logger := logging.FromContext(r.Context()).With("owner_id", owner)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newConn(ws, h.calc, logger, requestID)
	c.sess = session.New(h.stores.ForOwner(owner), h.calc, h.writeTimeout, logger, c.deliver)

	unsubscribe, err := h.feed.Subscribe(r.Context(), owner, func(records []domain.Record) {
		c.sess.Replace(records)
	})
	if err != nil {
		logger.Error("failed to load records for live session", "error", err)
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = ws.WriteJSON(errorMessage(err, requestID))
		ws.Close()
		return
	}

	logger.Info("live session opened")
	go c.writePump()
	c.readPump()

	unsubscribe()
	c.flush()
	logger.Info("live session closed")
}

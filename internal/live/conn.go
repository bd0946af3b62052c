package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
	"github.com/josh-kwaku/rice-ledger/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 256
	flushTimeout   = 15 * time.Second
)

// conn is one browser tab editing one owner's ledger.
type conn struct {
	ws        *websocket.Conn
	sess      *session.Session
	calc      *calc.Calculator
	logger    *slog.Logger
	requestID string

	send      chan serverMessage
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, c *calc.Calculator, logger *slog.Logger, requestID string) *conn {
	return &conn{
		ws:        ws,
		calc:      c,
		logger:    logger,
		requestID: requestID,
		send:      make(chan serverMessage, sendBuffer),
		done:      make(chan struct{}),
	}
}

// deliver is the session listener. It never blocks: a client too slow to
// drain its buffer is disconnected.
func (c *conn) deliver(ev session.Event) {
	c.push(toMessage(c.calc, ev, c.requestID))
}

func (c *conn) push(msg serverMessage) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		c.logger.Warn("live client too slow, disconnecting")
		c.close()
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readPump dispatches client messages until the socket closes.
func (c *conn) readPump() {
	defer c.close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("live connection closed unexpectedly", "error", err)
			}
			return
		}
		if err := c.dispatch(msg); err != nil {
			c.logger.Debug("live message rejected", "type", msg.Type, "error", err)
			c.push(errorMessage(err, c.requestID))
		}
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				c.logger.Debug("live write failed", "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *conn) dispatch(msg clientMessage) error {
	s := c.sess
	switch msg.Type {
	case msgActivate:
		f, err := domain.ParseField(msg.Field)
		if err != nil {
			return err
		}
		return s.Activate(session.CellRef{RecordID: msg.RecordID, Field: f})
	case msgInput:
		return s.Input(msg.Text)
	case msgKey:
		key, ok := session.ParseKey(msg.Key)
		if !ok {
			return fmt.Errorf("key %q: %w", msg.Key, domain.ErrInvalidRequest)
		}
		return s.HandleKey(key, msg.Shift)
	case msgCommit:
		s.Commit()
	case msgCancel:
		s.Cancel()
	case msgSelect:
		return s.SelectSuggestion(msg.Index)
	case msgQuery:
		if msg.Query == nil {
			return fmt.Errorf("query: %w", domain.ErrInvalidRequest)
		}
		q := *msg.Query
		cur := s.Query()
		q.SortBy, q.Desc = cur.SortBy, cur.Desc
		s.SetQuery(q)
	case msgSort:
		f, err := domain.ParseField(msg.Field)
		if err != nil {
			return err
		}
		return s.ToggleSort(f)
	case msgAddRow:
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		_, err := s.AddRow(ctx, msg.AfterID)
		return err
	case msgDelete:
		return s.RequestDelete(msg.RecordID)
	case msgConfirmDelete:
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		return s.ConfirmDelete(ctx)
	case msgDismissDelete:
		s.DismissDelete()
	default:
		return fmt.Errorf("message %q: %w", msg.Type, domain.ErrInvalidRequest)
	}
	return nil
}

// flush waits for the session's background writes after the client left.
func (c *conn) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := c.sess.Flush(ctx); err != nil {
		c.logger.Warn("pending writes did not finish", "error", err)
	}
}

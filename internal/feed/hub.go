// Package feed fans an owner's current record set out to every live
// subscriber whenever the store reports a change.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/josh-kwaku/rice-ledger/internal/domain"
)

type recordLister interface {
	List(ctx context.Context, owner uuid.UUID) ([]domain.Record, error)
}

type Handler func(records []domain.Record)

type Hub struct {
	records recordLister
	logger  *slog.Logger

	mu     sync.Mutex
	subs   map[uuid.UUID]map[int]Handler
	nextID int

	// Serializes load-and-deliver so subscribers never see an older set
	// after a newer one.
	publishMu sync.Mutex
}

func NewHub(records recordLister, logger *slog.Logger) *Hub {
	return &Hub{
		records: records,
		logger:  logger,
		subs:    make(map[uuid.UUID]map[int]Handler),
	}
}

// Subscribe delivers the owner's current records to fn and then again after
// every change. The returned function removes the subscription.
func (h *Hub) Subscribe(ctx context.Context, owner uuid.UUID, fn Handler) (func(), error) {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	records, err := h.records.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("Subscribe: %w", err)
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[owner] == nil {
		h.subs[owner] = make(map[int]Handler)
	}
	h.subs[owner][id] = fn
	count := len(h.subs[owner])
	h.mu.Unlock()

	h.logger.Debug("feed subscriber added", "owner_id", owner, "subscribers", count)
	fn(records)

	return func() { h.unsubscribe(owner, id) }, nil
}

func (h *Hub) unsubscribe(owner uuid.UUID, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[owner], id)
	if len(h.subs[owner]) == 0 {
		delete(h.subs, owner)
	}
}

// Publish reloads the owner's records and hands them to every subscriber.
func (h *Hub) Publish(ctx context.Context, owner uuid.UUID) {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	handlers := h.handlers(owner)
	if len(handlers) == 0 {
		return
	}

	records, err := h.records.List(ctx, owner)
	if err != nil {
		h.logger.Error("failed to load records for subscribers", "owner_id", owner, "error", err)
		return
	}
	for _, fn := range handlers {
		// Each subscriber gets its own slice.
		fn(append([]domain.Record(nil), records...))
	}
}

// PublishAll republishes every owner with live subscribers.
func (h *Hub) PublishAll(ctx context.Context) {
	h.mu.Lock()
	owners := make([]uuid.UUID, 0, len(h.subs))
	for owner := range h.subs {
		owners = append(owners, owner)
	}
	h.mu.Unlock()

	for _, owner := range owners {
		h.Publish(ctx, owner)
	}
}

// Subscribers returns the number of live subscriptions for owner.
func (h *Hub) Subscribers(owner uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[owner])
}

func (h *Hub) handlers(owner uuid.UUID) []Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Handler, 0, len(h.subs[owner]))
	for _, fn := range h.subs[owner] {
		out = append(out, fn)
	}
	return out
}

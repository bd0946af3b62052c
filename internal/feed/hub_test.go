package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/rice-ledger/internal/domain"
)

type fakeLister struct {
	mu      sync.Mutex
	records map[uuid.UUID][]domain.Record
	calls   int
	err     error
}

func (f *fakeLister) List(_ context.Context, owner uuid.UUID) ([]domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Record(nil), f.records[owner]...), nil
}

func (f *fakeLister) set(owner uuid.UUID, records ...domain.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[owner] = records
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubSubscribeDeliversCurrentSet(t *testing.T) {
	owner := uuid.New()
	lister := &fakeLister{records: map[uuid.UUID][]domain.Record{owner: {{ID: "a"}}}}
	hub := NewHub(lister, discardLogger())

	var got [][]domain.Record
	cancel, err := hub.Subscribe(context.Background(), owner, func(r []domain.Record) { got = append(got, r) })
	require.NoError(t, err)
	defer cancel()

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0][0].ID)
	assert.Equal(t, 1, hub.Subscribers(owner))
}

func TestHubPublish(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	lister := &fakeLister{records: map[uuid.UUID][]domain.Record{}}
	hub := NewHub(lister, discardLogger())
	ctx := context.Background()

	var aliceSets, bobSets int
	cancelA, err := hub.Subscribe(ctx, alice, func([]domain.Record) { aliceSets++ })
	require.NoError(t, err)
	_, err = hub.Subscribe(ctx, bob, func([]domain.Record) { bobSets++ })
	require.NoError(t, err)

	lister.set(alice, domain.Record{ID: "x"})
	hub.Publish(ctx, alice)
	assert.Equal(t, 2, aliceSets)
	assert.Equal(t, 1, bobSets)

	hub.PublishAll(ctx)
	assert.Equal(t, 3, aliceSets)
	assert.Equal(t, 2, bobSets)

	cancelA()
	assert.Equal(t, 0, hub.Subscribers(alice))
	hub.Publish(ctx, alice)
	assert.Equal(t, 3, aliceSets)
}

func TestHubPublishWithoutSubscribersSkipsLoad(t *testing.T) {
	lister := &fakeLister{records: map[uuid.UUID][]domain.Record{}}
	hub := NewHub(lister, discardLogger())

	hub.Publish(context.Background(), uuid.New())
	assert.Equal(t, 0, lister.calls)
}

func TestHubSubscribeLoadError(t *testing.T) {
	lister := &fakeLister{err: errors.New("db down")}
	hub := NewHub(lister, discardLogger())
	owner := uuid.New()

	_, err := hub.Subscribe(context.Background(), owner, func([]domain.Record) {})
	require.Error(t, err)
	assert.Equal(t, 0, hub.Subscribers(owner))
}

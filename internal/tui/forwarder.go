package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/josh-kwaku/rice-ledger/internal/session"
)

type eventMsg struct {
	ev session.Event
}

// forwarder moves session events onto the program's message loop. listen
// never blocks, so the session can call it from any goroutine.
type forwarder struct {
	mu    sync.Mutex
	queue []session.Event
	wake  chan struct{}
}

func newForwarder() *forwarder {
	return &forwarder{wake: make(chan struct{}, 1)}
}

func (f *forwarder) listen(ev session.Event) {
	f.mu.Lock()
	f.queue = append(f.queue, ev)
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *forwarder) take() []session.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.queue
	f.queue = nil
	return out
}

// run sends queued events in order until ctx is done.
func (f *forwarder) run(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.wake:
		}
		for _, ev := range f.take() {
			send(eventMsg{ev: ev})
		}
	}
}

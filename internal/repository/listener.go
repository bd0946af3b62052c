package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const listenerPingInterval = 90 * time.Second

type changeSink interface {
	Publish(ctx context.Context, owner uuid.UUID)
	PublishAll(ctx context.Context)
}

// ChangeListener turns record change notifications into hub publishes.
type ChangeListener struct {
	dsn     string
	channel string
	sink    changeSink
	logger  *slog.Logger
}

func NewChangeListener(dsn, channel string, sink changeSink, logger *slog.Logger) *ChangeListener {
	if channel == "" {
		channel = DefaultNotifyChannel
	}
	return &ChangeListener{dsn: dsn, channel: channel, sink: sink, logger: logger}
}

// Start listens until ctx is done. After a reconnect notifications may have
// been missed, so every owner is republished.
func (l *ChangeListener) Start(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.logger.Error("change listener connection event", "event", ev, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(l.channel); err != nil {
		return fmt.Errorf("Start: listen %s: %w", l.channel, err)
	}
	l.logger.Info("change listener started", "channel", l.channel)

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("change listener stopped")
			return nil
		case n := <-listener.Notify:
			if n == nil {
				l.logger.Warn("change listener reconnected, republishing all owners")
				l.sink.PublishAll(ctx)
				continue
			}
			owner, err := uuid.Parse(n.Extra)
			if err != nil {
				l.logger.Warn("ignoring change notification", "payload", n.Extra)
				continue
			}
			l.sink.Publish(ctx, owner)
		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				l.logger.Warn("change listener ping failed", "error", err)
			}
		}
	}
}

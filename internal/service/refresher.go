package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type recalculator interface {
	ListOwners(ctx context.Context) ([]uuid.UUID, error)
	Recalculate(ctx context.Context, owner uuid.UUID) (int, error)
}

// LabelRefresher periodically rewrites stored records whose pending-day
// labels went stale when the calendar day changed.
type LabelRefresher struct {
	records  recalculator
	logger   *slog.Logger
	interval time.Duration
}

func NewLabelRefresher(records recalculator, logger *slog.Logger, interval time.Duration) *LabelRefresher {
	return &LabelRefresher{
		records:  records,
		logger:   logger,
		interval: interval,
	}
}

func (p *LabelRefresher) Start(ctx context.Context) {
	p.logger.Info("label refresher started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("label refresher stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// RunOnce refreshes every owner and returns the total number of records
// rewritten.
func (p *LabelRefresher) RunOnce(ctx context.Context) int {
	return p.poll(ctx)
}

func (p *LabelRefresher) poll(ctx context.Context) int {
	owners, err := p.records.ListOwners(ctx)
	if err != nil {
		p.logger.Error("failed to list record owners", "error", err)
		return 0
	}

	total := 0
	for _, owner := range owners {
		if ctx.Err() != nil {
			return total
		}
		n, err := p.records.Recalculate(ctx, owner)
		total += n
		if err != nil {
			p.logger.Error("failed to refresh records",
				"owner_id", owner,
				"error", err,
			)
			continue
		}
		if n > 0 {
			p.logger.Info("refreshed stale records", "owner_id", owner, "count", n)
		}
	}
	return total
}

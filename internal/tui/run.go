package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/feed"
	"github.com/josh-kwaku/rice-ledger/internal/service"
	"github.com/josh-kwaku/rice-ledger/internal/session"
)

const flushTimeout = 15 * time.Second

type recordFeed interface {
	Subscribe(ctx context.Context, owner uuid.UUID, fn feed.Handler) (func(), error)
}

type Options struct {
	Store        *service.OwnerStore
	Feed         recordFeed
	Calc         *calc.Calculator
	WriteTimeout time.Duration
	Logger       *slog.Logger
	ProgramOpts  []tea.ProgramOption
}

// Run edits the store's ledger in the terminal until the user quits. Record
// sets published on the feed replace the table as they arrive.
func Run(ctx context.Context, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fwd := newForwarder()
	sess := session.New(opts.Store, opts.Calc, opts.WriteTimeout, opts.Logger, fwd.listen)

	unsubscribe, err := opts.Feed.Subscribe(ctx, opts.Store.Owner(), sess.Replace)
	if err != nil {
		return fmt.Errorf("Run: %w", err)
	}
	defer unsubscribe()

	programOpts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts.ProgramOpts...)
	p := tea.NewProgram(newModel(ctx, sess, opts.Calc), programOpts...)
	go fwd.run(ctx, p.Send)

	_, runErr := p.Run()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), flushTimeout)
	defer flushCancel()
	if err := sess.Flush(flushCtx); err != nil {
		opts.Logger.Warn("pending writes did not finish", "error", err)
	}

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("Run: %w", runErr)
	}
	return nil
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/config"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
	"github.com/josh-kwaku/rice-ledger/internal/ledger"
	"github.com/josh-kwaku/rice-ledger/internal/logging"
	"github.com/josh-kwaku/rice-ledger/internal/repository"
	"github.com/josh-kwaku/rice-ledger/internal/service"
	"github.com/josh-kwaku/rice-ledger/migrations"
)

// app is what every database-backed command needs.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *sql.DB
	repo    *repository.RecordRepository
	calc    *calc.Calculator
	records *service.RecordService
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		var setup *config.SetupError
		if errors.As(err, &setup) {
			return nil, setup
		}
		return nil, err
	}
	return cfg, nil
}

// openApp connects to the database. logOut receives the structured log;
// interactive commands pass a file or io.Discard so it does not draw over
// the screen.
func openApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(logOut, "ledgerctl", cfg.LogLevel, cfg.AppEnv)
	slog.SetDefault(logger)

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	db, err := repository.Open(connectCtx, cfg.DB(3), logger)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	repo := repository.NewRecordRepository(db, cfg.NotifyChannel)
	c := calc.New(time.Now)
	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		repo:    repo,
		calc:    c,
		records: service.NewRecordService(repo, c),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// ownerFlag is the -owner flag shared by the ledger commands. It falls back
// to LEDGER_OWNER.
type ownerFlag struct {
	raw string
}

func (o *ownerFlag) SetFlags(f *flag.FlagSet) {
	f.StringVar(&o.raw, "owner", "", "ledger owner UUID (default $LEDGER_OWNER)")
}

func (o *ownerFlag) resolve(cfg *config.Config) (uuid.UUID, error) {
	raw := o.raw
	if raw == "" {
		raw = cfg.LedgerOwner
	}
	if raw == "" {
		return uuid.Nil, errors.New("no owner: pass -owner or set LEDGER_OWNER")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("owner %q: %w", raw, err)
	}
	return id, nil
}

// queryFlags selects the view for export and stats.
type queryFlags struct {
	search, status, from, to, sort string
	desc                           bool
}

func (q *queryFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&q.search, "search", "", "only records whose miller, brand, shop, area or place contains this text")
	f.StringVar(&q.status, "status", "", "exact status, or PENDING for every uncleared record")
	f.StringVar(&q.from, "from", "", "first transaction date (YYYY-MM-DD or DD-MM-YYYY)")
	f.StringVar(&q.to, "to", "", "last transaction date")
	f.StringVar(&q.sort, "sort", "", "field key to sort by (default date)")
	f.BoolVar(&q.desc, "desc", false, "sort descending")
}

func (q *queryFlags) query() (ledger.Query, error) {
	out := ledger.Query{
		Search: q.search,
		Status: q.status,
		From:   calc.NormalizeDate(q.from),
		To:     calc.NormalizeDate(q.to),
		Desc:   q.desc,
	}
	for _, d := range []string{q.from, q.to} {
		if d == "" {
			continue
		}
		if _, ok := calc.ParseDate(d); !ok {
			return out, fmt.Errorf("date %q: want YYYY-MM-DD or DD-MM-YYYY", d)
		}
	}
	if q.sort != "" {
		f, err := domain.ParseField(q.sort)
		if err != nil {
			return out, fmt.Errorf("sort %q: %w", q.sort, err)
		}
		out.SortBy = f
	}
	return out, nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/josh-kwaku/rice-ledger/internal/feed"
	"github.com/josh-kwaku/rice-ledger/internal/repository"
	"github.com/josh-kwaku/rice-ledger/internal/tui"
)

type editCmd struct {
	owner   ownerFlag
	logFile string
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "edit the ledger in a terminal grid" }
func (*editCmd) Usage() string {
	return `ledgerctl edit [-owner <uuid>] [-log <file>]

  Opens the ledger as a spreadsheet-like grid. Changes are saved as each
  cell is committed; edits made elsewhere appear as they are saved.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	c.owner.SetFlags(f)
	f.StringVar(&c.logFile, "log", "", "append logs to this file (default: discard)")
}

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var logOut io.Writer = io.Discard
	if c.logFile != "" {
		lf, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
		defer lf.Close()
		logOut = lf
	}

	a, err := openApp(ctx, logOut)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	owner, err := c.owner.resolve(a.cfg)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := feed.NewHub(a.repo, a.logger)
	go func() {
		if err := repository.NewChangeListener(a.cfg.DatabaseURL, a.cfg.NotifyChannel, hub, a.logger).Start(ctx); err != nil {
			a.logger.Error("change listener failed", "error", err)
		}
	}()

	err = tui.Run(ctx, tui.Options{
		Store:        a.records.ForOwner(owner),
		Feed:         hub,
		Calc:         a.calc,
		WriteTimeout: a.cfg.WriteTimeout(),
		Logger:       a.logger,
	})
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

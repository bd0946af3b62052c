package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/josh-kwaku/rice-ledger/internal/ledger"
)

type statsCmd struct {
	owner ownerFlag
	query queryFlags
	raw   bool
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "print totals and outstanding amounts" }
func (*statsCmd) Usage() string {
	return `ledgerctl stats [-owner <uuid>] [-raw] [filters]

  Summarizes the filtered view: record counts, gross, commission, net,
  cheques received, outstanding amount and average pending days.
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	c.owner.SetFlags(f)
	c.query.SetFlags(f)
	f.BoolVar(&c.raw, "raw", false, "print markdown instead of rendering it")
}

func (c *statsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	q, err := c.query.query()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx, os.Stderr)
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

	stats, err := a.records.Stats(ctx, owner, q)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}

	printMarkdown(ledger.StatsMarkdown(stats, a.calc.Today(), q.Describe()), c.raw)
	return subcommands.ExitSuccess
}

func printMarkdown(md string, raw bool) {
	if raw {
		fmt.Print(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Print(md)
}

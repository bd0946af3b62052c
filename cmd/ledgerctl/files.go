package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/josh-kwaku/rice-ledger/internal/inbox"
	"github.com/josh-kwaku/rice-ledger/internal/service"
)

type importCmd struct {
	owner ownerFlag
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import CSV exports into the ledger" }
func (*importCmd) Usage() string {
	return `ledgerctl import [-owner <uuid>] <file.csv>...

  Appends the rows of each file. The header row and rows with fewer than
  two columns are skipped; derived columns are recalculated.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) { c.owner.SetFlags(f) }

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
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

	status := subcommands.ExitSuccess
	for _, name := range f.Args() {
		n, err := importFile(ctx, a.records, owner, name)
		if err != nil {
			fail("%s: %v", name, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Printf("%s: imported %d records\n", name, n)
	}
	return status
}

func importFile(ctx context.Context, records *service.RecordService, owner uuid.UUID, name string) (int, error) {
	file, err := os.Open(name)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return records.Import(ctx, owner, bufio.NewReader(file))
}

type exportCmd struct {
	owner  ownerFlag
	query  queryFlags
	format string
	out    string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export the ledger as CSV or XLSX" }
func (*exportCmd) Usage() string {
	return `ledgerctl export [-owner <uuid>] [-format csv|xlsx] [-o <file>] [filters]

  Writes the filtered, sorted view. CSV goes to stdout unless -o is given.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	c.owner.SetFlags(f)
	c.query.SetFlags(f)
	f.StringVar(&c.format, "format", "csv", "csv or xlsx")
	f.StringVar(&c.out, "o", "", "output file (default stdout)")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	format := service.ExportFormat(strings.ToLower(c.format))
	if format != service.ExportCSV && format != service.ExportXLSX {
		fail("unsupported format %q", c.format)
		return subcommands.ExitUsageError
	}
	if format == service.ExportXLSX && c.out == "" {
		fail("xlsx output needs -o")
		return subcommands.ExitUsageError
	}
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

	w := os.Stdout
	if c.out != "" {
		if w, err = os.Create(c.out); err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
	}

	exportErr := a.records.Export(ctx, owner, q, format, w)
	if c.out != "" {
		if err := w.Close(); err != nil && exportErr == nil {
			exportErr = err
		}
	}
	if exportErr != nil {
		fail("%v", exportErr)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type watchCmd struct {
	owner  ownerFlag
	dir    string
	settle int
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "import CSV files dropped into a directory" }
func (*watchCmd) Usage() string {
	return `ledgerctl watch [-owner <uuid>] -dir <path> [-settle <ms>]

  Imports every *.csv file in the directory, then keeps watching it. Files
  are moved to processed/ or failed/ once handled.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	c.owner.SetFlags(f)
	f.StringVar(&c.dir, "dir", "", "directory to watch")
	f.IntVar(&c.settle, "settle", int(inbox.DefaultSettle.Milliseconds()), "milliseconds a file must be quiet before import")
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.dir == "" {
		f.Usage()
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

	w := inbox.NewWatcher(c.dir, owner, a.records, a.logger, time.Duration(c.settle)*time.Millisecond)
	if err := w.Start(ctx); err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

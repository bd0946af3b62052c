// Command ledgerctl edits and maintains a rice ledger from the terminal.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&editCmd{}, "ledger")
	commander.Register(&statsCmd{}, "ledger")
	commander.Register(&importCmd{}, "files")
	commander.Register(&exportCmd{}, "files")
	commander.Register(&watchCmd{}, "files")
	commander.Register(&recalcCmd{}, "maintenance")
	commander.Register(&tokenCmd{}, "maintenance")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/josh-kwaku/rice-ledger/internal/auth"
	"github.com/josh-kwaku/rice-ledger/internal/service"
)

type recalcCmd struct {
	owner ownerFlag
	all   bool
}

func (*recalcCmd) Name() string     { return "recalc" }
func (*recalcCmd) Synopsis() string { return "refresh stored day counts and statuses" }
func (*recalcCmd) Usage() string {
	return `ledgerctl recalc [-owner <uuid> | -all]

  Recomputes every derived column and saves the records whose stored
  values changed, such as pending day counts after midnight.
`
}

func (c *recalcCmd) SetFlags(f *flag.FlagSet) {
	c.owner.SetFlags(f)
	f.BoolVar(&c.all, "all", false, "every owner")
}

func (c *recalcCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, os.Stderr)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if c.all {
		n := service.NewLabelRefresher(a.records, a.logger, time.Hour).RunOnce(ctx)
		fmt.Printf("updated %d records\n", n)
		return subcommands.ExitSuccess
	}

	owner, err := c.owner.resolve(a.cfg)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	n, err := a.records.Recalculate(ctx, owner)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("updated %d records\n", n)
	return subcommands.ExitSuccess
}

type tokenCmd struct {
	owner string
	name  string
	ttl   time.Duration
}

func (*tokenCmd) Name() string     { return "token" }
func (*tokenCmd) Synopsis() string { return "mint an API token for development" }
func (*tokenCmd) Usage() string {
	return `ledgerctl token [-owner <uuid>] [-name <name>] [-ttl <duration>]

  Prints a signed bearer token for the API and live sessions. Without
  -owner a new owner is created.
`
}

func (c *tokenCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "owner UUID (default: a new one)")
	f.StringVar(&c.name, "name", "", "display name carried in the token")
	f.DurationVar(&c.ttl, "ttl", 0, "token lifetime (default TOKEN_TTL_H)")
}

func (c *tokenCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}

	owner := uuid.New()
	if c.owner != "" {
		if owner, err = uuid.Parse(c.owner); err != nil {
			fail("owner %q: %v", c.owner, err)
			return subcommands.ExitUsageError
		}
	}
	ttl := c.ttl
	if ttl <= 0 {
		ttl = cfg.TokenTTL()
	}

	token, err := auth.GenerateToken(owner, c.name, cfg.JWTSecret, ttl)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "owner %s, expires in %s\n", owner, ttl)
	fmt.Println(token)
	return subcommands.ExitSuccess
}

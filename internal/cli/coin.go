package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/bobmcallan/coin-portal/internal/renderer"
)

type coinCmd struct {
	env  *Env
	days int
}

func (*coinCmd) Name() string     { return "coin" }
func (*coinCmd) Synopsis() string { return "show one coin with its price history" }
func (*coinCmd) Usage() string {
	return `coinctl coin [-days 1|7|30|90|365] <coin-id>

  Prints the coin's market data, description and a summary of its price
  history over the selected range.
`
}

func (c *coinCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", 7, "History range in days.")
}

func (c *coinCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(c.env.Err, c.Usage())
		return subcommands.ExitUsageError
	}
	svc, ok := c.env.service(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	view, err := svc.Coin(ctx, f.Arg(0), c.days)
	if err != nil {
		return c.env.fail(err)
	}
	c.env.printMarkdown(renderer.Coin(view.Coin, view.History, view.InPortfolio))
	return subcommands.ExitSuccess
}

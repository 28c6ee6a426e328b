package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/google/subcommands"

	"github.com/bobmcallan/coin-portal/internal/renderer"
)

type portfolioCmd struct {
	env *Env
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "value the portfolio at current prices" }
func (*portfolioCmd) Usage() string {
	return `coinctl portfolio
`
}
func (*portfolioCmd) SetFlags(*flag.FlagSet) {}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, ok := c.env.service(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	view := svc.Portfolio(ctx)
	c.env.printMarkdown(renderer.Portfolio(view.Valuation, view.Stale))
	return subcommands.ExitSuccess
}

type addCmd struct {
	env    *Env
	amount float64
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add a coin to the portfolio at its current price" }
func (*addCmd) Usage() string {
	return `coinctl add [-amount <units>] <coin-id>

  Adds a holding priced at the coin's current price. Adding a coin that is
  already held changes nothing.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.amount, "amount", 0, "Units held.")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(c.env.Err, c.Usage())
		return subcommands.ExitUsageError
	}
	svc, ok := c.env.service(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	h, result, err := svc.AddHolding(ctx, f.Arg(0), c.amount)
	if err != nil {
		return c.env.fail(err)
	}
	c.env.printMarkdown(renderer.HoldingAdded(h, result))
	return subcommands.ExitSuccess
}

type updateCmd struct {
	env *Env
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "change the amount of a holding" }
func (*updateCmd) Usage() string {
	return `coinctl update <coin-id> <amount>
`
}
func (*updateCmd) SetFlags(*flag.FlagSet) {}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprint(c.env.Err, c.Usage())
		return subcommands.ExitUsageError
	}
	amount, err := strconv.ParseFloat(f.Arg(1), 64)
	if err != nil {
		return c.env.fail(fmt.Errorf("invalid amount %q", f.Arg(1)))
	}
	svc, ok := c.env.service(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	h, err := svc.UpdateHolding(ctx, f.Arg(0), amount)
	if err != nil {
		return c.env.fail(err)
	}
	c.env.printMarkdown(renderer.HoldingUpdated(h))
	return subcommands.ExitSuccess
}

type removeCmd struct {
	env *Env
}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "remove a coin from the portfolio" }
func (*removeCmd) Usage() string {
	return `coinctl remove <coin-id>
`
}
func (*removeCmd) SetFlags(*flag.FlagSet) {}

func (c *removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(c.env.Err, c.Usage())
		return subcommands.ExitUsageError
	}
	svc, ok := c.env.service(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	removed, err := svc.RemoveHolding(ctx, f.Arg(0))
	if err != nil {
		return c.env.fail(err)
	}
	c.env.printMarkdown(renderer.HoldingRemoved(f.Arg(0), removed))
	return subcommands.ExitSuccess
}

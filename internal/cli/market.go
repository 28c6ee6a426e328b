package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"github.com/bobmcallan/coin-portal/internal/market"
	"github.com/bobmcallan/coin-portal/internal/renderer"
)

type marketCmd struct {
	env   *Env
	query string
	sort  string
	dir   string
	limit int
}

func (*marketCmd) Name() string     { return "market" }
func (*marketCmd) Synopsis() string { return "list coins by market cap, price, volume or 24h change" }
func (*marketCmd) Usage() string {
	return `coinctl market [-q <text>] [-sort market_cap|price|volume|change] [-dir desc|asc] [-n <count>]

  Lists the current market snapshot. -q keeps coins whose name or symbol
  contains the text, case-insensitively.
`
}

func (c *marketCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.query, "q", "", "Filter by name or symbol.")
	f.StringVar(&c.sort, "sort", string(market.SortMarketCap), "Sort key.")
	f.StringVar(&c.dir, "dir", string(market.Desc), "Sort direction.")
	f.IntVar(&c.limit, "n", 20, "Maximum rows to print (0 prints all).")
}

func (c *marketCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	key, ok := market.ParseSortKey(c.sort)
	if !ok {
		return c.env.fail(fmt.Errorf("unknown sort key %q", c.sort))
	}
	dir, ok := market.ParseDirection(c.dir)
	if !ok {
		return c.env.fail(fmt.Errorf("unknown direction %q", c.dir))
	}
	svc, ok := c.env.service(ctx)
	if !ok {
		return subcommands.ExitFailure
	}

	view := svc.Market(ctx, c.query, market.SortState{Key: key, Direction: dir})
	coins := view.Coins
	if c.limit > 0 && len(coins) > c.limit {
		coins = coins[:c.limit]
	}
	c.env.printMarkdown(renderer.Market(coins, view.Total, view.Query, view.Sort, view.Stale))
	return subcommands.ExitSuccess
}

type moversCmd struct {
	env *Env
}

func (*moversCmd) Name() string     { return "movers" }
func (*moversCmd) Synopsis() string { return "show the top coins and the biggest 24h gainers and losers" }
func (*moversCmd) Usage() string {
	return `coinctl movers
`
}
func (*moversCmd) SetFlags(*flag.FlagSet) {}

func (c *moversCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, ok := c.env.service(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	view := svc.Home(ctx)
	c.env.printMarkdown(renderer.Home(view.Top, view.Gainers, view.Losers, view.Stale))
	return subcommands.ExitSuccess
}

type searchCmd struct {
	env *Env
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search all listed coins by name or symbol" }
func (*searchCmd) Usage() string {
	return `coinctl search <query>

  Searches the full coin catalogue, not only the current snapshot. Use the
  returned id with 'coinctl coin' or 'coinctl add'.
`
}
func (*searchCmd) SetFlags(*flag.FlagSet) {}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	query := strings.TrimSpace(strings.Join(f.Args(), " "))
	if query == "" {
		fmt.Fprint(c.env.Err, c.Usage())
		return subcommands.ExitUsageError
	}
	svc, ok := c.env.service(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	results, err := svc.Search(ctx, query)
	if err != nil {
		return c.env.fail(err)
	}
	c.env.printMarkdown(renderer.Search(query, results))
	return subcommands.ExitSuccess
}

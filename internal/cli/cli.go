// Package cli implements the coinctl subcommands.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/bobmcallan/coin-portal/internal/dashboard"
)

// Env is shared by every subcommand. Service is opened lazily so that
// help and usage never touch storage.
type Env struct {
	Out io.Writer
	Err io.Writer
	// Raw prints markdown as is instead of rendering it for the terminal.
	Raw     bool
	Service func(ctx context.Context) (*dashboard.Service, error)
}

// Register adds the coinctl subcommands to c.
func Register(c *subcommands.Commander, env *Env) {
	c.Register(&marketCmd{env: env}, "market")
	c.Register(&moversCmd{env: env}, "market")
	c.Register(&coinCmd{env: env}, "market")
	c.Register(&searchCmd{env: env}, "market")

	c.Register(&portfolioCmd{env: env}, "portfolio")
	c.Register(&addCmd{env: env}, "portfolio")
	c.Register(&updateCmd{env: env}, "portfolio")
	c.Register(&removeCmd{env: env}, "portfolio")
}

func (e *Env) service(ctx context.Context) (*dashboard.Service, bool) {
	svc, err := e.Service(ctx)
	if err != nil {
		e.fail(err)
		return nil, false
	}
	return svc, true
}

func (e *Env) fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(e.Err, "Error:", err)
	return subcommands.ExitFailure
}

// printMarkdown writes md to Out, rendered for the terminal unless Raw.
func (e *Env) printMarkdown(md string) {
	if e.Raw {
		fmt.Fprint(e.Out, md)
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Fprint(e.Out, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(e.Out, md)
		return
	}
	fmt.Fprint(e.Out, out)
}

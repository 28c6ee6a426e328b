package common

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

type BrowserConfig struct {
	Headless bool
	Timeout  time.Duration
}

func DefaultBrowserConfig() *BrowserConfig {
	cfg := LoadTestConfig()
	return &BrowserConfig{
		Headless: cfg.Browser.Headless,
		Timeout:  time.Duration(cfg.Browser.TimeoutSecs) * time.Second,
	}
}

func NewBrowserContext(cfg *BrowserConfig) (context.Context, context.CancelFunc) {
	if cfg == nil {
		cfg = DefaultBrowserConfig()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx)
	ctx, timeoutCancel := context.WithTimeout(ctx, cfg.Timeout)

	cancel := func() {
		timeoutCancel()
		ctxCancel()
		allocCancel()
	}
	return ctx, cancel
}

// JSErrorCollector records uncaught exceptions and console.error calls.
type JSErrorCollector struct {
	mu     sync.Mutex
	errors []string
}

func NewJSErrorCollector(ctx context.Context) *JSErrorCollector {
	c := &JSErrorCollector{}

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		c.mu.Lock()
		defer c.mu.Unlock()

		switch e := ev.(type) {
		case *runtime.EventExceptionThrown:
			desc := e.ExceptionDetails.Text
			if e.ExceptionDetails.Exception != nil && e.ExceptionDetails.Exception.Description != "" {
				desc = e.ExceptionDetails.Exception.Description
			}
			c.errors = append(c.errors, fmt.Sprintf("EXCEPTION: %s", desc))

		case *runtime.EventConsoleAPICalled:
			if e.Type != runtime.APITypeError {
				return
			}
			var parts []string
			for _, arg := range e.Args {
				if arg.Value != nil {
					parts = append(parts, string(arg.Value))
				} else if arg.Description != "" {
					parts = append(parts, arg.Description)
				}
			}
			msg := strings.Join(parts, " ")
			if msg != "" && !strings.Contains(msg, "favicon") {
				c.errors = append(c.errors, fmt.Sprintf("console.error: %s", msg))
			}
		}
	})

	return c
}

func (c *JSErrorCollector) Errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.errors))
	copy(out, c.errors)
	return out
}

func (c *JSErrorCollector) HasErrors() bool {
	return len(c.Errors()) > 0
}

func NavigateAndWait(ctx context.Context, url string, waitMs int) error {
	if waitMs == 0 {
		waitMs = 800
	}
	return chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Sleep(time.Duration(waitMs)*time.Millisecond),
	)
}

func Exists(ctx context.Context, selector string) (bool, error) {
	var exists bool
	err := chromedp.Run(ctx,
		chromedp.Evaluate(fmt.Sprintf(`document.querySelector('%s') !== null`, escJS(selector)), &exists),
	)
	return exists, err
}

func ElementCount(ctx context.Context, selector string) (int, error) {
	var count int
	err := chromedp.Run(ctx,
		chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll('%s').length`, escJS(selector)), &count),
	)
	return count, err
}

func TextContains(ctx context.Context, selector, expected string) (bool, string, error) {
	var actual string
	err := chromedp.Run(ctx,
		chromedp.Evaluate(fmt.Sprintf(`
			(() => {
				const el = document.querySelector('%s');
				return el ? el.textContent.trim() : '';
			})()
		`, escJS(selector)), &actual),
	)
	if err != nil {
		return false, "", err
	}
	return strings.Contains(actual, expected), actual, nil
}

// Click clicks selector and waits for the page to settle. The portal reloads
// after every portfolio mutation.
func Click(ctx context.Context, selector string, waitMs int) error {
	if waitMs == 0 {
		waitMs = 800
	}
	return chromedp.Run(ctx,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.Sleep(time.Duration(waitMs)*time.Millisecond),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// SetValue replaces an input's value and fires its change event.
func SetValue(ctx context.Context, selector, value string, waitMs int) error {
	if waitMs == 0 {
		waitMs = 800
	}
	script := fmt.Sprintf(`
		(() => {
			const el = document.querySelector('%s');
			if (!el) return false;
			el.value = '%s';
			el.dispatchEvent(new Event('change', { bubbles: true }));
			return true;
		})()
	`, escJS(selector), escJS(value))
	var ok bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("element %s not found", selector)
	}
	return chromedp.Run(ctx,
		chromedp.Sleep(time.Duration(waitMs)*time.Millisecond),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

func escJS(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `'`, `\'`)
}

package browser

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"sync"

	"github.com/entrhq/screencapture/pkg/capture"
	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
)

//go:embed pagehelper.js
var pageHelper string

// Browser is a single Chromium page driven through Playwright.
type Browser struct {
	mu      sync.Mutex
	opts    Options
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	tabID   string
	closed  bool
}

var (
	_ capture.Platform      = (*Browser)(nil)
	_ capture.ContentScript = (*Browser)(nil)
)

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.Viewport.Width <= 0 {
		o.Viewport.Width = DefaultViewportWidth
	}
	if o.Viewport.Height <= 0 {
		o.Viewport.Height = DefaultViewportHeight
	}
	if o.DeviceScaleFactor <= 0 {
		o.DeviceScaleFactor = 1
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Launch installs the Chromium driver if needed and opens a blank page.
func Launch(opts Options) (*Browser, error) {
	opts = opts.withDefaults()

	// Keep driver output away from the terminal UI
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
		DeviceScaleFactor: playwright.Float(opts.DeviceScaleFactor),
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	return &Browser{
		opts:    opts,
		pw:      pw,
		browser: browser,
		context: bctx,
		page:    page,
		tabID:   uuid.New().String(),
	}, nil
}

// Navigate loads url in the page and waits for the network to go idle.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	page, err := b.livePage()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	}); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Close releases the page, context, browser and driver. Safe to call twice.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	// Ignore errors, continue cleanup
	_ = b.page.Close()
	_ = b.context.Close()
	_ = b.browser.Close()
	if err := b.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

func (b *Browser) livePage() (playwright.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("browser is closed")
	}
	return b.page, nil
}

package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/screencapture/pkg/capture"
	"github.com/playwright-community/playwright-go"
)

// ActiveTab returns the Browser's only page.
func (b *Browser) ActiveTab(ctx context.Context) (capture.Tab, error) {
	page, err := b.livePage()
	if err != nil {
		return capture.Tab{}, err
	}
	return capture.Tab{ID: b.tabID, URL: page.URL()}, nil
}

// InjectScript installs the page helper and checks it answered.
func (b *Browser) InjectScript(ctx context.Context, tab capture.Tab) error {
	page, err := b.livePage()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := page.AddScriptTag(playwright.PageAddScriptTagOptions{
		Content: playwright.String(pageHelper),
	}); err != nil {
		return fmt.Errorf("failed to add page helper: %w", err)
	}

	ready, err := page.Evaluate("() => typeof window.__screencapture === 'object'")
	if err != nil {
		return fmt.Errorf("failed to probe page helper: %w", err)
	}
	if ok, _ := ready.(bool); !ok {
		return fmt.Errorf("page helper not installed in tab %s", tab.ID)
	}
	return nil
}

// CaptureVisibleTab screenshots the current viewport.
func (b *Browser) CaptureVisibleTab(ctx context.Context, tab capture.Tab, opts capture.CaptureOptions) ([]byte, error) {
	page, err := b.livePage()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shotOpts := playwright.PageScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	}
	if opts.Format == "jpeg" {
		shotOpts.Type = playwright.ScreenshotTypeJpeg
		shotOpts.Quality = playwright.Int(opts.Quality)
	}
	if ms, ok := screenshotTimeout(ctx, time.Now()); ok {
		shotOpts.Timeout = playwright.Float(ms)
	}

	data, err := page.Screenshot(shotOpts)
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

// screenshotTimeout converts the ctx deadline into a playwright timeout in
// milliseconds. Playwright reads 0 as no timeout, so the result is at least 1.
func screenshotTimeout(ctx context.Context, now time.Time) (float64, bool) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0, false
	}
	ms := float64(deadline.Sub(now)) / float64(time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return ms, true
}

// OpenFile shows url in a new page of the same context.
func (b *Browser) OpenFile(ctx context.Context, url string) error {
	if _, err := b.livePage(); err != nil {
		return err
	}

	page, err := b.context.NewPage()
	if err != nil {
		return fmt.Errorf("failed to open result page: %w", err)
	}
	if _, err := page.Goto(url); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/entrhq/screencapture/pkg/capture"
	"github.com/entrhq/screencapture/pkg/compositor"
	"github.com/playwright-community/playwright-go"
)

// ScrollPage walks the page tile by tile and reports each position to handle.
// It stops at the first tile the handler rejects.
func (b *Browser) ScrollPage(ctx context.Context, tab capture.Tab, handle capture.MessageHandler) error {
	page, err := b.livePage()
	if err != nil {
		return err
	}

	var metrics pageMetrics
	if err := evaluateJSON(page, "() => window.__screencapture.metrics()", &metrics); err != nil {
		return fmt.Errorf("failed to read page metrics: %w", err)
	}
	if metrics.WindowWidth <= 0 || metrics.WindowHeight <= 0 {
		return fmt.Errorf("page reported empty window %vx%v", metrics.WindowWidth, metrics.WindowHeight)
	}

	if _, err := page.Evaluate("() => window.__screencapture.prepare()"); err != nil {
		return fmt.Errorf("failed to prepare page: %w", err)
	}
	defer func() {
		_, _ = page.Evaluate("() => window.__screencapture.restore()")
	}()

	for _, t := range tileWalk(metrics) {
		var pos scrollPosition
		if err := evaluateJSON(page, "([x, y]) => window.__screencapture.scrollTo(x, y)", &pos, t.X, t.Y); err != nil {
			return fmt.Errorf("failed to scroll to %v,%v: %w", t.X, t.Y, err)
		}

		if err := settle(ctx, b.opts.SettleDelay); err != nil {
			return err
		}

		result := handle(ctx, capture.Message{
			Msg: capture.MsgCapturePage,
			Request: compositor.CaptureRequest{
				Complete:    t.Complete,
				X:           pos.X,
				Y:           pos.Y,
				TotalWidth:  metrics.TotalWidth,
				TotalHeight: metrics.TotalHeight,
				WindowWidth: metrics.WindowWidth,
			},
		})
		if !result.OK {
			return nil
		}
	}
	return nil
}

// LogMessage writes data to the page console.
func (b *Browser) LogMessage(ctx context.Context, tab capture.Tab, data string) error {
	page, err := b.livePage()
	if err != nil {
		return err
	}
	if _, err := page.Evaluate("(data) => window.__screencapture && window.__screencapture.log(data)", data); err != nil {
		return fmt.Errorf("failed to relay log message: %w", err)
	}
	return nil
}

// evaluateJSON runs a helper call that returns a JSON string and decodes it into out.
func evaluateJSON(page playwright.Page, expression string, out interface{}, args ...interface{}) error {
	var arg interface{}
	switch len(args) {
	case 0:
	case 1:
		arg = args[0]
	default:
		arg = args
	}

	var (
		raw interface{}
		err error
	)
	if arg == nil {
		raw, err = page.Evaluate(expression)
	} else {
		raw, err = page.Evaluate(expression, arg)
	}
	if err != nil {
		return err
	}

	text, ok := raw.(string)
	if !ok {
		return fmt.Errorf("unexpected helper result %T", raw)
	}
	return json.Unmarshal([]byte(text), out)
}

func settle(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package browser runs capture sessions against a real Chromium page through Playwright.
//
// A Browser owns one Playwright instance, one browser, one context and one page. It
// implements both sides the capture orchestrator talks to:
//
//   - capture.Platform: the active tab is the Browser's page, injection adds the page
//     helper script, viewport capture is a PNG page screenshot, and results are opened
//     in a new page of the same context.
//   - capture.ContentScript: the page is scrolled tile by tile through the injected
//     helper and each position is reported as a capturePage message.
//
// # Example Usage
//
//	b, err := browser.Launch(browser.Options{
//	    Headless: true,
//	    Viewport: browser.Viewport{Width: 1280, Height: 720},
//	})
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//
//	if err := b.Navigate(ctx, "https://example.com"); err != nil {
//	    return err
//	}
//
//	orch, err := capture.New(capture.Options{Platform: b, Content: b, ...})
package browser

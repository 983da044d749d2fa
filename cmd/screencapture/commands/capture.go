package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/entrhq/screencapture/pkg/browser"
	"github.com/entrhq/screencapture/pkg/capture"
	"github.com/entrhq/screencapture/pkg/config"
	"github.com/entrhq/screencapture/pkg/executor/headless"
	"github.com/entrhq/screencapture/pkg/executor/tui"
	"github.com/entrhq/screencapture/pkg/exporter"
	"github.com/entrhq/screencapture/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	captureHeadless         bool
	captureOutputDir        string
	captureWidth            int
	captureHeight           int
	captureDeviceScale      float64
	captureFormat           string
	captureTUI              bool
	captureClipboard        bool
	captureSummary          bool
	captureInjectionTimeout time.Duration
	captureTileTimeout      time.Duration
)

var captureCmd = &cobra.Command{
	Use:   "capture <url>",
	Short: "Capture a full-page screenshot of a URL",
	Long: `Open the URL in Chromium, scroll through the page and save the stitched screenshot.

Examples:
  screencapture capture https://example.com
  screencapture capture https://example.com --format pdf --output-dir ./shots
  screencapture capture https://example.com --headless=false --tui`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

func init() {
	f := captureCmd.Flags()
	f.BoolVar(&captureHeadless, "headless", true, "run the browser without a window")
	f.StringVarP(&captureOutputDir, "output-dir", "o", "", "directory for captured files (default: system temp dir)")
	f.IntVar(&captureWidth, "width", 0, "viewport width in CSS pixels")
	f.IntVar(&captureHeight, "height", 0, "viewport height in CSS pixels")
	f.Float64Var(&captureDeviceScale, "device-scale", 0, "device scale factor")
	f.StringVarP(&captureFormat, "format", "f", "", "output format: png or pdf")
	f.BoolVar(&captureTUI, "tui", false, "show an interactive progress UI")
	f.BoolVar(&captureClipboard, "clipboard", false, "copy the saved file path to the clipboard")
	f.BoolVar(&captureSummary, "summary", false, "write capture-summary.json next to the output")
	f.DurationVar(&captureInjectionTimeout, "injection-timeout", 0, "give up if the page helper does not install within this time")
	f.DurationVar(&captureTileTimeout, "tile-timeout", 0, "timeout for capturing a single tile")
	rootCmd.AddCommand(captureCmd)
}

// applyCaptureFlags overrides file settings with flags the user set explicitly.
func applyCaptureFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("headless") {
		cfg.Browser.Headless = captureHeadless
	}
	if flags.Changed("output-dir") {
		cfg.Output.Dir = captureOutputDir
	}
	if flags.Changed("width") {
		cfg.Browser.ViewportWidth = captureWidth
	}
	if flags.Changed("height") {
		cfg.Browser.ViewportHeight = captureHeight
	}
	if flags.Changed("device-scale") {
		cfg.Browser.DeviceScaleFactor = captureDeviceScale
	}
	if flags.Changed("format") {
		cfg.Output.Format = captureFormat
	}
	if flags.Changed("clipboard") {
		cfg.Output.CopyToClipboard = captureClipboard
	}
	if flags.Changed("summary") {
		cfg.Output.Summary = captureSummary
	}
	if flags.Changed("injection-timeout") {
		cfg.Capture.InjectionTimeout = captureInjectionTimeout
	}
	if flags.Changed("tile-timeout") {
		cfg.Capture.TileTimeout = captureTileTimeout
	}
}

func runCapture(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	url := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyCaptureFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newFileLogger(cfg)
	defer logger.Close()
	logger.Infof("Capture of %s requested (run %s)", url, logger.RunID())

	console := headless.NewLogger(headless.ParseLogLevel(cfg.Logging.Verbosity))

	policy, err := cfg.Policy()
	if err != nil {
		return fmt.Errorf("eligibility patterns: %w", err)
	}
	// Pages the helper cannot run in are rejected before a browser is started
	if !policy.Allows(url) {
		console.Warningf("This page can't be captured. Try a regular web page.")
		return fmt.Errorf("%w: %s", capture.ErrIneligibleURL, url)
	}

	exp, err := exporter.New(exporter.Options{
		Dir:    cfg.Output.Dir,
		Format: exporter.Format(cfg.Output.Format),
	})
	if err != nil {
		return fmt.Errorf("create exporter: %w", err)
	}

	console.Verbosef("Launching Chromium (headless=%t, %dx%d @%gx)",
		cfg.Browser.Headless, cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight, cfg.Browser.DeviceScaleFactor)
	b, err := browser.Launch(browser.Options{
		Headless: cfg.Browser.Headless,
		Viewport: browser.Viewport{
			Width:  cfg.Browser.ViewportWidth,
			Height: cfg.Browser.ViewportHeight,
		},
		DeviceScaleFactor: cfg.Browser.DeviceScaleFactor,
		Timeout:           cfg.Browser.Timeout,
		SettleDelay:       cfg.Capture.SettleDelay,
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			logger.Warnf("Failed to close browser: %v", closeErr)
		}
	}()

	console.Verbosef("Loading %s", url)
	if err := b.Navigate(ctx, url); err != nil {
		return err
	}

	opts := capture.Options{
		Platform:         b,
		Content:          b,
		Exporter:         exp,
		Policy:           policy,
		Logger:           logger.With("capture"),
		InjectionTimeout: cfg.Capture.InjectionTimeout,
		TileTimeout:      cfg.Capture.TileTimeout,
		// A headless browser has nobody to show the result page to
		OpenResult: cfg.Output.OpenResult && !cfg.Browser.Headless,
	}

	var handle *exporter.FileHandle
	if captureTUI {
		handle, err = runTUI(ctx, url, opts)
	} else {
		handle, err = runHeadless(ctx, url, opts, console, cfg, exp.Dir())
	}
	if err != nil {
		return err
	}

	if cfg.Output.CopyToClipboard {
		if clipErr := clipboard.WriteAll(handle.Path); clipErr != nil {
			console.Warningf("failed to copy path to clipboard: %v", clipErr)
		} else {
			console.Infof("Path copied to clipboard")
		}
	}

	return nil
}

func runHeadless(ctx context.Context, url string, opts capture.Options, console *headless.Logger, cfg *config.Config, outputDir string) (*exporter.FileHandle, error) {
	opts.View = headless.NewView(console)
	orch, err := capture.New(opts)
	if err != nil {
		return nil, err
	}

	execOpts := headless.Options{URL: url}
	if cfg.Output.Summary {
		execOpts.ArtifactDir = outputDir
	}
	return headless.NewExecutor(orch, console, execOpts).Run(ctx)
}

func runTUI(ctx context.Context, url string, opts capture.Options) (*exporter.FileHandle, error) {
	exec := tui.NewExecutor(ctx, url, tui.Options{})
	opts.View = exec
	orch, err := capture.New(opts)
	if err != nil {
		return nil, err
	}
	return exec.Run(orch)
}

func newFileLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.File {
		return logging.NewDiscardLogger("cli")
	}
	// On error the logger has already fallen back to stderr
	logger, _ := logging.NewLogger("cli")
	return logger
}

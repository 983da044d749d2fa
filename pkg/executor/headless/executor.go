package headless

import (
	"context"
	"errors"
	"time"

	"github.com/entrhq/screencapture/pkg/capture"
	"github.com/entrhq/screencapture/pkg/exporter"
)

const (
	statusSuccess    = "success"
	statusFailed     = "failed"
	statusIneligible = "ineligible"
)

// Runner runs one capture session.
type Runner interface {
	Run(ctx context.Context) (*exporter.FileHandle, error)
	Session() *capture.Session
}

// Options configure an Executor.
type Options struct {
	// URL is reported in the summary
	URL string

	// ArtifactDir receives capture-summary.json when set
	ArtifactDir string

	// Clock defaults to time.Now
	Clock func() time.Time
}

// Executor runs a capture and reports its outcome on the console
type Executor struct {
	runner         Runner
	logger         *Logger
	artifactWriter *ArtifactWriter
	clock          func() time.Time
	summary        *CaptureSummary
}

// NewExecutor creates a headless executor around runner
func NewExecutor(runner Runner, logger *Logger, opts Options) *Executor {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	var writer *ArtifactWriter
	if opts.ArtifactDir != "" {
		writer = NewArtifactWriter(opts.ArtifactDir)
	}

	return &Executor{
		runner:         runner,
		logger:         logger,
		artifactWriter: writer,
		clock:          clock,
		summary: &CaptureSummary{
			URL:    opts.URL,
			Status: "running",
		},
	}
}

// Run executes the capture and prints the summary
func (e *Executor) Run(ctx context.Context) (*exporter.FileHandle, error) {
	e.summary.StartTime = e.clock()
	e.logger.Header("screencapture")
	e.logger.Infof("Capturing %s", e.summary.URL)

	handle, err := e.runner.Run(ctx)

	e.summary.EndTime = e.clock()
	e.summary.Duration = e.summary.EndTime.Sub(e.summary.StartTime)
	e.collectSession()

	switch {
	case err == nil:
		e.summary.Status = statusSuccess
		e.summary.File = handle.Path
		e.summary.URLOut = handle.URL
		e.summary.Bytes = handle.Size
		e.summary.Format = string(handle.Format)
		e.summary.MIMEType = handle.MIMEType
		e.logger.Successf("Saved %s", handle.Path)
	case errors.Is(err, capture.ErrIneligibleURL):
		e.summary.Status = statusIneligible
		e.summary.Error = err.Error()
	default:
		e.summary.Status = statusFailed
		e.summary.Error = err.Error()
	}

	e.logger.Summary(e.summary)

	if e.artifactWriter != nil {
		if path, writeErr := e.artifactWriter.WriteSummaryJSON(e.summary); writeErr != nil {
			e.logger.Warningf("failed to write summary artifact: %v", writeErr)
		} else {
			e.logger.Verbosef("Summary written to %s", path)
		}
	}

	return handle, err
}

// Summary returns the summary of the last run
func (e *Executor) Summary() *CaptureSummary {
	return e.summary
}

func (e *Executor) collectSession() {
	session := e.runner.Session()
	if session == nil {
		return
	}

	e.summary.SessionID = session.ID.String()
	if session.SourceURL != "" {
		e.summary.URL = session.SourceURL
	}
	if session.Screenshot.Empty() {
		return
	}

	bounds := session.Screenshot.Bounds()
	e.summary.Tiles = session.Screenshot.Tiles
	e.summary.Width = bounds.Dx()
	e.summary.Height = bounds.Dy()
	e.summary.Scale = session.Screenshot.Scale
}

package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/entrhq/screencapture/pkg/capture"
	"github.com/entrhq/screencapture/pkg/exporter"
)

// panelMsg switches the visible panel.
type panelMsg struct{ panel capture.Panel }

// progressMsg updates the capture progress.
type progressMsg struct{ fraction float64 }

// doneMsg carries the outcome of the capture.
type doneMsg struct {
	handle *exporter.FileHandle
	err    error
}

// model represents the state of the capture UI.
type model struct {
	// Bubble Tea components
	spinner  spinner.Model
	progress progress.Model

	url    string
	cancel context.CancelFunc

	// Capture state
	panel    capture.Panel
	fraction float64
	handle   *exporter.FileHandle
	err      error
	done     bool
	aborted  bool

	width int
}

func newModel(url string, cancel context.CancelFunc) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = headerStyle

	return &model{
		spinner:  s,
		progress: progress.New(progress.WithGradient(string(salmonPink), string(mintGreen))),
		url:      url,
		cancel:   cancel,
		width:    80,
	}
}

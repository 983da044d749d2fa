// Package tui provides a terminal user interface for a capture session.
//
// The Executor is also the session's capture.View: panels and progress reported by the
// orchestrator are forwarded to the Bubble Tea program as messages.
//
// The package is split into:
// - executor.go: program lifecycle and the capture.View implementation
// - model.go: model state and messages
// - update.go: Bubble Tea Update function
// - view.go: Bubble Tea View function and rendering
// - styles.go: color scheme and styling
package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/screencapture/pkg/capture"
	"github.com/entrhq/screencapture/pkg/exporter"
)

// Runner runs one capture session.
type Runner interface {
	Run(ctx context.Context) (*exporter.FileHandle, error)
}

// Options configure an Executor.
type Options struct {
	// Input and Output default to the terminal
	Input  io.Reader
	Output io.Writer

	// AltScreen renders in the alternate screen buffer
	AltScreen bool
}

// Executor renders a capture session in the terminal.
type Executor struct {
	url     string
	program *tea.Program
	model   *model
	cancel  context.CancelFunc
	ctx     context.Context
}

var _ capture.View = (*Executor)(nil)

// NewExecutor creates the program for a capture of url. ctx bounds the capture; the
// user cancelling in the UI cancels it too.
func NewExecutor(ctx context.Context, url string, opts Options) *Executor {
	ctx, cancel := context.WithCancel(ctx)
	m := newModel(url, cancel)

	var progOpts []tea.ProgramOption
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}

	return &Executor{
		url:     url,
		program: tea.NewProgram(m, progOpts...),
		model:   m,
		cancel:  cancel,
		ctx:     ctx,
	}
}

// Show implements capture.View.
func (e *Executor) Show(panel capture.Panel) {
	e.program.Send(panelMsg{panel: panel})
}

// SetProgress implements capture.View.
func (e *Executor) SetProgress(fraction float64) {
	e.program.Send(progressMsg{fraction: fraction})
}

// Run starts the program, runs the capture and blocks until both finish.
func (e *Executor) Run(runner Runner) (*exporter.FileHandle, error) {
	defer e.cancel()

	type result struct {
		handle *exporter.FileHandle
		err    error
	}
	results := make(chan result, 1)

	go func() {
		handle, err := runner.Run(e.ctx)
		results <- result{handle: handle, err: err}
		e.program.Send(doneMsg{handle: handle, err: err})
	}()

	if _, err := e.program.Run(); err != nil {
		e.cancel()
		<-results
		return nil, fmt.Errorf("failed to run TUI program: %w", err)
	}

	// The user may quit before the capture finishes; the cancelled context stops it
	res := <-results
	return res.handle, res.err
}

package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/screencapture/pkg/capture"
	"github.com/entrhq/screencapture/pkg/exporter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_PanelAndProgress(t *testing.T) {
	m := newModel("https://example.com", nil)

	_, cmd := m.Update(panelMsg{panel: capture.PanelLoading})
	assert.Nil(t, cmd)
	m.Update(progressMsg{fraction: 0.5})

	assert.Equal(t, capture.PanelLoading, m.panel)
	assert.Equal(t, 0.5, m.fraction)
	assert.Contains(t, m.View(), "Capturing page")
	assert.Contains(t, m.View(), "https://example.com")
	assert.Contains(t, m.View(), "50%")
}

func TestModel_InvalidPanel(t *testing.T) {
	m := newModel("chrome://settings", nil)
	m.Update(panelMsg{panel: capture.PanelInvalid})

	assert.Contains(t, m.View(), "can't be captured")
}

func TestModel_UhOhShowsError(t *testing.T) {
	m := newModel("https://example.com", nil)
	m.Update(panelMsg{panel: capture.PanelUhOh})
	_, cmd := m.Update(doneMsg{err: errors.New("tile capture failed")})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "Uh-oh!")
	assert.Contains(t, m.View(), "tile capture failed")
}

func TestModel_DoneShowsPath(t *testing.T) {
	m := newModel("https://example.com", nil)
	m.Update(panelMsg{panel: capture.PanelLoading})
	m.Update(doneMsg{handle: &exporter.FileHandle{Path: "/tmp/screencapture-example-com-1.png"}})

	assert.True(t, m.done)
	assert.Contains(t, m.View(), "Capture saved")
	assert.Contains(t, m.View(), "/tmp/screencapture-example-com-1.png")
	assert.NotContains(t, m.View(), "to cancel")
}

func TestModel_QuitCancelsCapture(t *testing.T) {
	cancelled := false
	m := newModel("https://example.com", func() { cancelled = true })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.True(t, cancelled)
	assert.True(t, m.aborted)
}

func TestModel_QuitAfterDoneDoesNotCancel(t *testing.T) {
	cancelled := false
	m := newModel("https://example.com", func() { cancelled = true })
	m.Update(doneMsg{handle: &exporter.FileHandle{Path: "/tmp/x.png"}})

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	assert.False(t, cancelled)
	assert.False(t, m.aborted)
}

func TestModel_WindowSize(t *testing.T) {
	m := newModel("https://example.com", nil)

	m.Update(tea.WindowSizeMsg{Width: 200, Height: 40})
	assert.Equal(t, maxProgressWidth, m.progress.Width)

	m.Update(tea.WindowSizeMsg{Width: 30, Height: 40})
	assert.Equal(t, 26, m.progress.Width)
}

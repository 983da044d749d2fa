package tui

import (
	"fmt"
	"strings"

	"github.com/entrhq/screencapture/pkg/capture"
)

// View renders the current panel.
func (m *model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("screencapture"))
	b.WriteString("\n")
	b.WriteString(urlStyle.Render(m.url))
	b.WriteString("\n\n")
	b.WriteString(panelStyle.Render(m.buildPanel()))
	b.WriteString("\n")
	b.WriteString(m.buildTips())
	b.WriteString("\n")

	return b.String()
}

func (m *model) buildPanel() string {
	switch {
	case m.panel == capture.PanelInvalid:
		return errorStyle.Render("This page can't be captured.") + "\n" +
			tipsStyle.Render("Try a regular web page.")
	case m.panel == capture.PanelUhOh:
		msg := errorStyle.Render("Uh-oh! Something went wrong while capturing this page.")
		if m.err != nil {
			msg += "\n" + tipsStyle.Render(m.err.Error())
		}
		return msg
	case m.done && m.handle != nil:
		return successStyle.Render("✓ Capture saved") + "\n" + resultStyle.Render(m.handle.Path)
	case m.done && m.err != nil:
		return errorStyle.Render(m.err.Error())
	case m.panel == capture.PanelLoading:
		return fmt.Sprintf("%s Capturing page\n\n%s", m.spinner.View(), m.progress.ViewAs(m.fraction))
	default:
		return fmt.Sprintf("%s Preparing page", m.spinner.View())
	}
}

func (m *model) buildTips() string {
	if m.done {
		return ""
	}
	return tipsStyle.Render("  q or Ctrl+C to cancel")
}

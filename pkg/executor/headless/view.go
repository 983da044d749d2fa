package headless

import (
	"sync"

	"github.com/entrhq/screencapture/pkg/capture"
)

// View renders capture panels and progress through a Logger.
type View struct {
	mu       sync.Mutex
	logger   *Logger
	panel    capture.Panel
	progress float64
}

var _ capture.View = (*View)(nil)

// NewView creates a console view.
func NewView(logger *Logger) *View {
	return &View{logger: logger, progress: -1}
}

// Show prints the panel once; repeated calls with the same panel are ignored.
func (v *View) Show(panel capture.Panel) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.panel == panel {
		return
	}
	v.panel = panel

	switch panel {
	case capture.PanelLoading:
		v.logger.Step("Capturing page")
	case capture.PanelInvalid:
		v.logger.Warningf("This page can't be captured. Try a regular web page.")
	case capture.PanelUhOh:
		v.logger.Errorf("Uh-oh! Something went wrong while capturing this page.")
	}
}

// SetProgress prints the progress bar when the fraction changes.
func (v *View) SetProgress(fraction float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if fraction == v.progress {
		return
	}
	v.progress = fraction
	v.logger.Progress(fraction)
}

// Panel returns the last panel shown.
func (v *View) Panel() capture.Panel {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.panel
}

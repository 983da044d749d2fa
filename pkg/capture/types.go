package capture

import (
	"context"
	"image"
	"time"

	"github.com/entrhq/screencapture/pkg/compositor"
	"github.com/entrhq/screencapture/pkg/exporter"
	"github.com/google/uuid"
)

// Message names exchanged with the page-side collaborator.
const (
	MsgCapturePage = "capturePage"
	MsgScrollPage  = "scrollPage"
	MsgLogMessage  = "logMessage"
)

// Tab identifies the page being captured.
type Tab struct {
	ID  string
	URL string
}

// CaptureOptions configure a single visible-viewport capture.
type CaptureOptions struct {
	Format  string
	Quality int
}

// DefaultCaptureOptions requests a full-quality PNG of the viewport.
var DefaultCaptureOptions = CaptureOptions{Format: "png", Quality: 100}

// Platform is the browser surface the orchestrator drives.
type Platform interface {
	// ActiveTab returns the tab the capture runs against
	ActiveTab(ctx context.Context) (Tab, error)

	// InjectScript installs the page-side helper into tab
	InjectScript(ctx context.Context, tab Tab) error

	// CaptureVisibleTab returns the encoded bitmap of the visible viewport
	CaptureVisibleTab(ctx context.Context, tab Tab, opts CaptureOptions) ([]byte, error)

	// OpenFile shows the exported file to the user
	OpenFile(ctx context.Context, url string) error
}

// Message is an inbound message from the page-side collaborator.
type Message struct {
	Msg     string                    `json:"msg"`
	Request compositor.CaptureRequest `json:"request"`
}

// TileResult is the acknowledgement returned to the collaborator for one tile.
type TileResult struct {
	OK bool

	// Request is the tile geometry in bitmap pixels when OK
	Request compositor.CaptureRequest

	// Err explains a failed tile
	Err error
}

// MessageHandler answers one collaborator message.
type MessageHandler func(ctx context.Context, msg Message) TileResult

// ContentScript is the page-side collaborator that scrolls the page and reports tiles.
type ContentScript interface {
	// ScrollPage scrolls through tab, delivering a capturePage message to handle for
	// every tile. It returns once the whole page has been reported.
	ScrollPage(ctx context.Context, tab Tab, handle MessageHandler) error

	// LogMessage relays a diagnostic line into the page
	LogMessage(ctx context.Context, tab Tab, data string) error
}

// Exporter persists the finished raster.
type Exporter interface {
	Export(ctx context.Context, raster image.Image, sourceURL string) (*exporter.FileHandle, error)
}

// Panel is one of the mutually exclusive status panels.
type Panel string

const (
	PanelLoading Panel = "loading"
	PanelInvalid Panel = "invalid"
	PanelUhOh    Panel = "uh-oh"
)

// View renders session progress to the user.
type View interface {
	Show(panel Panel)
	SetProgress(fraction float64)
}

// Logger is the logging surface the orchestrator writes to.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// State is a step of the capture session state machine.
type State string

const (
	StateIdle      State = "idle"
	StateChecking  State = "checking"
	StateInjecting State = "injecting"
	StateScrolling State = "scrolling"
	StateCapturing State = "capturing"
	StateExporting State = "exporting"
	StateDone      State = "done"
	StateError     State = "error"
)

// Session is one full-page capture attempt.
type Session struct {
	ID         uuid.UUID
	Generation uint64
	Tab        Tab
	SourceURL  string
	Screenshot *compositor.Screenshot
	StartedAt  time.Time

	// Err is set by the first failed tile; later tiles are rejected
	Err error
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

package browser

import "time"

// Options configures a launched browser.
type Options struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the page viewport in CSS pixels
	Viewport Viewport

	// DeviceScaleFactor multiplies bitmap size relative to the viewport
	DeviceScaleFactor float64

	// Timeout sets the default timeout for page operations
	Timeout time.Duration

	// SettleDelay is waited after each scroll so lazy content can paint
	SettleDelay time.Duration
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// pageMetrics is reported by the page helper.
type pageMetrics struct {
	TotalWidth   float64 `json:"totalWidth"`
	TotalHeight  float64 `json:"totalHeight"`
	WindowWidth  float64 `json:"windowWidth"`
	WindowHeight float64 `json:"windowHeight"`
}

// scrollPosition is the position the page actually scrolled to.
type scrollPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Default values for browser options
const (
	DefaultTimeout        = 30 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

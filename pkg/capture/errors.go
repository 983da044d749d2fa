package capture

import "errors"

var (
	// ErrIneligibleURL means the page URL does not allow script injection.
	ErrIneligibleURL = errors.New("page url is not eligible for capture")

	// ErrInjectionTimeout means the page helper did not install within the watchdog window.
	ErrInjectionTimeout = errors.New("script injection timed out")

	// ErrInjectionFailed means the platform rejected the page helper.
	ErrInjectionFailed = errors.New("script injection failed")

	// ErrScrollFailed means the collaborator aborted while scrolling.
	ErrScrollFailed = errors.New("page scroll failed")

	// ErrNoTiles means the collaborator finished without reporting a tile.
	ErrNoTiles = errors.New("no tiles were captured")

	// ErrTileCapture means the platform could not capture the visible viewport.
	ErrTileCapture = errors.New("tile capture failed")

	// ErrTileDecode means a captured viewport could not be decoded.
	ErrTileDecode = errors.New("tile decode failed")

	// ErrTilePlacement means a decoded tile could not be placed on the canvas.
	// It wraps compositor.ErrInvalidRequest.
	ErrTilePlacement = errors.New("tile placement failed")

	// ErrStaleSession is returned to callbacks belonging to an abandoned session.
	ErrStaleSession = errors.New("capture session is no longer active")

	// ErrUnknownMessage is returned for messages the orchestrator does not handle.
	ErrUnknownMessage = errors.New("unknown message")
)

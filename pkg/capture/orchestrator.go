// Package capture drives one full-page capture session: eligibility check, helper
// injection, tile collection through the page-side collaborator, compositing, export.
//
// # Session lifecycle
//
//	idle -> checking -> injecting -> scrolling -> capturing -> exporting -> done
//
// Any step may end in the error state, which is terminal. Each session carries a
// generation number; starting a session (or abandoning one on a watchdog timeout) bumps
// the generation so that late callbacks from the browser are rejected instead of
// mutating a session nobody observes.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/screencapture/pkg/compositor"
	"github.com/entrhq/screencapture/pkg/eligibility"
	"github.com/entrhq/screencapture/pkg/exporter"
	"github.com/google/uuid"
)

// Default timeouts.
const (
	DefaultInjectionTimeout = 1000 * time.Millisecond
	DefaultTileTimeout      = 5 * time.Second
)

// Options configure an Orchestrator.
type Options struct {
	Platform Platform
	Content  ContentScript
	Exporter Exporter
	View     View

	// Policy defaults to the eligibility package defaults
	Policy *eligibility.Policy

	// Logger defaults to a no-op logger
	Logger Logger

	InjectionTimeout time.Duration
	TileTimeout      time.Duration

	// OpenResult opens the exported file through the platform when done
	OpenResult bool

	// Clock defaults to time.Now
	Clock func() time.Time
}

// Orchestrator runs capture sessions. Only one session is active at a time.
type Orchestrator struct {
	platform Platform
	content  ContentScript
	exporter Exporter
	view     View
	policy   *eligibility.Policy
	logger   Logger
	clock    func() time.Time

	injectionTimeout time.Duration
	tileTimeout      time.Duration
	openResult       bool

	mu         sync.Mutex
	state      State
	generation uint64
	session    *Session

	// tileMu serialises compositing; tiles of a session are never drawn concurrently
	tileMu sync.Mutex
}

// New validates opts and returns an Orchestrator in the idle state.
func New(opts Options) (*Orchestrator, error) {
	if opts.Platform == nil {
		return nil, errors.New("platform is required")
	}
	if opts.Content == nil {
		return nil, errors.New("content script is required")
	}
	if opts.Exporter == nil {
		return nil, errors.New("exporter is required")
	}
	if opts.View == nil {
		return nil, errors.New("view is required")
	}
	if opts.InjectionTimeout < 0 || opts.TileTimeout < 0 {
		return nil, errors.New("timeouts cannot be negative")
	}

	policy := opts.Policy
	if policy == nil {
		policy = eligibility.MustPolicy(eligibility.DefaultAllowPatterns, eligibility.DefaultDenyPatterns)
	}
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	injectionTimeout := opts.InjectionTimeout
	if injectionTimeout == 0 {
		injectionTimeout = DefaultInjectionTimeout
	}
	tileTimeout := opts.TileTimeout
	if tileTimeout == 0 {
		tileTimeout = DefaultTileTimeout
	}

	return &Orchestrator{
		platform:         opts.Platform,
		content:          opts.Content,
		exporter:         opts.Exporter,
		view:             opts.View,
		policy:           policy,
		logger:           logger,
		clock:            clock,
		injectionTimeout: injectionTimeout,
		tileTimeout:      tileTimeout,
		openResult:       opts.OpenResult,
		state:            StateIdle,
	}, nil
}

// State returns the current state of the most recent session.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Session returns the active session, or nil before injection has succeeded.
func (o *Orchestrator) Session() *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// Run performs one capture session against the platform's active tab and returns the
// exported file.
func (o *Orchestrator) Run(ctx context.Context) (*exporter.FileHandle, error) {
	o.setState(StateChecking)

	tab, err := o.platform.ActiveTab(ctx)
	if err != nil {
		return nil, o.fail(PanelUhOh, fmt.Errorf("failed to query active tab: %w", err))
	}
	o.logger.Infof("Active tab %s: %s", tab.ID, tab.URL)

	if !o.policy.Allows(tab.URL) {
		return nil, o.fail(PanelInvalid, fmt.Errorf("%w: %s", ErrIneligibleURL, tab.URL))
	}

	o.setState(StateInjecting)
	session, err := o.inject(ctx, tab)
	if err != nil {
		return nil, err
	}

	o.view.Show(PanelLoading)
	o.setState(StateScrolling)
	o.logger.Infof("Session %s started for %s", session.ID, session.SourceURL)

	scrollErr := o.content.ScrollPage(ctx, tab, o.handlerFor(session))

	// Wait for an in-flight tile before reading the accumulator.
	o.tileMu.Lock()
	tileErr := session.Err
	shot := session.Screenshot
	o.tileMu.Unlock()

	switch {
	case tileErr != nil:
		return nil, o.fail(PanelUhOh, tileErr)
	case scrollErr != nil:
		return nil, o.fail(PanelUhOh, fmt.Errorf("%w: %v", ErrScrollFailed, scrollErr))
	case shot.Empty():
		return nil, o.fail(PanelUhOh, ErrNoTiles)
	}

	if !o.isCurrent(session) {
		return nil, ErrStaleSession
	}

	o.setState(StateExporting)
	handle, err := o.exporter.Export(ctx, shot.Canvas, session.SourceURL)
	if err != nil {
		return nil, o.fail(PanelUhOh, fmt.Errorf("export failed: %w", err))
	}
	o.logger.Infof("Session %s exported %d tiles to %s (%d bytes)", session.ID, shot.Tiles, handle.Path, handle.Size)

	if o.openResult {
		if err := o.platform.OpenFile(ctx, handle.URL); err != nil {
			o.logger.Warnf("Failed to open %s: %v", handle.URL, err)
		}
	}

	o.setState(StateDone)
	return handle, nil
}

// inject installs the page helper, giving up after the injection watchdog fires.
// A completion that arrives after the watchdog is dropped.
func (o *Orchestrator) inject(ctx context.Context, tab Tab) (*Session, error) {
	gen := o.nextGeneration()

	injectCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- o.platform.InjectScript(injectCtx, tab)
	}()

	timer := time.NewTimer(o.injectionTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return nil, o.fail(PanelUhOh, fmt.Errorf("%w: %v", ErrInjectionFailed, err))
		}
	case <-timer.C:
		o.invalidate(gen)
		return nil, o.fail(PanelUhOh, fmt.Errorf("%w after %s", ErrInjectionTimeout, o.injectionTimeout))
	case <-ctx.Done():
		o.invalidate(gen)
		return nil, o.fail(PanelUhOh, ctx.Err())
	}

	return o.startSession(gen, tab)
}

// HandleMessage dispatches an inbound collaborator message to the active session.
func (o *Orchestrator) HandleMessage(ctx context.Context, msg Message) TileResult {
	return o.dispatch(ctx, o.Session(), msg)
}

// LogMessage relays data to the collaborator without waiting for it.
func (o *Orchestrator) LogMessage(ctx context.Context, data string) {
	session := o.Session()
	if session == nil {
		return
	}
	go func() {
		if err := o.content.LogMessage(ctx, session.Tab, data); err != nil {
			o.logger.Debugf("Log relay to tab %s failed: %v", session.Tab.ID, err)
		}
	}()
}

func (o *Orchestrator) handlerFor(session *Session) MessageHandler {
	return func(ctx context.Context, msg Message) TileResult {
		return o.dispatch(ctx, session, msg)
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, session *Session, msg Message) TileResult {
	switch msg.Msg {
	case MsgCapturePage:
		return o.capturePage(ctx, session, msg.Request)
	default:
		o.logger.Errorf("Unknown message received from content script: %s", msg.Msg)
		return TileResult{Err: fmt.Errorf("%w: %s", ErrUnknownMessage, msg.Msg)}
	}
}

// capturePage captures the viewport for one tile and composites it.
func (o *Orchestrator) capturePage(ctx context.Context, session *Session, req compositor.CaptureRequest) TileResult {
	o.tileMu.Lock()
	defer o.tileMu.Unlock()

	if session == nil || !o.isCurrent(session) {
		return TileResult{Err: ErrStaleSession}
	}
	if session.Err != nil {
		return TileResult{Err: session.Err}
	}

	o.setState(StateCapturing)
	o.view.SetProgress(req.Complete)

	tileCtx, cancel := context.WithTimeout(ctx, o.tileTimeout)
	defer cancel()

	data, err := o.captureTile(tileCtx, session.Tab)
	if err != nil {
		session.Err = fmt.Errorf("%w: %v", ErrTileCapture, err)
		return TileResult{Err: session.Err}
	}

	tile, err := compositor.Decode(data)
	if err != nil {
		session.Err = fmt.Errorf("%w: %v", ErrTileDecode, err)
		return TileResult{Err: session.Err}
	}

	shot, scaled, err := compositor.Compose(session.Screenshot, tile, req)
	if err != nil {
		session.Err = fmt.Errorf("%w: %w", ErrTilePlacement, err)
		return TileResult{Err: session.Err}
	}
	session.Screenshot = shot

	o.logger.Debugf("Tile %d at (%.0f, %.0f) of %.0fx%.0f, scale %.2f, %.0f%% complete",
		shot.Tiles, scaled.X, scaled.Y, scaled.TotalWidth, scaled.TotalHeight, shot.Scale, req.Complete*100)

	return TileResult{OK: true, Request: scaled}
}

// captureTile waits for the platform capture until ctx ends. A platform that ignores
// ctx is abandoned; its late result is dropped.
func (o *Orchestrator) captureTile(ctx context.Context, tab Tab) ([]byte, error) {
	type captured struct {
		data []byte
		err  error
	}
	done := make(chan captured, 1)
	go func() {
		data, err := o.platform.CaptureVisibleTab(ctx, tab, DefaultCaptureOptions)
		done <- captured{data: data, err: err}
	}()

	select {
	case c := <-done:
		return c.data, c.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("timed out after %s", o.tileTimeout)
		}
		return nil, ctx.Err()
	}
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

// fail moves to the error state, shows panel and returns err.
func (o *Orchestrator) fail(panel Panel, err error) error {
	o.setState(StateError)
	o.view.Show(panel)
	o.logger.Errorf("Capture failed: %v", err)
	return err
}

func (o *Orchestrator) nextGeneration() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.generation++
	o.session = nil
	return o.generation
}

// invalidate abandons generation gen if it is still the current one.
func (o *Orchestrator) invalidate(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation == gen {
		o.generation++
		o.session = nil
	}
}

func (o *Orchestrator) startSession(gen uint64, tab Tab) (*Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.generation != gen {
		return nil, ErrStaleSession
	}

	o.session = &Session{
		ID:         uuid.New(),
		Generation: gen,
		Tab:        tab,
		SourceURL:  tab.URL,
		Screenshot: compositor.NewScreenshot(),
		StartedAt:  o.clock(),
	}
	return o.session, nil
}

func (o *Orchestrator) isCurrent(session *Session) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session == session && o.generation == session.Generation
}

package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/entrhq/screencapture/pkg/compositor"
	"github.com/entrhq/screencapture/pkg/exporter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
)

func pngTile(t *testing.T, width, height int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakePlatform struct {
	mu sync.Mutex

	tab        Tab
	tabErr     error
	injectErr  error
	injectWait chan struct{}
	injected   int
	captures   [][]byte
	captureErr error
	captured   int
	opened     []string

	// captureDelay blocks CaptureVisibleTab without watching ctx
	captureDelay time.Duration
}

func (p *fakePlatform) ActiveTab(ctx context.Context) (Tab, error) {
	return p.tab, p.tabErr
}

func (p *fakePlatform) InjectScript(ctx context.Context, tab Tab) error {
	if p.injectWait != nil {
		<-p.injectWait
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.injected++
	return p.injectErr
}

func (p *fakePlatform) CaptureVisibleTab(ctx context.Context, tab Tab, opts CaptureOptions) ([]byte, error) {
	time.Sleep(p.captureDelay)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.captureErr != nil {
		return nil, p.captureErr
	}
	data := p.captures[p.captured%len(p.captures)]
	p.captured++
	return data, nil
}

func (p *fakePlatform) OpenFile(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = append(p.opened, url)
	return nil
}

type fakeContent struct {
	mu sync.Mutex

	requests  []compositor.CaptureRequest
	scrollErr error
	scrolled  int
	results   []TileResult
	handlers  []MessageHandler
	logs      []string
}

func (c *fakeContent) ScrollPage(ctx context.Context, tab Tab, handle MessageHandler) error {
	c.mu.Lock()
	c.scrolled++
	c.handlers = append(c.handlers, handle)
	c.mu.Unlock()

	for _, req := range c.requests {
		result := handle(ctx, Message{Msg: MsgCapturePage, Request: req})
		c.mu.Lock()
		c.results = append(c.results, result)
		c.mu.Unlock()
	}
	return c.scrollErr
}

func (c *fakeContent) LogMessage(ctx context.Context, tab Tab, data string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, data)
	return nil
}

func (c *fakeContent) scrollCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scrolled
}

type fakeView struct {
	mu       sync.Mutex
	panels   []Panel
	progress []float64
}

func (v *fakeView) Show(panel Panel) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.panels = append(v.panels, panel)
}

func (v *fakeView) SetProgress(fraction float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.progress = append(v.progress, fraction)
}

func (v *fakeView) shown() []Panel {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Panel(nil), v.panels...)
}

type failingExporter struct {
	err error
}

func (e failingExporter) Export(ctx context.Context, raster image.Image, sourceURL string) (*exporter.FileHandle, error) {
	return nil, e.err
}

func twoTileRequests() []compositor.CaptureRequest {
	return []compositor.CaptureRequest{
		{X: 0, Y: 0, TotalWidth: 800, TotalHeight: 1200, WindowWidth: 800, Complete: 0.5},
		{X: 0, Y: 600, TotalWidth: 800, TotalHeight: 1200, WindowWidth: 800, Complete: 1},
	}
}

func newTestOrchestrator(t *testing.T, platform *fakePlatform, content *fakeContent, view *fakeView, exp Exporter) *Orchestrator {
	t.Helper()
	if exp == nil {
		var err error
		exp, err = exporter.New(exporter.Options{Dir: t.TempDir()})
		require.NoError(t, err)
	}
	o, err := New(Options{
		Platform:         platform,
		Content:          content,
		Exporter:         exp,
		View:             view,
		InjectionTimeout: 200 * time.Millisecond,
		OpenResult:       true,
	})
	require.NoError(t, err)
	return o
}

func TestRun_TwoTilesEndToEnd(t *testing.T) {
	platform := &fakePlatform{
		tab:      Tab{ID: "1", URL: "https://example.com/a?x=1#y"},
		captures: [][]byte{pngTile(t, 800, 600, red), pngTile(t, 800, 600, green)},
	}
	content := &fakeContent{requests: twoTileRequests()}
	view := &fakeView{}
	o := newTestOrchestrator(t, platform, content, view, nil)

	handle, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, o.State())
	assert.Equal(t, []Panel{PanelLoading}, view.shown())
	assert.Equal(t, []float64{0.5, 1}, view.progress)
	assert.Equal(t, []string{handle.URL}, platform.opened)
	assert.Regexp(t, `^screencapture-example-com-a-\d+\.png$`, handle.Name)

	require.Len(t, content.results, 2)
	for _, r := range content.results {
		assert.True(t, r.OK)
		assert.NoError(t, r.Err)
	}

	data, err := os.ReadFile(handle.Path)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 800, 1200), img.Bounds())
	assertColor(t, red, img.At(0, 0))
	assertColor(t, red, img.At(799, 599))
	assertColor(t, green, img.At(0, 600))
	assertColor(t, green, img.At(799, 1199))
}

func assertColor(t *testing.T, expected color.Color, actual color.Color) {
	t.Helper()
	er, eg, eb, ea := expected.RGBA()
	ar, ag, ab, aa := actual.RGBA()
	assert.Equal(t, []uint32{er, eg, eb, ea}, []uint32{ar, ag, ab, aa})
}

func TestRun_ScaleMismatchReportsBitmapGeometry(t *testing.T) {
	platform := &fakePlatform{
		tab:      Tab{ID: "1", URL: "https://example.com/"},
		captures: [][]byte{pngTile(t, 800, 600, red)},
	}
	content := &fakeContent{requests: []compositor.CaptureRequest{
		{X: 0, Y: 0, TotalWidth: 400, TotalHeight: 600, WindowWidth: 400, Complete: 0.5},
		{X: 0, Y: 300, TotalWidth: 400, TotalHeight: 600, WindowWidth: 400, Complete: 1},
	}}
	o := newTestOrchestrator(t, platform, content, &fakeView{}, nil)

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, content.results, 2)
	assert.Equal(t, 600.0, content.results[1].Request.Y)
	assert.Equal(t, 800.0, content.results[1].Request.TotalWidth)
	assert.Equal(t, 1200.0, content.results[1].Request.TotalHeight)
	assert.Equal(t, image.Rect(0, 0, 800, 1200), o.Session().Screenshot.Bounds())
}

func TestRun_IneligibleURL(t *testing.T) {
	platform := &fakePlatform{tab: Tab{ID: "1", URL: "chrome://newtab/"}}
	content := &fakeContent{}
	view := &fakeView{}
	o := newTestOrchestrator(t, platform, content, view, nil)

	_, err := o.Run(context.Background())
	require.ErrorIs(t, err, ErrIneligibleURL)

	assert.Equal(t, []Panel{PanelInvalid}, view.shown())
	assert.Equal(t, StateError, o.State())
	assert.Equal(t, 0, platform.injected)
	assert.Equal(t, 0, content.scrollCount())
}

func TestRun_InjectionTimeoutShowsErrorOnce(t *testing.T) {
	release := make(chan struct{})
	platform := &fakePlatform{
		tab:        Tab{ID: "1", URL: "https://example.com/"},
		injectWait: release,
		captures:   [][]byte{pngTile(t, 10, 10, red)},
	}
	content := &fakeContent{requests: twoTileRequests()}
	view := &fakeView{}

	exp, err := exporter.New(exporter.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	o, err := New(Options{
		Platform:         platform,
		Content:          content,
		Exporter:         exp,
		View:             view,
		InjectionTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = o.Run(context.Background())
	require.ErrorIs(t, err, ErrInjectionTimeout)

	// The injection completes after the watchdog fired; nothing may change.
	close(release)
	assert.Eventually(t, func() bool {
		platform.mu.Lock()
		defer platform.mu.Unlock()
		return platform.injected == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, []Panel{PanelUhOh}, view.shown())
	assert.Equal(t, 0, content.scrollCount())
	assert.Nil(t, o.Session())
	assert.Equal(t, StateError, o.State())

	result := o.HandleMessage(context.Background(), Message{Msg: MsgCapturePage, Request: twoTileRequests()[0]})
	assert.False(t, result.OK)
	assert.ErrorIs(t, result.Err, ErrStaleSession)
}

func TestRun_InjectionError(t *testing.T) {
	platform := &fakePlatform{
		tab:       Tab{ID: "1", URL: "https://example.com/"},
		injectErr: errors.New("cannot access contents of the page"),
	}
	view := &fakeView{}
	o := newTestOrchestrator(t, platform, &fakeContent{}, view, nil)

	_, err := o.Run(context.Background())
	require.ErrorIs(t, err, ErrInjectionFailed)
	assert.Equal(t, []Panel{PanelUhOh}, view.shown())
}

func TestRun_ExportFailure(t *testing.T) {
	platform := &fakePlatform{
		tab:      Tab{ID: "1", URL: "https://example.com/"},
		captures: [][]byte{pngTile(t, 800, 600, red)},
	}
	content := &fakeContent{requests: twoTileRequests()}
	view := &fakeView{}
	fsErr := &exporter.FileSystemError{Op: "write", Err: os.ErrPermission}
	o := newTestOrchestrator(t, platform, content, view, failingExporter{err: fsErr})

	_, err := o.Run(context.Background())
	require.ErrorIs(t, err, exporter.ErrFileSystem)

	assert.Equal(t, []Panel{PanelLoading, PanelUhOh}, view.shown())
	assert.Equal(t, StateError, o.State())
	assert.Empty(t, platform.opened)
}

func TestRun_TileDecodeFailureSurfacesError(t *testing.T) {
	platform := &fakePlatform{
		tab:      Tab{ID: "1", URL: "https://example.com/"},
		captures: [][]byte{[]byte("not a png")},
	}
	content := &fakeContent{requests: twoTileRequests()}
	view := &fakeView{}
	o := newTestOrchestrator(t, platform, content, view, nil)

	_, err := o.Run(context.Background())
	require.ErrorIs(t, err, ErrTileDecode)

	require.Len(t, content.results, 2)
	assert.False(t, content.results[0].OK)
	assert.ErrorIs(t, content.results[0].Err, ErrTileDecode)
	assert.False(t, content.results[1].OK)
	assert.Equal(t, 1, platform.captured, "tiles after a failure are not captured")
	assert.Equal(t, []Panel{PanelLoading, PanelUhOh}, view.shown())
}

func TestRun_TileCaptureFailure(t *testing.T) {
	platform := &fakePlatform{
		tab:        Tab{ID: "1", URL: "https://example.com/"},
		captureErr: errors.New("tab is not visible"),
	}
	content := &fakeContent{requests: twoTileRequests()}
	o := newTestOrchestrator(t, platform, content, &fakeView{}, nil)

	_, err := o.Run(context.Background())
	require.ErrorIs(t, err, ErrTileCapture)
}

func TestRun_TileTimeoutAbandonsSlowCapture(t *testing.T) {
	platform := &fakePlatform{
		tab:          Tab{ID: "1", URL: "https://example.com/"},
		captures:     [][]byte{pngTile(t, 800, 600, red)},
		captureDelay: 300 * time.Millisecond,
	}
	content := &fakeContent{requests: twoTileRequests()}
	view := &fakeView{}

	exp, err := exporter.New(exporter.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	o, err := New(Options{
		Platform:    platform,
		Content:     content,
		Exporter:    exp,
		View:        view,
		TileTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = o.Run(context.Background())
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTileCapture)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, elapsed, 250*time.Millisecond)
	assert.Equal(t, StateError, o.State())
	assert.Equal(t, []Panel{PanelLoading, PanelUhOh}, view.shown())

	require.Len(t, content.results, 2)
	assert.ErrorIs(t, content.results[0].Err, ErrTileCapture)
	assert.ErrorIs(t, content.results[1].Err, ErrTileCapture)

	// The abandoned capture finishes later without touching the session.
	assert.Eventually(t, func() bool {
		platform.mu.Lock()
		defer platform.mu.Unlock()
		return platform.captured == 1
	}, time.Second, 5*time.Millisecond)
	assert.True(t, o.Session().Screenshot.Empty())
}

func TestRun_TilePlacementFailure(t *testing.T) {
	platform := &fakePlatform{
		tab:      Tab{ID: "1", URL: "https://example.com/"},
		captures: [][]byte{pngTile(t, 800, 600, red)},
	}
	requests := twoTileRequests()
	requests[0].WindowWidth = 0
	content := &fakeContent{requests: requests}
	o := newTestOrchestrator(t, platform, content, &fakeView{}, nil)

	_, err := o.Run(context.Background())
	require.ErrorIs(t, err, ErrTilePlacement)
	assert.ErrorIs(t, err, compositor.ErrInvalidRequest)
	assert.NotErrorIs(t, err, ErrTileDecode)

	require.Len(t, content.results, 2)
	assert.ErrorIs(t, content.results[0].Err, ErrTilePlacement)
}

func TestRun_ScrollFailureAndNoTiles(t *testing.T) {
	platform := &fakePlatform{tab: Tab{ID: "1", URL: "https://example.com/"}}

	o := newTestOrchestrator(t, platform, &fakeContent{scrollErr: errors.New("page navigated away")}, &fakeView{}, nil)
	_, err := o.Run(context.Background())
	assert.ErrorIs(t, err, ErrScrollFailed)

	o = newTestOrchestrator(t, platform, &fakeContent{}, &fakeView{}, nil)
	_, err = o.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoTiles)
}

func TestRun_NewSessionInvalidatesOldCallbacks(t *testing.T) {
	platform := &fakePlatform{
		tab:      Tab{ID: "1", URL: "https://example.com/"},
		captures: [][]byte{pngTile(t, 800, 600, red)},
	}
	content := &fakeContent{requests: twoTileRequests()}
	o := newTestOrchestrator(t, platform, content, &fakeView{}, nil)

	_, err := o.Run(context.Background())
	require.NoError(t, err)
	first := o.Session()

	_, err = o.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, o.Session().ID)
	assert.Greater(t, o.Session().Generation, first.Generation)

	require.Len(t, content.handlers, 2)
	stale := content.handlers[0](context.Background(), Message{Msg: MsgCapturePage, Request: twoTileRequests()[0]})
	assert.False(t, stale.OK)
	assert.ErrorIs(t, stale.Err, ErrStaleSession)
	assert.Equal(t, 2, first.Screenshot.Tiles, "abandoned accumulator is left untouched")
}

func TestHandleMessage_UnknownMessage(t *testing.T) {
	o := newTestOrchestrator(t, &fakePlatform{}, &fakeContent{}, &fakeView{}, nil)

	result := o.HandleMessage(context.Background(), Message{Msg: "resize"})
	assert.False(t, result.OK)
	assert.ErrorIs(t, result.Err, ErrUnknownMessage)

	result = o.HandleMessage(context.Background(), Message{Msg: MsgCapturePage})
	assert.ErrorIs(t, result.Err, ErrStaleSession)
}

func TestLogMessage_RelaysToActiveTab(t *testing.T) {
	platform := &fakePlatform{
		tab:      Tab{ID: "1", URL: "https://example.com/"},
		captures: [][]byte{pngTile(t, 800, 600, red)},
	}
	content := &fakeContent{requests: twoTileRequests()}
	o := newTestOrchestrator(t, platform, content, &fakeView{}, nil)

	// No session yet: dropped.
	o.LogMessage(context.Background(), "ignored")

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	o.LogMessage(context.Background(), "hello page")
	assert.Eventually(t, func() bool {
		content.mu.Lock()
		defer content.mu.Unlock()
		return len(content.logs) == 1 && content.logs[0] == "hello page"
	}, time.Second, 5*time.Millisecond)
}

func TestNew_Validation(t *testing.T) {
	exp, err := exporter.New(exporter.Options{Dir: t.TempDir()})
	require.NoError(t, err)

	valid := Options{Platform: &fakePlatform{}, Content: &fakeContent{}, Exporter: exp, View: &fakeView{}}

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{name: "missing platform", mutate: func(o *Options) { o.Platform = nil }},
		{name: "missing content", mutate: func(o *Options) { o.Content = nil }},
		{name: "missing exporter", mutate: func(o *Options) { o.Exporter = nil }},
		{name: "missing view", mutate: func(o *Options) { o.View = nil }},
		{name: "negative timeout", mutate: func(o *Options) { o.TileTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := valid
			tt.mutate(&opts)
			_, err := New(opts)
			assert.Error(t, err)
		})
	}

	o, err := New(valid)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, o.State())
	assert.Equal(t, DefaultInjectionTimeout, o.injectionTimeout)
	assert.Equal(t, DefaultTileTimeout, o.tileTimeout)
}

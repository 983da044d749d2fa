package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions_WithDefaults(t *testing.T) {
	opts := Options{}.withDefaults()

	assert.Equal(t, DefaultViewportWidth, opts.Viewport.Width)
	assert.Equal(t, DefaultViewportHeight, opts.Viewport.Height)
	assert.Equal(t, 1.0, opts.DeviceScaleFactor)
	assert.Equal(t, DefaultTimeout, opts.Timeout)
	assert.False(t, opts.Headless)
}

func TestOptions_WithDefaultsKeepsValues(t *testing.T) {
	opts := Options{
		Headless:          true,
		Viewport:          Viewport{Width: 800, Height: 600},
		DeviceScaleFactor: 2,
		Timeout:           time.Second,
	}.withDefaults()

	assert.Equal(t, Viewport{Width: 800, Height: 600}, opts.Viewport)
	assert.Equal(t, 2.0, opts.DeviceScaleFactor)
	assert.Equal(t, time.Second, opts.Timeout)
	assert.True(t, opts.Headless)
}

func TestSettle(t *testing.T) {
	assert.NoError(t, settle(context.Background(), 0))
	assert.NoError(t, settle(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, settle(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, settle(ctx, 0), context.Canceled)
}

func TestPageHelperEmbedded(t *testing.T) {
	assert.Contains(t, pageHelper, "window.__screencapture")
	assert.Contains(t, pageHelper, "scrollTo")
}

func TestScreenshotTimeout(t *testing.T) {
	now := time.Now()

	_, ok := screenshotTimeout(context.Background(), now)
	assert.False(t, ok)

	ctx, cancel := context.WithDeadline(context.Background(), now.Add(250*time.Millisecond))
	defer cancel()
	ms, ok := screenshotTimeout(ctx, now)
	assert.True(t, ok)
	assert.InDelta(t, 250.0, ms, 0.001)

	expired, cancelExpired := context.WithDeadline(context.Background(), now.Add(-time.Second))
	defer cancelExpired()
	ms, ok = screenshotTimeout(expired, now)
	assert.True(t, ok)
	assert.Equal(t, 1.0, ms)
}

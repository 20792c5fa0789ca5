// Package playback drives bounded-range playback of one audio handle: seek
// to a segment's start, play, and stop once the playhead crosses the
// segment's end. The stop condition is polled on a fixed tick rather than
// scheduled, so the effective stop latency is at most one tick.
package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultPollInterval is how often the boundary watcher samples the
	// playhead position.
	DefaultPollInterval = 10 * time.Millisecond

	// DefaultEndPadding is added to a window's end before the stop condition
	// triggers. Upstream timestamps are imprecise; a small pad keeps the tail
	// of a sentence from being clipped.
	DefaultEndPadding = 200 * time.Millisecond
)

var ErrTornDown = errors.New("playback controller is torn down")

// Window is the half-open time range of one segment.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// Handle is the audio element the controller operates on. The handle is lent
// by the host: the controller issues playback commands but never owns the
// handle's lifecycle.
type Handle interface {
	SeekTo(t time.Duration)
	Position() time.Duration
	Start() error
	Pause()
}

// Controller owns the playhead of a single Handle. At most one boundary
// watcher is attached at any time; a new Play detaches the previous watcher
// before seeking, so a superseded play's onEnd never fires.
type Controller struct {
	handle       Handle
	logger       *slog.Logger
	pollInterval time.Duration
	endPadding   time.Duration

	mu       sync.Mutex
	watcher  *boundaryWatcher
	tornDown bool
}

type boundaryWatcher struct {
	stop     chan struct{}
	stopOnce sync.Once
}

func (w *boundaryWatcher) detach() {
	w.stopOnce.Do(func() { close(w.stop) })
}

type Option func(c *Controller)

func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func WithEndPadding(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.endPadding = d
		}
	}
}

func NewController(handle Handle, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		handle:       handle,
		logger:       logger,
		pollInterval: DefaultPollInterval,
		endPadding:   DefaultEndPadding,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SeekTo moves the playhead to t, clamped at zero.
func (c *Controller) SeekTo(t time.Duration) {
	if t < 0 {
		t = 0
	}
	c.handle.SeekTo(t)
}

// Play seeks to w.Start, starts playback, invokes onStart and attaches a
// boundary watcher that pauses the handle and invokes onEnd once the playhead
// reaches w.End plus the configured padding.
//
// onEnd fires at most once per Play: exactly once when playback reaches the
// boundary, and never when this play is superseded by a later Play, Stop or
// Teardown first. Play returns immediately; the boundary check runs on the
// poll tick.
func (c *Controller) Play(w Window, onStart, onEnd func()) error {
	if w.Start < 0 || w.End <= w.Start {
		return fmt.Errorf("invalid playback window [%s, %s)", w.Start, w.End)
	}

	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return ErrTornDown
	}
	c.detachLocked()

	c.handle.SeekTo(w.Start)
	if err := c.handle.Start(); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("start playback: %w", err)
	}

	watcher := &boundaryWatcher{stop: make(chan struct{})}
	c.watcher = watcher
	c.mu.Unlock()

	if onStart != nil {
		onStart()
	}

	go c.watch(watcher, w.End+c.endPadding, onEnd)

	return nil
}

// Stop pauses playback and detaches the watcher without invoking onEnd.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.detachLocked()
	c.mu.Unlock()
	c.handle.Pause()
}

// Teardown releases the controller: any attached watcher is detached so no
// callback can fire against a discarded host. Subsequent Play calls fail.
// Safe to call more than once.
func (c *Controller) Teardown() {
	c.mu.Lock()
	c.tornDown = true
	c.detachLocked()
	c.mu.Unlock()
	c.handle.Pause()
}

func (c *Controller) detachLocked() {
	if c.watcher != nil {
		c.watcher.detach()
		c.watcher = nil
	}
}

func (c *Controller) watch(w *boundaryWatcher, boundary time.Duration, onEnd func()) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			if c.handle.Position() < boundary {
				continue
			}

			// Claim the watcher slot under the lock: if a later Play or Stop
			// got there first, this watcher is stale and must stay silent.
			c.mu.Lock()
			if c.watcher != w {
				c.mu.Unlock()
				return
			}
			c.watcher = nil
			c.handle.Pause()
			c.mu.Unlock()

			if c.logger != nil {
				c.logger.Debug("playback boundary reached",
					"boundary", boundary.String(),
					"position", c.handle.Position().String())
			}
			if onEnd != nil {
				onEnd()
			}
			return
		}
	}
}

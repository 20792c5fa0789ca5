package playback

import (
	"sync"
	"time"
)

// ClockHandle is a Handle whose playhead advances with the wall clock while
// started. It produces no sound; it exists to drive boundary watching where
// the actual audio plays elsewhere (a connected browser) or nowhere (tests).
type ClockHandle struct {
	mu        sync.Mutex
	base      time.Duration
	startedAt time.Time
	playing   bool
}

func NewClockHandle() *ClockHandle {
	return &ClockHandle{}
}

func (h *ClockHandle) SeekTo(t time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.base = t
	if h.playing {
		h.startedAt = time.Now()
	}
}

func (h *ClockHandle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.playing {
		return h.base
	}
	return h.base + time.Since(h.startedAt)
}

func (h *ClockHandle) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.playing {
		h.playing = true
		h.startedAt = time.Now()
	}
	return nil
}

func (h *ClockHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.playing {
		h.base += time.Since(h.startedAt)
		h.playing = false
	}
}

var _ Handle = (*ClockHandle)(nil)

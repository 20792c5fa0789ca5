package server

import (
	"net/http"
	"sync"

	"github.com/sherrrrryzeng/dictation-trainer/internal/playback"
)

// liveCommand is a client request on the live feed.
// Types: "play" (index), "repeat" (last played index), "stop".
type liveCommand struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// liveEvent is a server push on the live feed.
// Types: "playback_started", "playback_finished", "error".
type liveEvent struct {
	Type    string `json:"type"`
	Index   int    `json:"index"`
	Message string `json:"message,omitempty"`
}

// handleLive runs the live practice feed: the client asks for a segment to
// be played and the server, holding the segment timings, drives a playback
// controller on a wall clock and pushes start/finish marks. A new play
// request supersedes the previous one, so a stale finish mark is never sent
// after a newer start mark.
func (s *PracticeServer) handleLive(w http.ResponseWriter, r *http.Request) {
	view, err := s.practiceSvc.Session(r.PathValue("id"))
	if err != nil {
		s.writeError(w, sessionStatus(err), err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The finish mark is pushed from the watcher goroutine while the read
	// loop may be pushing error events; gorilla allows one writer at a time.
	var writeMu sync.Mutex
	send := func(ev liveEvent) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(ev); err != nil {
			s.logger.DebugContext(r.Context(), "live feed write failed", "error", err)
		}
	}

	controller := playback.NewController(playback.NewClockHandle(), s.logger, s.playbackOpts...)
	defer controller.Teardown()

	lastPlayed := -1
	for {
		var cmd liveCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			s.logger.DebugContext(r.Context(), "live feed closed", "error", err)
			return
		}

		switch cmd.Type {
		case "play", "repeat":
			index := cmd.Index
			if cmd.Type == "repeat" {
				index = lastPlayed
			}
			if index < 0 || index >= len(view.Segments) {
				send(liveEvent{Type: "error", Index: index, Message: "segment index out of range"})
				continue
			}

			seg := view.Segments[index]
			window := playback.Window{Start: seg.Start, End: seg.End}
			err := controller.Play(window,
				func() { send(liveEvent{Type: "playback_started", Index: index}) },
				func() { send(liveEvent{Type: "playback_finished", Index: index}) },
			)
			if err != nil {
				send(liveEvent{Type: "error", Index: index, Message: err.Error()})
				continue
			}
			lastPlayed = index

		case "stop":
			controller.Stop()

		default:
			send(liveEvent{Type: "error", Message: "unknown command: " + cmd.Type})
		}
	}
}

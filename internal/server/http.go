// Package server exposes practice sessions over HTTP/JSON plus a WebSocket
// live feed that drives segment playback timing for a connected client.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sherrrrryzeng/dictation-trainer/internal/monitor"
	"github.com/sherrrrryzeng/dictation-trainer/internal/playback"
	"github.com/sherrrrryzeng/dictation-trainer/internal/segmentsource"
	"github.com/sherrrrryzeng/dictation-trainer/internal/service/practice_svc"
)

// multipartMemoryLimit bounds how much of an upload is buffered in memory
// while parsing; anything above spills to disk before the size check runs.
const multipartMemoryLimit = 8 << 20

type PracticeServer struct {
	logger       *slog.Logger
	practiceSvc  practice_svc.PracticeService
	loadMonitor  monitor.LoadMonitor
	upgrader     websocket.Upgrader
	playbackOpts []playback.Option
}

func NewPracticeServer(
	logger *slog.Logger,
	practiceSvc practice_svc.PracticeService,
	loadMonitor monitor.LoadMonitor,
	playbackOpts ...playback.Option,
) *PracticeServer {
	return &PracticeServer{
		logger:      logger,
		practiceSvc: practiceSvc,
		loadMonitor: loadMonitor,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		playbackOpts: playbackOpts,
	}
}

func (s *PracticeServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("GET /v1/sessions/{id}/audio", s.handleGetAudio)
	mux.HandleFunc("POST /v1/sessions/{id}/submissions", s.handleSubmit)
	mux.HandleFunc("POST /v1/sessions/{id}/seek", s.handleSeek)
	mux.HandleFunc("GET /v1/sessions/{id}/live", s.handleLive)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

func (s *PracticeServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse upload: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("missing file field: %w", err))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(audio)
	}

	view, err := s.practiceSvc.CreateSession(r.Context(), audio, mimeType, header.Filename)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "create session failed", "error", err)
		s.writeError(w, createSessionStatus(err), err)
		return
	}

	s.writeJSON(w, http.StatusCreated, mapSession(view))
}

func createSessionStatus(err error) int {
	switch {
	case errors.Is(err, practice_svc.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, practice_svc.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, practice_svc.ErrServiceBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, segmentsource.ErrNoSegments):
		return http.StatusUnprocessableEntity
	default:
		// Transcription is an upstream collaborator; its failures are a bad
		// gateway, not our fault.
		return http.StatusBadGateway
	}
}

func (s *PracticeServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.practiceSvc.Session(r.PathValue("id"))
	if err != nil {
		s.writeError(w, sessionStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, mapSession(view))
}

func (s *PracticeServer) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	audio, mimeType, err := s.practiceSvc.SessionAudio(r.PathValue("id"))
	if err != nil {
		s.writeError(w, sessionStatus(err), err)
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

func (s *PracticeServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode submission: %w", err))
		return
	}
	// Empty submissions are a host-side guard, not a grading concern.
	if strings.TrimSpace(req.Input) == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("input is empty"))
		return
	}

	view, err := s.practiceSvc.Submit(r.PathValue("id"), req.Input)
	if err != nil {
		s.writeError(w, sessionStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, mapSubmission(view))
}

func (s *PracticeServer) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode seek: %w", err))
		return
	}

	view, err := s.practiceSvc.Seek(r.PathValue("id"), req.Index)
	if err != nil {
		status := sessionStatus(err)
		if errors.Is(err, practice_svc.ErrSegmentOutOfRange) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, mapSession(view))
}

func (s *PracticeServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	metrics := s.loadMonitor.GetMetrics()
	status := http.StatusOK
	if !s.loadMonitor.IsHealthy() {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, map[string]any{
		"healthy":        s.loadMonitor.IsHealthy(),
		"activeJobs":     metrics.ActiveJobs,
		"maxJobs":        metrics.MaxJobs,
		"loadPercentage": metrics.LoadPercentage,
	})
}

func sessionStatus(err error) int {
	if errors.Is(err, practice_svc.ErrSessionNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *PracticeServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("write response", "error", err)
	}
}

func (s *PracticeServer) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

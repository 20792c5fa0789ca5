// Package practice_svc owns dictation practice sessions: it accepts an audio
// upload, has a segment source split it into sentences, and tracks the
// user's progress through them. Sessions live in memory only.
package practice_svc

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sherrrrryzeng/dictation-trainer/internal/grading"
	"github.com/sherrrrryzeng/dictation-trainer/internal/model/segment"
	"github.com/sherrrrryzeng/dictation-trainer/internal/monitor"
	"github.com/sherrrrryzeng/dictation-trainer/internal/segmentsource"
)

var (
	ErrServiceBusy      = errors.New("practice service is busy")
	ErrUploadTooLarge   = errors.New("audio file exceeds the size limit")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrSessionNotFound  = errors.New("practice session not found")
	ErrSegmentOutOfRange = errors.New("segment index out of range")
)

type State string

const (
	StatePracticing State = "practicing"
	StateCompleted  State = "completed"
)

// SegmentView is one practice sentence with its audio window.
type SegmentView struct {
	Index int
	Text  string
	Start time.Duration
	End   time.Duration
}

// SessionView is a read-only snapshot of a session.
type SessionView struct {
	ID       string
	Name     string
	State    State
	Index    int
	Segments []SegmentView
	// Results holds the latest grading result per segment; nil where the
	// segment has not been attempted.
	Results []*grading.Result
}

// SubmissionView is the outcome of grading one typed answer.
type SubmissionView struct {
	Result grading.Result
	Index  int
	State  State
}

type PracticeService interface {
	// CreateSession validates the upload, segments the audio through the
	// configured source and registers a new practicing session.
	CreateSession(ctx context.Context, audio []byte, mimeType string, name string) (*SessionView, error)

	Session(id string) (*SessionView, error)

	// SessionAudio returns the original uploaded bytes and their MIME type.
	SessionAudio(id string) ([]byte, string, error)

	// Submit grades input against the current segment, records the result
	// and advances to the next segment on a match. Completing the last
	// segment completes the session.
	Submit(id string, input string) (*SubmissionView, error)

	// Seek moves the current segment index for navigation.
	Seek(id string, index int) (*SessionView, error)
}

type practiceSession struct {
	mu       sync.Mutex
	id       string
	name     string
	mimeType string
	audio    []byte
	segments []*segment.Segment
	state    State
	index    int
	results  []*grading.Result
	created  time.Time
}

type PracticeServiceImpl struct {
	source      segmentsource.Source
	logger      *slog.Logger
	loadMonitor monitor.LoadMonitor

	maxAudioBytes int64
	newID         func() string

	mu       sync.RWMutex
	sessions map[string]*practiceSession
}

func NewPracticeService(
	source segmentsource.Source,
	logger *slog.Logger,
	loadMonitor monitor.LoadMonitor,
	opts ...PracticeOpt,
) *PracticeServiceImpl {
	o := buildOpts(PracticeOpts{
		MaxAudioBytes: lo.ToPtr(int64(20 << 20)),
	}, opts...)

	newID := o.IDGenerator
	if newID == nil {
		newID = randomID
	}

	return &PracticeServiceImpl{
		source:        source,
		logger:        logger,
		loadMonitor:   loadMonitor,
		maxAudioBytes: *o.MaxAudioBytes,
		newID:         newID,
		sessions:      make(map[string]*practiceSession),
	}
}

func (s *PracticeServiceImpl) CreateSession(
	ctx context.Context,
	audio []byte,
	mimeType string,
	name string,
) (*SessionView, error) {
	if int64(len(audio)) > s.maxAudioBytes {
		return nil, fmt.Errorf("%w (%d bytes, limit %d)", ErrUploadTooLarge, len(audio), s.maxAudioBytes)
	}
	if !strings.HasPrefix(mimeType, "audio/") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMedia, mimeType)
	}

	if !s.loadMonitor.TryAcquire() {
		return nil, ErrServiceBusy
	}
	defer s.loadMonitor.Release()

	s.logger.DebugContext(ctx, "acquired transcription slot", "name", name, "mimeType", mimeType)

	segments, err := s.source.Segments(ctx, audio, mimeType)
	if err != nil {
		return nil, fmt.Errorf("transcribe audio: %w", err)
	}
	// A successful call with nothing in it is still a failure: there is
	// nothing to practice.
	if len(segments) == 0 {
		return nil, segmentsource.ErrNoSegments
	}

	sess := &practiceSession{
		id:       s.newID(),
		name:     name,
		mimeType: mimeType,
		audio:    audio,
		segments: segments,
		state:    StatePracticing,
		results:  make([]*grading.Result, len(segments)),
		created:  time.Now(),
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "session created",
		"sessionId", sess.id,
		"segments", len(segments),
	)

	return snapshot(sess), nil
}

func (s *PracticeServiceImpl) Session(id string) (*SessionView, error) {
	sess, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return snapshot(sess), nil
}

func (s *PracticeServiceImpl) SessionAudio(id string) ([]byte, string, error) {
	sess, err := s.find(id)
	if err != nil {
		return nil, "", err
	}
	return sess.audio, sess.mimeType, nil
}

func (s *PracticeServiceImpl) Submit(id string, input string) (*SubmissionView, error) {
	sess, err := s.find(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	reference := sess.segments[sess.index]
	result := grading.Grade(reference.Text, input)
	sess.results[sess.index] = &result

	if result.Match && sess.state == StatePracticing {
		if sess.index == len(sess.segments)-1 {
			sess.state = StateCompleted
		} else {
			sess.index++
		}
	}

	return &SubmissionView{
		Result: result,
		Index:  sess.index,
		State:  sess.state,
	}, nil
}

func (s *PracticeServiceImpl) Seek(id string, index int) (*SessionView, error) {
	sess, err := s.find(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if index < 0 || index >= len(sess.segments) {
		return nil, fmt.Errorf("%w: %d of %d", ErrSegmentOutOfRange, index, len(sess.segments))
	}
	sess.index = index

	return snapshotLocked(sess), nil
}

func (s *PracticeServiceImpl) find(id string) (*practiceSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func snapshot(sess *practiceSession) *SessionView {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return snapshotLocked(sess)
}

func snapshotLocked(sess *practiceSession) *SessionView {
	segments := make([]SegmentView, len(sess.segments))
	for i, seg := range sess.segments {
		segments[i] = SegmentView{
			Index: i,
			Text:  seg.Text,
			Start: seg.Start,
			End:   seg.End,
		}
	}

	results := make([]*grading.Result, len(sess.results))
	copy(results, sess.results)

	return &SessionView{
		ID:       sess.id,
		Name:     sess.name,
		State:    sess.state,
		Index:    sess.index,
		Segments: segments,
		Results:  results,
	}
}

func randomID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("read random id: %v", err))
	}
	return hex.EncodeToString(b)
}

func buildOpts(defaultOpts PracticeOpts, opts ...PracticeOpt) PracticeOpts {
	o := defaultOpts
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

var _ PracticeService = (*PracticeServiceImpl)(nil)

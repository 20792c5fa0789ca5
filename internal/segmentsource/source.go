// Package segmentsource turns raw audio into an ordered sequence of
// timestamped sentence segments by calling a remote transcription service.
package segmentsource

import (
	"context"
	"errors"
	"time"

	"github.com/sherrrrryzeng/dictation-trainer/internal/model/segment"
)

// ErrNoSegments is returned when the upstream call succeeds but yields no
// usable sentences. Callers treat this the same as an upstream failure.
var ErrNoSegments = errors.New("no sentences detected in audio")

// Source is the external transcription collaborator. Implementations are
// opaque, asynchronous and fallible; the returned segments are ordered by
// practice order and already validated.
type Source interface {
	Segments(ctx context.Context, audio []byte, mimeType string) ([]*segment.Segment, error)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

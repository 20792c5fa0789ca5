package segment

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptyText    = errors.New("segment text is empty")
	ErrInvalidRange = errors.New("segment end must be after start")
)

// Segment is one sentence-level unit of audio: the reference text and the
// time window it spans in the source recording. Segments are produced once
// per audio file by a segment source and never mutated afterwards.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

func NewSegment(
	start time.Duration,
	end time.Duration,
	text string,
) *Segment {
	return &Segment{
		Start: start,
		End:   end,
		Text:  strings.TrimSpace(text),
	}
}

func (s Segment) Validate() error {
	if strings.TrimSpace(s.Text) == "" {
		return ErrEmptyText
	}
	if s.Start < 0 || s.End <= s.Start {
		return ErrInvalidRange
	}
	return nil
}

package segmentsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/sherrrrryzeng/dictation-trainer/internal/model/segment"
)

// WhisperAPISource segments audio through an OpenAI-compatible
// /audio/transcriptions endpoint, using verbose_json for segment timestamps.
type WhisperAPISource struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewWhisperAPISource(
	baseURL string,
	apiKey string,
	model string,
	logger *slog.Logger,
) *WhisperAPISource {
	return &WhisperAPISource{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		logger:     logger,
	}
}

type whisperVerboseResp struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (s *WhisperAPISource) Segments(
	ctx context.Context,
	audio []byte,
	mimeType string,
) ([]*segment.Segment, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", s.model); err != nil {
		return nil, err
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("file", "audio"+extensionForMIME(mimeType))
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	s.logger.DebugContext(ctx, "posting transcription request",
		"url", req.URL.String(),
		"model", s.model,
		"audioBytes", len(audio),
	)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("whisper api http %d: %s", resp.StatusCode, string(b))
	}

	var vr whisperVerboseResp
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("decode whisper api response: %w", err)
	}

	segments := make([]*segment.Segment, 0, len(vr.Segments))
	for _, r := range vr.Segments {
		seg := segment.NewSegment(
			secondsToDuration(r.Start),
			secondsToDuration(r.End),
			r.Text,
		)
		if err := seg.Validate(); err != nil {
			continue
		}
		segments = append(segments, seg)
	}

	s.logger.DebugContext(ctx, "transcription done", "segments", len(segments))
	return segments, nil
}

func extensionForMIME(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/flac", "audio/x-flac":
		return ".flac"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	case "audio/webm":
		return ".webm"
	default:
		return ".bin"
	}
}

var _ Source = (*WhisperAPISource)(nil)

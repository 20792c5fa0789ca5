package segmentsource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sherrrrryzeng/dictation-trainer/internal/model/segment"
	"google.golang.org/genai"
)

const geminiSegmentationPrompt = `Transcribe this audio recording and split it into individual sentences.
For every sentence return its exact text and the start and end time in seconds,
covering the whole recording in order. Keep the original language; do not
translate, summarize or correct the speaker.`

// geminiSegmentSchema constrains the model to a JSON array of timestamped
// sentences, so the response needs no free-text parsing.
var geminiSegmentSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"text": {
				Type:        genai.TypeString,
				Description: "Exact sentence text as spoken",
			},
			"startTime": {
				Type:        genai.TypeNumber,
				Description: "Sentence start in seconds from the beginning of the audio",
			},
			"endTime": {
				Type:        genai.TypeNumber,
				Description: "Sentence end in seconds from the beginning of the audio",
			},
		},
		Required: []string{"text", "startTime", "endTime"},
	},
}

type geminiSegment struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// GeminiSource segments audio with the Gemini API using a structured JSON
// response schema.
type GeminiSource struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func NewGeminiSource(
	ctx context.Context,
	apiKey string,
	model string,
	logger *slog.Logger,
) (*GeminiSource, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiSource{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

func (s *GeminiSource) Segments(
	ctx context.Context,
	audio []byte,
	mimeType string,
) ([]*segment.Segment, error) {
	s.logger.DebugContext(ctx, "requesting segmentation",
		"model", s.model,
		"mimeType", mimeType,
		"audioBytes", len(audio),
	)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(audio, mimeType),
			genai.NewPartFromText(geminiSegmentationPrompt),
		}, genai.RoleUser),
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   geminiSegmentSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini transcription: %w", err)
	}

	var raw []geminiSegment
	if err := json.Unmarshal([]byte(resp.Text()), &raw); err != nil {
		return nil, fmt.Errorf("malformed segmentation response: %w", err)
	}

	segments := make([]*segment.Segment, 0, len(raw))
	for _, r := range raw {
		seg := segment.NewSegment(
			secondsToDuration(r.StartTime),
			secondsToDuration(r.EndTime),
			r.Text,
		)
		if err := seg.Validate(); err != nil {
			s.logger.DebugContext(ctx, "dropping invalid segment",
				"error", err,
				"start", seg.Start.String(),
				"end", seg.End.String(),
			)
			continue
		}
		segments = append(segments, seg)
	}

	s.logger.DebugContext(ctx, "segmentation done", "segments", len(segments))
	return segments, nil
}

var _ Source = (*GeminiSource)(nil)

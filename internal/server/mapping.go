package server

import (
	"time"

	"github.com/sherrrrryzeng/dictation-trainer/internal/grading"
	"github.com/sherrrrryzeng/dictation-trainer/internal/service/practice_svc"
)

type segmentDTO struct {
	Index        int     `json:"index"`
	Text         string  `json:"text"`
	StartSeconds float64 `json:"startSeconds"`
	EndSeconds   float64 `json:"endSeconds"`
}

type wordDTO struct {
	Word    string `json:"word"`
	Correct bool   `json:"correct"`
}

type resultDTO struct {
	Match bool      `json:"match"`
	Words []wordDTO `json:"words"`
}

type sessionDTO struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	State        string       `json:"state"`
	CurrentIndex int          `json:"currentIndex"`
	Segments     []segmentDTO `json:"segments"`
	Results      []*resultDTO `json:"results"`
}

type submissionDTO struct {
	Result       resultDTO `json:"result"`
	CurrentIndex int       `json:"currentIndex"`
	State        string    `json:"state"`
}

func mapSession(view *practice_svc.SessionView) sessionDTO {
	segments := make([]segmentDTO, len(view.Segments))
	for i, seg := range view.Segments {
		segments[i] = segmentDTO{
			Index:        seg.Index,
			Text:         seg.Text,
			StartSeconds: durationToSeconds(seg.Start),
			EndSeconds:   durationToSeconds(seg.End),
		}
	}

	results := make([]*resultDTO, len(view.Results))
	for i, res := range view.Results {
		if res != nil {
			dto := mapResult(*res)
			results[i] = &dto
		}
	}

	return sessionDTO{
		ID:           view.ID,
		Name:         view.Name,
		State:        string(view.State),
		CurrentIndex: view.Index,
		Segments:     segments,
		Results:      results,
	}
}

func mapSubmission(view *practice_svc.SubmissionView) submissionDTO {
	return submissionDTO{
		Result:       mapResult(view.Result),
		CurrentIndex: view.Index,
		State:        string(view.State),
	}
}

func mapResult(res grading.Result) resultDTO {
	words := make([]wordDTO, len(res.Words))
	for i, w := range res.Words {
		words[i] = wordDTO{Word: w.Word, Correct: w.Correct}
	}
	return resultDTO{Match: res.Match, Words: words}
}

func durationToSeconds(d time.Duration) float64 {
	return d.Seconds()
}

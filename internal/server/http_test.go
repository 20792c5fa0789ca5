package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/sherrrrryzeng/dictation-trainer/internal/model/segment"
	"github.com/sherrrrryzeng/dictation-trainer/internal/monitor"
	"github.com/sherrrrryzeng/dictation-trainer/internal/playback"
	"github.com/sherrrrryzeng/dictation-trainer/internal/service/practice_svc"
)

type fakeSource struct {
	segments []*segment.Segment
	err      error
}

func (f *fakeSource) Segments(ctx context.Context, audio []byte, mimeType string) ([]*segment.Segment, error) {
	return f.segments, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func shortSegments() []*segment.Segment {
	return []*segment.Segment{
		segment.NewSegment(0, 30*time.Millisecond, "Ik ga naar huis."),
		segment.NewSegment(30*time.Millisecond, 60*time.Millisecond, "Tot morgen."),
	}
}

func newTestServer(t *testing.T, src *fakeSource) *httptest.Server {
	t.Helper()
	svc := practice_svc.NewPracticeService(
		src,
		testLogger(),
		monitor.NewSemaphoreLoadMonitor(2, 0.8),
	)
	ps := NewPracticeServer(
		testLogger(),
		svc,
		monitor.NewSemaphoreLoadMonitor(2, 0.8),
		playback.WithPollInterval(5*time.Millisecond),
		playback.WithEndPadding(0),
	)
	srv := httptest.NewServer(ps.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func uploadAudio(t *testing.T, url string, name, mimeType string, audio []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	header.Set("Content-Type", mimeType)
	fw, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := fw.Write(audio); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	resp, err := http.Post(url+"/v1/sessions", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("post upload: %v", err)
	}
	return resp
}

func createSession(t *testing.T, url string) sessionDTO {
	t.Helper()
	resp := uploadAudio(t, url, "les1.wav", "audio/wav", []byte("fake-audio"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status = %d: %s", resp.StatusCode, b)
	}
	var dto sessionDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return dto
}

func TestCreateSessionEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeSource{segments: shortSegments()})

	dto := createSession(t, srv.URL)
	if dto.ID == "" {
		t.Fatalf("session id empty")
	}
	if dto.State != "practicing" || dto.CurrentIndex != 0 {
		t.Fatalf("session = %+v", dto)
	}
	if len(dto.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(dto.Segments))
	}
	if dto.Segments[0].Text != "Ik ga naar huis." {
		t.Fatalf("segment 0 text = %q", dto.Segments[0].Text)
	}
	if dto.Segments[1].StartSeconds != 0.03 {
		t.Fatalf("segment 1 start = %f", dto.Segments[1].StartSeconds)
	}
}

func TestCreateSessionEndpoint_Failures(t *testing.T) {
	t.Run("transcription error", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{err: io.ErrUnexpectedEOF})
		resp := uploadAudio(t, srv.URL, "a.wav", "audio/wav", []byte("x"))
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadGateway {
			t.Fatalf("status = %d, want 502", resp.StatusCode)
		}
	})

	t.Run("no sentences detected", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{})
		resp := uploadAudio(t, srv.URL, "stil.wav", "audio/wav", []byte("x"))
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", resp.StatusCode)
		}
	})

	t.Run("wrong media type", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{segments: shortSegments()})
		resp := uploadAudio(t, srv.URL, "clip.mp4", "video/mp4", []byte("x"))
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnsupportedMediaType {
			t.Fatalf("status = %d, want 415", resp.StatusCode)
		}
	})

	t.Run("missing file field", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{segments: shortSegments()})
		resp, err := http.Post(srv.URL+"/v1/sessions", "multipart/form-data; boundary=x", strings.NewReader("--x--"))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestSubmitEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeSource{segments: shortSegments()})
	dto := createSession(t, srv.URL)

	submit := func(input string) (*http.Response, submissionDTO) {
		body, _ := json.Marshal(map[string]string{"input": input})
		resp, err := http.Post(srv.URL+"/v1/sessions/"+dto.ID+"/submissions", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("post submission: %v", err)
		}
		var sub submissionDTO
		if resp.StatusCode == http.StatusOK {
			if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
				t.Fatalf("decode submission: %v", err)
			}
		}
		resp.Body.Close()
		return resp, sub
	}

	resp, sub := submit("ik zie een kat")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if sub.Result.Match || sub.CurrentIndex != 0 {
		t.Fatalf("miss submission = %+v", sub)
	}
	if len(sub.Result.Words) != 4 {
		t.Fatalf("words = %d, want 4", len(sub.Result.Words))
	}

	_, sub = submit("ik ga naar huis")
	if !sub.Result.Match || sub.CurrentIndex != 1 || sub.State != "practicing" {
		t.Fatalf("match submission = %+v", sub)
	}

	_, sub = submit("tot morgen")
	if !sub.Result.Match || sub.State != "completed" {
		t.Fatalf("final submission = %+v", sub)
	}
}

func TestSubmitEndpoint_EmptyInputRejected(t *testing.T) {
	srv := newTestServer(t, &fakeSource{segments: shortSegments()})
	dto := createSession(t, srv.URL)

	body, _ := json.Marshal(map[string]string{"input": "   "})
	resp, err := http.Post(srv.URL+"/v1/sessions/"+dto.ID+"/submissions", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetSessionAndAudioEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakeSource{segments: shortSegments()})
	dto := createSession(t, srv.URL)

	resp, err := http.Get(srv.URL + "/v1/sessions/" + dto.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	audioResp, err := http.Get(srv.URL + "/v1/sessions/" + dto.ID + "/audio")
	if err != nil {
		t.Fatalf("get audio: %v", err)
	}
	defer audioResp.Body.Close()
	if got := audioResp.Header.Get("Content-Type"); got != "audio/wav" {
		t.Fatalf("audio content-type = %q", got)
	}
	b, _ := io.ReadAll(audioResp.Body)
	if string(b) != "fake-audio" {
		t.Fatalf("audio body = %q", b)
	}
}

func TestSessionNotFound(t *testing.T) {
	srv := newTestServer(t, &fakeSource{segments: shortSegments()})

	resp, err := http.Get(srv.URL + "/v1/sessions/unknown")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSeekEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeSource{segments: shortSegments()})
	dto := createSession(t, srv.URL)

	body, _ := json.Marshal(map[string]int{"index": 1})
	resp, err := http.Post(srv.URL+"/v1/sessions/"+dto.ID+"/seek", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post seek: %v", err)
	}
	defer resp.Body.Close()
	var got sessionDTO
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CurrentIndex != 1 {
		t.Fatalf("index = %d, want 1", got.CurrentIndex)
	}

	body, _ = json.Marshal(map[string]int{"index": 9})
	badResp, err := http.Post(srv.URL+"/v1/sessions/"+dto.ID+"/seek", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post seek: %v", err)
	}
	defer badResp.Body.Close()
	if badResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", badResp.StatusCode)
	}
}

func TestHealthzEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeSource{segments: shortSegments()})

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

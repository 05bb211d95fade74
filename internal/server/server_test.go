package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ivlev/takeone/internal/config"
	"github.com/ivlev/takeone/internal/engine"
	"github.com/ivlev/takeone/internal/providers/assemblyai"
	"github.com/ivlev/takeone/internal/providers/vision"
	"github.com/ivlev/takeone/internal/styles"
	"github.com/ivlev/takeone/internal/system"
	"github.com/ivlev/takeone/internal/video"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeRunner) Run(ctx context.Context, args []string, timeout time.Duration) (*video.ProcessResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := os.WriteFile(args[len(args)-1], []byte("media"), 0644); err != nil {
		return nil, err
	}
	return &video.ProcessResult{Args: args}, nil
}

type noProbe struct{}

func (noProbe) Probe(path string) (*system.MediaInfo, error) {
	return nil, errors.Wrapf(system.ErrProbeFailed, "no stub for %s", path)
}

func newTestServer(t *testing.T, opts ...engine.Option) (http.Handler, config.Config, *fakeRunner) {
	t.Helper()
	cfg := config.Default()
	cfg.ScratchDir = t.TempDir()
	cfg.MinFreeDiskMB = 0
	cfg.Assets.Dir = t.TempDir()
	cfg.CORSOrigins = []string{"https://app.example.com"}

	tbl := styles.Default()
	tbl.Fonts = nil
	run := &fakeRunner{}
	opts = append([]engine.Option{engine.WithRunner(run), engine.WithProber(noProbe{})}, opts...)
	e, err := engine.New(cfg, tbl, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return New(e, cfg, zerolog.Nop()).Router(), cfg, run
}

type filePart struct {
	field, filename string
	body            []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...filePart) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(f.body); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func post(t *testing.T, h http.Handler, path string, fields map[string]string, files ...filePart) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, fields, files...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Detail
}

func emptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%s holds %d leftover entries", dir, len(entries))
	}
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestServer(t)
	for _, path := range []string{"/", "/api/health"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		var body healthBody
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body.Status != "ok" || body.Service != "TakeOne API" || body.Version != Version {
			t.Errorf("%s: body %+v", path, body)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: no request id", path)
		}
	}
}

func TestRequestIDIsKept(t *testing.T) {
	h, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q", got)
	}
}

func TestCORS(t *testing.T) {
	h, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/trim", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "X-Audio-Duration") {
		t.Errorf("Expose-Headers = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestRenderAnnouncement(t *testing.T) {
	h, cfg, run := newTestServer(t)
	rec := post(t, h, "/api/announcement/render",
		map[string]string{"title": "Big News", "duration": "6"},
		filePart{"image", "slide.png", pngBytes(t, 800, 600)},
		filePart{"audio", "voice.wav", []byte("RIFF")},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "announcement-Big News.mp4") {
		t.Errorf("Content-Disposition = %q", got)
	}
	if rec.Body.String() != "media" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if run.calls != 1 {
		t.Errorf("runner calls = %d, want 1", run.calls)
	}
	emptyDir(t, cfg.ScratchDir)
}

func TestRenderRejectsBadUploads(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		fields map[string]string
		files  []filePart
		detail string
	}{
		{
			name:   "zero byte image",
			path:   "/api/announcement/render",
			files:  []filePart{{"image", "slide.png", nil}, {"audio", "voice.wav", []byte("RIFF")}},
			detail: "Empty image file received",
		},
		{
			name:   "not an image",
			path:   "/api/persona/render",
			files:  []filePart{{"image", "notes.txt", []byte("hello")}, {"audio", "voice.wav", []byte("RIFF")}},
			detail: "Invalid image file",
		},
		{
			name:   "not audio",
			path:   "/api/how-it-works/render",
			files:  []filePart{{"audio", "notes.txt", []byte("hello")}},
			detail: "Invalid audio or video file",
		},
		{
			name:   "bad duration",
			path:   "/api/closing/render",
			fields: map[string]string{"duration": "soon"},
			files:  []filePart{{"audio", "voice.wav", []byte("RIFF")}},
			detail: "Invalid duration",
		},
		{
			name:   "demo needs mov or mp4",
			path:   "/api/demo/render",
			files:  []filePart{{"video", "clip.avi", []byte("RIFF")}},
			detail: "Only .mov and .mp4 files are supported",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, cfg, run := newTestServer(t)
			rec := post(t, h, tt.path, tt.fields, tt.files...)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
			}
			if got := detail(t, rec); got != tt.detail {
				t.Errorf("detail = %q, want %q", got, tt.detail)
			}
			if run.calls != 0 {
				t.Errorf("runner called %d times", run.calls)
			}
			emptyDir(t, cfg.ScratchDir)
		})
	}
}

func TestTrimNeedsTimes(t *testing.T) {
	h, _, _ := newTestServer(t)
	rec := post(t, h, "/api/trim", nil, filePart{"video", "clip.mp4", []byte("mp4")})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	if got := detail(t, rec); got != "Invalid start/end times" {
		t.Errorf("detail = %q", got)
	}
}

func TestConcatenateRejects(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := post(t, h, "/api/concatenate-multipart", map[string]string{"final_filename": "deck"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("no segments: status %d", rec.Code)
	}

	rec = post(t, h, "/api/concatenate-multipart",
		map[string]string{"kind_0": "outro"},
		filePart{"segment_0", "a.mp4", []byte("mp4")},
	)
	if rec.Code != http.StatusBadRequest || !strings.Contains(detail(t, rec), "kind_0") {
		t.Errorf("bad kind: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = post(t, h, "/api/concatenate-multipart",
		map[string]string{"watermark": "maybe"},
		filePart{"segment_0", "a.mp4", []byte("mp4")},
	)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad watermark flag: status %d", rec.Code)
	}
}

func TestDisabledFeatures(t *testing.T) {
	tests := []struct {
		path   string
		files  []filePart
		detail string
	}{
		{"/api/audio/enhance", []filePart{{"audio", "take.wav", []byte("RIFF")}}, "Audio enhancement is currently disabled"},
		{"/api/share-to-slack", []filePart{{"file", "final.mp4", []byte("mp4")}}, "Slack is not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			h, cfg, _ := newTestServer(t)
			rec := post(t, h, tt.path, nil, tt.files...)
			if rec.Code != http.StatusServiceUnavailable {
				t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
			}
			if got := detail(t, rec); !strings.HasPrefix(got, tt.detail) {
				t.Errorf("detail = %q, want prefix %q", got, tt.detail)
			}
			emptyDir(t, cfg.ScratchDir)
		})
	}
}

func TestProcessShareWithoutAnalyzer(t *testing.T) {
	h, _, _ := newTestServer(t)
	rec := post(t, h, "/api/cs-share/process", nil, filePart{"file", "win.png", pngBytes(t, 40, 30)})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	rec = post(t, h, "/api/cs-share/process", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing file: status %d", rec.Code)
	}
}

type fakeStudio struct{ image []byte }

func (fakeStudio) Chat(_ context.Context, history []vision.Message) (string, error) {
	return "You said: " + history[len(history)-1].Content, nil
}

func (f fakeStudio) GeneratePersonaImage(context.Context, string) ([]byte, error) {
	return f.image, nil
}

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPersonaRoutes(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h, _, _ := newTestServer(t)
		for _, path := range []string{"/api/persona/chat", "/api/persona/generate-image"} {
			if rec := postJSON(h, path, `{}`); rec.Code != http.StatusServiceUnavailable {
				t.Errorf("%s: status %d: %s", path, rec.Code, rec.Body.String())
			}
		}
	})

	h, _, _ := newTestServer(t, engine.WithPersonaStudio(fakeStudio{image: pngBytes(t, 16, 9)}))

	rec := postJSON(h, "/api/persona/chat", `{"messages":[{"role":"user","content":"Nurse"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat: status %d: %s", rec.Code, rec.Body.String())
	}
	var chat personaChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &chat); err != nil || chat.Message != "You said: Nurse" {
		t.Errorf("chat = %+v, %v", chat, err)
	}

	rec = postJSON(h, "/api/persona/generate-image", `{"description":"nurse"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("image: status %d: %s", rec.Code, rec.Body.String())
	}
	var img engine.PersonaImage
	if err := json.Unmarshal(rec.Body.Bytes(), &img); err != nil || img.Width != 16 || !strings.HasPrefix(img.Image, "data:image/png;base64,") {
		t.Errorf("image = %+v, %v", img, err)
	}

	for _, body := range []string{`not json`, `{"messages":"Nurse"}`, `{"prompt":"x"}`} {
		if rec := postJSON(h, "/api/persona/chat", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", body, rec.Code)
		}
	}
	if rec := postJSON(h, "/api/persona/chat", `{"messages":[]}`); rec.Code != http.StatusBadRequest || !strings.Contains(detail(t, rec), "No messages") {
		t.Errorf("empty history: status %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errors.WithStack(&engine.Error{Kind: engine.ErrValidation, Detail: "x"}), http.StatusBadRequest},
		{"not a win", &engine.Error{Kind: engine.ErrNotAWin}, http.StatusUnprocessableEntity},
		{"disabled", errors.WithStack(&engine.Error{Kind: engine.ErrFeatureDisabled}), http.StatusServiceUnavailable},
		{"encoder timeout", errors.Wrap(&video.RenderError{Kind: video.KindTimeout}, "render"), http.StatusGatewayTimeout},
		{"transcript timeout", &engine.Error{Kind: engine.ErrProvider, Err: assemblyai.ErrPollTimeout}, http.StatusGatewayTimeout},
		{"provider", &engine.Error{Kind: engine.ErrProvider, Err: errors.New("boom")}, http.StatusBadGateway},
		{"encoder failed", &video.RenderError{Kind: video.KindFailed}, http.StatusInternalServerError},
		{"missing asset", errors.Wrap(system.ErrResourceMissing, "qr banner"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("%s: status %d, want %d", tt.name, got, tt.want)
		}
	}
}

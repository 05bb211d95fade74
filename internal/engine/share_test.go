package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/ivlev/takeone/internal/providers/slack"
	"github.com/ivlev/takeone/internal/providers/vision"
)

type fakeSharer struct {
	got  slack.Upload
	body string
}

func (f *fakeSharer) Share(_ context.Context, u slack.Upload) (*slack.File, error) {
	b, _ := io.ReadAll(u.Body)
	f.got, f.body = u, string(b)
	return &slack.File{ID: "F1", Name: u.Filename, Title: u.Filename}, nil
}

type fakeAnalyzer struct {
	analysis *vision.Analysis
	err      error
}

func (f fakeAnalyzer) Analyze(context.Context, []byte, string) (*vision.Analysis, error) {
	return f.analysis, f.err
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestShareToSlack(t *testing.T) {
	sh := &fakeSharer{}
	e := newTestEngine(t, testConfig(t), WithRunner(&fakeRunner{}), WithSharer(sh))
	path := writeFile(t, filepath.Join(t.TempDir(), "final.mp4"), "video-bytes")

	file, err := e.ShareToSlack(context.Background(), SlackRequest{Path: path, Filename: "launch.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if file.ID != "F1" || sh.body != "video-bytes" || sh.got.Size != int64(len("video-bytes")) {
		t.Errorf("file = %+v, upload = %+v", file, sh.got)
	}
	if sh.got.Comment != slack.DefaultComment("launch.mp4") || sh.got.ContentType != "video/mp4" {
		t.Errorf("upload = %+v", sh.got)
	}
}

func TestShareToSlackNotConfigured(t *testing.T) {
	e := newTestEngine(t, testConfig(t), WithRunner(&fakeRunner{}))
	_, err := e.ShareToSlack(context.Background(), SlackRequest{Path: "x.mp4"})
	if !errors.Is(err, ErrFeatureDisabled) {
		t.Errorf("err = %v", err)
	}
}

func TestAnalyzeShare(t *testing.T) {
	win := &vision.Analysis{
		IsWin: true, Confidence: 0.92, Summary: "Happy customer", Channel: "slack",
		HighlightText: "you saved us", CropBox: &vision.CropBox{XMin: 0.2, YMin: 0.2, XMax: 0.6, YMax: 0.6},
	}
	e := newTestEngine(t, testConfig(t), WithRunner(&fakeRunner{}), WithAnalyzer(fakeAnalyzer{analysis: win}))

	got, err := e.AnalyzeShare(context.Background(), pngBytes(t, 100, 100), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got.CroppedImage, "data:image/png;base64,") || got.Channel != "slack" || got.Confidence != 0.92 {
		t.Errorf("analysis = %+v", got)
	}
}

func TestAnalyzeShareFindsContentWithoutBox(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 400; x++ {
			c := color.RGBA{255, 255, 255, 255}
			if x >= 100 && x < 300 && y >= 50 && y < 150 {
				c = color.RGBA{20, 20, 20, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	e := newTestEngine(t, testConfig(t), WithRunner(&fakeRunner{}), WithAnalyzer(fakeAnalyzer{analysis: &vision.Analysis{IsWin: true, Confidence: 0.8}}))

	got, err := e.AnalyzeShare(context.Background(), buf.Bytes(), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(got.CroppedImage, "data:image/png;base64,"))
	if err != nil {
		t.Fatal(err)
	}
	cropped, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if b := cropped.Bounds(); b.Dx() < 200 || b.Dx() > 300 || b.Dy() < 100 || b.Dy() > 150 {
		t.Errorf("cropped to %v, want roughly the 200x100 card", b)
	}
	if got.Channel != "unknown" {
		t.Errorf("channel = %q", got.Channel)
	}
}

func TestAnalyzeShareRejects(t *testing.T) {
	img := pngBytes(t, 10, 10)
	tests := []struct {
		name     string
		analysis *vision.Analysis
		data     []byte
		mime     string
		kind     error
		detail   string
	}{
		{"not an image type", nil, img, "application/pdf", ErrValidation, "valid image"},
		{"empty", nil, nil, "image/png", ErrValidation, "Empty file"},
		{"undecodable", nil, []byte("nope"), "image/png", ErrValidation, "Unable to read"},
		{"low confidence", &vision.Analysis{IsWin: true, Confidence: 0.3, Reason: "looks like spam"}, img, "image/png", ErrNotAWin, "looks like spam"},
		{"not a win, no reason", &vision.Analysis{}, img, "image/png", ErrNotAWin, "Unable to confirm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, testConfig(t), WithRunner(&fakeRunner{}), WithAnalyzer(fakeAnalyzer{analysis: tt.analysis}))
			_, err := e.AnalyzeShare(context.Background(), tt.data, tt.mime)
			if !errors.Is(err, tt.kind) || !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("err = %v, want %v containing %q", err, tt.kind, tt.detail)
			}
		})
	}

	e := newTestEngine(t, testConfig(t), WithRunner(&fakeRunner{}), WithAnalyzer(fakeAnalyzer{err: errors.New("429")}))
	if _, err := e.AnalyzeShare(context.Background(), img, "image/png"); !errors.Is(err, ErrProvider) {
		t.Errorf("provider err = %v", err)
	}
}

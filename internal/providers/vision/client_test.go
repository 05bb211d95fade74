package vision

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func reply(content string) *http.Response {
	body, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	})
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(string(body))), Header: http.Header{}}
}

func TestAnalyze(t *testing.T) {
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.String() != "https://llm.test/v1/chat/completions" {
			t.Errorf("url = %s", r.URL)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth = %s", r.Header.Get("Authorization"))
		}
		var req struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "gpt-4o-mini" || req.Temperature != 0.2 || len(req.Messages) != 2 {
			t.Errorf("request = %+v", req)
		}
		if !strings.Contains(string(req.Messages[1].Content), "data:image/png;base64,iVBO") {
			t.Errorf("user content = %s", req.Messages[1].Content)
		}
		return reply("```json\n{\"is_win\":true,\"confidence\":0.9,\"channel\":\"slack\",\"crop_box\":{\"x_min\":0.1,\"y_min\":0.2,\"x_max\":0.8,\"y_max\":0.7}}\n```"), nil
	})
	c, err := NewClient(Options{APIKey: "sk-test", BaseURL: "https://llm.test/v1/", HTTPClient: &http.Client{Transport: transport}})
	if err != nil {
		t.Fatal(err)
	}
	a, err := c.Analyze(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !a.IsWin || a.Confidence != 0.9 || a.Channel != "slack" || a.CropBox == nil || a.CropBox.XMax != 0.8 {
		t.Errorf("analysis = %+v", a)
	}
}

func TestAnalyzeStatusError(t *testing.T) {
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 429, Body: io.NopCloser(strings.NewReader("slow down")), Header: http.Header{}}, nil
	})
	c, _ := NewClient(Options{APIKey: "k", HTTPClient: &http.Client{Transport: transport}})
	if _, err := c.Analyze(context.Background(), []byte("x"), "image/jpeg"); err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("err = %v", err)
	}
}

func TestParseAnalysis(t *testing.T) {
	for _, in := range []string{`{"is_win":false,"reason":"spam"}`, "```\n{\"is_win\":false,\"reason\":\"spam\"}\n```"} {
		a, err := ParseAnalysis(in)
		if err != nil {
			t.Fatalf("ParseAnalysis(%q): %v", in, err)
		}
		if a.IsWin || a.Reason != "spam" || a.CropBox != nil {
			t.Errorf("analysis = %+v", a)
		}
	}
	a, err := ParseAnalysis(`{"is_win":true,"crop_box":{"x_min":0.3}}`)
	if err != nil {
		t.Fatal(err)
	}
	if *a.CropBox != (CropBox{XMin: 0.3, XMax: 1, YMax: 1}) {
		t.Errorf("crop box = %+v", *a.CropBox)
	}
	for _, in := range []string{"", "```", "not json"} {
		if _, err := ParseAnalysis(in); !errors.Is(err, ErrBadResponse) {
			t.Errorf("ParseAnalysis(%q) err = %v", in, err)
		}
	}
}

// Package assemblyai is a minimal client for the AssemblyAI v2 REST API:
// upload, request a transcript, poll until it is done.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ivlev/takeone/internal/audio"
)

const (
	defaultBaseURL = "https://api.assemblyai.com/v2"
	defaultTimeout = 60 * time.Second
)

var (
	// ErrTranscription is a transcript that finished with status "error".
	ErrTranscription = errors.New("assemblyai transcription failed")
	// ErrPollTimeout means the transcript was not ready within PollTimeout.
	ErrPollTimeout = errors.New("assemblyai transcription timed out")
)

type Options struct {
	APIKey       string
	BaseURL      string
	HTTPClient   *http.Client
	PollInterval time.Duration
	PollTimeout  time.Duration
}

type Client struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	interval time.Duration
	attempts int
}

// Transcript is the subset of the transcript resource the pipeline uses.
type Transcript struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Error  string       `json:"error"`
	Words  []audio.Word `json:"words"`
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("assemblyai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	attempts := 1
	if opts.PollTimeout > 0 {
		attempts = max(1, int(opts.PollTimeout/interval))
	}
	return &Client{
		apiKey:   strings.TrimSpace(opts.APIKey),
		baseURL:  baseURL,
		client:   client,
		interval: interval,
		attempts: attempts,
	}, nil
}

// Transcribe uploads the audio, requests a transcript with disfluencies
// kept and waits for it.
func (c *Client) Transcribe(ctx context.Context, r io.Reader) (*Transcript, error) {
	uploadURL, err := c.Upload(ctx, r)
	if err != nil {
		return nil, err
	}
	id, err := c.Submit(ctx, uploadURL)
	if err != nil {
		return nil, err
	}
	return c.Wait(ctx, id)
}

// Upload sends raw audio bytes and returns the private upload URL.
func (c *Client) Upload(ctx context.Context, r io.Reader) (string, error) {
	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(ctx, http.MethodPost, "/upload", "application/octet-stream", r, &out); err != nil {
		return "", errors.Wrap(err, "upload")
	}
	if out.UploadURL == "" {
		return "", errors.New("upload: empty upload_url")
	}
	return out.UploadURL, nil
}

type transcriptRequest struct {
	AudioURL     string `json:"audio_url"`
	Disfluencies bool   `json:"disfluencies"`
	Punctuate    bool   `json:"punctuate"`
	FormatText   bool   `json:"format_text"`
	AutoChapters bool   `json:"auto_chapters"`
}

// Submit requests a transcript and returns its id.
func (c *Client) Submit(ctx context.Context, audioURL string) (string, error) {
	payload := transcriptRequest{AudioURL: audioURL, Disfluencies: true, Punctuate: true, FormatText: true}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", errors.WithStack(err)
	}
	var out Transcript
	if err := c.do(ctx, http.MethodPost, "/transcript", "application/json", &buf, &out); err != nil {
		return "", errors.Wrap(err, "submit transcript")
	}
	if out.ID == "" {
		return "", errors.New("submit transcript: no id")
	}
	return out.ID, nil
}

// Wait polls the transcript every interval until it completes or fails.
func (c *Client) Wait(ctx context.Context, id string) (*Transcript, error) {
	for attempt := 0; attempt < c.attempts; attempt++ {
		var t Transcript
		if err := c.do(ctx, http.MethodGet, "/transcript/"+id, "", nil, &t); err != nil {
			return nil, errors.Wrap(err, "poll transcript")
		}
		switch t.Status {
		case "completed":
			return &t, nil
		case "error":
			return nil, errors.Wrap(ErrTranscription, t.Error)
		}
		select {
		case <-ctx.Done():
			return nil, errors.WithStack(ctx.Err())
		case <-time.After(c.interval):
		}
	}
	return nil, errors.Wrapf(ErrPollTimeout, "transcript %s", id)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.WithStack(err)
	}
	// AssemblyAI takes the bare key, no scheme
	req.Header.Set("Authorization", c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("assemblyai status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return errors.WithStack(json.NewDecoder(resp.Body).Decode(out))
}

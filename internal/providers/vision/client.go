// Package vision asks an OpenAI compatible chat completions endpoint
// whether a screenshot shows a customer win and where it is. It also
// drives the persona interview and persona photo generation.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultBaseURL      = "https://api.openai.com/v1"
	defaultModel        = "gpt-4o-mini"
	defaultPersonaModel = "gpt-4"
	defaultImageModel   = "dall-e-3"
	defaultTimeout      = 60 * time.Second
)

// ErrBadResponse is an empty or unparsable model reply.
var ErrBadResponse = errors.New("vision: unusable model response")

type Options struct {
	APIKey string
	Model  string
	// PersonaModel runs the persona interview, ImageModel draws the photo.
	PersonaModel string
	ImageModel   string
	BaseURL      string
	HTTPClient   *http.Client
}

type Client struct {
	apiKey       string
	model        string
	personaModel string
	imageModel   string
	baseURL      string
	client       *http.Client
}

// CropBox is normalized to [0,1] with the origin top-left.
type CropBox struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

// UnmarshalJSON defaults absent bounds to the full frame.
func (b *CropBox) UnmarshalJSON(data []byte) error {
	type plain CropBox
	p := plain{XMax: 1, YMax: 1}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*b = CropBox(p)
	return nil
}

// Analysis is the JSON document the model is asked to produce.
type Analysis struct {
	IsWin         bool     `json:"is_win"`
	Confidence    float64  `json:"confidence"`
	Summary       string   `json:"summary"`
	Reason        string   `json:"reason"`
	Channel       string   `json:"channel"`
	HighlightText string   `json:"highlight_text"`
	CropBox       *CropBox `json:"crop_box"`
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        model,
		personaModel: orDefault(opts.PersonaModel, defaultPersonaModel),
		imageModel:   orDefault(opts.ImageModel, defaultImageModel),
		baseURL:      baseURL,
		client:       client,
	}, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze sends the image inline as a data URL.
func (c *Client) Analyze(ctx context.Context, image []byte, mime string) (*Analysis, error) {
	if mime == "" {
		mime = "image/png"
	}
	payload := chatRequest{
		Model:       c.model,
		Temperature: 0.2,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: userPrompt},
				{Type: "image_url", ImageURL: &imageURL{
					URL:    fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(image)),
					Detail: "high",
				}},
			}},
		},
	}
	content, err := c.complete(ctx, payload)
	if err != nil {
		return nil, err
	}
	return ParseAnalysis(content)
}

// complete posts a chat completion and returns the first choice.
func (c *Client) complete(ctx context.Context, payload chatRequest) (string, error) {
	var out chatResponse
	if err := c.post(ctx, "/chat/completions", payload, &out); err != nil {
		return "", errors.Wrap(err, "chat completions")
	}
	if len(out.Choices) == 0 {
		return "", errors.Wrap(ErrBadResponse, "no choices")
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return errors.WithStack(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("openai status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// ParseAnalysis decodes the model reply, tolerating a Markdown code fence.
func ParseAnalysis(text string) (*Analysis, error) {
	cleaned := stripFence(text)
	if cleaned == "" {
		return nil, errors.Wrap(ErrBadResponse, "empty content")
	}
	var a Analysis
	if err := json.Unmarshal([]byte(cleaned), &a); err != nil {
		return nil, errors.Wrap(ErrBadResponse, err.Error())
	}
	return &a, nil
}

func stripFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.Trim(s, "`")
	s = strings.TrimSpace(strings.TrimPrefix(s, "json"))
	return s
}

const systemPrompt = "You review screenshots of Slack threads or email clients to find authentic customer wins. " +
	"Return structured JSON describing whether the screenshot is a true customer shout-out and " +
	"define a crop box that preserves the customer's identity and their praise while removing " +
	"only the surrounding UI chrome."

const userPrompt = "Analyze the attached screenshot. Determine if it contains positive customer feedback or a win. " +
	"If yes, define a crop box that includes:\n" +
	"- The customer's name or attribution (sender name, profile, etc.)\n" +
	"- The COMPLETE message body expressing the win (every paragraph, nothing cut off)\n" +
	"- Any closing salutation that's part of the message\n\n" +
	"EXCLUDE from the crop:\n" +
	"- Email headers (To, From, Subject lines, timestamps in headers)\n" +
	"- Browser chrome (address bars, tabs, window controls)\n" +
	"- Application sidebars or navigation menus\n" +
	"- Detailed contact information blocks (phone numbers, email addresses, job titles in signatures)\n" +
	"- Footer disclaimers or legal text\n\n" +
	"Be generous with horizontal boundaries. Text must not be cut off at the edges. " +
	"For the vertical bounds, include from the start of the message greeting " +
	"through the closing salutation and sender name. " +
	"Stop before detailed job titles, phone numbers, or email addresses.\n\n" +
	"Respond strictly with JSON in this format:\n" +
	"{\n" +
	`  "is_win": true|false,` + "\n" +
	`  "confidence": 0.0-1.0,` + "\n" +
	`  "summary": "Succinct human-readable summary of the win",` + "\n" +
	`  "reason": "Why you flagged it as a win or not",` + "\n" +
	`  "channel": "slack"|"email"|"other",` + "\n" +
	`  "highlight_text": "Key quote or excerpt",` + "\n" +
	`  "crop_box": {"x_min": 0-1, "y_min": 0-1, "x_max": 0-1, "y_max": 0-1}` + "\n" +
	"}\n" +
	"Coordinates must be normalized (0-1) where (0,0) is top-left. " +
	"Safety margins are added afterwards, so focus on the content boundaries. " +
	"If this is not a real win, set is_win to false, confidence under 0.5, " +
	`provide a reason, and set crop_box to {"x_min":0,"y_min":0,"x_max":1,"y_max":1}.`

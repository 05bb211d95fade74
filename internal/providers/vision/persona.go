package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// Persona photos are 16:9, the closest the image endpoint gets to 1080p.
const (
	personaImageSize    = "1792x1024"
	personaImageQuality = "hd"
	maxImageBytes       = 32 << 20
)

// Message is one turn of the persona interview.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PersonaFields are the photo details pulled out of a free form description.
type PersonaFields struct {
	Subject    string
	Location   string
	Attire     string
	Background string
}

// DefaultPersonaFields fill in whatever the description leaves out.
var DefaultPersonaFields = PersonaFields{
	Subject:    "professional person",
	Location:   "their typical workplace",
	Attire:     "standard uniform",
	Background: "typical workplace setting",
}

// ParsePersonaFields reads "SUBJECT: ..." style lines. Missing or empty
// fields keep their defaults.
func ParsePersonaFields(text string) PersonaFields {
	f := DefaultPersonaFields
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if value = strings.TrimSpace(value); !ok || value == "" {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "SUBJECT":
			f.Subject = value
		case "LOCATION":
			f.Location = value
		case "ATTIRE":
			f.Attire = value
		case "BACKGROUND":
			f.Background = value
		}
	}
	return f
}

// Prompt fills the photo template.
func (f PersonaFields) Prompt() string {
	return fmt.Sprintf(personaImageTemplate, f.Subject, f.Location, f.Attire, f.Background)
}

// Chat continues the persona interview. The interviewer prompt is added
// when the history does not start with a system turn.
func (c *Client) Chat(ctx context.Context, history []Message) (string, error) {
	msgs := make([]chatMessage, 0, len(history)+1)
	if len(history) == 0 || history[0].Role != "system" {
		msgs = append(msgs, chatMessage{Role: "system", Content: personaInterviewPrompt})
	}
	for _, m := range history {
		msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content})
	}
	reply, err := c.complete(ctx, chatRequest{Model: c.personaModel, Temperature: 0.7, MaxTokens: 500, Messages: msgs})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// PersonaPrompt turns a description into the image prompt. An empty
// description uses the generic prompt without asking the model.
func (c *Client) PersonaPrompt(ctx context.Context, description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return defaultPersonaImagePrompt, nil
	}
	reply, err := c.complete(ctx, chatRequest{
		Model:       c.personaModel,
		Temperature: 0.3,
		MaxTokens:   200,
		Messages:    []chatMessage{{Role: "user", Content: fmt.Sprintf(personaFieldsPrompt, description)}},
	})
	if err != nil {
		return "", err
	}
	return ParsePersonaFields(reply).Prompt(), nil
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Size           string `json:"size"`
	Quality        string `json:"quality"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}

// GenerateImage draws one persona photo and returns the encoded image.
// A URL reply is downloaded so callers never depend on the short lived link.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	var out imageResponse
	err := c.post(ctx, "/images/generations", imageRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		Size:           personaImageSize,
		Quality:        personaImageQuality,
		N:              1,
		ResponseFormat: "b64_json",
	}, &out)
	if err != nil {
		return nil, errors.Wrap(err, "image generation")
	}
	if len(out.Data) == 0 {
		return nil, errors.Wrap(ErrBadResponse, "no images")
	}
	if b64 := out.Data[0].B64JSON; b64 != "" {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, errors.Wrap(ErrBadResponse, err.Error())
		}
		return data, nil
	}
	if out.Data[0].URL == "" {
		return nil, errors.Wrap(ErrBadResponse, "image without data")
	}
	return c.download(ctx, out.Data[0].URL)
}

// GeneratePersonaImage is PersonaPrompt followed by GenerateImage.
func (c *Client) GeneratePersonaImage(ctx context.Context, description string) ([]byte, error) {
	prompt, err := c.PersonaPrompt(ctx, description)
	if err != nil {
		return nil, err
	}
	return c.GenerateImage(ctx, prompt)
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "download image")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return nil, errors.Errorf("download image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "download image")
	}
	if len(data) > maxImageBytes {
		return nil, errors.Wrap(ErrBadResponse, "image too large")
	}
	return data, nil
}

const personaInterviewPrompt = `You help users generate realistic user persona images for business case studies.

Your responsibilities:
1. The user will typically start by providing only a role or subject (e.g., "Police officer", "Nurse").
2. When that happens, respond with exactly the following three questions formatted as a numbered list:

1. Any specific location you'd like this person to be in?
2. Should they be wearing anything specific, or is their standard uniform okay?
3. Any specific details you'd like included?

Guidelines:
- Format your response as a numbered list (1., 2., 3.) with each question on its own line.
- Keep your tone concise, professional, and friendly.
- If the user clicks "Generate Image" without answering, fill missing details intelligently based on the subject.
- Do not generate the image or include image details here. Collect or infer details only. The collected answers will be passed to the image-generation prompt.
- Do not ask additional questions.
`

const personaFieldsPrompt = `Given this user description of a persona: "%s"

Extract and return ONLY the following four fields in this exact format (one per line):
SUBJECT: [the person's role/profession]
LOCATION: [where they are located, or "their typical workplace" if not specified]
ATTIRE: [what they're wearing, or "standard uniform" if not specified]
BACKGROUND: [background details, or "typical workplace setting" if not specified]

Be concise and specific. Fill in sensible defaults based on the subject if details are missing.`

const personaImageTemplate = `The generations should be a realistic, 16:9 photograph of %s, standing in %s, viewed from a camera, first person POV. The subject is wearing %s, with clear lighting and sharp detail. The image includes %s. Style is realistic, documentary-style photography. Depth of field is moderate with background in focus. Lighting is bright and evenly distributed, typical of indoor retail environments.

TECHNICAL REQUIREMENTS:
- Strictly realistic, documentary-style photography (no stylization, no illustration, no anime)
- Aspect ratio: 16:9 (1920 x 1080)
- Sharp detail and clear, even lighting
- Natural skin texture, natural proportions, and professional camera optics
- Neutral facial expression: calm, professional, no exaggerated emotion
- Body posture square to the camera, standing naturally
- Camera height at true eye level
- First-person POV facing the subject
- No text, logos, watermarks, or visual clutter
`

const defaultPersonaImagePrompt = `Create a professional, realistic user persona photograph (16:9, 1920x1080) that represents the subject in a realistic way. This must be a real-world photograph, never stylized, never animated, never illustrated.

Defaults (use when user omits details):
- Police officer: urban street or precinct interior; standard patrol uniform.
- Nurse: hospital corridor or nurse station; scrubs or clinical attire.
- Retail associate: store floor or checkout; branded polo or workwear.
- Security officer: lobby, control room, or patrol area; uniform appropriate to role.

Requirements:
- Strict realism: no anime, no illustration, no CGI-looking results
- High-resolution, documentary-style photography
- 16:9 landscape aspect ratio (1920x1080)
- Clean background appropriate for business contexts
- Bright, evenly distributed lighting
- Moderate depth of field (background in focus)
- Neutral, professional facial expression (no strong emotion)
- Body facing square to the camera
- Eye-level camera height using a 35mm documentary-style lens
- No text, watermarks, or logos
`

package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"

	"github.com/ivlev/takeone/internal/providers/vision"
	"github.com/ivlev/takeone/internal/source"
)

const (
	maxPersonaTurns   = 20
	maxPersonaMessage = 4000
)

const personaDisabled = "Persona generation is disabled. Set FEATURE_OPENAI and OPENAI_API_KEY"

var personaRoles = map[string]bool{"system": true, "user": true, "assistant": true}

// PersonaChat returns the interviewer's next turn.
func (e *Engine) PersonaChat(ctx context.Context, history []vision.Message) (string, error) {
	if e.personas == nil {
		return "", disabled(personaDisabled)
	}
	switch n := len(history); {
	case n == 0:
		return "", invalid("No messages provided")
	case n > maxPersonaTurns:
		return "", invalid("At most %d messages are allowed, got %d", maxPersonaTurns, n)
	}
	for i, m := range history {
		if !personaRoles[m.Role] {
			return "", invalid("Invalid role for message %d: %q", i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return "", invalid("Message %d is empty", i)
		}
		if len(m.Content) > maxPersonaMessage {
			return "", invalid("Message %d is longer than %d characters", i, maxPersonaMessage)
		}
	}
	reply, err := e.personas.Chat(ctx, history)
	if err != nil {
		return "", provider("openai", err)
	}
	e.log.Info().Int("turns", len(history)).Msg("persona chat answered")
	return reply, nil
}

// PersonaImage is a generated persona photo as a data URL.
type PersonaImage struct {
	Image  string `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// GeneratePersona draws a persona photo from the collected description.
// An empty description yields a generic persona.
func (e *Engine) GeneratePersona(ctx context.Context, description string) (*PersonaImage, error) {
	if e.personas == nil {
		return nil, disabled(personaDisabled)
	}
	if len(description) > maxPersonaMessage*maxPersonaTurns {
		return nil, invalid("Description is too long")
	}
	data, err := e.personas.GeneratePersonaImage(ctx, description)
	if err != nil {
		return nil, provider("openai", err)
	}
	info, err := source.Inspect(bytes.NewReader(data))
	if err != nil {
		return nil, provider("openai", err)
	}
	e.log.Info().Int("width", info.Width).Int("height", info.Height).Msg("persona image generated")
	return &PersonaImage{
		Image:  "data:image/" + info.Format + ";base64," + base64.StdEncoding.EncodeToString(data),
		Width:  info.Width,
		Height: info.Height,
	}, nil
}

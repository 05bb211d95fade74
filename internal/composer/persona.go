package composer

import (
	"fmt"
	"math"

	"github.com/ivlev/takeone/internal/overlay"
	"github.com/ivlev/takeone/internal/renderer"
)

const personaSlide = 0.5

type personaTemplate struct{}

func (personaTemplate) Kind() Kind { return Persona }

func (personaTemplate) Requires() []Media { return []Media{MediaAudio, MediaImage} }

func (personaTemplate) Rasterize(r *overlay.Rasterizer, t overlay.Text, path string) (*overlay.Artifact, error) {
	return r.Persona(t, path)
}

// Build fills the frame with the photo and slides the name card up into the
// bottom-right corner.
func (personaTemplate) Build(p Params) (*Graph, error) {
	g, err := newGraph(Persona, p)
	if err != nil {
		return nil, err
	}
	c := p.Styles.Canvas

	g.AddInput(Input{Name: "image", Path: p.Image, Loop: true})
	if p.Overlay != nil {
		g.AddInput(overlayInput(p))
	}
	g.AddInput(Input{Name: "audio", Path: p.Audio})
	g.Audio = &Audio{Input: "audio"}
	g.Background = Background{
		Label: "bg",
		Source: &Source{Input: "image", Filters: []string{
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", c.Width, c.Height),
			fmt.Sprintf("crop=%d:%d", c.Width, c.Height),
			"setsar=1",
			fmt.Sprintf("fps=%d", c.FPS),
			p.Styles.Decor.FadeIn,
		}},
	}

	if p.Overlay != nil {
		margin := p.Styles.Persona.Margin
		dur := math.Min(personaSlide, p.Duration)
		finalY := float64(c.Height - p.Overlay.Height - margin)
		g.Layers = append(g.Layers, Layer{
			Label:   "final",
			Source:  Source{Input: "overlay"},
			X:       num(c.Width - p.Overlay.Width - margin),
			Y:       renderer.SlideUpFromBottom(finalY, float64(c.Height), dur, renderer.EaseOutCubic),
			Windows: []renderer.Window{renderer.Clamp(0, dur, p.Duration)},
		})
	}
	return g, nil
}

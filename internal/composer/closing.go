package composer

import (
	"fmt"

	"github.com/ivlev/takeone/internal/overlay"
)

type closingTemplate struct{}

func (closingTemplate) Kind() Kind { return Closing }

func (closingTemplate) Requires() []Media { return []Media{MediaAudio} }

func (closingTemplate) Rasterize(r *overlay.Rasterizer, t overlay.Text, path string) (*overlay.Artifact, error) {
	return r.Closing(t, path)
}

// Build is fully static: wave, highlight and the full-canvas end card.
func (closingTemplate) Build(p Params) (*Graph, error) {
	g, err := newGraph(Closing, p)
	if err != nil {
		return nil, err
	}
	decor := p.Styles.Decor

	if p.Wave != "" {
		g.AddInput(Input{Name: "wave", Path: p.Wave, Loop: true})
	}
	if p.Highlight != "" {
		g.AddInput(Input{Name: "highlight", Path: p.Highlight, Loop: true})
	}
	if p.Overlay != nil {
		g.AddInput(overlayInput(p))
	}
	g.AddInput(Input{Name: "audio", Path: p.Audio})
	g.Audio = &Audio{Input: "audio"}
	g.Background = colourBackground(p)

	if p.Wave != "" {
		g.Layers = append(g.Layers, Layer{
			Label:  "wave_bg",
			Source: Source{Input: "wave", Filters: []string{fmt.Sprintf("scale=%d:-1", decor.WaveWidth)}, Label: "scaled_wave"},
			X:      num(decor.WaveX),
			Y:      num(decor.ClosingWaveY),
		})
	}
	if p.Highlight != "" {
		g.Layers = append(g.Layers, Layer{
			Label:  "highlight_video",
			Source: Source{Input: "highlight"},
			X:      "W*0.5-w*0.5",
			Y:      num(decor.ClosingHiY),
		})
	}
	if p.Overlay != nil {
		g.Layers = append(g.Layers, Layer{
			Label:  "final",
			Source: Source{Input: "overlay"},
			X:      "0",
			Y:      "0",
		})
	}
	return g, nil
}

package composer

import (
	"fmt"

	"github.com/ivlev/takeone/internal/overlay"
	"github.com/ivlev/takeone/internal/renderer"
)

const (
	hiwTextIn      = 0.6
	hiwTextDone    = 1.3
	hiwExitLead    = 0.5
	hiwTextOutSpan = 0.4
)

type howItWorksTemplate struct{}

func (howItWorksTemplate) Kind() Kind { return HowItWorks }

func (howItWorksTemplate) Requires() []Media { return []Media{MediaAudio} }

func (howItWorksTemplate) Rasterize(r *overlay.Rasterizer, t overlay.Text, path string) (*overlay.Artifact, error) {
	return r.HowItWorks(t, path)
}

// Build keeps wave and highlight resting until the clip ends, then drops
// them out together; the centred card rises in and sinks back out.
func (howItWorksTemplate) Build(p Params) (*Graph, error) {
	g, err := newGraph(HowItWorks, p)
	if err != nil {
		return nil, err
	}
	d := p.Duration
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

	outro := renderer.Clamp(exitAt(d, hiwExitLead), d, d)
	if p.Wave != "" {
		y := renderer.Track{Rest: "H-h*0.5", Tweens: []renderer.Tween{
			{Window: outro, From: "H-h*0.5", To: "H+100", Easing: renderer.Linear},
		}}
		g.Layers = append(g.Layers, Layer{
			Label:   "wave_bg",
			Source:  Source{Input: "wave", Filters: []string{fmt.Sprintf("scale=%d:-1", decor.WaveWidth)}, Label: "scaled_wave"},
			X:       num(decor.WaveX),
			Y:       y.Expr(),
			Windows: y.Windows(),
		})
	}
	if p.Highlight != "" {
		y := renderer.Track{Rest: "H*-0.3", Tweens: []renderer.Tween{
			{Window: outro, From: "H*-0.3", To: "H*-0.8", Easing: renderer.Linear},
		}}
		g.Layers = append(g.Layers, Layer{
			Label:   "highlight_video",
			Source:  Source{Input: "highlight"},
			X:       "W*0.5-w*0.5",
			Y:       y.Expr(),
			Windows: y.Windows(),
		})
	}
	if p.Overlay != nil {
		end := exitAt(d, hiwExitLead)
		ws := renderer.Sequence(d,
			renderer.Window{Start: hiwTextIn, End: hiwTextDone},
			renderer.Window{Start: end - hiwTextOutSpan, End: end},
		)
		y := renderer.Track{Rest: "(H-h)/2+120", Tweens: []renderer.Tween{
			{Window: ws[0], From: "(H-h)/2+120", To: "(H-h)/2", Easing: renderer.Linear},
			{Window: ws[1], From: "(H-h)/2", To: "(H-h)/2+120", Easing: renderer.Linear},
		}}
		shown := renderer.Clamp(hiwTextIn, end, d)
		g.Layers = append(g.Layers, Layer{
			Label:   "final",
			Source:  Source{Input: "overlay"},
			X:       "(W-w)/2",
			Y:       y.Expr(),
			Enable:  shown.Between(),
			Windows: append(y.Windows(), shown),
		})
	}
	return g, nil
}

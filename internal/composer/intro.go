package composer

import (
	"github.com/ivlev/takeone/internal/overlay"
	"github.com/ivlev/takeone/internal/renderer"
)

const (
	introIn      = 0.5
	introDone    = 0.9
	introExit    = 0.5
	introOutSpan = 0.4
)

type introTemplate struct{}

func (introTemplate) Kind() Kind { return Intro }

func (introTemplate) Requires() []Media { return []Media{MediaVideo} }

func (introTemplate) Rasterize(r *overlay.Rasterizer, t overlay.Text, path string) (*overlay.Artifact, error) {
	return r.Intro(t, path)
}

// Build places the presenter card in the lower left of the intro clip. The
// clip's own audio is kept when it has any.
func (introTemplate) Build(p Params) (*Graph, error) {
	g, err := newGraph(Intro, p)
	if err != nil {
		return nil, err
	}
	d := p.Duration

	g.AddInput(Input{Name: "video", Path: p.Video})
	if p.Overlay != nil {
		g.AddInput(overlayInput(p))
	}
	g.Audio = &Audio{Input: "video", Optional: true}
	g.Background = Background{
		Label:  "scaled",
		Source: &Source{Input: "video", Filters: fitFilters(p.Styles.Canvas)},
	}

	if p.Overlay != nil {
		st := p.Styles.Intro
		hidden := "H+20"
		shownY := "H-h-" + num(st.MarginBottom)
		end := exitAt(d, introExit)
		ws := renderer.Sequence(d,
			renderer.Window{Start: introIn, End: introDone},
			renderer.Window{Start: end - introOutSpan, End: end},
		)
		y := renderer.Track{Rest: hidden, Tweens: []renderer.Tween{
			{Window: ws[0], From: hidden, To: shownY, Easing: renderer.Linear},
			{Window: ws[1], From: shownY, To: hidden, Easing: renderer.Linear},
		}}
		shown := renderer.Clamp(introIn, end, d)
		g.Layers = append(g.Layers, Layer{
			Label:   "final",
			Source:  Source{Input: "overlay"},
			X:       num(st.MarginLeft),
			Y:       y.Expr(),
			Enable:  shown.Between(),
			Windows: append(y.Windows(), shown),
		})
	}
	return g, nil
}

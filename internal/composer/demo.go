package composer

import (
	"github.com/ivlev/takeone/internal/overlay"
)

type demoTemplate struct{}

func (demoTemplate) Kind() Kind { return Demo }

func (demoTemplate) Requires() []Media { return []Media{MediaVideo} }

// Rasterize is a no-op: demo clips carry no overlay.
func (demoTemplate) Rasterize(*overlay.Rasterizer, overlay.Text, string) (*overlay.Artifact, error) {
	return nil, nil
}

// Build normalizes the screen recording to the canvas so it can be joined
// with stream copy later.
func (demoTemplate) Build(p Params) (*Graph, error) {
	g, err := newGraph(Demo, p)
	if err != nil {
		return nil, err
	}
	g.AddInput(Input{Name: "video", Path: p.Video})
	g.Audio = &Audio{Input: "video", Optional: true}
	g.Background = Background{
		Label:  "final",
		Source: &Source{Input: "video", Filters: fitFilters(p.Styles.Canvas)},
	}
	return g, nil
}

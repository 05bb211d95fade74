package composer

import (
	"fmt"

	"github.com/ivlev/takeone/internal/overlay"
	"github.com/ivlev/takeone/internal/renderer"
)

// announcement timing, seconds
const (
	annWaveIn      = 0.1
	annWaveDone    = 0.6
	annImageIn     = 0.3
	annImageDone   = 0.9
	annHighIn      = 0.2
	annHighDone    = 0.8
	annTextIn      = 0.5
	annTextDone    = 1.1
	annExitLead    = 0.5
	annTextOutSpan = 0.3
)

type announcementTemplate struct{}

func (announcementTemplate) Kind() Kind { return Announcement }

func (announcementTemplate) Requires() []Media { return []Media{MediaAudio, MediaImage} }

func (announcementTemplate) Rasterize(r *overlay.Rasterizer, t overlay.Text, path string) (*overlay.Artifact, error) {
	return r.Announcement(t, path)
}

// Build stacks wave, sliding image container, highlight and text card on a
// colour field. Input order is image, overlay, wave, highlight, audio, with
// absent inputs skipped.
func (announcementTemplate) Build(p Params) (*Graph, error) {
	g, err := newGraph(Announcement, p)
	if err != nil {
		return nil, err
	}
	d := p.Duration
	decor := p.Styles.Decor

	g.AddInput(Input{Name: "image", Path: p.Image, Loop: true})
	if p.Overlay != nil {
		g.AddInput(overlayInput(p))
	}
	if p.Wave != "" {
		g.AddInput(Input{Name: "wave", Path: p.Wave, Loop: true})
	}
	if p.Highlight != "" {
		g.AddInput(Input{Name: "highlight", Path: p.Highlight, Loop: true})
	}
	g.AddInput(Input{Name: "audio", Path: p.Audio})
	g.Audio = &Audio{Input: "audio"}
	g.Background = colourBackground(p)

	if p.Wave != "" {
		in := renderer.Clamp(annWaveIn, annWaveDone, d)
		y := renderer.Track{Rest: "H", Tweens: []renderer.Tween{
			{Window: in, From: "H", To: "H-h*0.5", Easing: renderer.EaseOutQuad},
		}}
		g.Layers = append(g.Layers, Layer{
			Label:   "wave_bg",
			Source:  Source{Input: "wave", Filters: []string{fmt.Sprintf("scale=%d:-1", decor.WaveWidth)}, Label: "scaled_wave"},
			X:       num(decor.WaveX),
			Y:       y.Expr(),
			Enable:  fmt.Sprintf("gte(t,%s)", renderer.Num(in.Start)),
			Windows: y.Windows(),
		})
	}

	box := renderer.Sequence(d,
		renderer.Window{Start: annImageIn, End: annImageDone},
		renderer.Window{Start: exitAt(d, annExitLead), End: d},
	)
	x := renderer.Track{Rest: "W", Tweens: []renderer.Tween{
		{Window: box[0], From: "W", To: "W-w", Easing: renderer.EaseOutCubic},
		{Window: box[1], From: "W-w", To: "W", Easing: renderer.EaseInOutSine},
	}}
	bw, bh, pad := decor.ImageBoxWidth, decor.ImageBoxHeight, decor.ImagePadding
	g.Layers = append(g.Layers, Layer{
		Label: "base_video",
		Source: Source{Input: "image", Label: "final_container", Filters: []string{
			"format=rgba",
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", bw-2*pad, bh-2*pad),
			fmt.Sprintf("pad=%d:%d:(%d-iw)/2:(%d-ih)/2:color=0x00000000", bw, bh, bw, bh),
		}},
		X:       x.Expr(),
		Y:       "0",
		Windows: x.Windows(),
	})

	if p.Highlight != "" {
		in := renderer.Clamp(annHighIn, annHighDone, d)
		y := renderer.Track{Rest: "-h", Tweens: []renderer.Tween{
			{Window: in, From: "-h", To: "H*-0.3", Easing: renderer.EaseOutQuad},
		}}
		g.Layers = append(g.Layers, Layer{
			Label:   "highlight_video",
			Source:  Source{Input: "highlight"},
			X:       "W*0.5-w*0.5",
			Y:       y.Expr(),
			Enable:  fmt.Sprintf("gte(t,%s)", renderer.Num(in.Start)),
			Windows: y.Windows(),
		})
	}

	if p.Overlay != nil {
		end := exitAt(d, annExitLead)
		ws := renderer.Sequence(d,
			renderer.Window{Start: annTextIn, End: annTextDone},
			renderer.Window{Start: end - annTextOutSpan, End: end},
		)
		y := renderer.Track{Rest: "(H-h)/2+100", Tweens: []renderer.Tween{
			{Window: ws[0], From: "(H-h)/2+100", To: "(H-h)/2", Easing: renderer.EaseOutCubic},
			{Window: ws[1], From: "(H-h)/2", To: "(H-h)/2+100", Easing: renderer.EaseInOutSine},
		}}
		shown := renderer.Clamp(annTextIn, end, d)
		g.Layers = append(g.Layers, Layer{
			Label:   "final",
			Source:  Source{Input: "overlay"},
			X:       num(decor.TextX),
			Y:       y.Expr(),
			Enable:  shown.Between(),
			Windows: append(y.Windows(), shown),
		})
	}
	return g, nil
}

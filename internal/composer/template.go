package composer

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/ivlev/takeone/internal/overlay"
	"github.com/ivlev/takeone/internal/renderer"
	"github.com/ivlev/takeone/internal/styles"
)

// Kind identifies a segment template.
type Kind string

const (
	Intro        Kind = "intro"
	Announcement Kind = "announcement"
	HowItWorks   Kind = "how-it-works"
	Persona      Kind = "persona"
	Closing      Kind = "closing"
	Demo         Kind = "demo"
)

// Kinds lists every template in presentation order.
var Kinds = []Kind{Intro, Announcement, HowItWorks, Persona, Demo, Closing}

// ParseKind accepts the canonical names plus a few spelling variants.
func ParseKind(s string) (Kind, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("_", "-", " ", "-").Replace(k)
	switch Kind(k) {
	case Intro, Announcement, HowItWorks, Persona, Closing, Demo:
		return Kind(k), nil
	case "howitworks":
		return HowItWorks, nil
	}
	return "", fmt.Errorf("unknown template %q", s)
}

// Media names an uploaded input slot.
type Media string

const (
	MediaImage Media = "image"
	MediaAudio Media = "audio"
	MediaVideo Media = "video"
)

// Params is everything a builder needs. Empty decoration paths mean the
// asset is not installed and its layer is left out.
type Params struct {
	Styles    styles.Table
	Image     string
	Audio     string
	Video     string
	Overlay   *overlay.Artifact
	Wave      string
	Highlight string
	Duration  float64
}

func (p Params) media(m Media) string {
	switch m {
	case MediaImage:
		return p.Image
	case MediaAudio:
		return p.Audio
	case MediaVideo:
		return p.Video
	}
	return ""
}

// Template is one segment layout.
type Template interface {
	Kind() Kind
	// Requires lists the uploads the template cannot render without. The
	// first entry is the dominant track that sets the clip length.
	Requires() []Media
	Rasterize(r *overlay.Rasterizer, t overlay.Text, path string) (*overlay.Artifact, error)
	Build(p Params) (*Graph, error)
}

var templates = map[Kind]Template{
	Intro:        introTemplate{},
	Announcement: announcementTemplate{},
	HowItWorks:   howItWorksTemplate{},
	Persona:      personaTemplate{},
	Closing:      closingTemplate{},
	Demo:         demoTemplate{},
}

// For returns the template registered for kind.
func For(kind Kind) (Template, error) {
	t, ok := templates[kind]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", kind)
	}
	return t, nil
}

func newGraph(kind Kind, p Params) (*Graph, error) {
	if p.Duration <= 0 {
		return nil, errors.Wrapf(ErrInvalidGraph, "%s: duration must be positive, got %v", kind, p.Duration)
	}
	t, err := For(kind)
	if err != nil {
		return nil, err
	}
	for _, m := range t.Requires() {
		if p.media(m) == "" {
			return nil, errors.Wrapf(ErrInvalidGraph, "%s: missing %s input", kind, m)
		}
	}
	return &Graph{Kind: kind, Duration: p.Duration}, nil
}

func colourBackground(p Params) Background {
	c := p.Styles.Canvas
	return Background{
		Label:    "bg",
		Color:    c.Background,
		Width:    c.Width,
		Height:   c.Height,
		Rate:     c.FPS,
		Duration: p.Duration,
	}
}

// fitFilters letterboxes an arbitrary clip onto the canvas.
func fitFilters(c styles.Canvas) []string {
	return []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", c.Width, c.Height),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", c.Width, c.Height),
		"setsar=1",
		fmt.Sprintf("fps=%d", c.FPS),
	}
}

// exitAt is when a layer starts leaving: lead seconds before the end, but
// never before the one second mark.
func exitAt(d, lead float64) float64 {
	return math.Max(1.0, d-lead)
}

func overlayInput(p Params) Input {
	return Input{Name: "overlay", Path: p.Overlay.Path, Loop: true}
}

func num(v int) string { return renderer.Num(float64(v)) }

// Package composer builds typed composition graphs for each segment template
// and serializes them into a single ffmpeg invocation.
package composer

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/ivlev/takeone/internal/renderer"
)

// ErrInvalidGraph is returned by Validate and Serialize.
var ErrInvalidGraph = errors.New("invalid composition graph")

// Input is one file handed to ffmpeg. Its index is its position in Graph.Inputs.
type Input struct {
	Name string
	Path string
	Loop bool // still image repeated for the whole clip
}

// Source is an input stream after an optional preprocessing chain.
type Source struct {
	Input   string
	Filters []string
	Label   string // label of the processed stream; required when Filters is set
}

// Background is the bottom of the stack: a colour field or a processed
// input. For a source background Label names the processed stream and
// Source.Label is unused.
type Background struct {
	Label    string
	Color    string
	Width    int
	Height   int
	Rate     int
	Duration float64
	Source   *Source
}

// Layer overlays Source onto everything below it.
type Layer struct {
	Label   string
	Source  Source
	X, Y    string
	Enable  string
	Windows []renderer.Window
}

// Audio selects the audio track.
type Audio struct {
	Input    string
	Optional bool
}

// Graph is the full description of one render, bottom to top.
type Graph struct {
	Kind       Kind
	Inputs     []Input
	Background Background
	Layers     []Layer
	Audio      *Audio
	Duration   float64
}

// Program is a serialized graph, ready to be wrapped with codec options.
type Program struct {
	InputArgs     []string
	FilterComplex string
	Maps          []string
	Duration      float64
	Output        string
}

// AddInput appends an input and returns its index.
func (g *Graph) AddInput(in Input) int {
	g.Inputs = append(g.Inputs, in)
	return len(g.Inputs) - 1
}

// InputIndex resolves an input name.
func (g *Graph) InputIndex(name string) (int, bool) {
	for i, in := range g.Inputs {
		if in.Name == name {
			return i, true
		}
	}
	return -1, false
}

// HasInput reports whether an input with name exists.
func (g *Graph) HasInput(name string) bool {
	_, ok := g.InputIndex(name)
	return ok
}

// Output is the label of the final composite.
func (g *Graph) Output() string {
	if n := len(g.Layers); n > 0 {
		return g.Layers[n-1].Label
	}
	return g.Background.Label
}

// Windows collects every animation window in the graph.
func (g *Graph) Windows() []renderer.Window {
	var ws []renderer.Window
	for _, l := range g.Layers {
		ws = append(ws, l.Windows...)
	}
	return ws
}

// Validate checks names, references, labels and animation windows.
func (g *Graph) Validate() error {
	if g.Duration < 0 || (g.Duration == 0 && g.needsDuration()) {
		return errors.Wrapf(ErrInvalidGraph, "duration %v", g.Duration)
	}
	seen := make(map[string]bool, len(g.Inputs))
	for i, in := range g.Inputs {
		if in.Name == "" || in.Path == "" {
			return errors.Wrapf(ErrInvalidGraph, "input %d has no name or path", i)
		}
		if seen[in.Name] {
			return errors.Wrapf(ErrInvalidGraph, "duplicate input %q", in.Name)
		}
		seen[in.Name] = true
	}

	labels := map[string]bool{}
	claim := func(label string) error {
		if label == "" {
			return errors.Wrap(ErrInvalidGraph, "empty label")
		}
		if labels[label] {
			return errors.Wrapf(ErrInvalidGraph, "duplicate label %q", label)
		}
		labels[label] = true
		return nil
	}
	checkSource := func(s Source) error {
		if !seen[s.Input] {
			return errors.Wrapf(ErrInvalidGraph, "unknown input %q", s.Input)
		}
		if len(s.Filters) > 0 {
			return claim(s.Label)
		}
		return nil
	}

	bg := g.Background
	if bg.Source != nil {
		if !seen[bg.Source.Input] {
			return errors.Wrapf(ErrInvalidGraph, "unknown background input %q", bg.Source.Input)
		}
	} else if bg.Color == "" || bg.Width <= 0 || bg.Height <= 0 {
		return errors.Wrap(ErrInvalidGraph, "background needs a source or a sized colour")
	}
	if err := claim(bg.Label); err != nil {
		return err
	}

	for _, l := range g.Layers {
		if err := checkSource(l.Source); err != nil {
			return err
		}
		if err := claim(l.Label); err != nil {
			return err
		}
		for _, w := range l.Windows {
			if !w.Valid() || (g.Duration > 0 && w.End > g.Duration+float64(len(l.Windows))*renderer.MinSpan) {
				return errors.Wrapf(ErrInvalidGraph, "layer %q window %v outside [0,%v]", l.Label, w, g.Duration)
			}
		}
	}
	if g.Audio != nil && !seen[g.Audio.Input] {
		return errors.Wrapf(ErrInvalidGraph, "unknown audio input %q", g.Audio.Input)
	}
	return nil
}

// needsDuration is true when nothing in the graph ends on its own: a colour
// field or a looped still runs until -t stops it.
func (g *Graph) needsDuration() bool {
	if g.Background.Source == nil {
		return true
	}
	for _, in := range g.Inputs {
		if in.Loop {
			return true
		}
	}
	return false
}

// Serialize validates the graph and renders input args, filter stages and
// stream maps. Input indices are resolved here, so builders only use names.
func (g *Graph) Serialize() (*Program, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	idx := func(name string) int {
		i, _ := g.InputIndex(name)
		return i
	}
	ref := func(s Source) (string, string) {
		in := fmt.Sprintf("[%d:v]", idx(s.Input))
		if len(s.Filters) == 0 {
			return "", in
		}
		return fmt.Sprintf("%s%s[%s]", in, strings.Join(s.Filters, ","), s.Label), "[" + s.Label + "]"
	}

	var stages []string
	bg := g.Background
	if bg.Source != nil {
		filters := bg.Source.Filters
		if len(filters) == 0 {
			filters = []string{"null"}
		}
		stages = append(stages, fmt.Sprintf("[%d:v]%s[%s]", idx(bg.Source.Input), strings.Join(filters, ","), bg.Label))
	} else {
		stages = append(stages, fmt.Sprintf("color=c=%s:size=%dx%d:duration=%s:rate=%d[%s]",
			bg.Color, bg.Width, bg.Height, renderer.Num(bg.Duration), bg.Rate, bg.Label))
	}

	below := bg.Label
	for _, l := range g.Layers {
		stage, stream := ref(l.Source)
		if stage != "" {
			stages = append(stages, stage)
		}
		opts := fmt.Sprintf("x=%s:y=%s", quote(l.X), quote(l.Y))
		if l.Enable != "" {
			opts += ":enable=" + quote(l.Enable)
		}
		stages = append(stages, fmt.Sprintf("[%s]%soverlay=%s[%s]", below, stream, opts, l.Label))
		below = l.Label
	}

	p := &Program{
		FilterComplex: strings.Join(stages, ";"),
		Duration:      g.Duration,
		Output:        g.Output(),
	}
	for _, in := range g.Inputs {
		if in.Loop {
			p.InputArgs = append(p.InputArgs, "-loop", "1")
		}
		p.InputArgs = append(p.InputArgs, "-i", in.Path)
	}
	p.Maps = []string{"-map", "[" + g.Output() + "]"}
	if g.Audio != nil {
		spec := fmt.Sprintf("%d:a", idx(g.Audio.Input))
		if g.Audio.Optional {
			spec += "?"
		}
		p.Maps = append(p.Maps, "-map", spec)
	}
	return p, nil
}

// Args joins the program with encoder options and the output path.
func (p *Program) Args(encode []string, out string) []string {
	args := append([]string{}, p.InputArgs...)
	args = append(args, "-filter_complex", p.FilterComplex)
	args = append(args, p.Maps...)
	args = append(args, encode...)
	if p.Duration > 0 {
		args = append(args, "-t", renderer.Num(p.Duration))
	}
	return append(args, out)
}

// quote wraps an expression in single quotes when it holds characters the
// filtergraph parser would split on. Already quoted values pass through.
func quote(expr string) string {
	if strings.HasPrefix(expr, "'") && strings.HasSuffix(expr, "'") {
		return expr
	}
	if strings.ContainsAny(expr, ",:()") {
		return "'" + expr + "'"
	}
	return expr
}

// Package timeline describes a concatenated video in terms of its segments.
package timeline

import (
	"math"
	"sort"

	"github.com/ivlev/takeone/internal/composer"
	"github.com/ivlev/takeone/internal/renderer"
)

// Segment is one part of the final timeline. Duration 0 means unknown.
type Segment struct {
	Order    int           `yaml:"order"`
	Kind     composer.Kind `yaml:"kind,omitempty"`
	Path     string        `yaml:"path"`
	Duration float64       `yaml:"duration,omitempty"`
}

// Sorted returns a copy ordered by Order; ties keep their input order.
func Sorted(segs []Segment) []Segment {
	out := append([]Segment(nil), segs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Total sums segment durations. ok is false when any duration is unknown.
func Total(segs []Segment) (total float64, ok bool) {
	for _, s := range segs {
		if s.Duration <= 0 {
			return 0, false
		}
		total += s.Duration
	}
	return total, len(segs) > 0
}

// ComputeOverlayIntervals returns where the QR banner is shown: over the
// intro at the start and over the closing at the end. output is the probed
// duration of the joined video; when it is not positive the sum of segment
// durations is used if every one is known. Intervals that depend on an
// unknown duration are omitted.
func ComputeOverlayIntervals(segs []Segment, output float64) []renderer.Window {
	if len(segs) == 0 {
		return nil
	}
	sorted := Sorted(segs)
	if output <= 0 {
		output, _ = Total(sorted)
	}

	intro, closing := find(sorted, composer.Intro, 0), find(sorted, composer.Closing, len(sorted)-1)

	var out []renderer.Window
	if intro != nil && intro.Duration > 0 {
		end := intro.Duration
		if output > 0 {
			end = math.Min(end, output)
		}
		out = append(out, renderer.Window{Start: 0, End: end})
	}
	if closing != nil && closing.Duration > 0 && output > 0 {
		w := renderer.Window{Start: math.Max(0, output-closing.Duration), End: output}
		if n := len(out); n > 0 && w.Start <= out[n-1].End {
			// one segment, or intro and closing touching
			out[n-1].End = math.Max(out[n-1].End, w.End)
		} else {
			out = append(out, w)
		}
	}
	return out
}

// find returns the segment of kind k, or the one at fallback when no
// segment carries a kind at all.
func find(segs []Segment, k composer.Kind, fallback int) *Segment {
	tagged := false
	for i := range segs {
		if segs[i].Kind == k {
			return &segs[i]
		}
		if segs[i].Kind != "" {
			tagged = true
		}
	}
	if tagged {
		return nil
	}
	return &segs[fallback]
}

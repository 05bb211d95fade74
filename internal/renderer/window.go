package renderer

import (
	"fmt"
	"math"
)

// MinSpan is the shortest window Clamp will produce, in seconds.
const MinSpan = 0.001

// Window is an animation interval in output seconds.
type Window struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// Clamp fits [start,end] into [0,limit]. The result always satisfies
// 0 <= Start < End <= limit; windows that would invert collapse to
// MinSpan just before the later bound.
func Clamp(start, end, limit float64) Window {
	if limit <= 0 {
		limit = MinSpan
	}
	end = math.Min(math.Max(end, 0), limit)
	start = math.Max(start, 0)
	if start > end-MinSpan {
		start = math.Max(0, end-MinSpan)
	}
	if end <= start {
		end = math.Min(start+MinSpan, limit)
	}
	return Window{Start: start, End: end}
}

// Sequence clamps consecutive windows so that none starts before the
// previous one ends. When the clip is too short for the remaining windows
// they are packed at the tail, each MinSpan long.
func Sequence(limit float64, windows ...Window) []Window {
	out := make([]Window, len(windows))
	floor := 0.0
	for i, w := range windows {
		c := Clamp(math.Max(w.Start, floor), w.End, limit)
		if c.Start < floor {
			c = Window{Start: floor, End: floor + MinSpan}
		}
		out[i] = c
		floor = c.End
	}
	return out
}

// Span returns the window length.
func (w Window) Span() float64 { return w.End - w.Start }

// Valid reports whether the window is ordered and non-negative.
func (w Window) Valid() bool { return w.Start >= 0 && w.End > w.Start }

// Progress is the host-side normalized position of t inside the window.
func (w Window) Progress(t float64) float64 {
	if w.Span() <= 0 {
		if t >= w.End {
			return 1
		}
		return 0
	}
	return math.Max(0, math.Min(1, (t-w.Start)/w.Span()))
}

// ProgressExpr is the ffmpeg form of Progress, valid only inside the window.
func (w Window) ProgressExpr() string {
	return fmt.Sprintf("(t-%s)/%s", Num(w.Start), Num(w.Span()))
}

// Between renders an enable expression for the window.
func (w Window) Between() string {
	return fmt.Sprintf("between(t,%s,%s)", Num(w.Start), Num(w.End))
}

func (w Window) String() string {
	return fmt.Sprintf("[%s,%s]", Num(w.Start), Num(w.End))
}

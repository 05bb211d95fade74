package renderer

import (
	"fmt"
	"math"
	"strings"
)

// Easing names a progress curve mapping normalized time [0,1] to progress.
type Easing string

const (
	Linear        Easing = "linear"
	EaseOutCubic  Easing = "ease_out_cubic"
	EaseOutQuad   Easing = "ease_out_quad"
	EaseOutExpo   Easing = "ease_out_expo"
	EaseInOutSine Easing = "ease_in_out_sine"
	EaseOutBack   Easing = "ease_out_back"
)

// DefaultEasing is used for unknown or empty easing names.
const DefaultEasing = EaseOutCubic

// ParseEasing resolves a name, falling back to DefaultEasing.
func ParseEasing(name string) Easing {
	switch e := Easing(strings.ToLower(strings.TrimSpace(name))); e {
	case Linear, EaseOutCubic, EaseOutQuad, EaseOutExpo, EaseInOutSine, EaseOutBack:
		return e
	default:
		return DefaultEasing
	}
}

// Ease evaluates the curve on the host. t is clamped to [0,1].
func Ease(e Easing, t float64) float64 {
	t = math.Max(0, math.Min(1, t))
	switch e {
	case Linear:
		return t
	case EaseOutQuad:
		return 1 - math.Pow(1-t, 2)
	case EaseOutExpo:
		if t == 1 {
			return 1
		}
		return 1 - math.Pow(2, -10*t)
	case EaseInOutSine:
		return (1 - math.Cos(t*math.Pi)) / 2
	case EaseOutBack:
		return 1 + 2.70158*math.Pow(t-1, 3) + 1.70158*math.Pow(t-1, 2)
	default:
		return 1 - math.Pow(1-t, 3)
	}
}

// Expr renders the curve as an ffmpeg expression of the progress expression p.
// p must already be normalized to [0,1] by the caller.
func Expr(e Easing, p string) string {
	switch e {
	case Linear:
		return p
	case EaseOutQuad:
		return fmt.Sprintf("1-pow(1-%s,2)", p)
	case EaseOutExpo:
		return fmt.Sprintf("if(eq(%s,1),1,1-pow(2,-10*%s))", p, p)
	case EaseInOutSine:
		return fmt.Sprintf("(1-cos(%s*PI))/2", p)
	case EaseOutBack:
		return fmt.Sprintf("1+2.70158*pow(%s-1,3)+1.70158*pow(%s-1,2)", p, p)
	default:
		return fmt.Sprintf("1-pow(1-%s,3)", p)
	}
}

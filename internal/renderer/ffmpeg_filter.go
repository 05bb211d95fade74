package renderer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Num formats seconds and pixels for ffmpeg expressions, millisecond precision.
func Num(v float64) string {
	v = math.Round(v*1000) / 1000
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Slide generates a quoted overlay coordinate that eases from start to end
// over the first duration seconds and stays pinned to end afterwards.
func Slide(e Easing, start, end, duration float64) string {
	if duration <= 0 {
		return "'" + Num(end) + "'"
	}
	eased := Expr(e, "t/"+Num(duration))
	distance := end - start

	// the distance sign is folded in here so ffmpeg never sees "+-" or "--"
	var pos string
	switch {
	case start < 0 && distance >= 0:
		pos = fmt.Sprintf("(0-(%s))+%s*(%s)", Num(-start), Num(distance), eased)
	case start < 0:
		pos = fmt.Sprintf("(0-(%s))%s*(%s)", Num(-start), Num(distance), eased)
	case distance >= 0:
		pos = fmt.Sprintf("%s+%s*(%s)", Num(start), Num(distance), eased)
	default:
		pos = fmt.Sprintf("%s%s*(%s)", Num(start), Num(distance), eased)
	}
	return fmt.Sprintf("'if(lt(t,%s),%s,%s)'", Num(duration), pos, Num(end))
}

// SlideUpFromBottom enters from below the screen edge.
func SlideUpFromBottom(finalY, screenHeight, duration float64, e Easing) string {
	return Slide(e, screenHeight, finalY, duration)
}

// SlideDownFromTop enters from just above the top edge.
func SlideDownFromTop(finalY, duration float64, e Easing) string {
	return Slide(e, -100, finalY, duration)
}

// SlideInFromLeft enters from beyond the left edge.
func SlideInFromLeft(finalX, duration float64, e Easing) string {
	return Slide(e, -400, finalX, duration)
}

// SlideInFromRight enters from the right edge.
func SlideInFromRight(finalX, screenWidth, duration float64, e Easing) string {
	return Slide(e, screenWidth, finalX, duration)
}

// Tween moves a coordinate expression From -> To inside Window.
type Tween struct {
	Window Window
	From   string
	To     string
	Easing Easing
}

// Expr is valid only while t is inside the window; Track guards it.
func (tw Tween) Expr() string {
	return fmt.Sprintf("%s+(%s-%s)*(%s)",
		group(tw.From), group(tw.To), group(tw.From), Expr(tw.Easing, "("+tw.Window.ProgressExpr()+")"))
}

// Track is a piecewise coordinate: Rest until the first tween starts, then
// each tween in order, holding its target between and after them.
type Track struct {
	Rest   string
	Tweens []Tween
}

// Static returns a track that never moves.
func Static(v string) Track { return Track{Rest: v} }

// Expr builds nested if(lt(t,..)) branches, one pair per tween.
func (tr Track) Expr() string {
	if len(tr.Tweens) == 0 {
		return tr.Rest
	}
	var b strings.Builder
	hold := tr.Rest
	for _, tw := range tr.Tweens {
		fmt.Fprintf(&b, "if(lt(t,%s),%s,if(lt(t,%s),%s,",
			Num(tw.Window.Start), hold, Num(tw.Window.End), tw.Expr())
		hold = tw.To
	}
	b.WriteString(hold)
	b.WriteString(strings.Repeat("))", len(tr.Tweens)))
	return b.String()
}

// Windows lists the animation windows used by the track.
func (tr Track) Windows() []Window {
	ws := make([]Window, 0, len(tr.Tweens))
	for _, tw := range tr.Tweens {
		ws = append(ws, tw.Window)
	}
	return ws
}

func group(s string) string {
	if _, err := strconv.ParseFloat(s, 64); err == nil && !strings.HasPrefix(s, "-") {
		return s
	}
	return "(" + s + ")"
}

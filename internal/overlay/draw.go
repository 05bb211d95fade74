package overlay

import (
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/ivlev/takeone/internal/styles"
)

// glyphStyle is one shadowed, optionally bold, text run.
type glyphStyle struct {
	face   font.Face
	color  color.RGBA
	shadow styles.Offset
	shade  color.RGBA
	bold   styles.Offset // passes in x and y, {1,1} or zero means a single pass
}

// measure returns the ink width and height of s.
func measure(face font.Face, s string) (int, int) {
	b, _ := font.BoundString(face, s)
	return (b.Max.X - b.Min.X).Ceil(), (b.Max.Y - b.Min.Y).Ceil()
}

// drawString places s with its ascender line at y.
func drawString(dst *image.RGBA, face font.Face, x, y int, s string, c color.RGBA) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y) + face.Metrics().Ascent},
	}
	d.DrawString(s)
}

// drawStyled draws the shadow first, then the glyph passes on top of it.
func drawStyled(dst *image.RGBA, g glyphStyle, x, y int, s string) {
	if g.shadow != (styles.Offset{}) {
		drawString(dst, g.face, x+g.shadow.X, y+g.shadow.Y, s, g.shade)
	}
	bx, by := max(g.bold.X, 1), max(g.bold.Y, 1)
	for ox := 0; ox < bx; ox++ {
		for oy := 0; oy < by; oy++ {
			drawString(dst, g.face, x+ox, y+oy, s, g.color)
		}
	}
}

// wrap breaks s into lines of at most width runes, greedily on whitespace.
// Words longer than width are split, filling the current line first.
func wrap(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{strings.Join(words, " ")}
	}
	var lines []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, string(cur))
			cur = cur[:0:0]
		}
	}
	for _, w := range words {
		r := []rune(w)
		for len(r) > 0 {
			switch {
			case len(cur) == 0 && len(r) <= width:
				cur, r = r, nil
			case len(cur) == 0:
				lines = append(lines, string(r[:width]))
				r = r[width:]
			case len(cur)+1+len(r) <= width:
				cur = append(append(cur, ' '), r...)
				r = nil
			case len(r) > width:
				if room := width - len(cur) - 1; room > 0 {
					cur = append(append(cur, ' '), r[:room]...)
					r = r[room:]
				}
				flush()
			default:
				flush()
			}
		}
	}
	flush()
	return lines
}

func trimmed(s string) string { return strings.TrimSpace(s) }

// truncate shortens s to limit runes and appends an ellipsis.
func truncate(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

// roundedPath approximates a rounded rectangle with short line segments.
func roundedPath(r image.Rectangle, radius float64) []styles.Point {
	x0, y0, x1, y1 := float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y)
	radius = math.Max(0, math.Min(radius, math.Min(x1-x0, y1-y0)/2))
	const steps = 8
	corners := []struct{ cx, cy, from float64 }{
		{x1 - radius, y0 + radius, -math.Pi / 2},
		{x1 - radius, y1 - radius, 0},
		{x0 + radius, y1 - radius, math.Pi / 2},
		{x0 + radius, y0 + radius, math.Pi},
	}
	pts := make([]styles.Point, 0, 4*(steps+1))
	for _, c := range corners {
		for i := 0; i <= steps; i++ {
			a := c.from + float64(i)/steps*math.Pi/2
			pts = append(pts, styles.Point{X: c.cx + radius*math.Cos(a), Y: c.cy + radius*math.Sin(a)})
		}
	}
	return pts
}

func addPolygon(z *vector.Rasterizer, pts []styles.Point, dx, dy float64, reverse bool) {
	if len(pts) < 3 {
		return
	}
	at := func(i int) styles.Point {
		if reverse {
			return pts[len(pts)-1-i]
		}
		return pts[i]
	}
	p := at(0)
	z.MoveTo(float32(p.X+dx), float32(p.Y+dy))
	for i := 1; i < len(pts); i++ {
		p = at(i)
		z.LineTo(float32(p.X+dx), float32(p.Y+dy))
	}
	z.ClosePath()
}

func fillPolygon(dst *image.RGBA, pts []styles.Point, dx, dy float64, c color.RGBA) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	addPolygon(z, pts, dx, dy, false)
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

// fillRounded paints a rounded rectangle and, when border.A > 0, a one
// pixel ring along its edge.
func fillRounded(dst *image.RGBA, r image.Rectangle, radius float64, fill, border color.RGBA) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	addPolygon(z, roundedPath(r, radius), 0, 0, false)
	z.Draw(dst, b, image.NewUniform(fill), image.Point{})

	if border.A == 0 {
		return
	}
	ring := vector.NewRasterizer(b.Dx(), b.Dy())
	addPolygon(ring, roundedPath(r, radius), 0, 0, false)
	addPolygon(ring, roundedPath(r.Inset(1), math.Max(0, radius-1)), 0, 0, true)
	ring.Draw(dst, b, image.NewUniform(border), image.Point{})
}

package source

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// Edge detection parameters for ContentBox. Screenshots are scaled down to
// detectWidth before the Sobel pass.
const (
	detectWidth   = 640
	edgeThreshold = 30.0
	dilateRadius  = 2
	dilatePasses  = 2
	// minRegion is the smallest component kept, as a share of the scaled area.
	minRegion = 0.001
)

// ContentBox finds the part of a screenshot that carries content: the union
// of every edge-dense region, with flat backgrounds and window chrome left
// out. ok is false when nothing stands out.
func ContentBox(img image.Image) (Box, bool) {
	b := img.Bounds()
	if b.Empty() {
		return Box{}, false
	}
	gray := downscaleGray(img, detectWidth)
	mask := dilate(sobel(gray, edgeThreshold), dilateRadius, dilatePasses)

	sb := mask.Bounds()
	minArea := int(math.Max(4, minRegion*float64(sb.Dx()*sb.Dy())))
	var union image.Rectangle
	for _, r := range components(mask) {
		if r.Dx()*r.Dy() >= minArea {
			union = union.Union(r)
		}
	}
	if union.Empty() {
		return Box{}, false
	}
	w, h := float64(sb.Dx()), float64(sb.Dy())
	return Box{
		XMin: float64(union.Min.X) / w,
		YMin: float64(union.Min.Y) / h,
		XMax: float64(union.Max.X) / w,
		YMax: float64(union.Max.Y) / h,
	}, true
}

func downscaleGray(img image.Image, width int) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > width {
		h = max(1, h*width/w)
		w = width
	}
	gray := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, b, draw.Src, nil)
	return gray
}

var (
	sobelX = [3][3]int{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]int{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

// sobel marks pixels whose gradient magnitude exceeds threshold.
func sobel(gray *image.Gray, threshold float64) *image.Gray {
	b := gray.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := float64(gray.GrayAt(x+kx, y+ky).Y)
					gx += v * float64(sobelX[ky+1][kx+1])
					gy += v * float64(sobelY[ky+1][kx+1])
				}
			}
			if math.Hypot(gx, gy) > threshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// dilate grows marked pixels so that glyphs of one line join up.
func dilate(mask *image.Gray, radius, passes int) *image.Gray {
	b := mask.Bounds()
	cur := mask
	for range passes {
		next := image.NewGray(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if hit(cur, x, y, radius) {
					next.SetGray(x, y, color.Gray{Y: 255})
				}
			}
		}
		cur = next
	}
	return cur
}

func hit(mask *image.Gray, x, y, radius int) bool {
	b := mask.Bounds()
	for ky := max(b.Min.Y, y-radius); ky <= min(b.Max.Y-1, y+radius); ky++ {
		for kx := max(b.Min.X, x-radius); kx <= min(b.Max.X-1, x+radius); kx++ {
			if mask.GrayAt(kx, ky).Y > 128 {
				return true
			}
		}
	}
	return false
}

// components returns the bounding box of every 4-connected marked region.
func components(mask *image.Gray) []image.Rectangle {
	b := mask.Bounds()
	seen := make([]bool, b.Dx()*b.Dy())
	idx := func(x, y int) int { return (y-b.Min.Y)*b.Dx() + (x - b.Min.X) }

	var out []image.Rectangle
	var stack []image.Point
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if seen[idx(x, y)] || mask.GrayAt(x, y).Y <= 128 {
				continue
			}
			r := image.Rect(x, y, x+1, y+1)
			seen[idx(x, y)] = true
			stack = append(stack[:0], image.Pt(x, y))
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				r = r.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
				for _, n := range [4]image.Point{{p.X + 1, p.Y}, {p.X - 1, p.Y}, {p.X, p.Y + 1}, {p.X, p.Y - 1}} {
					if !n.In(b) || seen[idx(n.X, n.Y)] || mask.GrayAt(n.X, n.Y).Y <= 128 {
						continue
					}
					seen[idx(n.X, n.Y)] = true
					stack = append(stack, n)
				}
			}
			out = append(out, r)
		}
	}
	return out
}

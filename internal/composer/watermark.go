package composer

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/ivlev/takeone/internal/renderer"
	"github.com/ivlev/takeone/internal/styles"
)

// WatermarkSpec configures the branding pass over the final video.
type WatermarkSpec struct {
	Style    styles.Watermark
	Date     string
	FontFile string
	Logo     string // optional
	QR       string // optional
	QRWidth  int
	QRHeight int
	// Intervals gate the QR banner; empty means visible throughout.
	Intervals []renderer.Window
	Duration  float64
}

// timestamp is drawtext's running clock, rendered as HH:MM:SS.
const timestamp = `%{pts\:gmtime\:0\:%H\\\:%M\\\:%S}`

// The value passes the graph parser inside quotes (backslashes kept), the
// option parser (one level of backslashes removed) and drawtext's own
// expansion, which treats backslash and percent as special.
var drawtextEscaper = strings.NewReplacer(
	`\`, `\\\\`,
	`%`, `\\%`,
	`'`, `'\\\''`,
	`"`, `\"`,
	`:`, `\:`,
	`,`, `\,`,
	`[`, `\[`,
	`]`, `\]`,
)

// EscapeDrawtext escapes text for a drawtext text='...' option inside a
// filtergraph. The result must be placed between single quotes.
func EscapeDrawtext(s string) string {
	return drawtextEscaper.Replace(s)
}

// ScaleQR sizes the banner proportionally to the video width: base pixels on
// a canvasWidth wide frame. The banner is never upscaled past its native
// width and keeps its aspect ratio.
func ScaleQR(videoWidth, bannerWidth, bannerHeight, base, canvasWidth int) (int, int) {
	if bannerWidth <= 0 || bannerHeight <= 0 || canvasWidth <= 0 {
		return 0, 0
	}
	w := int(math.Round(float64(videoWidth) * float64(base) / float64(canvasWidth)))
	w = max(1, min(w, bannerWidth))
	h := max(1, int(math.Round(float64(w)*float64(bannerHeight)/float64(bannerWidth))))
	return w, h
}

// Watermark builds the branding graph: date/time and attribution text, an
// optional logo top right and an optional QR banner bottom right.
func Watermark(video string, spec WatermarkSpec) (*Graph, error) {
	if video == "" {
		return nil, errors.Wrap(ErrInvalidGraph, "watermark: no video")
	}
	st := spec.Style
	g := &Graph{Kind: "watermark", Duration: spec.Duration}
	g.AddInput(Input{Name: "video", Path: video})
	g.Audio = &Audio{Input: "video", Optional: true}

	text := func(s string, y int) string {
		var opts []string
		if spec.FontFile != "" {
			opts = append(opts, fmt.Sprintf("fontfile='%s'", spec.FontFile))
		}
		opts = append(opts,
			fmt.Sprintf("text='%s'", s),
			"fontcolor="+st.FontColor,
			fmt.Sprintf("fontsize=%d", st.FontSize),
			fmt.Sprintf("x=main_w-%d", st.RightInset),
			fmt.Sprintf("y=%d", y),
			st.Shadow,
		)
		return "drawtext=" + strings.Join(opts, ":")
	}
	g.Background = Background{
		Label: "vtxt",
		Source: &Source{Input: "video", Filters: []string{
			text(EscapeDrawtext(spec.Date)+" "+timestamp, st.DateY),
			text(EscapeDrawtext(st.Attribution), st.CreditY),
		}},
	}

	if spec.Logo != "" {
		g.AddInput(Input{Name: "logo", Path: spec.Logo})
		g.Layers = append(g.Layers, Layer{
			Label:  "vlogo",
			Source: Source{Input: "logo", Filters: []string{fmt.Sprintf("scale=-1:%d", st.LogoHeight)}, Label: "logo_scaled"},
			X:      st.LogoX,
			Y:      st.LogoY,
		})
	}

	if spec.QR != "" {
		if spec.QRWidth <= 0 || spec.QRHeight <= 0 {
			return nil, errors.Wrapf(ErrInvalidGraph, "watermark: qr size %dx%d", spec.QRWidth, spec.QRHeight)
		}
		var gates []string
		var windows []renderer.Window
		for _, iv := range spec.Intervals {
			if !iv.Valid() {
				continue
			}
			gates = append(gates, iv.Between())
			windows = append(windows, iv)
		}
		g.AddInput(Input{Name: "qr", Path: spec.QR})
		g.Layers = append(g.Layers, Layer{
			Label:   "vqr",
			Source:  Source{Input: "qr", Filters: []string{fmt.Sprintf("scale=%d:%d", spec.QRWidth, spec.QRHeight)}, Label: "qr_scaled"},
			X:       fmt.Sprintf("main_w-w-%d", st.QRMargin),
			Y:       fmt.Sprintf("main_h-h-%d", st.QRMargin),
			Enable:  strings.Join(gates, "+"),
			Windows: windows,
		})
	}
	return g, nil
}

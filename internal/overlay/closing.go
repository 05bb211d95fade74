package overlay

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/takeone/internal/styles"
)

// Closing draws the full-canvas end card. The logo is optional; a missing
// logo is logged and skipped.
func (r *Rasterizer) Closing(t Text, path string) (*Artifact, error) {
	st := r.styles.Closing
	if blank(t.Title, t.Subtitle, t.Email, t.TeamName, t.DirectorName) {
		return nil, nil
	}
	cw, ch := r.styles.Canvas.Width, r.styles.Canvas.Height
	img := getCanvas(cw, ch)
	shade := styles.Shadow.Color()

	if r.logo != "" {
		if err := r.drawLogo(img, st.LogoWidth, int(float64(ch)*st.LogoY)); err != nil {
			r.logger.Warn().Err(err).Str("logo", r.logo).Msg("closing logo skipped")
		}
	}

	centred := func(g glyphStyle, s string, frac float64) {
		if s = trimmed(s); s == "" {
			return
		}
		w, _ := measure(g.face, s)
		drawStyled(img, g, (cw-w)/2, int(float64(ch)*frac), s)
	}
	centred(glyphStyle{face: r.fonts.Face(st.TitleSize), color: st.TitleColor.Color(), shadow: st.TitleShadow, shade: shade, bold: st.BoldRange}, t.Title, st.TitleY)
	centred(glyphStyle{face: r.fonts.Face(st.SubtitleSize), color: st.SubtitleColor.Color(), shadow: st.SubShadow, shade: shade}, t.Subtitle, st.SubtitleY)
	centred(glyphStyle{face: r.fonts.Face(st.EmailSize), color: st.EmailColor.Color(), shadow: st.EmailShadow, shade: shade, bold: st.BoldRange}, t.Email, st.EmailY)

	small := glyphStyle{face: r.fonts.Face(st.SmallSize), color: st.SmallColor.Color(), shadow: st.SmallShadow, shade: shade}
	_, lineH := measure(small.face, "Ag")
	y := ch - st.MarginLeft - lineH

	// bottom left: "team | director", or the placeholder when neither is set
	x := st.MarginLeft
	team, director := trimmed(t.TeamName), trimmed(t.DirectorName)
	parts := make([]string, 0, 2)
	for _, p := range []string{team, director} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, st.Placeholder)
	}
	for i, p := range parts {
		if i > 0 {
			drawStyled(img, small, x, y, "|")
			sw, _ := measure(small.face, "|")
			x += sw + st.SeparatorGap
		}
		drawStyled(img, small, x, y, p)
		w, _ := measure(small.face, p)
		x += w + st.SeparatorGap
	}

	company := fmt.Sprintf("%s %d", st.Company, r.now().Year())
	w, _ := measure(small.face, company)
	drawStyled(img, small, cw-st.MarginRight-w, y, company)

	return r.save(img, path)
}

func (r *Rasterizer) drawLogo(dst *image.RGBA, width, y int) error {
	f, err := os.Open(r.logo)
	if err != nil {
		return err
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return err
	}
	sb := src.Bounds()
	if sb.Dx() == 0 {
		return fmt.Errorf("empty logo")
	}
	height := max(1, sb.Dy()*width/sb.Dx())
	x := (dst.Bounds().Dx() - width) / 2
	xdraw.CatmullRom.Scale(dst, image.Rect(x, y, x+width, y+height), src, sb, draw.Over, nil)
	return nil
}

package overlay

import (
	"image/color"
	"unicode/utf8"
)

// Persona draws the yellow name card. Lines are industry, name, title; the
// card width follows the longest line.
func (r *Rasterizer) Persona(t Text, path string) (*Artifact, error) {
	st := r.styles.Persona
	if blank(t.Name, t.Title, t.Industry) {
		return nil, nil
	}

	type line struct {
		text   string
		size   float64
		height int
	}
	var lines []line
	if v := trimmed(t.Industry); v != "" {
		lines = append(lines, line{truncate(v, st.IndustryMaxChars), st.IndustrySize, st.IndustryLine})
	}
	if v := trimmed(t.Name); v != "" {
		lines = append(lines, line{v, st.NameSize, st.NameLine})
	}
	if v := trimmed(t.Title); v != "" {
		lines = append(lines, line{v, st.TitleSize, st.TitleLine})
	}

	longest := 0
	for _, l := range lines {
		longest = max(longest, utf8.RuneCountInString(l.text))
	}
	w := min(max(longest*st.CharWidth+st.LogoTextPadding, st.MinWidth), st.MaxWidth)
	h := max(st.MinHeight, len(lines)*st.LineHeight+st.HeightPadding)

	img := getCanvas(w, h)
	fillRounded(img, img.Bounds(), st.Radius, st.Background.Color(), color.RGBA{})

	y := st.PaddingY
	for _, l := range lines {
		drawString(img, r.fonts.Face(l.size), st.PaddingX, y, l.text, st.TextColor.Color())
		y += l.height
	}
	return r.save(img, path)
}

package overlay

import (
	"image"
)

// Intro draws the lower-third card: a rounded dark panel with a logo tile
// and three text lines (team, name, role).
func (r *Rasterizer) Intro(t Text, path string) (*Artifact, error) {
	st := r.styles.Intro
	if blank(t.Team, t.Name, t.Role) {
		return nil, nil
	}

	img := getCanvas(st.Width, st.Height)
	fillRounded(img, img.Bounds(), st.Radius, st.Background.Color(), st.Border.Color())

	lx, ly := st.LogoMargin, st.LogoOffsetY
	tile := image.Rect(lx, ly, lx+st.LogoSize, min(ly+st.LogoSize, st.Height))
	fillRounded(img, tile, st.LogoRadius, st.LogoFill.Color(), st.Border.Color())
	fillPolygon(img, st.LogoShape, float64(lx), float64(ly), st.NameColor.Color())
	fillPolygon(img, st.AccentShape, float64(lx), float64(ly), st.AccentColor.Color())

	y := st.TextY
	if v := trimmed(t.Team); v != "" {
		drawString(img, r.fonts.Face(st.TeamSize), st.TextX, y, v, st.TeamColor.Color())
		y += st.TeamLine
	}
	if v := trimmed(t.Name); v != "" {
		drawString(img, r.fonts.Face(st.NameSize), st.TextX, y, v, st.NameColor.Color())
		y += st.NameLine
	}
	if v := trimmed(t.Role); v != "" {
		drawString(img, r.fonts.Face(st.RoleSize), st.TextX, y, v, st.RoleColor.Color())
	}
	return r.save(img, path)
}

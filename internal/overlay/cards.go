package overlay

import (
	"github.com/ivlev/takeone/internal/styles"
)

// Announcement draws the left-aligned title/description card.
func (r *Rasterizer) Announcement(t Text, path string) (*Artifact, error) {
	return r.textCard(r.styles.Announcement, t.Title, t.Description, path)
}

// HowItWorks draws the centred title/description card.
func (r *Rasterizer) HowItWorks(t Text, path string) (*Artifact, error) {
	return r.textCard(r.styles.HowItWorks, t.Title, t.Description, path)
}

func (r *Rasterizer) textCard(st styles.TextCard, title, desc, path string) (*Artifact, error) {
	title, desc = trimmed(title), trimmed(desc)
	if title == "" && desc == "" {
		return nil, nil
	}

	height := st.Heights.Single
	if title != "" && desc != "" {
		height = st.Heights.Both
	}
	height = max(height, st.Heights.Min)

	img := getCanvas(st.Width, height)
	titleStyle := glyphStyle{
		face:   r.fonts.Face(st.TitleSize),
		color:  st.TitleColor.Color(),
		shadow: st.TitleShadow,
		shade:  st.ShadowColor.Color(),
	}
	if st.BoldTitle {
		titleStyle.bold = st.BoldRange
	}
	descStyle := glyphStyle{
		face:   r.fonts.Face(st.DescSize),
		color:  st.DescColor.Color(),
		shadow: st.DescShadow,
		shade:  st.ShadowColor.Color(),
	}

	y := st.Padding
	block := func(g glyphStyle, lines []string, spacing int) {
		for _, line := range lines {
			w, h := measure(g.face, line)
			x := 0
			if st.Centered {
				x = (st.Width - w) / 2
			}
			drawStyled(img, g, x, y, line)
			y += h + spacing
		}
	}

	if title != "" {
		block(titleStyle, wrap(title, st.TitleWrap), st.TitleSpacing)
		if desc != "" {
			y += st.TitleToDesc
		}
	}
	if desc != "" {
		block(descStyle, wrap(desc, st.DescWrap), st.DescSpacing)
	}
	return r.save(img, path)
}

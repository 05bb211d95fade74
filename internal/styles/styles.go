// Package styles holds the immutable visual constants shared by the overlay
// rasterizer and the composition builders.
package styles

import (
	"image/color"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RGBA is a YAML-friendly colour: four channels in [0,255].
type RGBA [4]uint8

func (c RGBA) Color() color.RGBA {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

// Offset is a pixel displacement.
type Offset struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Point is a polygon vertex relative to its owner.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

var (
	White  = RGBA{255, 255, 255, 255}
	Gray   = RGBA{176, 176, 176, 255}
	Yellow = RGBA{254, 198, 46, 255}
	Black  = RGBA{0, 0, 0, 255}
	Shadow = RGBA{0, 0, 0, 128}

	ShadowSmall  = Offset{X: 1, Y: 1}
	ShadowMedium = Offset{X: 2, Y: 2}
)

// Canvas is the output frame every segment is rendered to.
type Canvas struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	FPS        int    `yaml:"fps"`
	Background string `yaml:"background"`
}

// Heights are the content driven canvas presets of a text card.
type Heights struct {
	Min    int `yaml:"min"`
	Single int `yaml:"single"`
	Both   int `yaml:"both"`
}

// TextCard describes a title + description overlay.
type TextCard struct {
	Width        int     `yaml:"width"`
	Heights      Heights `yaml:"heights"`
	Padding      int     `yaml:"padding"`
	TitleSize    float64 `yaml:"title_size"`
	DescSize     float64 `yaml:"desc_size"`
	TitleColor   RGBA    `yaml:"title_color"`
	DescColor    RGBA    `yaml:"desc_color"`
	TitleSpacing int     `yaml:"title_spacing"`
	DescSpacing  int     `yaml:"desc_spacing"`
	TitleToDesc  int     `yaml:"title_to_desc"`
	TitleWrap    int     `yaml:"title_wrap"`
	DescWrap     int     `yaml:"desc_wrap"`
	TitleShadow  Offset  `yaml:"title_shadow"`
	DescShadow   Offset  `yaml:"desc_shadow"`
	Centered     bool    `yaml:"centered"`
	BoldTitle    bool    `yaml:"bold_title"`
	BoldRange    Offset  `yaml:"bold_range"`
	ShadowColor  RGBA    `yaml:"shadow_color"`
}

// Persona is the yellow name card.
type Persona struct {
	MinWidth         int     `yaml:"min_width"`
	MaxWidth         int     `yaml:"max_width"`
	MinHeight        int     `yaml:"min_height"`
	LineHeight       int     `yaml:"line_height"`
	HeightPadding    int     `yaml:"height_padding"`
	Background       RGBA    `yaml:"background"`
	Radius           float64 `yaml:"radius"`
	PaddingX         int     `yaml:"padding_x"`
	PaddingY         int     `yaml:"padding_y"`
	LogoTextPadding  int     `yaml:"logo_text_padding"`
	CharWidth        int     `yaml:"char_width"`
	NameSize         float64 `yaml:"name_size"`
	TitleSize        float64 `yaml:"title_size"`
	IndustrySize     float64 `yaml:"industry_size"`
	TextColor        RGBA    `yaml:"text_color"`
	IndustryLine     int     `yaml:"industry_line"`
	NameLine         int     `yaml:"name_line"`
	TitleLine        int     `yaml:"title_line"`
	IndustryMaxChars int     `yaml:"industry_max_chars"`
	Margin           int     `yaml:"margin"`
}

// Intro is the lower-third card over the intro clip.
type Intro struct {
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	Background   RGBA    `yaml:"background"`
	Border       RGBA    `yaml:"border"`
	Radius       float64 `yaml:"radius"`
	LogoRadius   float64 `yaml:"logo_radius"`
	LogoSize     int     `yaml:"logo_size"`
	LogoMargin   int     `yaml:"logo_margin"`
	LogoOffsetY  int     `yaml:"logo_offset_y"`
	LogoFill     RGBA    `yaml:"logo_fill"`
	LogoShape    []Point `yaml:"logo_shape"`
	AccentShape  []Point `yaml:"accent_shape"`
	AccentColor  RGBA    `yaml:"accent_color"`
	TextX        int     `yaml:"text_x"`
	TextY        int     `yaml:"text_y"`
	TeamSize     float64 `yaml:"team_size"`
	NameSize     float64 `yaml:"name_size"`
	RoleSize     float64 `yaml:"role_size"`
	TeamColor    RGBA    `yaml:"team_color"`
	NameColor    RGBA    `yaml:"name_color"`
	RoleColor    RGBA    `yaml:"role_color"`
	TeamLine     int     `yaml:"team_line"`
	NameLine     int     `yaml:"name_line"`
	MarginLeft   int     `yaml:"margin_left"`
	MarginBottom int     `yaml:"margin_bottom"`
}

// Closing is the full-canvas end card.
type Closing struct {
	TitleSize     float64 `yaml:"title_size"`
	SubtitleSize  float64 `yaml:"subtitle_size"`
	EmailSize     float64 `yaml:"email_size"`
	SmallSize     float64 `yaml:"small_size"`
	TitleColor    RGBA    `yaml:"title_color"`
	SubtitleColor RGBA    `yaml:"subtitle_color"`
	EmailColor    RGBA    `yaml:"email_color"`
	SmallColor    RGBA    `yaml:"small_color"`
	LogoY         float64 `yaml:"logo_y"`
	TitleY        float64 `yaml:"title_y"`
	SubtitleY     float64 `yaml:"subtitle_y"`
	EmailY        float64 `yaml:"email_y"`
	LogoWidth     int     `yaml:"logo_width"`
	MarginLeft    int     `yaml:"margin_left"`
	MarginRight   int     `yaml:"margin_right"`
	SeparatorGap  int     `yaml:"separator_gap"`
	TitleShadow   Offset  `yaml:"title_shadow"`
	SubShadow     Offset  `yaml:"subtitle_shadow"`
	EmailShadow   Offset  `yaml:"email_shadow"`
	SmallShadow   Offset  `yaml:"small_shadow"`
	BoldRange     Offset  `yaml:"bold_range"`
	Placeholder   string  `yaml:"placeholder"`
	Company       string  `yaml:"company"`
}

// Decor places the shared wave and highlight graphics.
type Decor struct {
	WaveWidth      int    `yaml:"wave_width"`
	WaveX          int    `yaml:"wave_x"`
	ClosingWaveY   int    `yaml:"closing_wave_y"`
	ImageBoxWidth  int    `yaml:"image_box_width"`
	ImageBoxHeight int    `yaml:"image_box_height"`
	ImagePadding   int    `yaml:"image_padding"`
	ClosingHiY     int    `yaml:"closing_highlight_y"`
	TextX          int    `yaml:"text_x"`
	FadeIn         string `yaml:"fade_in"`
}

// Watermark is the branding pass applied to the final video.
type Watermark struct {
	FontSize    int      `yaml:"font_size"`
	FontColor   string   `yaml:"font_color"`
	RightInset  int      `yaml:"right_inset"`
	DateY       int      `yaml:"date_y"`
	CreditY     int      `yaml:"credit_y"`
	Shadow      string   `yaml:"shadow"`
	Attribution string   `yaml:"attribution"`
	DateLayout  string   `yaml:"date_layout"`
	LogoHeight  int      `yaml:"logo_height"`
	LogoX       string   `yaml:"logo_x"`
	LogoY       string   `yaml:"logo_y"`
	QRBaseWidth int      `yaml:"qr_base_width"`
	QRMargin    int      `yaml:"qr_margin"`
	Fonts       []string `yaml:"fonts"`
}

// Table is the full style registry. It is passed by value; nothing in the
// module mutates a Table after construction.
type Table struct {
	Canvas       Canvas    `yaml:"canvas"`
	Fonts        []string  `yaml:"fonts"`
	Announcement TextCard  `yaml:"announcement"`
	HowItWorks   TextCard  `yaml:"how_it_works"`
	Persona      Persona   `yaml:"persona"`
	Intro        Intro     `yaml:"intro"`
	Closing      Closing   `yaml:"closing"`
	Decor        Decor     `yaml:"decor"`
	Watermark    Watermark `yaml:"watermark"`
}

// Default returns the built-in brand styles.
func Default() Table {
	return Table{
		Canvas: Canvas{Width: 1920, Height: 1080, FPS: 30, Background: "0x0C090E"},
		Fonts: []string{
			"/app/fonts/SF-Pro-Rounded-Semibold.otf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
			"/System/Library/Fonts/Helvetica.ttc",
		},
		Announcement: TextCard{
			Width:        1600,
			Heights:      Heights{Min: 400, Single: 500, Both: 800},
			Padding:      120,
			TitleSize:    80,
			DescSize:     42,
			TitleColor:   White,
			DescColor:    RGBA{222, 222, 222, 255},
			TitleSpacing: 16,
			DescSpacing:  12,
			TitleToDesc:  40,
			TitleWrap:    30,
			DescWrap:     45,
			TitleShadow:  ShadowMedium,
			DescShadow:   ShadowSmall,
			BoldTitle:    true,
			BoldRange:    Offset{X: 2, Y: 1},
			ShadowColor:  Shadow,
		},
		HowItWorks: TextCard{
			Width:        1000,
			Heights:      Heights{Min: 150, Single: 200, Both: 350},
			Padding:      60,
			TitleSize:    48,
			DescSize:     24,
			TitleColor:   White,
			DescColor:    RGBA{200, 200, 200, 255},
			TitleSpacing: 10,
			DescSpacing:  6,
			TitleToDesc:  20,
			TitleWrap:    35,
			DescWrap:     60,
			TitleShadow:  ShadowMedium,
			DescShadow:   ShadowSmall,
			Centered:     true,
			BoldRange:    Offset{X: 1, Y: 1},
			ShadowColor:  Shadow,
		},
		Persona: Persona{
			MinWidth:         200,
			MaxWidth:         600,
			MinHeight:        80,
			LineHeight:       25,
			HeightPadding:    40,
			Background:       Yellow,
			Radius:           4,
			PaddingX:         24,
			PaddingY:         20,
			LogoTextPadding:  120,
			CharWidth:        12,
			NameSize:         24,
			TitleSize:        16,
			IndustrySize:     14,
			TextColor:        Black,
			IndustryLine:     20,
			NameLine:         30,
			TitleLine:        20,
			IndustryMaxChars: 50,
			Margin:           48,
		},
		Intro: Intro{
			Width:        400,
			Height:       100,
			Background:   RGBA{26, 26, 26, 250},
			Border:       RGBA{53, 53, 53, 255},
			Radius:       24,
			LogoRadius:   16,
			LogoSize:     80,
			LogoMargin:   20,
			LogoOffsetY:  18,
			LogoFill:     RGBA{74, 74, 74, 230},
			LogoShape:    []Point{{16, 10}, {48, 10}, {40, 30}, {24, 50}, {16, 40}},
			AccentShape:  []Point{{20, 20}, {35, 15}, {30, 35}},
			AccentColor:  RGBA{255, 255, 255, 180},
			TextX:        100,
			TextY:        20,
			TeamSize:     18,
			NameSize:     24,
			RoleSize:     16,
			TeamColor:    RGBA{255, 255, 255, 180},
			NameColor:    White,
			RoleColor:    RGBA{255, 255, 255, 200},
			TeamLine:     34,
			NameLine:     28,
			MarginLeft:   40,
			MarginBottom: 40,
		},
		Closing: Closing{
			TitleSize:     80,
			SubtitleSize:  32,
			EmailSize:     42,
			SmallSize:     24,
			TitleColor:    White,
			SubtitleColor: Gray,
			EmailColor:    Yellow,
			SmallColor:    Gray,
			LogoY:         0.35,
			TitleY:        0.50,
			SubtitleY:     0.62,
			EmailY:        0.67,
			LogoWidth:     40,
			MarginLeft:    56,
			MarginRight:   32,
			SeparatorGap:  8,
			TitleShadow:   ShadowMedium,
			SubShadow:     ShadowSmall,
			EmailShadow:   ShadowMedium,
			SmallShadow:   ShadowSmall,
			BoldRange:     Offset{X: 2, Y: 1},
			Placeholder:   "Enter team name...",
			Company:       "Axon Enterprise",
		},
		Decor: Decor{
			WaveWidth:      2304,
			WaveX:          -192,
			ClosingWaveY:   730,
			ImageBoxWidth:  960,
			ImageBoxHeight: 1080,
			ImagePadding:   32,
			ClosingHiY:     -100,
			TextX:          100,
			FadeIn:         "fade=t=in:st=0:d=0.5",
		},
		Watermark: Watermark{
			FontSize:    18,
			FontColor:   "white",
			RightInset:  344,
			DateY:       36,
			CreditY:     60,
			Shadow:      "shadowcolor=black@0.5:shadowx=1:shadowy=1",
			Attribution: "MADE WITH AXON TAKE ONE",
			DateLayout:  "2006-01-02",
			LogoHeight:  56,
			LogoX:       "main_w-80",
			LogoY:       "25",
			QRBaseWidth: 380,
			QRMargin:    16,
			Fonts: []string{
				"/System/Library/Fonts/Courier.dfont",
				"/usr/share/fonts/truetype/liberation/LiberationMono-Regular.ttf",
			},
		},
	}
}

// LoadOverrides applies a YAML document on top of base and returns the
// merged copy. Keys absent from the document keep their base values.
func LoadOverrides(path string, base Table) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, errors.Wrapf(err, "read style overrides %s", path)
	}
	merged := base
	// slices are replaced wholesale by yaml; copy them so base stays intact
	merged.Fonts = append([]string(nil), base.Fonts...)
	merged.Intro.LogoShape = append([]Point(nil), base.Intro.LogoShape...)
	merged.Intro.AccentShape = append([]Point(nil), base.Intro.AccentShape...)
	merged.Watermark.Fonts = append([]string(nil), base.Watermark.Fonts...)
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return base, errors.Wrapf(err, "parse style overrides %s", path)
	}
	return merged, nil
}

// WatermarkFont returns the first existing watermark font file, or "" to let
// ffmpeg fall back to its default font.
func (t Table) WatermarkFont() string {
	for _, p := range t.Watermark.Fonts {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

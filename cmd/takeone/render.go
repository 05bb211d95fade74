package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ivlev/takeone/internal/composer"
	"github.com/ivlev/takeone/internal/engine"
	"github.com/ivlev/takeone/internal/overlay"
)

var renderOpts struct {
	media    engine.Media
	text     overlay.Text
	duration float64
	out      string
}

var renderCmd = &cobra.Command{
	Use:   "render <intro|announcement|how-it-works|persona|closing|demo>",
	Short: "Render one segment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := composer.ParseKind(args[0])
		if err != nil {
			return fail(err)
		}
		e, err := newEngine()
		if err != nil {
			return fail(err)
		}
		scratch, err := e.NewScratch(string(kind))
		if err != nil {
			return fail(err)
		}
		res, err := e.Render(cmd.Context(), engine.RenderRequest{
			Kind:     kind,
			Media:    renderOpts.media,
			Text:     renderOpts.text,
			Duration: renderOpts.duration,
			Scratch:  scratch,
		})
		if err != nil {
			return fail(err)
		}
		dst, err := deliver(res, renderOpts.out)
		if err != nil {
			return fail(err)
		}
		log.Info().Str("out", dst).Float64("duration", res.Duration).Bool("overlay", res.HasOverlay).Msg("rendered")
		return nil
	},
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderOpts.media.Image, "image", "", "background image or PDF")
	f.StringVar(&renderOpts.media.Audio, "audio", "", "voice track")
	f.StringVar(&renderOpts.media.Video, "video", "", "clip (.mp4 or .mov)")
	f.StringVar(&renderOpts.text.Title, "title", "", "title")
	f.StringVar(&renderOpts.text.Description, "description", "", "description")
	f.StringVar(&renderOpts.text.Subtitle, "subtitle", "", "closing subtitle")
	f.StringVar(&renderOpts.text.Email, "email", "", "closing contact email")
	f.StringVar(&renderOpts.text.Team, "team", "", "intro team")
	f.StringVar(&renderOpts.text.Name, "name", "", "intro or persona name")
	f.StringVar(&renderOpts.text.Role, "role", "", "intro role")
	f.StringVar(&renderOpts.text.Industry, "industry", "", "persona industry")
	f.StringVar(&renderOpts.text.TeamName, "team-name", "", "closing team name")
	f.StringVar(&renderOpts.text.DirectorName, "director", "", "closing director name")
	f.Float64Var(&renderOpts.duration, "duration", 0, "seconds; 0 follows the dominant track")
	f.StringVarP(&renderOpts.out, "out", "o", "", "output file")
}

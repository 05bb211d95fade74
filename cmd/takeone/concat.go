package main

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ivlev/takeone/internal/engine"
	"github.com/ivlev/takeone/internal/timeline"
)

var concatOpts struct {
	manifest string
	out      string
	copy     bool
}

var concatCmd = &cobra.Command{
	Use:   "concat --manifest segments.yaml",
	Short: "Join rendered segments into the final presentation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := timeline.ReadManifest(concatOpts.manifest)
		if err != nil {
			return fail(errors.Wrap(err, "manifest"))
		}
		e, err := newEngine()
		if err != nil {
			return fail(err)
		}
		scratch, err := e.NewScratch("concat")
		if err != nil {
			return fail(err)
		}
		res, err := e.Concatenate(cmd.Context(), engine.ConcatRequest{
			Segments:  m.Segments,
			Watermark: m.Watermark,
			TeamName:  m.TeamName,
			Reencode:  !concatOpts.copy,
			Scratch:   scratch,
		})
		if err != nil {
			return fail(err)
		}

		dst := concatOpts.out
		if dst == "" {
			dst = m.Output
		}
		dst, err = deliver(res, dst)
		if err != nil {
			return fail(err)
		}
		log.Info().Str("out", dst).Int("segments", len(m.Segments)).Float64("duration", res.Duration).Msg("joined")
		return nil
	},
}

func init() {
	f := concatCmd.Flags()
	f.StringVarP(&concatOpts.manifest, "manifest", "m", "", "segment manifest (YAML)")
	f.StringVarP(&concatOpts.out, "out", "o", "", "output file (default: manifest output)")
	f.BoolVar(&concatOpts.copy, "copy", false, "stream copy instead of re-encoding")
	_ = concatCmd.MarkFlagRequired("manifest")
}

package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ivlev/takeone/internal/engine"
)

var trimOpts struct {
	start, end float64
	reencode   bool
	out        string
}

var trimCmd = &cobra.Command{
	Use:   "trim <clip>",
	Short: "Cut a time range out of a clip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return fail(err)
		}
		scratch, err := e.NewScratch("trim")
		if err != nil {
			return fail(err)
		}
		res, err := e.Trim(cmd.Context(), engine.TrimRequest{
			Path:     args[0],
			Start:    trimOpts.start,
			End:      trimOpts.end,
			Reencode: trimOpts.reencode,
			Scratch:  scratch,
		})
		if err != nil {
			return fail(err)
		}
		dst, err := deliver(res, trimOpts.out)
		if err != nil {
			return fail(err)
		}
		log.Info().Str("out", dst).Float64("duration", res.Duration).Msg("trimmed")
		return nil
	},
}

func init() {
	f := trimCmd.Flags()
	f.Float64Var(&trimOpts.start, "start", 0, "start (seconds)")
	f.Float64Var(&trimOpts.end, "end", 0, "end (seconds)")
	f.BoolVar(&trimOpts.reencode, "reencode", false, "frame accurate cut")
	f.StringVarP(&trimOpts.out, "out", "o", "", "output file")
	_ = trimCmd.MarkFlagRequired("end")
}

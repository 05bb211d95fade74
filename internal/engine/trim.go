package engine

import (
	"context"
	"math"

	"github.com/ivlev/takeone/internal/system"
	"github.com/ivlev/takeone/internal/video"
)

type TrimRequest struct {
	Path     string
	Start    float64
	End      float64
	Reencode bool
	Scratch  *system.Scratch
}

// Trim cuts [Start, End) out of a clip. End is clamped to the clip length.
func (e *Engine) Trim(ctx context.Context, req TrimRequest) (*Result, error) {
	res, err := e.trim(ctx, req)
	if err != nil {
		return nil, e.fail(req.Scratch, err)
	}
	return res, nil
}

func (e *Engine) trim(ctx context.Context, req TrimRequest) (*Result, error) {
	if err := nonEmpty(req.Path, "video"); err != nil {
		return nil, err
	}
	if !video.IsContainer(req.Path) {
		return nil, invalid("Unsupported video format")
	}
	if math.IsNaN(req.Start) || math.IsNaN(req.End) || req.Start < 0 || req.End <= req.Start {
		return nil, invalid("Invalid start/end times")
	}
	d, err := system.VideoDuration(e.prober, req.Path)
	if err != nil {
		return nil, invalid("Could not determine video duration")
	}
	end := min(req.End, d)
	if end <= req.Start {
		return nil, invalid("Start time %.2fs is past the end of the video (%.2fs)", req.Start, d)
	}

	out := req.Scratch.Path("trimmed.mp4")
	length := end - req.Start
	if _, err := video.Trim(ctx, e.runner, req.Path, out, req.Start, length, req.Reencode, e.budget.For(length)); err != nil {
		return nil, err
	}
	e.log.Info().Float64("start", req.Start).Float64("end", end).Bool("reencode", req.Reencode).Msg("clip trimmed")
	return &Result{Path: out, Filename: "trimmed.mp4", Duration: length, scratch: req.Scratch}, nil
}

package engine

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/ivlev/takeone/internal/audio"
	"github.com/ivlev/takeone/internal/system"
	"github.com/ivlev/takeone/internal/video"
)

type EnhanceRequest struct {
	Path string
	// Name is the client's file name, used for the download name.
	Name    string
	Scratch *system.Scratch
}

// Enhanced is a cleaned voice track.
type Enhanced struct {
	Result
	Enhancements []string
	TranscriptID string
	// Cuts is the number of filler and pause ranges detected.
	Cuts int
}

// Enhance denoises and loudness-normalizes a recording and cuts fillers and
// long pauses found in its transcript. The output is Opus in WebM.
func (e *Engine) Enhance(ctx context.Context, req EnhanceRequest) (*Enhanced, error) {
	res, err := e.enhance(ctx, req)
	if err != nil {
		return nil, e.fail(req.Scratch, err)
	}
	return res, nil
}

func (e *Engine) enhance(ctx context.Context, req EnhanceRequest) (*Enhanced, error) {
	cfg := e.cfg.Audio
	if !cfg.Enabled {
		return nil, disabled("Audio enhancement is currently disabled")
	}
	if e.transcriber == nil {
		return nil, disabled("ASSEMBLYAI_API_KEY is not configured")
	}
	model, err := system.Require(cfg.RNNoiseModel, "rnnoise model")
	if err != nil {
		return nil, err
	}
	if err := nonEmpty(req.Path, "audio"); err != nil {
		return nil, err
	}
	log := e.log.With().Str("scratch", filepath.Base(req.Scratch.Dir())).Logger()

	normalized := req.Scratch.Path("normalized.wav")
	if err := e.run(ctx, video.NormalizeAudioArgs(req.Path, normalized), normalized, video.NormalizeTimeout); err != nil {
		return nil, errors.Wrap(err, "normalize audio")
	}

	f, err := os.Open(normalized)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	transcript, err := e.transcriber.Transcribe(ctx, f)
	f.Close()
	if err != nil {
		return nil, provider("assemblyai", err)
	}
	log.Info().Str("transcript", transcript.ID).Int("words", len(transcript.Words)).Msg("transcript ready")

	denoised := req.Scratch.Path("denoised.wav")
	if err := e.run(ctx, video.DenoiseArgs(normalized, model, denoised), denoised, video.DenoiseTimeout); err != nil {
		return nil, errors.Wrap(err, "denoise and normalize")
	}

	ranges := audio.BuildReductionRanges(transcript.Words, cfg.FillerTerms, cfg.PauseGapMs)
	total := int64(math.Round(system.AudioDuration(e.prober, denoised, log) * 1000))
	keep, kept := audio.StripPlan(total, ranges, cfg.MinKeepMs)

	out := req.Scratch.Path("enhanced.webm")
	if err := e.run(ctx, video.ExportArgs(denoised, audio.KeepFilter(keep, total), out), out, video.ExportTimeout); err != nil {
		return nil, errors.Wrap(err, "export webm")
	}
	log.Info().Int("cuts", len(ranges)).Int64("total_ms", total).Int64("kept_ms", kept).Msg("audio enhanced")

	return &Enhanced{
		Result: Result{
			Path:     out,
			Filename: "enhanced-" + stem(req.Name, "takeone-audio") + ".webm",
			Duration: float64(kept) / 1000,
			scratch:  req.Scratch,
		},
		Enhancements: audio.Enhancements(len(ranges) > 0),
		TranscriptID: transcript.ID,
		Cuts:         len(ranges),
	}, nil
}

func stem(name, fallback string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return fallback
	}
	return base
}

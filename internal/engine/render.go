package engine

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ivlev/takeone/internal/composer"
	"github.com/ivlev/takeone/internal/overlay"
	"github.com/ivlev/takeone/internal/source"
	"github.com/ivlev/takeone/internal/system"
	"github.com/ivlev/takeone/internal/video"
)

// VideoExtensions are the clip containers the templates accept.
var VideoExtensions = []string{".mp4", ".mov"}

// Media holds the uploaded files of a render request. Unused slots are "".
type Media struct {
	Image string
	Audio string
	Video string
}

type RenderRequest struct {
	Kind  composer.Kind
	Media Media
	Text  overlay.Text
	// Duration in seconds; 0 derives it from the template's dominant track.
	Duration float64
	Scratch  *system.Scratch
}

// Render produces one template segment. On error the scratch directory is
// already gone; on success it lives until Result.Release.
func (e *Engine) Render(ctx context.Context, req RenderRequest) (*Result, error) {
	res, err := e.render(ctx, req)
	if err != nil {
		return nil, e.fail(req.Scratch, err)
	}
	return res, nil
}

func (e *Engine) render(ctx context.Context, req RenderRequest) (*Result, error) {
	if req.Scratch == nil {
		return nil, errors.New("render: no scratch directory")
	}
	tmpl, err := composer.For(req.Kind)
	if err != nil {
		return nil, invalid("Unknown template %q", req.Kind)
	}
	log := e.log.With().Str("kind", string(req.Kind)).Str("scratch", filepath.Base(req.Scratch.Dir())).Logger()
	switch {
	case math.IsNaN(req.Duration) || math.IsInf(req.Duration, 0):
		return nil, invalid("Duration must be a finite number")
	case req.Duration < 0:
		return nil, invalid("Duration must not be negative")
	}

	media, err := e.prepareMedia(ctx, tmpl, req)
	if err != nil {
		return nil, err
	}

	d, err := e.resolveDuration(tmpl, media, req.Duration)
	if err != nil {
		return nil, err
	}

	art, err := tmpl.Rasterize(e.raster, req.Text, req.Scratch.Path("overlay.png"))
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("overlay failed, proceeding without overlay")
		art = nil
	case art == nil:
		log.Debug().Msg("no text fields, rendering without overlay")
	}

	g, err := tmpl.Build(composer.Params{
		Styles:    e.styles,
		Image:     media.Image,
		Audio:     media.Audio,
		Video:     media.Video,
		Overlay:   art,
		Wave:      system.Lookup(e.cfg.Asset(e.cfg.Assets.Wave)),
		Highlight: system.Lookup(e.cfg.Asset(e.cfg.Assets.Highlight)),
		Duration:  d,
	})
	if err != nil {
		return nil, err
	}
	prog, err := g.Serialize()
	if err != nil {
		return nil, err
	}

	out := req.Scratch.Path(string(req.Kind) + ".mp4")
	timeout := e.budget.For(d)
	start := time.Now()
	log.Info().Float64("duration", d).Dur("timeout", timeout).Bool("overlay", art != nil).Msg("render started")
	if _, err := video.Render(ctx, e.runner, prog, e.encoding, out, timeout); err != nil {
		log.Error().Err(err).Msg("render failed")
		return nil, err
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("render finished")

	return &Result{
		Path:       out,
		Filename:   segmentFilename(req.Kind, req.Text),
		Duration:   d,
		HasOverlay: art != nil,
		scratch:    req.Scratch,
	}, nil
}

// prepareMedia validates every upload the template needs before any
// process runs, then converts what ffmpeg cannot use directly.
func (e *Engine) prepareMedia(ctx context.Context, tmpl composer.Template, req RenderRequest) (Media, error) {
	m := req.Media
	for _, need := range tmpl.Requires() {
		switch need {
		case composer.MediaImage:
			if err := nonEmpty(m.Image, "image"); err != nil {
				return m, err
			}
			if source.IsPDF(m.Image) {
				continue
			}
			if _, err := source.InspectImage(m.Image); err != nil {
				return m, invalid("Invalid image file")
			}
		case composer.MediaAudio:
			if err := nonEmpty(m.Audio, "audio"); err != nil {
				return m, err
			}
		case composer.MediaVideo:
			if err := nonEmpty(m.Video, "video"); err != nil {
				return m, err
			}
			if !hasExt(m.Video, VideoExtensions) {
				return m, invalid("Only .mov and .mp4 files are supported")
			}
		}
	}

	if m.Image != "" {
		page, err := source.Prepare(m.Image, req.Scratch.Path("image-page.png"), source.DefaultDPI)
		if err != nil {
			return m, invalid("Invalid image file: %v", err)
		}
		m.Image = page
	}
	if m.Audio != "" && video.IsContainer(m.Audio) {
		wav, err := video.ExtractAudio(ctx, e.runner, m.Audio, req.Scratch.Path("audio.wav"))
		if err != nil {
			e.log.Warn().Err(err).Str("path", m.Audio).Msg("audio extraction failed, using original")
		}
		m.Audio = wav
	}
	return m, nil
}

// resolveDuration prefers an explicit value. Audio driven templates fall
// back to a fixed length when probing fails; clip driven ones cannot.
func (e *Engine) resolveDuration(tmpl composer.Template, m Media, explicit float64) (float64, error) {
	if explicit > 0 {
		return explicit, nil
	}
	var (
		d   float64
		err error
	)
	switch tmpl.Requires()[0] {
	case composer.MediaAudio:
		d = system.AudioDuration(e.prober, m.Audio, e.log)
	case composer.MediaVideo:
		if d, err = system.VideoDuration(e.prober, m.Video); err != nil {
			return 0, errors.Wrap(err, "Failed to analyze video")
		}
	default:
		d = system.FallbackAudioDuration
	}
	if d <= 0 {
		return 0, errors.Wrapf(system.ErrProbeFailed, "non-positive duration %v", d)
	}
	return d, nil
}

func segmentFilename(kind composer.Kind, t overlay.Text) string {
	label := func(s string) string {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
		return "video"
	}
	var name string
	switch kind {
	case composer.Intro:
		name = "intro_" + label(t.Name)
	case composer.Persona:
		name = "persona-" + label(t.Name)
	case composer.Demo:
		name = "demo-video"
	default:
		name = fmt.Sprintf("%s-%s", kind, label(t.Title))
	}
	return video.OutputName(name, string(kind))
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

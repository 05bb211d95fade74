package engine

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/takeone/internal/composer"
	"github.com/ivlev/takeone/internal/overlay"
	"github.com/ivlev/takeone/internal/renderer"
	"github.com/ivlev/takeone/internal/source"
	"github.com/ivlev/takeone/internal/system"
	"github.com/ivlev/takeone/internal/timeline"
	"github.com/ivlev/takeone/internal/video"
)

const (
	// MaxSegments is the number of segment slots a presentation has.
	MaxSegments     = 8
	probeWorkers    = 4
	defaultFinal    = "presentation-final"
	generatedQRSize = 512
)

type ConcatRequest struct {
	Segments []timeline.Segment
	Filename string
	// Watermark overrides the configured default when set.
	Watermark *bool
	TeamName  string
	Reencode  bool
	Scratch   *system.Scratch
}

// Concatenate joins the segments in order and brands the result.
func (e *Engine) Concatenate(ctx context.Context, req ConcatRequest) (*Result, error) {
	res, err := e.concatenate(ctx, req)
	if err != nil {
		return nil, e.fail(req.Scratch, err)
	}
	return res, nil
}

func (e *Engine) concatenate(ctx context.Context, req ConcatRequest) (*Result, error) {
	if req.Scratch == nil {
		return nil, errors.New("concatenate: no scratch directory")
	}
	switch n := len(req.Segments); {
	case n == 0:
		return nil, invalid("No video segments provided")
	case n > MaxSegments:
		return nil, invalid("At most %d segments can be joined, got %d", MaxSegments, n)
	}
	for _, s := range req.Segments {
		if err := nonEmpty(s.Path, "segment"); err != nil {
			return nil, err
		}
	}

	segs := timeline.Sorted(req.Segments)
	e.probeSegments(ctx, segs)

	watermark := e.cfg.Watermark.Enabled
	if req.Watermark != nil {
		watermark = *req.Watermark
	}
	name := video.OutputName(req.Filename, defaultFinal)
	outDir := req.Scratch.Path("out")
	if err := os.Mkdir(outDir, 0755); err != nil {
		return nil, errors.WithStack(err)
	}
	final := filepath.Join(outDir, name)

	joined := final
	if watermark {
		joined = req.Scratch.Path("joined.mp4")
	}
	paths := make([]string, len(segs))
	for i, s := range segs {
		paths[i] = s.Path
	}
	// sized on the expected output; unknown lengths get the cap
	timeout := e.budget.Cap
	if total, ok := timeline.Total(segs); ok {
		timeout = e.budget.For(total)
	}
	start := time.Now()
	opts := video.ConcatOptions{Reencode: req.Reencode, Timeout: timeout}
	if _, err := video.Concat(ctx, e.runner, paths, req.Scratch.Path("concat_list.txt"), joined, opts); err != nil {
		return nil, err
	}
	e.log.Info().Int("segments", len(segs)).Dur("elapsed", time.Since(start)).Str("team", req.TeamName).Msg("segments joined")

	info, err := e.prober.Probe(joined)
	if err != nil {
		e.log.Warn().Err(err).Msg("joined video probe failed, using segment sum")
		info = &system.MediaInfo{}
	}
	duration := info.Duration
	if duration <= 0 {
		duration, _ = timeline.Total(segs)
	}

	if watermark {
		intervals := timeline.ComputeOverlayIntervals(segs, duration)
		if err := e.brand(ctx, req.Scratch, joined, final, info.Width, duration, intervals); err != nil {
			return nil, err
		}
	}

	return &Result{Path: final, Filename: name, Duration: duration, scratch: req.Scratch}, nil
}

// probeSegments fills in unknown durations. A segment that cannot be probed
// stays unknown and only loses its QR interval.
func (e *Engine) probeSegments(ctx context.Context, segs []timeline.Segment) {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(probeWorkers)
	for i := range segs {
		if segs[i].Duration > 0 {
			continue
		}
		s := &segs[i]
		g.Go(func() error {
			d, err := system.VideoDuration(e.prober, s.Path)
			if err != nil {
				e.log.Warn().Err(err).Int("order", s.Order).Msg("segment probe failed")
				return nil
			}
			s.Duration = d
			return nil
		})
	}
	_ = g.Wait()
}

// brand runs the watermark pass from joined to out.
func (e *Engine) brand(ctx context.Context, s *system.Scratch, joined, out string, width int, duration float64, intervals []renderer.Window) error {
	st := e.styles.Watermark
	spec := composer.WatermarkSpec{
		Style:     st,
		Date:      e.now().Format(st.DateLayout),
		FontFile:  e.styles.WatermarkFont(),
		Intervals: intervals,
		Duration:  duration,
	}

	if spec.Logo = system.Lookup(e.cfg.Asset(e.cfg.Assets.WatermarkLogo)); spec.Logo == "" {
		e.log.Warn().Str("asset", e.cfg.Assets.WatermarkLogo).Msg("watermark logo missing, skipping")
	}

	qr, err := e.resolveQR(s)
	if err != nil {
		return err
	}
	if qr != nil {
		if width <= 0 {
			width = e.styles.Canvas.Width
		}
		spec.QR = qr.Path
		spec.QRWidth, spec.QRHeight = composer.ScaleQR(width, qr.Width, qr.Height, st.QRBaseWidth, e.styles.Canvas.Width)
	}

	g, err := composer.Watermark(joined, spec)
	if err != nil {
		return err
	}
	prog, err := g.Serialize()
	if err != nil {
		return err
	}
	timeout := e.budget.For(duration)
	e.log.Info().Bool("logo", spec.Logo != "").Bool("qr", qr != nil).Int("intervals", len(intervals)).Dur("timeout", timeout).Msg("watermark started")
	return e.run(ctx, prog.Args(video.WatermarkEncoding(), out), out, timeout)
}

// resolveQR finds the banner: the installed asset, else one generated
// from the configured URL. nil means no banner, which is an error only
// when the banner is required.
func (e *Engine) resolveQR(s *system.Scratch) (*overlay.Artifact, error) {
	if p := system.Lookup(e.cfg.Asset(e.cfg.Assets.QRBanner)); p != "" {
		info, err := source.InspectImage(p)
		if err == nil {
			return &overlay.Artifact{Path: p, Width: info.Width, Height: info.Height}, nil
		}
		e.log.Warn().Err(err).Str("path", p).Msg("qr banner unreadable")
	}
	if url := e.cfg.Watermark.QRURL; url != "" {
		art, err := overlay.QRBanner(url, generatedQRSize, s.Path("qr.png"))
		if err == nil {
			return art, nil
		}
		e.log.Warn().Err(err).Msg("qr banner generation failed")
	}
	if e.cfg.Watermark.QRRequired {
		return nil, errors.Wrap(system.ErrResourceMissing, "qr banner")
	}
	e.log.Warn().Msg("qr banner missing, skipping")
	return nil, nil
}

// Package engine runs one request end to end: input validation, duration
// resolution, overlay, composition, encoding and cleanup of the scratch
// directory.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ivlev/takeone/internal/config"
	"github.com/ivlev/takeone/internal/overlay"
	"github.com/ivlev/takeone/internal/providers/assemblyai"
	"github.com/ivlev/takeone/internal/providers/slack"
	"github.com/ivlev/takeone/internal/providers/vision"
	"github.com/ivlev/takeone/internal/styles"
	"github.com/ivlev/takeone/internal/system"
	"github.com/ivlev/takeone/internal/video"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotAWin         = errors.New("not a customer win")
	ErrFeatureDisabled = errors.New("feature disabled")
	ErrProvider        = errors.New("provider error")
)

// Error carries a message meant for the client next to the classifying
// sentinel and, optionally, the underlying cause.
type Error struct {
	Kind   error
	Detail string
	Err    error
}

func (e *Error) Error() string { return e.Detail }

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func invalid(format string, args ...any) error {
	return errors.WithStack(&Error{Kind: ErrValidation, Detail: fmt.Sprintf(format, args...)})
}

func disabled(detail string) error {
	return errors.WithStack(&Error{Kind: ErrFeatureDisabled, Detail: detail})
}

func provider(name string, err error) error {
	return errors.WithStack(&Error{Kind: ErrProvider, Detail: fmt.Sprintf("%s: %v", name, err), Err: err})
}

// Transcriber turns speech into timed words.
type Transcriber interface {
	Transcribe(ctx context.Context, r io.Reader) (*assemblyai.Transcript, error)
}

// Sharer posts a finished file to a chat channel.
type Sharer interface {
	Share(ctx context.Context, u slack.Upload) (*slack.File, error)
}

// Analyzer judges a screenshot.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mime string) (*vision.Analysis, error)
}

// PersonaStudio interviews the user about a persona and draws its photo.
type PersonaStudio interface {
	Chat(ctx context.Context, history []vision.Message) (string, error)
	GeneratePersonaImage(ctx context.Context, description string) ([]byte, error)
}

type Engine struct {
	cfg      config.Config
	styles   styles.Table
	raster   *overlay.Rasterizer
	prober   system.Prober
	runner   video.Runner
	encoding video.Encoding
	budget   video.Budget

	transcriber Transcriber
	sharer      Sharer
	analyzer    Analyzer
	personas    PersonaStudio

	now func() time.Time
	log zerolog.Logger
}

type Option func(*Engine)

func WithRunner(r video.Runner) Option { return func(e *Engine) { e.runner = r } }

func WithProber(p system.Prober) Option { return func(e *Engine) { e.prober = p } }

func WithTranscriber(t Transcriber) Option { return func(e *Engine) { e.transcriber = t } }

func WithSharer(s Sharer) Option { return func(e *Engine) { e.sharer = s } }

func WithAnalyzer(a Analyzer) Option { return func(e *Engine) { e.analyzer = a } }

func WithPersonaStudio(p PersonaStudio) Option { return func(e *Engine) { e.personas = p } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// New wires the engine. Collaborators not supplied as options are built
// from cfg; provider clients are only created when their credentials are set.
func New(cfg config.Config, tbl styles.Table, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:    cfg,
		styles: tbl,
		budget: video.Budget{Floor: cfg.Timeouts.Floor, Cap: cfg.Timeouts.Cap, Multiplier: cfg.Timeouts.Multiplier},
		now:    time.Now,
		log:    logger.With().Str("component", "engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.runner == nil {
		ex, err := video.New(logger, cfg.Encoder.FFmpegPath, system.RecommendedThreads(cfg.Encoder.Threads))
		if err != nil {
			return nil, err
		}
		e.runner = ex
	}
	if e.prober == nil {
		e.prober = system.FFprobe{Timeout: cfg.Timeouts.Probe}
	}
	e.encoding = encodingFor(cfg.Encoder, tbl.Canvas.FPS)

	fonts := styles.NewFontLoader(tbl.Fonts, logger)
	e.raster = overlay.New(tbl, fonts, logger,
		overlay.WithLogo(system.Lookup(cfg.Asset(cfg.Assets.Logo))),
		overlay.WithClock(e.now),
	)

	if e.transcriber == nil && cfg.Audio.AssemblyAIKey != "" {
		c, err := assemblyai.NewClient(assemblyai.Options{
			APIKey:       cfg.Audio.AssemblyAIKey,
			BaseURL:      cfg.Audio.BaseURL,
			PollInterval: cfg.Audio.PollInterval,
			PollTimeout:  cfg.Audio.PollTimeout,
		})
		if err != nil {
			return nil, err
		}
		e.transcriber = c
	}
	if e.sharer == nil && cfg.Slack.BotToken != "" && cfg.Slack.ChannelID != "" {
		c, err := slack.NewClient(slack.Options{BotToken: cfg.Slack.BotToken, ChannelID: cfg.Slack.ChannelID, BaseURL: cfg.Slack.BaseURL})
		if err != nil {
			return nil, err
		}
		e.sharer = c
	}
	if cfg.Vision.APIKey != "" && (e.analyzer == nil || (cfg.Vision.Personas && e.personas == nil)) {
		c, err := vision.NewClient(vision.Options{
			APIKey:       cfg.Vision.APIKey,
			Model:        cfg.Vision.Model,
			PersonaModel: cfg.Vision.PersonaModel,
			ImageModel:   cfg.Vision.ImageModel,
			BaseURL:      cfg.Vision.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		if e.analyzer == nil {
			e.analyzer = c
		}
		if cfg.Vision.Personas && e.personas == nil {
			e.personas = c
		}
	}

	e.log.Info().
		Str("codec", e.encoding.Video[1]).
		Bool("transcriber", e.transcriber != nil).
		Bool("slack", e.sharer != nil).
		Bool("vision", e.analyzer != nil).
		Bool("personas", e.personas != nil).
		Msg("engine ready")
	return e, nil
}

func encodingFor(c config.Encoder, fps int) video.Encoding {
	codec := c.VideoCodec
	if codec == "" || codec == "auto" {
		codec = system.DetectH264Encoder(c.FFmpegPath)
	}
	quality := system.DefaultQuality(codec)
	if codec == "libx264" && c.CRF > 0 {
		quality = c.CRF
	}
	return video.Encoding{
		Video:        system.QualityArgs(codec, quality, c.Preset),
		AudioCodec:   c.AudioCodec,
		AudioBitrate: c.AudioBitrate,
		FPS:          fps,
	}
}

// NewScratch creates a request directory after checking free space.
func (e *Engine) NewScratch(prefix string) (*system.Scratch, error) {
	if err := os.MkdirAll(e.cfg.ScratchDir, 0755); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := system.CheckScratch(e.cfg.ScratchDir, e.cfg.MinFreeDiskMB); err != nil {
		return nil, err
	}
	return system.NewScratch(e.cfg.ScratchDir, prefix)
}

// Result is a finished file inside a scratch directory. The caller owns it
// and must call Release once the file has been delivered.
type Result struct {
	Path       string
	Filename   string
	Duration   float64
	HasOverlay bool

	scratch *system.Scratch
}

// Release removes the scratch directory holding the result.
func (r *Result) Release() {
	if r != nil && r.scratch != nil {
		_ = r.scratch.Remove()
	}
}

// fail removes the scratch directory right away and passes err through.
func (e *Engine) fail(s *system.Scratch, err error) error {
	if s != nil {
		if rmErr := s.Remove(); rmErr != nil {
			e.log.Warn().Err(rmErr).Str("dir", s.Dir()).Msg("scratch cleanup failed")
		}
	}
	return err
}

func (e *Engine) run(ctx context.Context, args []string, out string, timeout time.Duration) error {
	res, err := e.runner.Run(ctx, args, timeout)
	if err != nil {
		return err
	}
	return video.CheckOutput(out, res)
}

// nonEmpty rejects missing and zero byte uploads.
func nonEmpty(path, what string) error {
	if path == "" {
		return invalid("No %s file provided", what)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return invalid("No %s file provided", what)
	}
	if fi.Size() == 0 {
		return invalid("Empty %s file received", what)
	}
	return nil
}

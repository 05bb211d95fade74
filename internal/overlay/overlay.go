// Package overlay rasterizes the per-template text cards into transparent
// PNG files that the composition graph layers over the video.
package overlay

import (
	"image"
	"image/png"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ivlev/takeone/internal/styles"
)

// ErrGeneration marks a failed overlay. Callers log it and render without
// the overlay.
var ErrGeneration = errors.New("overlay generation failed")

// Text carries every user supplied string a template may draw.
type Text struct {
	Title        string
	Description  string
	Subtitle     string
	Email        string
	Team         string
	Name         string
	Role         string
	Industry     string
	TeamName     string
	DirectorName string
}

// Artifact is a rendered overlay file inside the request scratch dir.
type Artifact struct {
	Path   string
	Width  int
	Height int
}

type Option func(*Rasterizer)

// WithLogo sets the brand logo drawn on the closing card.
func WithLogo(path string) Option {
	return func(r *Rasterizer) { r.logo = path }
}

// WithClock overrides the clock used for the closing card's year.
func WithClock(now func() time.Time) Option {
	return func(r *Rasterizer) { r.now = now }
}

// Rasterizer draws overlays from an immutable style table.
type Rasterizer struct {
	styles styles.Table
	fonts  *styles.FontLoader
	logo   string
	now    func() time.Time
	logger zerolog.Logger
}

func New(tbl styles.Table, fonts *styles.FontLoader, logger zerolog.Logger, opts ...Option) *Rasterizer {
	r := &Rasterizer{
		styles: tbl,
		fonts:  fonts,
		now:    time.Now,
		logger: logger.With().Str("component", "overlay").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// save encodes the canvas and returns it to the pool.
func (r *Rasterizer) save(img *image.RGBA, path string) (*Artifact, error) {
	defer putCanvas(img)

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(ErrGeneration, "create %s: %v", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return nil, errors.Wrapf(ErrGeneration, "encode png: %v", err)
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrapf(ErrGeneration, "close %s: %v", path, err)
	}
	b := img.Bounds()
	r.logger.Debug().Str("path", path).Int("w", b.Dx()).Int("h", b.Dy()).Msg("overlay written")
	return &Artifact{Path: path, Width: b.Dx(), Height: b.Dy()}, nil
}

func blank(values ...string) bool {
	for _, v := range values {
		if trimmed(v) != "" {
			return false
		}
	}
	return true
}

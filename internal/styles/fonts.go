package styles

import (
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// FontLoader resolves faces along a fallback chain. Parsed fonts are cached;
// faces are created per call because opentype faces are not safe for
// concurrent use.
type FontLoader struct {
	chain  []string
	logger zerolog.Logger

	mu     sync.Mutex
	parsed map[string]*opentype.Font
	missed map[string]bool
}

func NewFontLoader(chain []string, logger zerolog.Logger) *FontLoader {
	return &FontLoader{
		chain:  append([]string(nil), chain...),
		logger: logger.With().Str("component", "fonts").Logger(),
		parsed: make(map[string]*opentype.Font),
		missed: make(map[string]bool),
	}
}

// Face returns a face of the given pixel size from the first usable font in
// the chain. It never fails: the last resort is the built-in bitmap face.
func (l *FontLoader) Face(size float64) font.Face {
	for _, path := range l.chain {
		f := l.load(path)
		if f == nil {
			continue
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			l.logger.Warn().Err(err).Str("font", path).Float64("size", size).Msg("face creation failed")
			continue
		}
		return face
	}
	l.logger.Warn().Float64("size", size).Msg("no scalable font available, using basicfont")
	return basicfont.Face7x13
}

// Available reports whether any font in the chain parses.
func (l *FontLoader) Available() bool {
	for _, path := range l.chain {
		if l.load(path) != nil {
			return true
		}
	}
	return false
}

func (l *FontLoader) load(path string) *opentype.Font {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f, ok := l.parsed[path]; ok {
		return f
	}
	if l.missed[path] {
		return nil
	}
	f, err := parseFont(path)
	if err != nil {
		l.missed[path] = true
		l.logger.Debug().Err(err).Str("font", path).Msg("font skipped")
		return nil
	}
	l.parsed[path] = f
	return f
}

func parseFont(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if strings.HasSuffix(strings.ToLower(path), ".ttc") {
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, errors.Wrap(err, "parse collection")
		}
		if coll.NumFonts() == 0 {
			return nil, errors.New("empty font collection")
		}
		return coll.Font(0)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse font")
	}
	return f, nil
}

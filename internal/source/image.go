package source

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	// ErrEmpty is a zero byte upload.
	ErrEmpty = errors.New("empty file")
	// ErrUnsupported is a file that does not decode as a picture.
	ErrUnsupported = errors.New("unsupported image")
)

// Crop margins added around the detected region, and the smallest region
// worth keeping, as fractions of the frame.
const (
	marginX = 0.05
	marginY = 0.03
	minSide = 0.15
)

// Info is what DecodeConfig learns from the header.
type Info struct {
	Width  int
	Height int
	Format string
}

// InspectImage checks that path is a non-empty, decodable picture.
func InspectImage(path string) (Info, error) {
	if err := checkNonEmpty(path); err != nil {
		return Info{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Info{}, errors.WithStack(err)
	}
	defer f.Close()
	return Inspect(f)
}

func Inspect(r io.Reader) (Info, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Info{}, errors.Wrap(ErrUnsupported, err.Error())
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, errors.Wrap(ErrUnsupported, "zero sized image")
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Decode fully decodes an in-memory upload.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(ErrUnsupported, err.Error())
	}
	return img, nil
}

func checkNonEmpty(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if fi.Size() == 0 {
		return errors.Wrap(ErrEmpty, path)
	}
	return nil
}

// Box is a normalized region, (0,0) top-left and (1,1) bottom-right.
type Box struct {
	XMin, YMin, XMax, YMax float64
}

// Full is the whole frame.
var Full = Box{0, 0, 1, 1}

// Padded clamps b to the frame and adds the safety margins. Regions
// narrower or shorter than minSide are replaced by a centered 90% frame.
func (b Box) Padded() Box {
	p := Box{
		XMin: max(0, clamp01(b.XMin)-marginX),
		YMin: max(0, clamp01(b.YMin)-marginY),
		XMax: min(1, clamp01(b.XMax)+marginX),
		YMax: min(1, clamp01(b.YMax)+marginY),
	}
	if p.XMax-p.XMin < minSide || p.YMax-p.YMin < minSide {
		return Box{0.05, 0.05, 0.95, 0.95}
	}
	return p
}

// Rect maps the box onto a w by h frame.
func (b Box) Rect(w, h int) image.Rectangle {
	return image.Rect(
		int(b.XMin*float64(w)),
		int(b.YMin*float64(h)),
		int(b.XMax*float64(w)),
		int(b.YMax*float64(h)),
	)
}

// Crop copies the padded region of img. A degenerate region yields a copy
// of the whole image.
func Crop(img image.Image, b Box) *image.RGBA {
	bounds := img.Bounds()
	r := b.Padded().Rect(bounds.Dx(), bounds.Dy())
	if r.Dx() <= 0 || r.Dy() <= 0 {
		r = image.Rect(0, 0, bounds.Dx(), bounds.Dy())
	}
	r = r.Add(bounds.Min)
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(dst, image.Point{}, img, r, draw.Src, nil)
	return dst
}

// PNGDataURL encodes img as a data:image/png;base64 URL.
func PNGDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", errors.Wrap(err, "encode png")
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}

// Package source validates uploaded pictures and turns them into images
// the templates can layer: PDFs are rasterized, screenshots are cropped.
package source

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pkg/errors"
)

// DefaultDPI is used to rasterize PDF uploads.
const DefaultDPI = 150

// loopable are the decoded formats ffmpeg reads as a still without help.
var loopable = map[string]bool{"png": true, "jpeg": true}

type Source interface {
	PageCount() int
	Bounds(index int) (image.Rectangle, error)
	Render(index int, dpi int) (image.Image, error)
	Close() error
}

type PDFSource struct {
	doc  *fitz.Document
	path string
}

func OpenPDF(path string) (*PDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, errors.Wrapf(ErrUnsupported, "open pdf %s: %v", filepath.Base(path), err)
	}
	return &PDFSource{doc: doc, path: path}, nil
}

func (f *PDFSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *PDFSource) Bounds(index int) (image.Rectangle, error) {
	rect, err := f.doc.Bound(index)
	return rect, errors.WithStack(err)
}

// Render opens its own document handle; fitz documents must not be shared
// between goroutines.
func (f *PDFSource) Render(index int, dpi int) (image.Image, error) {
	doc, err := fitz.New(f.path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer doc.Close()
	img, err := doc.ImageDPI(index, float64(dpi))
	return img, errors.WithStack(err)
}

func (f *PDFSource) Close() error {
	return f.doc.Close()
}

// ImageSource is a single raster file seen as a one page document.
type ImageSource struct {
	path string
	info Info
}

func OpenImage(path string) (*ImageSource, error) {
	info, err := InspectImage(path)
	if err != nil {
		return nil, err
	}
	return &ImageSource{path: path, info: info}, nil
}

func (s *ImageSource) PageCount() int { return 1 }

func (s *ImageSource) Bounds(index int) (image.Rectangle, error) {
	if index != 0 {
		return image.Rectangle{}, errors.Errorf("page %d out of range", index)
	}
	return image.Rect(0, 0, s.info.Width, s.info.Height), nil
}

func (s *ImageSource) Render(index int, _ int) (image.Image, error) {
	if index != 0 {
		return nil, errors.Errorf("page %d out of range", index)
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrap(ErrUnsupported, err.Error())
	}
	return img, nil
}

func (s *ImageSource) Close() error { return nil }

func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Open picks the source implementation by file extension.
func Open(path string) (Source, error) {
	if IsPDF(path) {
		return OpenPDF(path)
	}
	return OpenImage(path)
}

// Prepare returns a path ffmpeg can loop as a still. PNG and JPEG files
// are validated and returned as is; other rasters and the first page of a
// PDF are rendered to out as PNG.
func Prepare(path, out string, dpi int) (string, error) {
	if err := checkNonEmpty(path); err != nil {
		return "", err
	}
	src, err := Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()
	if src.PageCount() == 0 {
		return "", errors.Wrap(ErrUnsupported, "document has no pages")
	}
	if raster, ok := src.(*ImageSource); ok && loopable[raster.info.Format] {
		return path, nil
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	img, err := src.Render(0, dpi)
	if err != nil {
		return "", errors.Wrap(err, "render first page")
	}
	if err := writePNG(img, out); err != nil {
		return "", err
	}
	return out, nil
}

func writePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", filepath.Base(path))
	}
	return errors.WithStack(f.Close())
}

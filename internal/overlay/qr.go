package overlay

import (
	"os"

	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
)

// QRBanner renders url as a square QR code PNG of the given size. It is used
// when no static banner asset is installed.
func QRBanner(url string, size int, path string) (*Artifact, error) {
	if url == "" {
		return nil, errors.Wrap(ErrGeneration, "qr banner: empty url")
	}
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		return nil, errors.Wrapf(ErrGeneration, "qr encode: %v", err)
	}
	if err := os.WriteFile(path, png, 0644); err != nil {
		return nil, errors.Wrapf(ErrGeneration, "write qr banner: %v", err)
	}
	return &Artifact{Path: path, Width: size, Height: size}, nil
}

package server

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/takeone/internal/system"
)

const (
	maxMemory     = 32 << 20
	maxBody       = 2 << 30
	maxShareImage = 20 << 20
)

var audioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".aifc": true, ".aiff": true,
	".m4a": true, ".mov": true, ".mp4": true,
}

// upload saves one multipart file into the scratch directory and stores the
// resulting path in dst. A missing field leaves dst empty.
type upload struct {
	field string
	name  string
	check func(*multipart.FileHeader) error
	dst   *string
}

func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return badRequest("Expected a multipart form: " + err.Error())
	}
	return nil
}

func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func formFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	if fhs := r.MultipartForm.File[field]; len(fhs) > 0 {
		return fhs[0]
	}
	return nil
}

// saveAll validates every present upload, then copies them to disk
// concurrently.
func saveAll(r *http.Request, s *system.Scratch, ups []upload) error {
	files := make([]*multipart.FileHeader, len(ups))
	for i, u := range ups {
		files[i] = formFile(r, u.field)
		if files[i] != nil && u.check != nil {
			if err := u.check(files[i]); err != nil {
				return err
			}
		}
	}

	g, _ := errgroup.WithContext(r.Context())
	for i, u := range ups {
		if files[i] == nil {
			continue
		}
		g.Go(func() error {
			path, err := saveFile(files[i], s, u.name)
			if err != nil {
				return errors.Wrapf(err, "save %s", u.field)
			}
			*u.dst = path
			return nil
		})
	}
	return g.Wait()
}

func saveFile(fh *multipart.FileHeader, s *system.Scratch, name string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer src.Close()

	path := s.Path(name + strings.ToLower(filepath.Ext(fh.Filename)))
	dst, err := os.Create(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", errors.WithStack(err)
	}
	return path, errors.WithStack(dst.Close())
}

// contentType trusts the client's header unless it is missing or generic.
func contentType(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename)))
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}

func checkImage(fh *multipart.FileHeader) error {
	ct := contentType(fh)
	if strings.HasPrefix(ct, "image/") || ct == "application/pdf" {
		return nil
	}
	return badRequest("Invalid image file")
}

func checkAudio(fh *multipart.FileHeader) error {
	ct := contentType(fh)
	if strings.HasPrefix(ct, "audio/") || strings.HasPrefix(ct, "video/") {
		return nil
	}
	if audioExtensions[strings.ToLower(filepath.Ext(fh.Filename))] {
		return nil
	}
	return badRequest("Invalid audio or video file")
}

func formFloat(r *http.Request, field string, def float64) (float64, error) {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, badRequest("Invalid " + field)
	}
	return f, nil
}

func formBool(r *http.Request, field string) (*bool, error) {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, badRequest("Invalid " + field)
	}
	return &b, nil
}

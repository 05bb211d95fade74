package system

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Scratch is a per-request working directory. Remove is safe to call more
// than once and from several goroutines.
type Scratch struct {
	dir  string
	once sync.Once
	err  error
}

// NewScratch creates base/prefix-<uuid>.
func NewScratch(base, prefix string) (*Scratch, error) {
	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, errors.Wrapf(err, "scratch base %s", base)
	}
	dir := filepath.Join(base, prefix+"-"+uuid.NewString())
	if err := os.Mkdir(dir, 0700); err != nil {
		return nil, errors.Wrapf(err, "scratch %s", dir)
	}
	return &Scratch{dir: dir}, nil
}

// Dir is the scratch directory itself.
func (s *Scratch) Dir() string { return s.dir }

// Path joins name onto the scratch directory.
func (s *Scratch) Path(name string) string { return filepath.Join(s.dir, name) }

// Remove deletes the directory and everything in it.
func (s *Scratch) Remove() error {
	s.once.Do(func() {
		s.err = os.RemoveAll(s.dir)
	})
	return s.err
}

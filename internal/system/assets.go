package system

import (
	"os"

	"github.com/pkg/errors"
)

// ErrResourceMissing marks a static asset or model file that is not installed.
var ErrResourceMissing = errors.New("resource missing")

// Lookup returns path when it names an existing regular file, "" otherwise.
func Lookup(path string) string {
	if path == "" {
		return ""
	}
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return ""
	}
	return path
}

// Require is Lookup for assets the caller cannot do without.
func Require(path, what string) (string, error) {
	if p := Lookup(path); p != "" {
		return p, nil
	}
	return "", errors.Wrapf(ErrResourceMissing, "%s: %s", what, path)
}

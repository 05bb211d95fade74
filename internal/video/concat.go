package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ConcatTimeout bounds the join step when the caller sets no timeout.
const ConcatTimeout = 120 * time.Second

// ConcatOptions selects stream copy (default) or a normalizing re-encode for
// inputs whose parameters differ.
type ConcatOptions struct {
	Reencode bool
	Timeout  time.Duration
}

// WriteConcatList writes an ffmpeg concat demuxer list with absolute paths.
func WriteConcatList(listPath string, paths []string) error {
	var b strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return errors.WithStack(err)
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	return errors.WithStack(os.WriteFile(listPath, []byte(b.String()), 0644))
}

// ConcatArgs builds the join command for an existing list file.
func ConcatArgs(listPath, out string, opts ConcatOptions) []string {
	args := []string{"-f", "concat", "-safe", "0", "-i", listPath}
	if opts.Reencode {
		args = append(args,
			"-c:v", "libx264", "-preset", "ultrafast", "-crf", "28",
			"-maxrate", "2M", "-bufsize", "4M",
			"-c:a", "aac",
			"-r", "30", "-s", "1920x1080", "-pix_fmt", "yuv420p",
			"-movflags", "+faststart",
		)
	} else {
		args = append(args, "-c", "copy", "-avoid_negative_ts", "make_zero")
	}
	return append(args, out)
}

// Concat joins paths in order into out.
func Concat(ctx context.Context, r Runner, paths []string, listPath, out string, opts ConcatOptions) (*ProcessResult, error) {
	if len(paths) == 0 {
		return nil, errors.New("concat: no inputs")
	}
	if err := WriteConcatList(listPath, paths); err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = ConcatTimeout
	}
	res, err := r.Run(ctx, ConcatArgs(listPath, out, opts), timeout)
	if err != nil {
		return res, err
	}
	return res, CheckOutput(out, res)
}

// OutputName makes sure a user supplied file name ends in .mp4.
func OutputName(name, fallback string) string {
	name = strings.TrimSpace(filepath.Base(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = fallback
	}
	if !strings.HasSuffix(strings.ToLower(name), ".mp4") {
		name += ".mp4"
	}
	return name
}

package video

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/ivlev/takeone/internal/composer"
)

// Budget sizes the timeout of a render from its output duration.
type Budget struct {
	Floor      time.Duration
	Cap        time.Duration
	Multiplier float64
}

// DefaultBudget is 4x real time, at least a minute, at most ten.
var DefaultBudget = Budget{Floor: 60 * time.Second, Cap: 10 * time.Minute, Multiplier: 4}

// For returns clamp(Multiplier*seconds, Floor, Cap).
func (b Budget) For(seconds float64) time.Duration {
	d := time.Duration(math.Max(0, seconds) * b.Multiplier * float64(time.Second))
	if d < b.Floor {
		d = b.Floor
	}
	if b.Cap > 0 && d > b.Cap {
		d = b.Cap
	}
	return d
}

// Encoding is the codec section of a segment render.
type Encoding struct {
	Video        []string // from system.QualityArgs
	AudioCodec   string
	AudioBitrate string
	FPS          int
}

// Args renders the codec flags.
func (e Encoding) Args() []string {
	args := append([]string{}, e.Video...)
	if e.FPS > 0 {
		args = append(args, "-r", fmt.Sprintf("%d", e.FPS))
	}
	args = append(args, "-pix_fmt", "yuv420p")
	if e.AudioCodec != "" {
		args = append(args, "-c:a", e.AudioCodec)
	}
	if e.AudioBitrate != "" {
		args = append(args, "-b:a", e.AudioBitrate)
	}
	return append(args, "-movflags", "+faststart")
}

// Render runs a serialized composition and checks that it produced output.
func Render(ctx context.Context, r Runner, prog *composer.Program, enc Encoding, out string, timeout time.Duration) (*ProcessResult, error) {
	res, err := r.Run(ctx, prog.Args(enc.Args(), out), timeout)
	if err != nil {
		return res, err
	}
	return res, CheckOutput(out, res)
}

// CheckOutput fails with KindOutputMissing when path is absent or empty.
func CheckOutput(path string, res *ProcessResult) error {
	fi, err := os.Stat(path)
	if err == nil && fi.Size() > 0 {
		return nil
	}
	re := &RenderError{Kind: KindOutputMissing, Err: fmt.Errorf("%s not written", path)}
	if res != nil {
		re.Tail = res.Stderr
	}
	return re
}

package video

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/takeone/internal/renderer"
)

const (
	ExtractTimeout   = 60 * time.Second
	NormalizeTimeout = 120 * time.Second
	DenoiseTimeout   = 180 * time.Second
	ExportTimeout    = 120 * time.Second
)

// TrimExtensions are the containers Trim accepts.
var TrimExtensions = []string{".mp4", ".mov", ".avi", ".mkv"}

// IsContainer reports whether path has a video container extension.
func IsContainer(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range TrimExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ExtractAudioArgs decodes the audio track of a container to 44.1 kHz
// stereo PCM.
func ExtractAudioArgs(in, out string) []string {
	return []string{"-i", in, "-vn", "-acodec", "pcm_s16le", "-ar", "44100", "-ac", "2", out}
}

// ExtractAudio returns the WAV path, or in itself when extraction fails.
func ExtractAudio(ctx context.Context, r Runner, in, out string) (string, error) {
	res, err := r.Run(ctx, ExtractAudioArgs(in, out), ExtractTimeout)
	if err == nil {
		err = CheckOutput(out, res)
	}
	if err != nil {
		return in, err
	}
	return out, nil
}

// TrimArgs cuts [start, start+dur) from in. Stream copy snaps to keyframes;
// reencode is frame accurate.
func TrimArgs(in, out string, start, dur float64, reencode bool) []string {
	args := []string{"-ss", renderer.Num(start), "-i", in, "-t", renderer.Num(dur)}
	if reencode {
		args = append(args, "-c:v", "libx264", "-preset", "fast", "-crf", "23", "-c:a", "aac", "-movflags", "+faststart")
	} else {
		args = append(args, "-c", "copy", "-avoid_negative_ts", "make_zero")
	}
	return append(args, out)
}

// Trim runs TrimArgs with the given timeout.
func Trim(ctx context.Context, r Runner, in, out string, start, dur float64, reencode bool, timeout time.Duration) (*ProcessResult, error) {
	res, err := r.Run(ctx, TrimArgs(in, out, start, dur, reencode), timeout)
	if err != nil {
		return res, err
	}
	return res, CheckOutput(out, res)
}

// WatermarkEncoding is the codec section of the branding pass. Audio is
// copied untouched.
func WatermarkEncoding() []string {
	return []string{"-c:v", "libx264", "-preset", "fast", "-crf", "23", "-c:a", "copy", "-pix_fmt", "yuv420p", "-movflags", "+faststart"}
}

// NormalizeAudioArgs downmixes to 48 kHz mono for transcription and denoise.
func NormalizeAudioArgs(in, out string) []string {
	return []string{"-i", in, "-ac", "1", "-ar", "48000", out}
}

// DenoiseArgs runs RNNoise then EBU R128 loudness normalization.
func DenoiseArgs(in, model, out string) []string {
	safe := strings.ReplaceAll(model, "'", `'\''`)
	filters := fmt.Sprintf("arnndn=m='%s',loudnorm=I=-20:TP=-3:LRA=11", safe)
	return []string{"-i", in, "-af", filters, "-ac", "1", "-ar", "48000", out}
}

// ExportArgs applies an optional audio filter and encodes Opus in WebM.
func ExportArgs(in, filter, out string) []string {
	args := []string{"-i", in}
	if filter != "" {
		args = append(args, "-af", filter)
	}
	return append(args, "-c:a", "libopus", "-b:a", "192k", "-f", "webm", out)
}

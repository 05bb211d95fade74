package video_test

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/takeone/internal/system"
	"github.com/ivlev/takeone/internal/video"
)

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}
}

func TestIntegrationConcatDurationIsSumOfParts(t *testing.T) {
	skipIfNoFFmpeg(t)
	ctx := context.Background()
	dir := t.TempDir()

	ex, err := video.New(zerolog.Nop(), "ffmpeg", 1)
	if err != nil {
		t.Fatal(err)
	}
	probe := system.FFprobe{Timeout: 15 * time.Second}

	lengths := []float64{1.5, 2, 1}
	var parts []string
	var sum float64
	for i, d := range lengths {
		out := filepath.Join(dir, fmt.Sprintf("part%d.mp4", i))
		args := []string{
			"-f", "lavfi", "-i", "testsrc=size=320x240:rate=30",
			"-f", "lavfi", "-i", "sine=frequency=440:sample_rate=44100",
			"-t", fmt.Sprint(d),
			"-c:v", "libx264", "-preset", "ultrafast", "-pix_fmt", "yuv420p",
			"-c:a", "aac", "-shortest", out,
		}
		if _, err := ex.Run(ctx, args, time.Minute); err != nil {
			t.Fatalf("make part %d: %v", i, err)
		}
		info, err := probe.Probe(out)
		if err != nil {
			t.Fatal(err)
		}
		sum += info.Duration
		parts = append(parts, out)
	}

	joined := filepath.Join(dir, "joined.mp4")
	if _, err := video.Concat(ctx, ex, parts, filepath.Join(dir, "list.txt"), joined, video.ConcatOptions{}); err != nil {
		t.Fatal(err)
	}
	info, err := probe.Probe(joined)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(info.Duration-sum) > 0.15 {
		t.Errorf("joined duration %.3f, parts sum to %.3f", info.Duration, sum)
	}
	t.Logf("joined %d parts: %.3fs", len(parts), info.Duration)
}

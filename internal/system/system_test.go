package system

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

func TestParseProbeDurationChain(t *testing.T) {
	tests := []struct {
		name string
		json string
		want float64
	}{
		{
			"format duration",
			`{"streams":[{"codec_type":"video","width":1920,"height":1080,"duration":"4.9"}],"format":{"duration":"5.000000"}}`,
			5,
		},
		{
			"stream duration",
			`{"streams":[{"codec_type":"audio"},{"codec_type":"video","duration":"3.25"}],"format":{}}`,
			3.25,
		},
		{
			"frames over rate",
			`{"streams":[{"codec_type":"video","nb_frames":"90","r_frame_rate":"30/1"}],"format":{"duration":"N/A"}}`,
			3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseProbe([]byte(tt.json))
			if err != nil {
				t.Fatal(err)
			}
			if abs(info.Duration-tt.want) > 1e-9 {
				t.Errorf("duration = %f, want %f", info.Duration, tt.want)
			}
		})
	}
}

func TestParseProbeStreams(t *testing.T) {
	info, err := ParseProbe([]byte(`{"streams":[{"codec_type":"video","codec_name":"h264","width":1280,"height":720},{"codec_type":"audio"}],"format":{"duration":"2"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if info.Width != 1280 || info.Height != 720 || info.Codec != "h264" || !info.HasAudio || !info.HasVideo {
		t.Errorf("info = %+v", info)
	}
}

func TestParseProbeFailures(t *testing.T) {
	for _, in := range []string{`not json`, `{"streams":[],"format":{}}`, `{"streams":[{"codec_type":"video","nb_frames":"10","r_frame_rate":"0/0"}]}`} {
		if _, err := ParseProbe([]byte(in)); !errors.Is(err, ErrProbeFailed) {
			t.Errorf("ParseProbe(%s) err = %v", in, err)
		}
	}
}

type stubProber struct {
	info *MediaInfo
	err  error
}

func (s stubProber) Probe(string) (*MediaInfo, error) { return s.info, s.err }

func TestAudioDurationFallback(t *testing.T) {
	bad := stubProber{err: errors.Wrap(ErrProbeFailed, "boom")}
	if got := AudioDuration(bad, "x.wav", zerolog.Nop()); got != FallbackAudioDuration {
		t.Errorf("fallback = %f", got)
	}
	if _, err := VideoDuration(bad, "x.mp4"); !errors.Is(err, ErrProbeFailed) {
		t.Errorf("video err = %v", err)
	}
	good := stubProber{info: &MediaInfo{Duration: 7.5}}
	if got := AudioDuration(good, "x.wav", zerolog.Nop()); got != 7.5 {
		t.Errorf("duration = %f", got)
	}
}

func TestPickEncoder(t *testing.T) {
	listing := " V....D libx264  libx264 H.264\n V....D h264_nvenc  NVIDIA NVENC H.264 encoder\n"
	if got := pickEncoder(listing); got != "h264_nvenc" {
		t.Errorf("got %s", got)
	}
	if got := pickEncoder(" V....D libx264\n"); got != "libx264" {
		t.Errorf("got %s", got)
	}
}

func TestQualityArgs(t *testing.T) {
	tests := []struct {
		enc  string
		q    int
		want string
	}{
		{"h264_videotoolbox", 75, "-c:v h264_videotoolbox -b:v 7500k"},
		{"h264_nvenc", 28, "-c:v h264_nvenc -cq 28"},
		{"libx264", 23, "-c:v libx264 -crf 23 -preset fast"},
	}
	for _, tt := range tests {
		if got := strings.Join(QualityArgs(tt.enc, tt.q, "fast"), " "); got != tt.want {
			t.Errorf("QualityArgs(%s) = %s", tt.enc, got)
		}
		if DefaultQuality(tt.enc) != tt.q {
			t.Errorf("DefaultQuality(%s) = %d", tt.enc, DefaultQuality(tt.enc))
		}
	}
}

func TestScratchRemoveIsIdempotent(t *testing.T) {
	s, err := NewScratch(t.TempDir(), "render")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(filepath.Base(s.Dir()), "render-") {
		t.Errorf("dir = %s", s.Dir())
	}
	if err := os.WriteFile(s.Path("a.png"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Remove(); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if _, err := os.Stat(s.Dir()); !os.IsNotExist(err) {
		t.Errorf("scratch still present: %v", err)
	}
}

func TestLookupAndRequire(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Wave.png")
	if err := os.WriteFile(file, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}
	if Lookup(file) != file || Lookup(dir) != "" || Lookup("") != "" {
		t.Error("Lookup mismatch")
	}
	if _, err := Require(filepath.Join(dir, "QRCodeBanner.png"), "qr banner"); !errors.Is(err, ErrResourceMissing) {
		t.Errorf("err = %v", err)
	}
}

func TestCheckScratch(t *testing.T) {
	dir := t.TempDir()
	if err := CheckScratch(dir, 0); err != nil {
		t.Errorf("zero threshold: %v", err)
	}
	if err := CheckScratch(dir, 1<<40); !errors.Is(err, ErrLowDisk) {
		t.Errorf("huge threshold err = %v", err)
	}
}

func TestRecommendedThreads(t *testing.T) {
	if RecommendedThreads(3) != 3 {
		t.Error("configured value ignored")
	}
	if RecommendedThreads(0) < 1 {
		t.Error("expected at least one thread")
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

package video

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ivlev/takeone/internal/composer"
)

func skipIfNoBinary(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not found in PATH", name)
	}
	return path
}

func TestRunTimeoutKillsChild(t *testing.T) {
	sleep := skipIfNoBinary(t, "sleep")
	e := newExecutor(zerolog.Nop(), sleep, 0)
	e.waitDelay = time.Second

	start := time.Now()
	res, err := e.run(context.Background(), sleep, []string{"10"}, 200*time.Millisecond)
	if !IsKind(err, KindTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("child was not killed promptly: %s", elapsed)
	}
	if res == nil || res.ExitCode == 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestRunFailureKeepsTail(t *testing.T) {
	sh := skipIfNoBinary(t, "sh")
	e := newExecutor(zerolog.Nop(), sh, 0)
	_, err := e.run(context.Background(), sh, []string{"-c", "echo first >&2; echo 'Invalid argument' >&2; exit 3"}, 5*time.Second)
	var re *RenderError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v", err)
	}
	if re.Kind != KindFailed || re.ExitCode != 3 {
		t.Errorf("kind %s exit %d", re.Kind, re.ExitCode)
	}
	if !strings.Contains(re.Tail, "first") || !strings.HasSuffix(re.Error(), "Invalid argument") {
		t.Errorf("tail %q error %q", re.Tail, re.Error())
	}
}

func TestRunSuccessCapturesStdout(t *testing.T) {
	sh := skipIfNoBinary(t, "sh")
	e := newExecutor(zerolog.Nop(), sh, 0)
	res, err := e.run(context.Background(), sh, []string{"-c", "echo hello"}, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(res.Stdout) != "hello" || res.ExitCode != 0 {
		t.Errorf("res = %+v", res)
	}
}

func TestRunCancelled(t *testing.T) {
	sleep := skipIfNoBinary(t, "sleep")
	e := newExecutor(zerolog.Nop(), sleep, 0)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	_, err := e.run(ctx, sleep, []string{"10"}, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestBaseArgs(t *testing.T) {
	e := newExecutor(zerolog.Nop(), "ffmpeg", 4)
	got := strings.Join(e.baseArgs(), " ")
	if got != "-y -hide_banner -nostdin -loglevel warning -threads 4" {
		t.Errorf("base args = %s", got)
	}
}

func TestTailKeepsLastBytes(t *testing.T) {
	tl := newTail(8)
	tl.Write([]byte("0123456789"))
	tl.Write([]byte("ab"))
	if got := tl.String(); got != "456789ab" {
		t.Errorf("tail = %q", got)
	}
}

func TestBudget(t *testing.T) {
	tests := []struct {
		sec  float64
		want time.Duration
	}{
		{0, time.Minute},
		{6, time.Minute},
		{30, 2 * time.Minute},
		{600, 10 * time.Minute},
	}
	for _, tt := range tests {
		if got := DefaultBudget.For(tt.sec); got != tt.want {
			t.Errorf("For(%v) = %s, want %s", tt.sec, got, tt.want)
		}
	}
}

func TestConcatList(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "list.txt")
	paths := []string{filepath.Join(dir, "seg_0.mp4"), filepath.Join(dir, "it's.mp4")}
	if err := WriteConcatList(list, paths); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(list)
	want := "file '" + paths[0] + "'\nfile '" + filepath.Join(dir, `it'\''s.mp4`) + "'\n"
	if string(data) != want {
		t.Errorf("list =\n%s\nwant\n%s", data, want)
	}
}

func TestConcatArgs(t *testing.T) {
	got := strings.Join(ConcatArgs("l.txt", "out.mp4", ConcatOptions{}), " ")
	if got != "-f concat -safe 0 -i l.txt -c copy -avoid_negative_ts make_zero out.mp4" {
		t.Errorf("copy args = %s", got)
	}
	re := strings.Join(ConcatArgs("l.txt", "out.mp4", ConcatOptions{Reencode: true}), " ")
	for _, want := range []string{"-preset ultrafast", "-crf 28", "-s 1920x1080", "-r 30", "+faststart"} {
		if !strings.Contains(re, want) {
			t.Errorf("reencode args missing %q: %s", want, re)
		}
	}
}

func TestTrimArgs(t *testing.T) {
	got := strings.Join(TrimArgs("in.mov", "out.mov", 1.5, 2.25, false), " ")
	if got != "-ss 1.5 -i in.mov -t 2.25 -c copy -avoid_negative_ts make_zero out.mov" {
		t.Errorf("trim args = %s", got)
	}
	if !strings.Contains(strings.Join(TrimArgs("a", "b", 0, 1, true), " "), "-c:v libx264 -preset fast -crf 23 -c:a aac") {
		t.Error("reencode trim args")
	}
}

func TestOutputName(t *testing.T) {
	for in, want := range map[string]string{
		"final":            "final.mp4",
		"final.MP4":        "final.MP4",
		"":                 "final_video.mp4",
		"../../etc/passwd": "passwd.mp4",
	} {
		if got := OutputName(in, "final_video"); got != want {
			t.Errorf("OutputName(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestDenoiseArgsQuotesModel(t *testing.T) {
	args := DenoiseArgs("in.wav", "/models/it's/sh.rnnn", "out.wav")
	if args[3] != `arnndn=m='/models/it'\''s/sh.rnnn',loudnorm=I=-20:TP=-3:LRA=11` {
		t.Errorf("filter = %s", args[3])
	}
}

type fakeRunner struct {
	args [][]string
	err  error
	// write creates the last argument as a file
	write bool
}

func (f *fakeRunner) Run(_ context.Context, args []string, _ time.Duration) (*ProcessResult, error) {
	f.args = append(f.args, args)
	if f.err != nil {
		return &ProcessResult{Stderr: "boom"}, f.err
	}
	if f.write {
		if err := os.WriteFile(args[len(args)-1], []byte("data"), 0644); err != nil {
			return nil, err
		}
	}
	return &ProcessResult{}, nil
}

func TestRenderMissingOutput(t *testing.T) {
	prog := &composer.Program{InputArgs: []string{"-i", "a.mp4"}, FilterComplex: "[0:v]null[final]", Maps: []string{"-map", "[final]"}, Duration: 2}
	out := filepath.Join(t.TempDir(), "out.mp4")
	_, err := Render(context.Background(), &fakeRunner{}, prog, Encoding{Video: []string{"-c:v", "libx264"}}, out, time.Minute)
	if !IsKind(err, KindOutputMissing) {
		t.Errorf("err = %v", err)
	}
	r := &fakeRunner{write: true}
	if _, err := Render(context.Background(), r, prog, Encoding{Video: []string{"-c:v", "libx264"}, FPS: 30}, out, time.Minute); err != nil {
		t.Errorf("render: %v", err)
	}
	joined := strings.Join(r.args[0], " ")
	if !strings.Contains(joined, "-c:v libx264 -r 30 -pix_fmt yuv420p -movflags +faststart -t 2 "+out) {
		t.Errorf("args = %s", joined)
	}
}

func TestExtractAudioFallsBack(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "clip.mov")
	got, err := ExtractAudio(context.Background(), &fakeRunner{err: &RenderError{Kind: KindFailed}}, in, filepath.Join(dir, "a.wav"))
	if err == nil || got != in {
		t.Errorf("got %s, %v", got, err)
	}
	got, err = ExtractAudio(context.Background(), &fakeRunner{write: true}, in, filepath.Join(dir, "a.wav"))
	if err != nil || got != filepath.Join(dir, "a.wav") {
		t.Errorf("got %s, %v", got, err)
	}
}

func TestIsContainer(t *testing.T) {
	if !IsContainer("a.MKV") || IsContainer("a.wav") {
		t.Error("IsContainer mismatch")
	}
}

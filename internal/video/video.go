// Package video runs ffmpeg: one bounded, observable child process per call.
package video

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TailSize bounds how much of each output stream is kept for diagnostics.
const TailSize = 64 << 10

// ErrorKind classifies a failed render.
type ErrorKind string

const (
	KindTimeout       ErrorKind = "timeout"
	KindFailed        ErrorKind = "failed"
	KindOutputMissing ErrorKind = "output missing"
)

// RenderError is the single terminal error type for ffmpeg invocations.
type RenderError struct {
	Kind     ErrorKind
	ExitCode int
	Timeout  time.Duration
	Tail     string // last bytes of stderr
	Err      error
}

func (e *RenderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ffmpeg %s", e.Kind)
	switch e.Kind {
	case KindTimeout:
		fmt.Fprintf(&b, " after %s", e.Timeout)
	case KindFailed:
		fmt.Fprintf(&b, " (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if tail := lastLine(e.Tail); tail != "" {
		fmt.Fprintf(&b, ": %s", tail)
	}
	return b.String()
}

func (e *RenderError) Unwrap() error { return e.Err }

// IsKind reports whether err carries a RenderError of kind k.
func IsKind(err error, k ErrorKind) bool {
	var re *RenderError
	return errors.As(err, &re) && re.Kind == k
}

// ProcessResult describes one finished child process.
type ProcessResult struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
}

// Runner executes ffmpeg with the given arguments.
type Runner interface {
	Run(ctx context.Context, args []string, timeout time.Duration) (*ProcessResult, error)
}

// Executor runs a real ffmpeg binary.
type Executor struct {
	logger     zerolog.Logger
	ffmpegPath string
	threads    int
	// waitDelay bounds pipe draining after the process is killed.
	waitDelay time.Duration
}

// New resolves ffmpeg (a bare name is looked up in PATH).
func New(logger zerolog.Logger, ffmpegPath string, threads int) (*Executor, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	path, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return nil, errors.Wrapf(err, "ffmpeg not found (%s)", ffmpegPath)
	}
	return newExecutor(logger, path, threads), nil
}

func newExecutor(logger zerolog.Logger, path string, threads int) *Executor {
	return &Executor{
		logger:     logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath: path,
		threads:    threads,
		waitDelay:  5 * time.Second,
	}
}

// baseArgs go before the caller's arguments.
func (e *Executor) baseArgs() []string {
	args := []string{"-y", "-hide_banner", "-nostdin", "-loglevel", "warning"}
	if e.threads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", e.threads))
	}
	return args
}

// Run starts ffmpeg and waits for it, killing it when timeout elapses.
// stdout and stderr are drained concurrently so a chatty child never blocks.
func (e *Executor) Run(ctx context.Context, args []string, timeout time.Duration) (*ProcessResult, error) {
	if len(args) == 0 {
		return nil, errors.New("no arguments provided")
	}
	full := append(e.baseArgs(), args...)
	return e.run(ctx, e.ffmpegPath, full, timeout)
}

func (e *Executor) run(ctx context.Context, bin string, args []string, timeout time.Duration) (*ProcessResult, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	e.logger.Debug().Str("cmd", bin).Strs("args", args).Msg("executing ffmpeg")

	cmd := exec.CommandContext(runCtx, bin, args...)
	cmd.Cancel = func() error { return cmd.Process.Kill() }
	cmd.WaitDelay = e.waitDelay

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stderr pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdout pipe")
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "start ffmpeg")
	}

	errTail, outTail := newTail(TailSize), newTail(TailSize)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = io.Copy(errTail, stderr)
	}()
	go func() {
		defer wg.Done()
		_, _ = io.Copy(outTail, stdout)
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	res := &ProcessResult{
		Args:     args,
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   outTail.String(),
		Stderr:   errTail.String(),
		Elapsed:  time.Since(start),
	}

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		e.logger.Warn().Dur("timeout", timeout).Dur("elapsed", res.Elapsed).Msg("ffmpeg timed out, process killed")
		return res, &RenderError{Kind: KindTimeout, ExitCode: res.ExitCode, Timeout: timeout, Tail: res.Stderr}
	case ctx.Err() != nil:
		return res, errors.WithStack(ctx.Err())
	case waitErr != nil:
		e.logger.Debug().Int("exit", res.ExitCode).Str("stderr", lastLine(res.Stderr)).Msg("ffmpeg failed")
		return res, &RenderError{Kind: KindFailed, ExitCode: res.ExitCode, Tail: res.Stderr, Err: waitErr}
	}
	e.logger.Debug().Dur("elapsed", res.Elapsed).Msg("ffmpeg execution completed")
	return res, nil
}

// tail keeps the last max bytes written to it.
type tail struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newTail(max int) *tail { return &tail{max: max} }

func (t *tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

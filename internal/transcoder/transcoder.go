package transcoder

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"media-deriver/internal/logging"
)

// Sentinel errors for the failure taxonomy of the video pipeline.
var (
	// ErrProbe indicates ffprobe failed or produced unparseable output.
	ErrProbe = errors.New("probe failed")

	// ErrThumbnail indicates both the primary and fallback frame grabs failed.
	ErrThumbnail = errors.New("thumbnail extraction failed")

	// ErrTranscode indicates ffmpeg could not be started or exited non-zero.
	ErrTranscode = errors.New("transcode failed")

	// ErrUpload indicates the streaming upload failed or did not complete in time.
	ErrUpload = errors.New("upload failed")

	// ErrIO indicates a local temp file or conduit could not be created.
	ErrIO = errors.New("local i/o failed")
)

// CommandFunc constructs an external command. exec.CommandContext satisfies it.
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// waitDelay bounds how long Wait blocks on I/O after a process is killed.
const waitDelay = 5 * time.Second

// Runner starts ffmpeg and ffprobe and tracks the processes it has running so
// they can be terminated on shutdown.
type Runner struct {
	FFmpeg  string
	FFprobe string

	command   CommandFunc
	processes map[*exec.Cmd]string
	processMu sync.Mutex
}

// NewRunner creates a Runner. Empty binary paths default to "ffmpeg" and
// "ffprobe"; a nil command defaults to exec.CommandContext.
func NewRunner(ffmpeg, ffprobe string, command CommandFunc) *Runner {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	if command == nil {
		command = exec.CommandContext
	}
	return &Runner{
		FFmpeg:    ffmpeg,
		FFprobe:   ffprobe,
		command:   command,
		processes: make(map[*exec.Cmd]string),
	}
}

func (r *Runner) ffmpeg(ctx context.Context, args ...string) *exec.Cmd {
	cmd := r.command(ctx, r.FFmpeg, args...)
	cmd.WaitDelay = waitDelay
	return cmd
}

func (r *Runner) ffprobe(ctx context.Context, args ...string) *exec.Cmd {
	cmd := r.command(ctx, r.FFprobe, args...)
	cmd.WaitDelay = waitDelay
	return cmd
}

// track registers a started process and returns a func that unregisters it.
func (r *Runner) track(cmd *exec.Cmd, label string) func() {
	r.processMu.Lock()
	r.processes[cmd] = label
	r.processMu.Unlock()

	return func() {
		r.processMu.Lock()
		delete(r.processes, cmd)
		r.processMu.Unlock()
	}
}

// Active returns the number of tracked running processes.
func (r *Runner) Active() int {
	r.processMu.Lock()
	defer r.processMu.Unlock()
	return len(r.processes)
}

// CheckBinaries verifies that ffmpeg and ffprobe can be found.
func (r *Runner) CheckBinaries() error {
	for _, bin := range []string{r.FFmpeg, r.FFprobe} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not available: %w", bin, err)
		}
	}
	return nil
}

// Cleanup kills all tracked processes.
func (r *Runner) Cleanup() {
	r.processMu.Lock()
	defer r.processMu.Unlock()

	for cmd, label := range r.processes {
		if cmd.Process != nil {
			logging.Info("Killing transcoding process for: %s", label)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill transcoding process for %s: %v", label, err)
			}
		}
	}
}

package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"media-deriver/internal/logging"
	"media-deriver/internal/mediatypes"
)

// DefaultThumbnailTimeout bounds the primary frame grab.
const DefaultThumbnailTimeout = 10 * time.Second

// ThumbnailOffset returns the seek position, in seconds, for the thumbnail
// frame: the midpoint of short clips, otherwise min(3s, duration/10).
func ThumbnailOffset(duration float64) float64 {
	if duration < 10 {
		return max(duration, 0) / 2
	}
	return math.Min(3, duration/10)
}

// Thumbnail is a frame extracted to a local file.
type Thumbnail struct {
	// Path is a local temp file owned by the caller.
	Path   string
	Offset float64
	// Fallback reports whether the first-frame fallback produced the file.
	Fallback bool
}

// Extractor grabs a single frame as a thumbnail image.
type Extractor struct {
	runner  *Runner
	timeout time.Duration
	tempDir string
}

// NewExtractor creates an Extractor. A non-positive timeout uses
// DefaultThumbnailTimeout; an empty tempDir uses os.TempDir.
func NewExtractor(runner *Runner, timeout time.Duration, tempDir string) *Extractor {
	if timeout <= 0 {
		timeout = DefaultThumbnailTimeout
	}
	return &Extractor{runner: runner, timeout: timeout, tempDir: tempDir}
}

// Extract writes a frame from url, scaled to height, to a temp file. The
// primary attempt seeks to ThumbnailOffset(duration) within the timeout; if
// it fails, the first frame is grabbed with no time limit. The returned file
// is removed on error.
func (e *Extractor) Extract(ctx context.Context, url string, duration float64, height int) (Thumbnail, error) {
	if height <= 0 {
		height = mediatypes.DefaultThumbnailHeight
	}

	f, err := os.CreateTemp(e.tempDir, "thumb-*"+mediatypes.ImageOutputExtension)
	if err != nil {
		return Thumbnail{}, fmt.Errorf("%w: create thumbnail temp file: %v", ErrIO, err)
	}
	out := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(out)
		return Thumbnail{}, fmt.Errorf("%w: %v", ErrIO, err)
	}

	offset := ThumbnailOffset(duration)
	thumb := Thumbnail{Path: out, Offset: offset}

	primaryCtx, cancel := context.WithTimeout(ctx, e.timeout)
	primaryErr := e.grab(primaryCtx, url, out, height, offset, true)
	cancel()
	if primaryErr == nil {
		return thumb, nil
	}

	if ctx.Err() != nil {
		_ = os.Remove(out)
		return Thumbnail{}, fmt.Errorf("%w: %w", ErrThumbnail, ctx.Err())
	}

	logging.Warn("Thumbnail at %.2fs failed (%v), falling back to first frame", offset, primaryErr)

	if err := e.grab(ctx, url, out, height, 0, false); err != nil {
		_ = os.Remove(out)
		if ctx.Err() != nil {
			return Thumbnail{}, fmt.Errorf("%w: %w", ErrThumbnail, ctx.Err())
		}
		return Thumbnail{}, fmt.Errorf("%w: primary: %v; fallback: %v", ErrThumbnail, primaryErr, err)
	}

	thumb.Offset = 0
	thumb.Fallback = true
	return thumb, nil
}

func (e *Extractor) grab(ctx context.Context, url, out string, height int, offset float64, seek bool) error {
	cmd := e.runner.ffmpeg(ctx, ThumbnailArgs(url, out, height, offset, seek)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("timed out after %v", e.timeout)
		}
		return fmt.Errorf("ffmpeg: %v - %s", err, lastLines(stderr.String(), 3))
	}

	info, err := os.Stat(out)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("ffmpeg produced an empty frame")
	}
	return nil
}

// ThumbnailArgs builds the ffmpeg arguments for a single-frame grab. When seek
// is false the first frame is used.
func ThumbnailArgs(url, out string, height int, offset float64, seek bool) []string {
	args := []string{"-hide_banner", "-nostdin", "-y"}
	if seek {
		args = append(args, "-ss", strconv.FormatFloat(offset, 'f', 3, 64))
	}
	return append(args,
		"-i", url,
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale=-2:%d:flags=accurate_rnd,format=yuv420p", height),
		"-c:v", "libwebp",
		"-pix_fmt", "yuv420p",
		"-quality", strconv.Itoa(mediatypes.ImageOutputQuality),
		out,
	)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

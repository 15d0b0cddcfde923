package transcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultProbeTimeout bounds a single ffprobe invocation.
const DefaultProbeTimeout = 2 * time.Minute

// VideoMetadata is the subset of probe output the pipeline needs.
type VideoMetadata struct {
	Duration float64 `json:"duration"`
	// Height is 0 when unknown.
	Height int `json:"height"`
}

// Prober extracts VideoMetadata with ffprobe.
type Prober struct {
	runner  *Runner
	timeout time.Duration
}

// NewProber creates a Prober. A non-positive timeout uses DefaultProbeTimeout.
func NewProber(runner *Runner, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{runner: runner, timeout: timeout}
}

// Probe runs ffprobe once against url, which may be a signed URL or a local
// path. Any failure is wrapped in ErrProbe.
func (p *Prober) Probe(ctx context.Context, url string) (VideoMetadata, error) {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := p.runner.ffprobe(ctx,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		url,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if parent.Err() != nil {
			return VideoMetadata{}, fmt.Errorf("%w: %w", ErrProbe, parent.Err())
		}
		if ctx.Err() == context.DeadlineExceeded {
			return VideoMetadata{}, fmt.Errorf("%w: ffprobe timed out after %v", ErrProbe, p.timeout)
		}
		return VideoMetadata{}, fmt.Errorf("%w: ffprobe: %v - %s", ErrProbe, err, strings.TrimSpace(stderr.String()))
	}

	meta, err := ParseProbeJSON(stdout.Bytes())
	if err != nil {
		return VideoMetadata{}, fmt.Errorf("%w: %v", ErrProbe, err)
	}
	return meta, nil
}

// ParseProbeJSON extracts VideoMetadata from ffprobe JSON output. Duration
// comes from the first video stream, falling back to the container duration;
// height comes from the first video stream. Output with neither duration
// reports zero.
func ParseProbeJSON(data []byte) (VideoMetadata, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return VideoMetadata{}, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	var video *ffprobeStream
	for i := range raw.Streams {
		if raw.Streams[i].CodecType == "video" {
			video = &raw.Streams[i]
			break
		}
	}

	var meta VideoMetadata
	durationText := raw.Format.Duration
	if video != nil {
		meta.Height = max(video.Height, 0)
		if video.Duration != "" {
			durationText = video.Duration
		}
	}

	if durationText == "" {
		// Unknown duration; the thumbnail falls back to offset 0.
		return meta, nil
	}
	d, err := strconv.ParseFloat(durationText, 64)
	if err != nil {
		return VideoMetadata{}, fmt.Errorf("parse duration %q: %w", durationText, err)
	}
	meta.Duration = max(d, 0)

	return meta, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

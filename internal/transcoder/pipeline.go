package transcoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"media-deriver/internal/layout"
	"media-deriver/internal/logging"
	"media-deriver/internal/mediatypes"
	"media-deriver/internal/streaming"
)

// Pipeline defaults.
const (
	DefaultSignedURLTTL = 4 * time.Hour
	DefaultUploadWait   = 60 * time.Second
)

// ObjectStore is the store capability the pipeline uses.
type ObjectStore interface {
	SignedURL(ctx context.Context, key, method string, ttl time.Duration) (string, error)
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
}

// PipelineConfig tunes a Pipeline. Zero values use defaults.
type PipelineConfig struct {
	TempDir      string
	SignedURLTTL time.Duration
	// UploadWait bounds the wait for the upload after ffmpeg exits.
	UploadWait time.Duration
	// IdleTimeout aborts the upload when ffmpeg stops producing output.
	IdleTimeout time.Duration
}

// PipelineResult describes the artifacts of one video.
type PipelineResult struct {
	// ThumbnailPath is a local file owned by the caller.
	ThumbnailPath string
	// CompressedPath is the object key the compressed rendition was written to.
	CompressedPath string
	// MimeType and Extension describe the thumbnail.
	MimeType  string
	Extension string

	Metadata          VideoMetadata
	Settings          CompressionSettings
	Report            CompressionReport
	ThumbnailFallback bool
}

// Pipeline probes, thumbnails, and transcodes one video, streaming the
// transcoder output straight into the object store.
type Pipeline struct {
	store     ObjectStore
	runner    *Runner
	prober    *Prober
	extractor *Extractor
	cfg       PipelineConfig

	// OnState, if set, is called on every state transition.
	OnState func(asset string, s State)
	// OnProgress, if set, receives ffmpeg status lines.
	OnProgress func(asset string, p Progress)
}

// NewPipeline creates a Pipeline.
func NewPipeline(store ObjectStore, runner *Runner, prober *Prober, extractor *Extractor, cfg PipelineConfig) *Pipeline {
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = DefaultSignedURLTTL
	}
	if cfg.UploadWait <= 0 {
		cfg.UploadWait = DefaultUploadWait
	}
	return &Pipeline{
		store:     store,
		runner:    runner,
		prober:    prober,
		extractor: extractor,
		cfg:       cfg,
	}
}

// Run executes the pipeline for asset. asset.Size must be known. opts should
// already be resolved against defaults. On success the caller owns the
// thumbnail file; on failure every temp resource has been removed.
func (p *Pipeline) Run(ctx context.Context, asset mediatypes.Asset, opts mediatypes.ProcessingOptions) (res PipelineResult, err error) {
	log := logging.With("asset", asset.Path)
	start := time.Now()

	var (
		thumbPath string
		c         *conduit
	)

	enter := func(s State) {
		log.Debugw("Pipeline state", "state", s.String())
		if p.OnState != nil {
			p.OnState(asset.Path, s)
		}
	}

	defer func() {
		if c != nil {
			if cerr := c.Close(); cerr != nil {
				log.Warnw("Failed to remove conduit", "error", cerr)
			}
		}
		if err != nil {
			if thumbPath != "" {
				_ = os.Remove(thumbPath)
			}
			res = PipelineResult{}
			enter(StateFailed)
			return
		}
		enter(StateDone)
	}()

	enter(StateInit)

	url, err := p.store.SignedURL(ctx, asset.Path, "GET", p.cfg.SignedURLTTL)
	if err != nil {
		return res, fmt.Errorf("%w: sign source url: %v", ErrProbe, err)
	}

	meta, err := p.prober.Probe(ctx, url)
	if err != nil {
		return res, err
	}
	res.Metadata = meta
	enter(StateProbed)

	settings := SelectSettings(asset.Size).Clamp(meta.Height)
	res.Settings = settings
	log.Infow("Selected compression settings",
		"bucket", settings.Bucket.String(),
		"crf", settings.CRF,
		"height", settings.Height,
		"audio_kbps", settings.AudioBitrateKbps,
		"source_height", meta.Height,
		"duration", meta.Duration,
	)
	enter(StateSettingsChosen)

	thumb, err := p.extractor.Extract(ctx, url, meta.Duration, opts.ThumbnailHeight)
	if err != nil {
		return res, err
	}
	thumbPath = thumb.Path
	res.ThumbnailFallback = thumb.Fallback
	enter(StateThumbnailReady)

	c, err = openConduit(p.cfg.TempDir)
	if err != nil {
		return res, err
	}
	enter(StatePipeOpened)

	key := layout.CompressedPath(asset.Path, opts.VideoFormat)

	uploadCtx, cancelUpload := context.WithCancel(ctx)
	defer cancelUpload()

	readerCfg := streaming.DefaultReaderConfig()
	readerCfg.IdleTimeout = p.cfg.IdleTimeout
	readerCfg.OnProgress = func(n int64, d time.Duration) {
		log.Debugw("Upload progress", "bytes", n, "elapsed", d.Round(time.Second).String())
	}
	gate := newExitGate()
	committed := &commitReader{ctx: uploadCtx, r: c.Reader(), gate: gate}
	body := streaming.NewProgressReader(uploadCtx, committed, readerCfg)
	defer body.Close()

	uploaded := make(chan error, 1)
	go func() {
		uploaded <- p.store.Put(body.Context(), key, body, opts.VideoFormat.MimeType())
	}()
	enter(StateUploaderStarted)

	procCtx, killProc := context.WithCancel(ctx)
	defer killProc()

	cmd := p.runner.ffmpeg(procCtx, TranscodeArgs(url, settings, opts.VideoFormat)...)
	cmd.Stdout = c.Writer()
	stderr, err := cmd.StderrPipe()
	if err != nil {
		gate.set(err)
		cancelUpload()
		return res, fmt.Errorf("%w: stderr pipe: %v", ErrIO, err)
	}

	if err := cmd.Start(); err != nil {
		gate.set(err)
		cancelUpload()
		return res, fmt.Errorf("%w: start ffmpeg: %v", ErrTranscode, err)
	}
	untrack := p.runner.track(cmd, asset.Path)
	defer untrack()

	// ffmpeg holds its own copy; the uploader sees EOF once ffmpeg exits.
	c.releaseWriter()
	enter(StateTranscodeRunning)

	tail := newTailBuffer(20)
	exited := make(chan error, 1)
	go func() {
		consumeStderr(stderr, tail, func(pr Progress) {
			log.Debugw("FFmpeg progress", "frame", pr.Frame, "fps", pr.FPS, "time", pr.Time, "speed", pr.Speed)
			if p.OnProgress != nil {
				p.OnProgress(asset.Path, pr)
			}
		})
		werr := cmd.Wait()
		gate.set(werr)
		exited <- werr
	}()

	var (
		waitErr    error
		uploadErr  error
		uploadDone bool
	)
	select {
	case waitErr = <-exited:
	case uploadErr = <-uploaded:
		uploadDone = true
		if uploadErr != nil {
			// Nobody is draining the conduit; stop the producer.
			killProc()
			<-exited
			if ctx.Err() != nil {
				return res, fmt.Errorf("%w: %w", ErrTranscode, ctx.Err())
			}
			return res, fmt.Errorf("%w: %s: %v", ErrUpload, key, uploadErr)
		}
		waitErr = <-exited
	}

	if waitErr != nil {
		cancelUpload()
		if !uploadDone {
			select {
			case <-uploaded:
			case <-time.After(p.cfg.UploadWait):
				log.Warnw("Uploader did not stop after transcode failure")
			}
		}
		if ctx.Err() != nil {
			return res, fmt.Errorf("%w: %w", ErrTranscode, ctx.Err())
		}
		return res, fmt.Errorf("%w: ffmpeg: %v - %s", ErrTranscode, waitErr, tail.String())
	}

	enter(StateFinalizing)

	if !uploadDone {
		timer := time.NewTimer(p.cfg.UploadWait)
		defer timer.Stop()
		select {
		case uploadErr = <-uploaded:
		case <-timer.C:
			cancelUpload()
			return res, fmt.Errorf("%w: %s: not complete %v after transcode finished", ErrUpload, key, p.cfg.UploadWait)
		case <-ctx.Done():
			return res, fmt.Errorf("%w: %w", ErrUpload, ctx.Err())
		}
	}
	if uploadErr != nil {
		if errors.Is(uploadErr, context.Canceled) && ctx.Err() != nil {
			return res, fmt.Errorf("%w: %w", ErrUpload, ctx.Err())
		}
		return res, fmt.Errorf("%w: %s: %v", ErrUpload, key, uploadErr)
	}

	written, _ := body.Stats()
	res.Report = CompressionReport{
		OriginalBytes:   asset.Size,
		CompressedBytes: written,
		Elapsed:         time.Since(start),
	}
	log.Infow("Video compression complete", res.Report.Fields()...)

	res.ThumbnailPath = thumbPath
	res.CompressedPath = key
	res.MimeType = mediatypes.ImageOutputMimeType
	res.Extension = mediatypes.ImageOutputExtension
	return res, nil
}

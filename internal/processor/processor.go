// Package processor derives the artifacts of a single asset: a thumbnail for
// images, and a thumbnail plus compressed rendition for video. It is the unit
// of work the dispatch orchestrator runs in each worker slot.
package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"media-deriver/internal/layout"
	"media-deriver/internal/logging"
	"media-deriver/internal/media"
	"media-deriver/internal/mediatypes"
	"media-deriver/internal/metrics"
	"media-deriver/internal/reporting"
	"media-deriver/internal/storage"
	"media-deriver/internal/transcoder"
)

// ErrStorage wraps object store failures outside the video pipeline.
var ErrStorage = errors.New("storage error")

// Outcome is the result of processing one asset.
type Outcome string

const (
	// OutcomeProcessed means artifacts were derived and written.
	OutcomeProcessed Outcome = "processed"
	// OutcomeSkipped means every artifact already existed.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeUnsupported means the asset is neither image nor video.
	OutcomeUnsupported Outcome = "unsupported"
	// OutcomeIgnored means the key is a derived artifact or directory marker.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeFailed means processing returned an error.
	OutcomeFailed Outcome = "failed"
)

// VideoPipeline runs the video path. *transcoder.Pipeline implements it.
type VideoPipeline interface {
	Run(ctx context.Context, asset mediatypes.Asset, opts mediatypes.ProcessingOptions) (transcoder.PipelineResult, error)
}

// Config holds the immutable settings of a Processor.
type Config struct {
	// Defaults fill options a trigger leaves unset.
	Defaults mediatypes.ProcessingOptions
	// TempDir holds image thumbnails before upload. Empty uses os.TempDir.
	TempDir string
	// Reporter receives failures. May be nil.
	Reporter *reporting.Reporter
	// OnVideoResult, if set, is called after a video succeeds.
	OnVideoResult func(transcoder.PipelineResult)
}

// Processor processes single assets against an object store.
type Processor struct {
	store storage.ObjectStore
	video VideoPipeline
	cfg   Config
}

// New creates a Processor.
func New(store storage.ObjectStore, video VideoPipeline, cfg Config) *Processor {
	cfg.Defaults = cfg.Defaults.Resolve(mediatypes.DefaultOptions())
	return &Processor{store: store, video: video, cfg: cfg}
}

// Defaults returns the resolved default options.
func (p *Processor) Defaults() mediatypes.ProcessingOptions {
	return p.cfg.Defaults
}

// Process derives the artifacts for asset. Derived keys, markers, and
// unsupported types return a non-failure outcome with a nil error. An asset
// whose artifacts already exist is skipped.
func (p *Processor) Process(ctx context.Context, asset mediatypes.Asset, opts mediatypes.ProcessingOptions) (Outcome, error) {
	kind := asset.Classification()
	log := logging.With("asset", asset.Path, "kind", string(kind))

	if layout.IsDerived(asset.Path) || layout.IsMarker(asset.Path) {
		log.Debugw("Ignoring derived object")
		return p.record(kind, OutcomeIgnored), nil
	}
	if kind == mediatypes.ClassUnknown {
		log.Debugw("Skipping unsupported asset", "content_type", asset.ContentType)
		return p.record(kind, OutcomeUnsupported), nil
	}

	opts = opts.Resolve(p.cfg.Defaults)
	start := time.Now()

	done, err := AlreadyProcessed(ctx, p.store, asset, opts.VideoFormat)
	if err != nil {
		return p.fail(asset, kind, fmt.Errorf("%w: idempotency check: %w", ErrStorage, err))
	}
	if done {
		log.Infow("Already processed, skipping")
		return p.record(kind, OutcomeSkipped), nil
	}

	switch kind {
	case mediatypes.ClassImage:
		err = p.processImage(ctx, asset, opts)
	case mediatypes.ClassVideo:
		err = p.processVideo(ctx, asset, opts)
	}
	if err != nil {
		return p.fail(asset, kind, err)
	}

	elapsed := time.Since(start)
	metrics.AssetProcessingDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	log.Infow("Asset processed", "elapsed", elapsed.Round(time.Millisecond).String())
	return p.record(kind, OutcomeProcessed), nil
}

// AlreadyProcessed reports whether every artifact for asset exists: the
// thumbnail for images, thumbnail and compressed rendition for video.
func AlreadyProcessed(ctx context.Context, store storage.ObjectStore, asset mediatypes.Asset, format mediatypes.VideoFormat) (bool, error) {
	keys := []string{layout.ThumbnailPath(asset.Path)}
	if asset.Classification() == mediatypes.ClassVideo {
		keys = append(keys, layout.CompressedPath(asset.Path, format))
	}
	for _, key := range keys {
		ok, err := store.Exists(ctx, key)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (p *Processor) processImage(ctx context.Context, asset mediatypes.Asset, opts mediatypes.ProcessingOptions) error {
	thumbs, _ := layout.MarkerPaths(asset.Path)
	if err := storage.EnsureMarker(ctx, p.store, thumbs); err != nil {
		return fmt.Errorf("%w: marker %s: %w", ErrStorage, thumbs, err)
	}

	src, err := p.store.Get(ctx, asset.Path)
	if err != nil {
		return fmt.Errorf("%w: get source: %w", ErrStorage, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(p.cfg.TempDir, "thumb-*"+mediatypes.ImageOutputExtension)
	if err != nil {
		return fmt.Errorf("%w: %v", transcoder.ErrIO, err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	res, err := media.EncodeThumbnail(ctx, src, tmp, opts.ThumbnailHeight)
	if err != nil {
		return err
	}
	logging.With("asset", asset.Path).Debugw("Encoded image thumbnail",
		"source", fmt.Sprintf("%dx%d", res.SourceWidth, res.SourceHeight),
		"output", fmt.Sprintf("%dx%d", res.Width, res.Height),
		"orientation", res.Orientation)

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", transcoder.ErrIO, err)
	}
	return p.putThumbnail(ctx, asset, tmp)
}

func (p *Processor) processVideo(ctx context.Context, asset mediatypes.Asset, opts mediatypes.ProcessingOptions) error {
	thumbs, compressed := layout.MarkerPaths(asset.Path)
	for _, marker := range []string{thumbs, compressed} {
		if err := storage.EnsureMarker(ctx, p.store, marker); err != nil {
			return fmt.Errorf("%w: marker %s: %w", ErrStorage, marker, err)
		}
	}

	if asset.Size <= 0 {
		info, err := p.store.Stat(ctx, asset.Path)
		if err != nil {
			return fmt.Errorf("%w: stat source: %w", ErrStorage, err)
		}
		asset.Size = info.Size
	}

	res, err := p.video.Run(ctx, asset, opts)
	if err != nil {
		return err
	}
	defer os.Remove(res.ThumbnailPath)

	f, err := os.Open(res.ThumbnailPath)
	if err != nil {
		return fmt.Errorf("%w: %v", transcoder.ErrIO, err)
	}
	defer f.Close()

	if err := p.putThumbnail(ctx, asset, f); err != nil {
		return err
	}
	if p.cfg.OnVideoResult != nil {
		p.cfg.OnVideoResult(res)
	}
	return nil
}

func (p *Processor) putThumbnail(ctx context.Context, asset mediatypes.Asset, body io.Reader) error {
	key := layout.ThumbnailPath(asset.Path)
	if err := p.store.Put(ctx, key, body, mediatypes.ImageOutputMimeType); err != nil {
		return fmt.Errorf("%w: put %s: %w", transcoder.ErrUpload, key, err)
	}
	return nil
}

func (p *Processor) record(kind mediatypes.Classification, o Outcome) Outcome {
	metrics.AssetsProcessedTotal.WithLabelValues(string(kind), string(o)).Inc()
	return o
}

func (p *Processor) fail(asset mediatypes.Asset, kind mediatypes.Classification, err error) (Outcome, error) {
	reason := Reason(err)
	metrics.AssetFailuresTotal.WithLabelValues(string(kind), reason).Inc()
	logging.With("asset", asset.Path, "kind", string(kind)).Errorw("Asset failed", "reason", reason, "error", err)
	if reason != "canceled" {
		p.cfg.Reporter.AssetFailure(asset, reason, err)
	}
	return p.record(kind, OutcomeFailed), err
}

// Reason maps an error to a stable label for metrics and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, transcoder.ErrProbe):
		return "probe"
	case errors.Is(err, transcoder.ErrThumbnail):
		return "thumbnail"
	case errors.Is(err, transcoder.ErrTranscode):
		return "transcode"
	case errors.Is(err, transcoder.ErrUpload):
		return "upload"
	case errors.Is(err, transcoder.ErrIO):
		return "io"
	case errors.Is(err, media.ErrEncode):
		return "encode"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "other"
	}
}

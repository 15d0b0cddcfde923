// Package app assembles the storage, transcoder, and processing components
// shared by the server and the bulk runner.
package app

import (
	"context"
	"net/http"
	"os"
	"time"

	"media-deriver/internal/dispatch"
	"media-deriver/internal/filesystem"
	"media-deriver/internal/logging"
	"media-deriver/internal/memory"
	"media-deriver/internal/metrics"
	"media-deriver/internal/processor"
	"media-deriver/internal/reporting"
	"media-deriver/internal/startup"
	"media-deriver/internal/storage"
	"media-deriver/internal/transcoder"
)

// Components are the wired processing dependencies.
type Components struct {
	Store     storage.ObjectStore
	Location  string
	Runner    *transcoder.Runner
	Processor *processor.Processor
	Reporter  *reporting.Reporter
}

// Build opens the configured store and wires the processor to it.
func Build(ctx context.Context, config *startup.Config) (*Components, error) {
	reporter, err := reporting.New(reporting.Config{
		DSN:         config.SentryDSN,
		Environment: config.SentryEnvironment,
		Release:     startup.Version,
	})
	if err != nil {
		logging.Warn("Error reporting disabled: %v", err)
	}

	filesystem.SetObserver(metrics.FilesystemObserver{})
	store, location, err := OpenStore(ctx, config)
	if err != nil {
		return nil, err
	}
	startup.LogStorageInit(config.StorageBackend, location)

	runner := transcoder.NewRunner(config.FFmpegPath, config.FFprobePath, nil)
	startup.LogTranscoderInit(runner)

	observer := metrics.NewPipelineObserver()
	pipeline := transcoder.NewPipeline(store, runner,
		transcoder.NewProber(runner, config.ProbeTimeout),
		transcoder.NewExtractor(runner, config.ThumbnailTimeout, config.TempDir),
		transcoder.PipelineConfig{
			TempDir:      config.TempDir,
			SignedURLTTL: config.SignedURLTTL,
			UploadWait:   config.UploadWait,
			IdleTimeout:  config.IdleTimeout,
		})
	pipeline.OnState = observer.OnState

	proc := processor.New(store, pipeline, processor.Config{
		Defaults:      config.Defaults,
		TempDir:       config.TempDir,
		Reporter:      reporter,
		OnVideoResult: observer.ObserveResult,
	})

	return &Components{
		Store:     store,
		Location:  location,
		Runner:    runner,
		Processor: proc,
		Reporter:  reporter,
	}, nil
}

// OpenStore opens the configured object store and describes its location.
func OpenStore(ctx context.Context, config *startup.Config) (storage.ObjectStore, string, error) {
	if config.StorageBackend == startup.BackendS3 {
		s3, err := storage.NewS3(ctx, config.S3)
		if err != nil {
			return nil, "", err
		}
		return s3, "s3://" + config.S3.Bucket, nil
	}
	local, err := storage.NewLocal(config.LocalStorageRoot)
	if err != nil {
		return nil, "", err
	}
	return local, local.Root(), nil
}

// NewPool returns a RemotePool over remote when it is non-empty, otherwise
// an in-process pool of size slots held back by gate when gate is non-nil.
// A zero remoteTimeout leaves remote calls bounded only by ctx.
func NewPool(proc dispatch.AssetProcessor, size int, remote []string, remoteTimeout time.Duration, gate dispatch.Gate) (dispatch.WorkerPool, error) {
	if len(remote) > 0 {
		host, _ := os.Hostname()
		var client *http.Client
		if remoteTimeout > 0 {
			client = &http.Client{Timeout: remoteTimeout}
		}
		return dispatch.NewRemotePool(remote, client, "media-deriver://"+host)
	}
	pool := dispatch.NewLocalPool(proc, size)
	if gate != nil {
		pool.WithGate(gate)
	}
	return pool, nil
}

// StartMemoryMonitor applies the configured memory limit and starts a
// monitor for dispatch backpressure. Callers must Stop it.
func StartMemoryMonitor(config *startup.Config) *memory.Monitor {
	memory.Configure(config.MemoryLimit, config.MemoryRatio)
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	return monitor
}

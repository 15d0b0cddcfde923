package handlers

import (
	"context"
	"sync/atomic"
	"time"

	"media-deriver/internal/dispatch"
	"media-deriver/internal/mediatypes"
)

// BulkRunner processes every asset under a folder.
type BulkRunner func(ctx context.Context, folder string, recursive bool, opts mediatypes.ProcessingOptions) (dispatch.Summary, error)

// ActivityReporter reports how many external processes are running.
type ActivityReporter interface {
	Active() int
}

// Handlers serves the trigger and operational endpoints.
type Handlers struct {
	proc     dispatch.AssetProcessor
	bulk     BulkRunner
	activity ActivityReporter
	started  time.Time
	ready    atomic.Bool
}

// New creates Handlers. activity may be nil.
func New(proc dispatch.AssetProcessor, bulk BulkRunner, activity ActivityReporter) *Handlers {
	return &Handlers{
		proc:     proc,
		bulk:     bulk,
		activity: activity,
		started:  time.Now(),
	}
}

// SetReady marks the service ready or not ready for traffic.
func (h *Handlers) SetReady(ready bool) {
	h.ready.Store(ready)
}

// NewBulkRunner enumerates folder in store and runs orch over the result.
func NewBulkRunner(store dispatch.Lister, orch *dispatch.Orchestrator) BulkRunner {
	return func(ctx context.Context, folder string, recursive bool, opts mediatypes.ProcessingOptions) (dispatch.Summary, error) {
		assets, err := dispatch.Enumerate(ctx, store, folder, recursive)
		if err != nil {
			return dispatch.Summary{}, err
		}
		return orch.Run(ctx, assets, opts)
	}
}

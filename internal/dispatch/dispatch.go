// Package dispatch runs the per-asset processor across many assets with a
// fixed number of worker slots. A freed slot is refilled as soon as any unit
// finishes, so scheduling follows completion order rather than submission
// order. The same loop drives in-process workers (LocalPool) and remote
// HTTP workers (RemotePool).
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"media-deriver/internal/layout"
	"media-deriver/internal/logging"
	"media-deriver/internal/mediatypes"
	"media-deriver/internal/metrics"
	"media-deriver/internal/processor"
	"media-deriver/internal/storage"
)

// ErrInterrupted is returned when the run is canceled before every asset
// was dispatched.
var ErrInterrupted = errors.New("dispatch interrupted")

// Summary counts per-asset results. Already processed assets count as
// succeeded; unsupported and derived keys are skipped and not counted.
type Summary struct {
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
	AlreadyDone int `json:"already_done"`
}

// Progress is reported after each unit completes.
type Progress struct {
	Asset     string
	Err       error
	Completed int
	Total     int
	Summary   Summary
}

// Orchestrator schedules assets onto a WorkerPool.
type Orchestrator struct {
	store    storage.ObjectStore
	pool     WorkerPool
	defaults mediatypes.ProcessingOptions

	// OnProgress, if set, is called from the Run goroutine after each unit.
	OnProgress func(Progress)
}

// NewOrchestrator creates an Orchestrator. defaults fill options the caller
// leaves unset and must match the defaults the workers use.
func NewOrchestrator(store storage.ObjectStore, pool WorkerPool, defaults mediatypes.ProcessingOptions) *Orchestrator {
	return &Orchestrator{
		store:    store,
		pool:     pool,
		defaults: defaults.Resolve(mediatypes.DefaultOptions()),
	}
}

type unitResult struct {
	asset   mediatypes.Asset
	already bool
	err     error
}

// Run processes assets with at most pool.Size() in flight. Per-asset
// failures are counted, never returned. Cancellation stops new dispatches,
// waits for in-flight units to unwind, and returns ErrInterrupted.
func (o *Orchestrator) Run(ctx context.Context, assets []mediatypes.Asset, opts mediatypes.ProcessingOptions) (Summary, error) {
	var summary Summary
	opts = opts.Resolve(o.defaults)
	poolName := o.pool.Name()

	pending := make([]mediatypes.Asset, 0, len(assets))
	for _, a := range assets {
		if layout.IsDerived(a.Path) || layout.IsMarker(a.Path) || a.Classification() == mediatypes.ClassUnknown {
			summary.Skipped++
			continue
		}
		pending = append(pending, a)
	}

	total := len(pending)
	logging.Info("Dispatching %d assets on %d %s workers (%d skipped)", total, o.pool.Size(), poolName, summary.Skipped)
	start := time.Now()

	results := make(chan unitResult)
	next, inFlight, completed := 0, 0, 0

	launch := func() bool {
		slot, err := o.pool.Acquire(ctx)
		if err != nil {
			return false
		}
		a := pending[next]
		next++
		inFlight++
		metrics.DispatchInFlight.WithLabelValues(poolName).Inc()

		go func() {
			already, err := o.runUnit(ctx, slot, a, opts)
			o.pool.Release(slot)
			metrics.DispatchInFlight.WithLabelValues(poolName).Dec()
			results <- unitResult{asset: a, already: already, err: err}
		}()
		return true
	}

	for inFlight < o.pool.Size() && next < total {
		if !launch() {
			break
		}
	}

	for inFlight > 0 {
		r := <-results
		inFlight--
		completed++

		switch {
		case r.err != nil:
			summary.Failed++
			logging.With("asset", r.asset.Path).Warnw("Asset failed", "reason", processor.Reason(r.err), "error", r.err)
		case r.already:
			summary.Succeeded++
			summary.AlreadyDone++
		default:
			summary.Succeeded++
		}

		if o.OnProgress != nil {
			o.OnProgress(Progress{Asset: r.asset.Path, Err: r.err, Completed: completed, Total: total, Summary: summary})
		}
		logging.Debug("Progress: %d/%d (succeeded %d, failed %d)", completed, total, summary.Succeeded, summary.Failed)

		if ctx.Err() == nil && next < total {
			launch()
		}
	}

	if next < total || ctx.Err() != nil {
		metrics.DispatchRunsTotal.WithLabelValues(poolName, "interrupted").Inc()
		logging.Warn("Dispatch interrupted after %d/%d assets", completed, total)
		return summary, fmt.Errorf("%w: %d of %d assets not dispatched: %w", ErrInterrupted, total-next, total, context.Cause(ctx))
	}

	metrics.DispatchRunsTotal.WithLabelValues(poolName, "completed").Inc()
	logging.Info("Dispatch complete in %v: %d succeeded (%d already done), %d failed, %d skipped",
		time.Since(start).Round(time.Millisecond), summary.Succeeded, summary.AlreadyDone, summary.Failed, summary.Skipped)
	return summary, nil
}

// runUnit skips assets whose artifacts exist and invokes the pool otherwise.
func (o *Orchestrator) runUnit(ctx context.Context, slot int, a mediatypes.Asset, opts mediatypes.ProcessingOptions) (bool, error) {
	done, err := processor.AlreadyProcessed(ctx, o.store, a, opts.VideoFormat)
	if err != nil {
		return false, fmt.Errorf("%w: idempotency check: %w", processor.ErrStorage, err)
	}
	if done {
		logging.With("asset", a.Path).Debugw("Already processed, skipping")
		return true, nil
	}
	return false, o.pool.Invoke(ctx, slot, a, opts)
}

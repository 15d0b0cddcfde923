package metrics

import (
	"sync"

	"media-deriver/internal/transcoder"
)

// PipelineObserver records video pipeline transitions into the Prometheus
// metrics declared in metrics.go. Its OnState method matches
// transcoder.Pipeline.OnState.
type PipelineObserver struct {
	mu      sync.Mutex
	running map[string]bool
}

// NewPipelineObserver creates a PipelineObserver.
func NewPipelineObserver() *PipelineObserver {
	return &PipelineObserver{running: make(map[string]bool)}
}

// OnState counts the transition and tracks running transcodes.
func (o *PipelineObserver) OnState(asset string, s transcoder.State) {
	PipelineStateTransitionsTotal.WithLabelValues(s.String()).Inc()

	o.mu.Lock()
	defer o.mu.Unlock()

	switch {
	case s == transcoder.StateTranscodeRunning:
		o.running[asset] = true
		TranscodesInFlight.Inc()
	case s == transcoder.StateFinalizing || s.Terminal():
		if o.running[asset] {
			delete(o.running, asset)
			TranscodesInFlight.Dec()
		}
	}
}

// ObserveResult records settings and compression outcome of a finished video.
func (o *PipelineObserver) ObserveResult(res transcoder.PipelineResult) {
	SettingsBucketTotal.WithLabelValues(res.Settings.Bucket.String()).Inc()
	SourceBytesTotal.Add(float64(res.Report.OriginalBytes))
	CompressedBytesTotal.Add(float64(res.Report.CompressedBytes))
	if ratio := res.Report.Ratio(); ratio > 0 {
		CompressionRatio.Observe(ratio)
	}
	if res.ThumbnailFallback {
		ThumbnailFallbacksTotal.Inc()
	}
}

// FilesystemObserver records local storage retries. It satisfies
// filesystem.Observer.
type FilesystemObserver struct{}

// ObserveRetryAttempt counts a retried operation.
func (FilesystemObserver) ObserveRetryAttempt(op string) {
	FilesystemRetryAttempts.WithLabelValues(op).Inc()
}

// ObserveRetryFailure counts an operation that exhausted its retries.
func (FilesystemObserver) ObserveRetryFailure(op string) {
	FilesystemRetryFailures.WithLabelValues(op).Inc()
}

// ObserveStaleError counts an ESTALE result.
func (FilesystemObserver) ObserveStaleError(op string) {
	FilesystemStaleErrors.WithLabelValues(op).Inc()
}

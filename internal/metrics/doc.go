// Package metrics provides Prometheus instrumentation for the media-deriver service.
//
// All metrics are registered with promauto on package load and are prefixed
// with "media_deriver_" to avoid naming collisions with other applications.
//
// # Metric Categories
//
// ## HTTP Metrics
//
// Track trigger and worker endpoint traffic:
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Asset Metrics
//
//   - AssetsProcessedTotal: Counter by media type and outcome
//   - AssetFailuresTotal: Counter by media type and failure reason
//   - AssetProcessingDuration: Histogram of end-to-end derivation time
//
// ## Pipeline Metrics
//
// Fed by PipelineObserver, which is attached to a transcoder.Pipeline:
//   - PipelineStateTransitionsTotal: Counter by target state
//   - TranscodesInFlight: Gauge of running ffmpeg encodes
//   - SettingsBucketTotal, CompressionRatio, SourceBytesTotal, CompressedBytesTotal
//   - ThumbnailFallbacksTotal: first-frame fallbacks
//   - ActiveProcesses: sampled by Collector from the tool runner
//
// ## Dispatch Metrics
//
//   - DispatchInFlight: Gauge of occupied worker slots per pool
//   - DispatchRunsTotal: Counter of orchestrator runs by pool and status
//   - RemoteInvocationsTotal, RemoteInvocationDuration: remote worker calls
//
// # Usage
//
//	metrics.SetAppInfo(version, commit, runtime.Version())
//	metrics.InitializeMetrics()
//	http.Handle("/metrics", promhttp.Handler())
package metrics

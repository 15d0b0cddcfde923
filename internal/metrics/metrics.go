package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_deriver_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_deriver_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60, 300, 900, 1800, 3600},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_deriver_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Asset metrics
var (
	AssetsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_deriver_assets_total",
			Help: "Total number of assets handled, by media type and outcome",
		},
		[]string{"type", "outcome"},
	)

	AssetFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_deriver_asset_failures_total",
			Help: "Total number of failed assets by media type and failure reason",
		},
		[]string{"type", "reason"},
	)

	AssetProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_deriver_asset_processing_duration_seconds",
			Help:    "Time to derive all artifacts for one asset",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"type"},
	)
)

// Pipeline metrics
var (
	PipelineStateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_deriver_pipeline_state_transitions_total",
			Help: "Total number of video pipeline state transitions by target state",
		},
		[]string{"state"},
	)

	TranscodesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_deriver_transcodes_in_flight",
			Help: "Number of ffmpeg transcodes currently running",
		},
	)

	SettingsBucketTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_deriver_settings_bucket_total",
			Help: "Total number of videos encoded per source size bucket",
		},
		[]string{"bucket"},
	)

	CompressionRatio = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_deriver_compression_ratio",
			Help:    "Ratio of source size to compressed size",
			Buckets: []float64{0.5, 1, 1.5, 2, 3, 4, 6, 8, 12, 16, 32},
		},
	)

	CompressedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_deriver_compressed_bytes_total",
			Help: "Total bytes of compressed video uploaded",
		},
	)

	SourceBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_deriver_source_bytes_total",
			Help: "Total bytes of source video transcoded",
		},
	)

	ThumbnailFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_deriver_thumbnail_fallbacks_total",
			Help: "Total number of video thumbnails produced by the first-frame fallback",
		},
	)

	ActiveProcesses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_deriver_active_processes",
			Help: "Number of ffmpeg/ffprobe processes currently tracked",
		},
	)
)

// Dispatch metrics
var (
	DispatchInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_deriver_dispatch_in_flight",
			Help: "Number of assets currently assigned to a worker slot",
		},
		[]string{"pool"},
	)

	DispatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_deriver_dispatch_runs_total",
			Help: "Total number of orchestrator runs by pool and result",
		},
		[]string{"pool", "status"},
	)

	RemoteInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_deriver_remote_invocations_total",
			Help: "Total number of remote worker invocations by result",
		},
		[]string{"status"},
	)

	RemoteInvocationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_deriver_remote_invocation_duration_seconds",
			Help:    "Remote worker invocation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 1800, 3600, 7200},
		},
	)
)

// Filesystem and memory metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_deriver_filesystem_retry_attempts_total",
			Help: "Total number of local storage operations retried after a stale NFS handle",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_deriver_filesystem_retry_failures_total",
			Help: "Total number of local storage operations that failed after all retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_deriver_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors seen by local storage",
		},
		[]string{"operation"},
	)

	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_deriver_memory_usage_ratio",
			Help: "Go heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_deriver_memory_paused",
			Help: "1 while dispatch is paused for memory pressure",
		},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_deriver_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

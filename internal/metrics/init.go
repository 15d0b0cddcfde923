package metrics

// Label values shared by InitializeMetrics and the code that records them.
var (
	MediaTypes     = []string{"image", "video", "unknown"}
	Outcomes       = []string{"processed", "skipped", "unsupported", "ignored", "failed"}
	FailureReasons = []string{"probe", "thumbnail", "transcode", "upload", "io", "encode", "storage", "canceled", "other"}
	PipelineStates = []string{
		"init", "probed", "settings_chosen", "thumbnail_ready", "pipe_opened",
		"uploader_started", "transcode_running", "finalizing", "done", "failed",
	}
	Buckets = []string{"small", "medium", "large"}
	Pools   = []string{"local", "remote"}
	FSOps   = []string{"stat", "open"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Asset outcomes per media type ---
	for _, mt := range MediaTypes {
		for _, o := range Outcomes {
			AssetsProcessedTotal.WithLabelValues(mt, o)
		}
		for _, r := range FailureReasons {
			AssetFailuresTotal.WithLabelValues(mt, r)
		}
		AssetProcessingDuration.WithLabelValues(mt)
	}

	// --- Pipeline ---
	for _, s := range PipelineStates {
		PipelineStateTransitionsTotal.WithLabelValues(s)
	}
	for _, b := range Buckets {
		SettingsBucketTotal.WithLabelValues(b)
	}

	// --- Dispatch ---
	for _, p := range Pools {
		DispatchInFlight.WithLabelValues(p)
		for _, s := range []string{"completed", "interrupted"} {
			DispatchRunsTotal.WithLabelValues(p, s)
		}
	}
	for _, s := range []string{"success", "error"} {
		RemoteInvocationsTotal.WithLabelValues(s)
	}

	// --- Filesystem ---
	for _, op := range FSOps {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
}

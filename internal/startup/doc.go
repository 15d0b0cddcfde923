// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig],
// after an optional .env file in the working directory has been applied.
// Variables already present in the environment take precedence over .env.
//
//   - STORAGE_BACKEND: s3 or local (default: s3)
//   - LOCAL_STORAGE_ROOT: Directory backing the local store (default: /media)
//   - S3_BUCKET, S3_REGION, S3_ENDPOINT, S3_PATH_STYLE: S3-compatible store
//   - S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY: Static credentials (default chain when unset)
//   - PORT: Trigger server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - THUMBNAIL_HEIGHT: Default thumbnail height in pixels (default: 512)
//   - VIDEO_FORMAT: Default compressed format, webm, mp4 or mkv (default: webm)
//   - WORKER_POOL_SIZE: Assets processed concurrently (default: 10)
//   - REMOTE_WORKERS: Comma-separated worker URLs for remote bulk dispatch
//   - REMOTE_TIMEOUT: Per-call limit for remote workers (default: none)
//   - SIGNED_URL_TTL, PROBE_TIMEOUT, THUMBNAIL_TIMEOUT, UPLOAD_WAIT, IDLE_TIMEOUT: Go durations
//   - TEMP_DIR: Thumbnails and named pipes (default: os.TempDir())
//   - FFMPEG_PATH, FFPROBE_PATH: Tool binaries (default: looked up in PATH)
//   - SENTRY_DSN, SENTRY_ENVIRONMENT: Optional error reporting
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: false)
//
// The returned [Config] is immutable; its Defaults are threaded through every
// processing call instead of living in package state.
//
// # Build Information
//
// Version, Commit, and BuildTime are set at build time:
//
//	go build -ldflags "-X media-deriver/internal/startup.Version=1.0.0"
package startup

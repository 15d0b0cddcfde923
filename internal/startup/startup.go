package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"media-deriver/internal/logging"
	"media-deriver/internal/mediatypes"
	"media-deriver/internal/storage"
	"media-deriver/internal/transcoder"
	"media-deriver/internal/workers"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Storage backends.
const (
	BackendS3    = "s3"
	BackendLocal = "local"
)

// Config holds all application configuration. It is built once by
// LoadConfig and never mutated afterwards.
type Config struct {
	StorageBackend   string
	LocalStorageRoot string
	S3               storage.S3Config

	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogHealthChecks bool

	// Defaults fill options a trigger leaves unset.
	Defaults mediatypes.ProcessingOptions

	WorkerPoolSize int
	RemoteWorkers  []string
	// RemoteTimeout bounds one remote worker call (0 = bounded only by
	// cancellation).
	RemoteTimeout time.Duration

	SignedURLTTL     time.Duration
	ProbeTimeout     time.Duration
	ThumbnailTimeout time.Duration
	UploadWait       time.Duration
	IdleTimeout      time.Duration

	TempDir     string
	FFmpegPath  string
	FFprobePath string

	// MemoryLimit is the container memory limit in bytes (0 = unknown).
	MemoryLimit int64
	MemoryRatio float64

	SentryDSN         string
	SentryEnvironment string
}

// LoadConfig loads and validates configuration from the environment. A .env
// file in the working directory is read first; variables already set in the
// environment take precedence over it.
func LoadConfig() (*Config, error) {
	envFileErr := godotenv.Load()

	printBanner()
	logSystemInfo()

	if envFileErr != nil && !errors.Is(envFileErr, fs.ErrNotExist) {
		logging.Warn("Failed to read .env file: %v", envFileErr)
	}

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config, err := configFromEnv()
	if err != nil {
		return nil, err
	}

	logging.Info("  STORAGE_BACKEND:     %s", config.StorageBackend)
	if config.StorageBackend == BackendS3 {
		logging.Info("  S3_BUCKET:           %s", config.S3.Bucket)
		logging.Info("  S3_REGION:           %s", valueOrDash(config.S3.Region))
		logging.Info("  S3_ENDPOINT:         %s", valueOrDash(config.S3.Endpoint))
		logging.Info("  S3_PATH_STYLE:       %v", config.S3.PathStyle)
		logging.Info("  S3 credentials:      %s", credentialSource(config.S3))
	} else {
		logging.Info("  LOCAL_STORAGE_ROOT:  %s", config.LocalStorageRoot)
	}
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  THUMBNAIL_HEIGHT:    %d", config.Defaults.ThumbnailHeight)
	logging.Info("  VIDEO_FORMAT:        %s", config.Defaults.VideoFormat)
	logging.Info("  WORKER_POOL_SIZE:    %d", config.WorkerPoolSize)
	logging.Info("  REMOTE_WORKERS:      %d", len(config.RemoteWorkers))
	logging.Info("  REMOTE_TIMEOUT:      %v", config.RemoteTimeout)
	logging.Info("  SIGNED_URL_TTL:      %v", config.SignedURLTTL)
	logging.Info("  PROBE_TIMEOUT:       %v", config.ProbeTimeout)
	logging.Info("  THUMBNAIL_TIMEOUT:   %v", config.ThumbnailTimeout)
	logging.Info("  UPLOAD_WAIT:         %v", config.UploadWait)
	logging.Info("  TEMP_DIR:            %s", config.TempDir)
	logging.Info("  MEMORY_LIMIT:        %d", config.MemoryLimit)
	logging.Info("  SENTRY:              %s", enabledString(config.SentryDSN != ""))
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if config.WorkerPoolSize > workers.ForCPU(0) && len(config.RemoteWorkers) == 0 {
		logging.Warn("  WORKER_POOL_SIZE %d exceeds %d available CPUs; local encodes will contend",
			config.WorkerPoolSize, workers.ForCPU(0))
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := ensureDirectory(config.TempDir, "temp"); err != nil {
		return nil, fmt.Errorf("temp directory error: %w", err)
	}
	if err := testWriteAccess(config.TempDir); err != nil {
		return nil, fmt.Errorf("temp directory is not writable (required for thumbnails and pipes): %w", err)
	}
	logging.Info("  [OK] Temp directory is writable")

	if config.StorageBackend == BackendLocal {
		if err := ensureDirectory(config.LocalStorageRoot, "storage"); err != nil {
			return nil, fmt.Errorf("storage directory error: %w", err)
		}
		logging.Info("  [OK] Local storage root ready")
	}

	return config, nil
}

// configFromEnv parses and validates every variable without side effects.
func configFromEnv() (*Config, error) {
	backend := strings.ToLower(getEnv("STORAGE_BACKEND", BackendS3))
	if backend != BackendS3 && backend != BackendLocal {
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q (want %s or %s)", backend, BackendS3, BackendLocal)
	}

	format, err := mediatypes.ParseVideoFormat(getEnv("VIDEO_FORMAT", string(mediatypes.FormatWebM)))
	if err != nil {
		return nil, fmt.Errorf("invalid VIDEO_FORMAT: %w", err)
	}

	height := getEnvInt("THUMBNAIL_HEIGHT", mediatypes.DefaultThumbnailHeight)
	if height <= 0 {
		return nil, fmt.Errorf("invalid THUMBNAIL_HEIGHT %d: must be positive", height)
	}

	tempDir, err := filepath.Abs(getEnv("TEMP_DIR", os.TempDir()))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve temp directory path: %w", err)
	}

	config := &Config{
		StorageBackend:   backend,
		LocalStorageRoot: getEnv("LOCAL_STORAGE_ROOT", "/media"),
		S3: storage.S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          os.Getenv("S3_REGION"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			PathStyle:       getEnvBool("S3_PATH_STYLE", false),
		},
		Port:            getEnv("PORT", "8080"),
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", false),
		Defaults: mediatypes.ProcessingOptions{
			ThumbnailHeight: height,
			VideoFormat:     format,
		}.Resolve(mediatypes.DefaultOptions()),
		WorkerPoolSize:    workers.PoolSize(0),
		RemoteWorkers:     splitList(os.Getenv("REMOTE_WORKERS")),
		RemoteTimeout:     getEnvDuration("REMOTE_TIMEOUT", 0),
		SignedURLTTL:      getEnvDuration("SIGNED_URL_TTL", transcoder.DefaultSignedURLTTL),
		ProbeTimeout:      getEnvDuration("PROBE_TIMEOUT", transcoder.DefaultProbeTimeout),
		ThumbnailTimeout:  getEnvDuration("THUMBNAIL_TIMEOUT", transcoder.DefaultThumbnailTimeout),
		UploadWait:        getEnvDuration("UPLOAD_WAIT", transcoder.DefaultUploadWait),
		IdleTimeout:       getEnvDuration("IDLE_TIMEOUT", 0),
		TempDir:           tempDir,
		FFmpegPath:        getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:       getEnv("FFPROBE_PATH", "ffprobe"),
		MemoryLimit:       getEnvInt64("MEMORY_LIMIT", 0),
		MemoryRatio:       getEnvFloat("MEMORY_RATIO", 0),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "production"),
	}

	if config.StorageBackend == BackendS3 && config.S3.Bucket == "" {
		return nil, errors.New("S3_BUCKET is required when STORAGE_BACKEND=s3")
	}
	if (config.S3.AccessKeyID == "") != (config.S3.SecretAccessKey == "") {
		return nil, errors.New("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
	}
	if config.StorageBackend == BackendLocal {
		root, err := filepath.Abs(config.LocalStorageRoot)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve storage root: %w", err)
		}
		config.LocalStorageRoot = root
	}

	return config, nil
}

func credentialSource(cfg storage.S3Config) string {
	if cfg.AccessKeyID != "" {
		return "static (S3_ACCESS_KEY_ID)"
	}
	return "default chain"
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// BinaryChecker verifies the external tools are installed.
type BinaryChecker interface {
	CheckBinaries() error
}

// LogTranscoderInit logs transcoder initialization and checks FFmpeg
func LogTranscoderInit(checker BinaryChecker) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("TRANSCODER INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if err := checker.CheckBinaries(); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Video assets will fail until ffmpeg and ffprobe are installed")
		return
	}
	logging.Info("  [OK] FFmpeg and FFprobe are available")
}

// LogStorageInit logs the object store the service will read and write.
func LogStorageInit(backend, location string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("STORAGE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] %s store ready: %s", strings.ToUpper(backend), location)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	logging.Info("  Registered routes (%d total):", len(routes))
	for _, route := range routes {
		logging.Info("    %-6s %s", route.Method, route.Path)
	}

	if logHealthChecks {
		logging.Info("  Health check logging: ON")
	} else {
		logging.Info("  Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Trigger:       http://0.0.0.0:%s/", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(reason string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (%s)", reason)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
                    _ _             _           _
  _ __ ___   ___  __| (_) __ _    __| | ___ _ __(_)_   _____ _ __
 | '_ ' _ \ / _ \/ _' | |/ _' |  / _' |/ _ \ '__| \ \ / / _ \ '__|
 | | | | | |  __/ (_| | | (_| | | (_| |  __/ |  | |\ V /  __/ |
 |_| |_| |_|\___|\__,_|_|\__,_|  \__,_|\___|_|  |_| \_/ \___|_|

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func testWriteAccess(dir string) error {
	f, err := os.CreateTemp(dir, ".write-test-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	if err := os.Remove(name); err != nil {
		logging.Warn("failed to remove write test file %s: %v", name, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Warn("Invalid number for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

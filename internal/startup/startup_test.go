package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"media-deriver/internal/mediatypes"
	"media-deriver/internal/transcoder"
	"media-deriver/internal/workers"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

// clearConfigEnv blanks every variable configFromEnv reads.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STORAGE_BACKEND", "LOCAL_STORAGE_ROOT", "S3_BUCKET", "S3_REGION", "S3_ENDPOINT",
		"S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_PATH_STYLE", "PORT", "METRICS_PORT",
		"METRICS_ENABLED", "LOG_HEALTH_CHECKS", "THUMBNAIL_HEIGHT", "VIDEO_FORMAT",
		workers.EnvPoolSize, "REMOTE_WORKERS", "REMOTE_TIMEOUT", "SIGNED_URL_TTL", "PROBE_TIMEOUT",
		"THUMBNAIL_TIMEOUT", "UPLOAD_WAIT", "IDLE_TIMEOUT", "TEMP_DIR", "FFMPEG_PATH",
		"FFPROBE_PATH", "SENTRY_DSN", "SENTRY_ENVIRONMENT",
	} {
		t.Setenv(key, "")
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("S3_BUCKET", "media")

	cfg, err := configFromEnv()
	if err != nil {
		t.Fatalf("configFromEnv() error = %v", err)
	}

	if cfg.StorageBackend != BackendS3 || cfg.S3.Bucket != "media" {
		t.Errorf("storage = %s/%s", cfg.StorageBackend, cfg.S3.Bucket)
	}
	if cfg.Defaults != mediatypes.DefaultOptions() {
		t.Errorf("Defaults = %+v, want %+v", cfg.Defaults, mediatypes.DefaultOptions())
	}
	if cfg.WorkerPoolSize != workers.DefaultPoolSize {
		t.Errorf("WorkerPoolSize = %d, want %d", cfg.WorkerPoolSize, workers.DefaultPoolSize)
	}
	if cfg.SignedURLTTL != 4*time.Hour || cfg.ThumbnailTimeout != 10*time.Second || cfg.UploadWait != 60*time.Second {
		t.Errorf("timeouts = %v %v %v", cfg.SignedURLTTL, cfg.ThumbnailTimeout, cfg.UploadWait)
	}
	if cfg.ProbeTimeout != transcoder.DefaultProbeTimeout {
		t.Errorf("ProbeTimeout = %v", cfg.ProbeTimeout)
	}
	if cfg.Port != "8080" || cfg.MetricsPort != "9090" || !cfg.MetricsEnabled {
		t.Errorf("ports = %s %s %v", cfg.Port, cfg.MetricsPort, cfg.MetricsEnabled)
	}
	if cfg.FFmpegPath != "ffmpeg" || cfg.FFprobePath != "ffprobe" {
		t.Errorf("tools = %s %s", cfg.FFmpegPath, cfg.FFprobePath)
	}
	if !filepath.IsAbs(cfg.TempDir) {
		t.Errorf("TempDir %q is not absolute", cfg.TempDir)
	}
	if len(cfg.RemoteWorkers) != 0 {
		t.Errorf("RemoteWorkers = %v", cfg.RemoteWorkers)
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	root := t.TempDir()
	t.Setenv("STORAGE_BACKEND", "LOCAL")
	t.Setenv("LOCAL_STORAGE_ROOT", root)
	t.Setenv("THUMBNAIL_HEIGHT", "256")
	t.Setenv("VIDEO_FORMAT", "MP4")
	t.Setenv(workers.EnvPoolSize, "3")
	t.Setenv("REMOTE_WORKERS", "http://w1:8080, ,http://w2:8080")
	t.Setenv("UPLOAD_WAIT", "90s")
	t.Setenv("REMOTE_TIMEOUT", "6h")
	t.Setenv("PROBE_TIMEOUT", "bogus")

	cfg, err := configFromEnv()
	if err != nil {
		t.Fatalf("configFromEnv() error = %v", err)
	}
	if cfg.StorageBackend != BackendLocal || cfg.LocalStorageRoot != root {
		t.Errorf("storage = %s %s", cfg.StorageBackend, cfg.LocalStorageRoot)
	}
	want := mediatypes.ProcessingOptions{ThumbnailHeight: 256, VideoFormat: mediatypes.FormatMP4}
	if cfg.Defaults != want {
		t.Errorf("Defaults = %+v, want %+v", cfg.Defaults, want)
	}
	if cfg.WorkerPoolSize != 3 {
		t.Errorf("WorkerPoolSize = %d", cfg.WorkerPoolSize)
	}
	if !reflect.DeepEqual(cfg.RemoteWorkers, []string{"http://w1:8080", "http://w2:8080"}) {
		t.Errorf("RemoteWorkers = %v", cfg.RemoteWorkers)
	}
	if cfg.UploadWait != 90*time.Second {
		t.Errorf("UploadWait = %v", cfg.UploadWait)
	}
	if cfg.RemoteTimeout != 6*time.Hour {
		t.Errorf("RemoteTimeout = %v", cfg.RemoteTimeout)
	}
	if cfg.ProbeTimeout != transcoder.DefaultProbeTimeout {
		t.Errorf("invalid PROBE_TIMEOUT should fall back, got %v", cfg.ProbeTimeout)
	}
}

func TestConfigFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing bucket", map[string]string{}, "S3_BUCKET"},
		{"bad backend", map[string]string{"STORAGE_BACKEND": "gcs"}, "STORAGE_BACKEND"},
		{"bad format", map[string]string{"S3_BUCKET": "b", "VIDEO_FORMAT": "avi"}, "VIDEO_FORMAT"},
		{"negative height", map[string]string{"S3_BUCKET": "b", "THUMBNAIL_HEIGHT": "-1"}, "THUMBNAIL_HEIGHT"},
		{"half credentials", map[string]string{"S3_BUCKET": "b", "S3_ACCESS_KEY_ID": "id"}, "set together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := configFromEnv()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("configFromEnv() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	tempDir := filepath.Join(dir, "tmp")
	env := "STORAGE_BACKEND=local\nLOCAL_STORAGE_ROOT=" + filepath.Join(dir, "store") + "\nTEMP_DIR=" + tempDir + "\nTHUMBNAIL_HEIGHT=128\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644); err != nil {
		t.Fatal(err)
	}
	// Variables present in the environment, even empty, win over the file.
	for _, key := range []string{"STORAGE_BACKEND", "LOCAL_STORAGE_ROOT", "TEMP_DIR"} {
		os.Unsetenv(key)
	}
	t.Setenv("THUMBNAIL_HEIGHT", "64")
	t.Chdir(dir)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.StorageBackend != BackendLocal {
		t.Errorf("StorageBackend = %s, want local from .env", cfg.StorageBackend)
	}
	if cfg.Defaults.ThumbnailHeight != 64 {
		t.Errorf("ThumbnailHeight = %d, want 64 from the environment", cfg.Defaults.ThumbnailHeight)
	}
	for _, d := range []string{tempDir, cfg.LocalStorageRoot} {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			t.Errorf("directory %s not created: %v", d, err)
		}
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "12")
	t.Setenv("TEST_BAD_INT", "x")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_DUR", "1m30s")
	t.Setenv("TEST_NEG_DUR", "-5s")
	t.Setenv("TEST_EMPTY", "")
	t.Setenv("TEST_INT64", "8589934592")
	t.Setenv("TEST_FLOAT", "0.5")
	t.Setenv("TEST_BAD_FLOAT", "half")

	if got := getEnvInt64("TEST_INT64", 0); got != 8<<30 {
		t.Errorf("getEnvInt64 = %d", got)
	}
	if got := getEnvFloat("TEST_FLOAT", 0); got != 0.5 {
		t.Errorf("getEnvFloat = %v", got)
	}
	if got := getEnvFloat("TEST_BAD_FLOAT", 0.25); got != 0.25 {
		t.Errorf("getEnvFloat invalid = %v", got)
	}
	if got := getEnvInt("TEST_INT", 1); got != 12 {
		t.Errorf("getEnvInt = %d", got)
	}
	if got := getEnvInt("TEST_BAD_INT", 7); got != 7 {
		t.Errorf("getEnvInt invalid = %d", got)
	}
	if !getEnvBool("TEST_BOOL", false) {
		t.Error("getEnvBool = false")
	}
	if got := getEnvDuration("TEST_DUR", 0); got != 90*time.Second {
		t.Errorf("getEnvDuration = %v", got)
	}
	if got := getEnvDuration("TEST_NEG_DUR", time.Second); got != time.Second {
		t.Errorf("negative duration should fall back, got %v", got)
	}
	if got := getEnv("TEST_EMPTY", "default"); got != "default" {
		t.Errorf("getEnv empty = %q", got)
	}
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/", func(_ http.ResponseWriter, _ *http.Request) {}).Methods("POST")
	r.HandleFunc("/livez", func(_ http.ResponseWriter, _ *http.Request) {}).Methods("GET", "HEAD")

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	if len(routes) != 3 {
		t.Errorf("got %d routes, want 3: %+v", len(routes), routes)
	}
}

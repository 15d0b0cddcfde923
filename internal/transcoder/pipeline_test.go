package transcoder

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"media-deriver/internal/mediatypes"
	"media-deriver/internal/storage"
)

type pipelineFixture struct {
	store   *storage.Local
	tempDir string
	fake    *fakeTools
	states  []State
	mu      sync.Mutex
}

func newPipelineFixture(t *testing.T, env ...string) *pipelineFixture {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	if err := store.Put(context.Background(), "clips/a.mp4", strings.NewReader("source"), "video/mp4"); err != nil {
		t.Fatalf("seed source: %v", err)
	}
	return &pipelineFixture{
		store:   store,
		tempDir: t.TempDir(),
		fake:    newFakeTools(env...),
	}
}

func (f *pipelineFixture) pipeline(store ObjectStore, cfg PipelineConfig) *Pipeline {
	runner := f.fake.runner()
	if cfg.TempDir == "" {
		cfg.TempDir = f.tempDir
	}
	p := NewPipeline(store, runner,
		NewProber(runner, time.Minute),
		NewExtractor(runner, 10*time.Second, cfg.TempDir),
		cfg,
	)
	p.OnState = func(_ string, s State) {
		f.mu.Lock()
		f.states = append(f.states, s)
		f.mu.Unlock()
	}
	return p
}

func (f *pipelineFixture) recorded() []State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]State(nil), f.states...)
}

// tempEntries lists what is left in the pipeline temp dir.
func (f *pipelineFixture) tempEntries(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.tempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

var smallClip = mediatypes.Asset{Path: "clips/a.mp4", ContentType: "video/mp4", Size: GiB / 2}

func TestPipelineRun(t *testing.T) {
	f := newPipelineFixture(t, "FAKE_OUTPUT_BYTES=300000")
	p := f.pipeline(f.store, PipelineConfig{})

	opts := mediatypes.ProcessingOptions{ThumbnailHeight: 256, VideoFormat: mediatypes.FormatWebM}
	res, err := p.Run(context.Background(), smallClip, opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	defer os.Remove(res.ThumbnailPath)

	if res.CompressedPath != "clips/COMPRESSED/a.webm" {
		t.Errorf("CompressedPath = %q", res.CompressedPath)
	}
	if res.MimeType != "image/webp" || res.Extension != ".webp" {
		t.Errorf("thumbnail type = %q %q", res.MimeType, res.Extension)
	}
	if res.Settings.Bucket != BucketSmall || res.Settings.Height != 720 {
		t.Errorf("Settings = %+v, want small bucket at 720p", res.Settings)
	}
	if res.Metadata.Duration != 30.5 || res.Metadata.Height != 1080 {
		t.Errorf("Metadata = %+v", res.Metadata)
	}
	if res.Report.CompressedBytes != 300000 {
		t.Errorf("Report.CompressedBytes = %d, want 300000", res.Report.CompressedBytes)
	}

	info, err := f.store.Stat(context.Background(), res.CompressedPath)
	if err != nil {
		t.Fatalf("compressed object missing: %v", err)
	}
	if info.Size != 300000 {
		t.Errorf("compressed object size = %d, want 300000", info.Size)
	}

	if _, err := os.Stat(res.ThumbnailPath); err != nil {
		t.Errorf("thumbnail should be left for the caller: %v", err)
	}

	// Only the thumbnail remains; the conduit is gone.
	left := f.tempEntries(t)
	if len(left) != 1 || filepath.Join(f.tempDir, left[0]) != res.ThumbnailPath {
		t.Errorf("temp dir entries = %v, want only the thumbnail", left)
	}

	want := []State{
		StateInit, StateProbed, StateSettingsChosen, StateThumbnailReady, StatePipeOpened,
		StateUploaderStarted, StateTranscodeRunning, StateFinalizing, StateDone,
	}
	got := f.recorded()
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("state %d = %v, want %v", i, got[i], want[i])
		}
	}

	if f.fake.count("ffmpeg", "pipe:1") != 1 {
		t.Errorf("transcode invocations = %d, want 1", f.fake.count("ffmpeg", "pipe:1"))
	}
}

func TestPipelineClampsToSourceHeight(t *testing.T) {
	probe := `{"streams":[{"codec_type":"video","height":360,"duration":"12"}],"format":{}}`
	f := newPipelineFixture(t, "FAKE_PROBE="+probe)
	p := f.pipeline(f.store, PipelineConfig{})

	res, err := p.Run(context.Background(), smallClip, mediatypes.DefaultOptions())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	defer os.Remove(res.ThumbnailPath)

	if res.Settings.Height != 360 {
		t.Errorf("Settings.Height = %d, want 360", res.Settings.Height)
	}
	args := strings.Join(f.fake.lastArgs("ffmpeg", "pipe:1"), " ")
	if !strings.Contains(args, "scale=-2:360") {
		t.Errorf("transcode args %q not clamped", args)
	}
}

func TestPipelineFailures(t *testing.T) {
	tests := []struct {
		name       string
		env        []string
		wantErr    error
		wantStates State
	}{
		{
			name:       "probe fails",
			env:        []string{"FAKE_PROBE=fail"},
			wantErr:    ErrProbe,
			wantStates: StateInit,
		},
		{
			name:       "both thumbnails fail",
			env:        []string{"FAKE_THUMB=fail", "FAKE_FALLBACK=fail"},
			wantErr:    ErrThumbnail,
			wantStates: StateSettingsChosen,
		},
		{
			name:       "transcode exits non-zero",
			env:        []string{"FAKE_TRANSCODE=fail"},
			wantErr:    ErrTranscode,
			wantStates: StateTranscodeRunning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t, tt.env...)
			p := f.pipeline(f.store, PipelineConfig{})

			res, err := p.Run(context.Background(), smallClip, mediatypes.DefaultOptions())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if res.ThumbnailPath != "" {
				t.Error("failed Run() must not return a thumbnail")
			}
			if left := f.tempEntries(t); len(left) != 0 {
				t.Errorf("temp resources left behind: %v", left)
			}
			if ok, _ := f.store.Exists(context.Background(), "clips/COMPRESSED/a.webm"); ok {
				t.Error("failed Run() must not commit a compressed object")
			}

			states := f.recorded()
			if states[len(states)-1] != StateFailed {
				t.Errorf("final state = %v, want failed", states[len(states)-1])
			}
			if len(states) < 2 || states[len(states)-2] != tt.wantStates {
				t.Errorf("last state before failure = %v, want %v", states, tt.wantStates)
			}
		})
	}
}

func TestPipelineTranscodeFailureIncludesDiagnostics(t *testing.T) {
	f := newPipelineFixture(t, "FAKE_TRANSCODE=fail")
	p := f.pipeline(f.store, PipelineConfig{})

	_, err := p.Run(context.Background(), smallClip, mediatypes.DefaultOptions())
	if err == nil || !strings.Contains(err.Error(), "conversion failed") {
		t.Errorf("Run() error = %v, want ffmpeg stderr tail", err)
	}
}

// rejectingStore fails uploads without reading the body.
type rejectingStore struct {
	*storage.Local
}

func (r rejectingStore) Put(_ context.Context, _ string, _ io.Reader, _ string) error {
	return errors.New("access denied")
}

func TestPipelineUploadFailureStopsTranscode(t *testing.T) {
	f := newPipelineFixture(t, "FAKE_TRANSCODE=flood")
	p := f.pipeline(rejectingStore{f.store}, PipelineConfig{})

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), smallClip, mediatypes.DefaultOptions())
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrUpload) {
			t.Fatalf("Run() error = %v, want ErrUpload", err)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("Run() blocked after upload failure")
	}

	if left := f.tempEntries(t); len(left) != 0 {
		t.Errorf("temp resources left behind: %v", left)
	}
}

// stalledStore reads nothing and waits for cancellation.
type stalledStore struct {
	*storage.Local
}

func (s stalledStore) Put(ctx context.Context, _ string, _ io.Reader, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestPipelineUploadWaitTimeout(t *testing.T) {
	f := newPipelineFixture(t, "FAKE_OUTPUT_BYTES=10")
	p := f.pipeline(stalledStore{f.store}, PipelineConfig{UploadWait: 200 * time.Millisecond})

	_, err := p.Run(context.Background(), smallClip, mediatypes.DefaultOptions())
	if !errors.Is(err, ErrUpload) {
		t.Fatalf("Run() error = %v, want ErrUpload", err)
	}
	if !strings.Contains(err.Error(), "not complete") {
		t.Errorf("Run() error = %v, want upload wait timeout", err)
	}
}

func TestPipelineCanceled(t *testing.T) {
	f := newPipelineFixture(t, "FAKE_TRANSCODE=hang")
	p := f.pipeline(f.store, PipelineConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	p.OnState = func(_ string, s State) {
		if s == StateTranscodeRunning {
			cancel()
		}
	}

	_, err := p.Run(ctx, smallClip, mediatypes.DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if !errors.Is(err, ErrTranscode) {
		t.Errorf("Run() error = %v, want ErrTranscode", err)
	}
	if left := f.tempEntries(t); len(left) != 0 {
		t.Errorf("temp resources left behind: %v", left)
	}
	if ok, _ := f.store.Exists(context.Background(), "clips/COMPRESSED/a.webm"); ok {
		t.Error("canceled transcode must not leave a compressed object")
	}
}

func TestStateString(t *testing.T) {
	if StateTranscodeRunning.String() != "transcode_running" {
		t.Errorf("String() = %q", StateTranscodeRunning.String())
	}
	if State(99).String() != "unknown" {
		t.Errorf("String() = %q", State(99).String())
	}
	if !StateDone.Terminal() || !StateFailed.Terminal() || StateFinalizing.Terminal() {
		t.Error("Terminal() misreports")
	}
}

func TestRunnerTracksProcesses(t *testing.T) {
	f := newPipelineFixture(t, "FAKE_TRANSCODE=hang")
	runner := f.fake.runner()
	p := NewPipeline(f.store, runner, NewProber(runner, 0), NewExtractor(runner, 0, f.tempDir), PipelineConfig{})

	running := make(chan struct{})
	p.OnState = func(_ string, s State) {
		if s == StateTranscodeRunning {
			close(running)
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), smallClip, mediatypes.DefaultOptions())
		done <- err
	}()

	<-running
	if got := runner.Active(); got != 1 {
		t.Errorf("Active() = %d, want 1", got)
	}

	runner.Cleanup()

	select {
	case err := <-done:
		if !errors.Is(err, ErrTranscode) {
			t.Errorf("Run() error = %v, want ErrTranscode", err)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("Cleanup() did not stop the transcode")
	}
	if got := runner.Active(); got != 0 {
		t.Errorf("Active() after Run = %d, want 0", got)
	}
}

package transcoder

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestThumbnailOffset(t *testing.T) {
	tests := []struct {
		duration float64
		want     float64
	}{
		{0, 0},
		{-4, 0},
		{1, 0.5},
		{8, 4.0},
		{9.99, 4.995},
		{10, 1.0},
		{20, 2.0},
		{30, 3.0},
		{100, 3.0},
		{7200, 3.0},
	}

	for _, tt := range tests {
		if got := ThumbnailOffset(tt.duration); got != tt.want {
			t.Errorf("ThumbnailOffset(%v) = %v, want %v", tt.duration, got, tt.want)
		}
	}
}

func TestThumbnailArgs(t *testing.T) {
	args := ThumbnailArgs("src.mp4", "out.webp", 256, 2.5, true)
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-ss 2.500 -i src.mp4",
		"-vframes 1",
		"scale=-2:256:flags=accurate_rnd,format=yuv420p",
		"-quality 90",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
	if args[len(args)-1] != "out.webp" {
		t.Errorf("last arg = %q, want output path", args[len(args)-1])
	}

	fallback := ThumbnailArgs("src.mp4", "out.webp", 256, 2.5, false)
	if contains(fallback, "-ss") {
		t.Error("first-frame args must not seek")
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name         string
		env          []string
		timeout      time.Duration
		wantFallback bool
		wantErr      bool
	}{
		{
			name: "primary succeeds",
		},
		{
			name:         "primary fails, fallback succeeds",
			env:          []string{"FAKE_THUMB=fail"},
			wantFallback: true,
		},
		{
			name:         "primary times out, fallback succeeds",
			env:          []string{"FAKE_THUMB=hang"},
			timeout:      300 * time.Millisecond,
			wantFallback: true,
		},
		{
			name:    "both attempts fail",
			env:     []string{"FAKE_THUMB=fail", "FAKE_FALLBACK=fail"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			fake := newFakeTools(tt.env...)
			timeout := tt.timeout
			if timeout == 0 {
				timeout = 10 * time.Second
			}
			e := NewExtractor(fake.runner(), timeout, dir)

			thumb, err := e.Extract(context.Background(), "src.mp4", 30, 320)
			if tt.wantErr {
				if !errors.Is(err, ErrThumbnail) {
					t.Fatalf("Extract() error = %v, want ErrThumbnail", err)
				}
				entries, _ := os.ReadDir(dir)
				if len(entries) != 0 {
					t.Errorf("temp dir not cleaned up: %d entries", len(entries))
				}
				if got := fake.count("ffmpeg", ""); got != 2 {
					t.Errorf("ffmpeg calls = %d, want 2", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			defer os.Remove(thumb.Path)

			if thumb.Fallback != tt.wantFallback {
				t.Errorf("Fallback = %v, want %v", thumb.Fallback, tt.wantFallback)
			}
			wantOffset := 3.0
			if tt.wantFallback {
				wantOffset = 0
			}
			if thumb.Offset != wantOffset {
				t.Errorf("Offset = %v, want %v", thumb.Offset, wantOffset)
			}

			data, err := os.ReadFile(thumb.Path)
			if err != nil {
				t.Fatalf("read thumbnail: %v", err)
			}
			if !bytes.Equal(data, fakeWebP) {
				t.Error("thumbnail content mismatch")
			}
			if !strings.HasSuffix(thumb.Path, ".webp") {
				t.Errorf("Path = %q, want .webp suffix", thumb.Path)
			}

			args := fake.lastArgs("ffmpeg", "")
			if !strings.Contains(strings.Join(args, " "), "scale=-2:320:") {
				t.Errorf("ffmpeg args %v do not scale to requested height", args)
			}
		})
	}
}

func TestExtractDefaultHeight(t *testing.T) {
	fake := newFakeTools()
	e := NewExtractor(fake.runner(), 0, t.TempDir())

	thumb, err := e.Extract(context.Background(), "src.mp4", 8, 0)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	defer os.Remove(thumb.Path)

	if thumb.Offset != 4.0 {
		t.Errorf("Offset = %v, want 4.0", thumb.Offset)
	}
	if !strings.Contains(strings.Join(fake.lastArgs("ffmpeg", ""), " "), "scale=-2:512:") {
		t.Error("expected default thumbnail height 512")
	}
}

func TestExtractCanceled(t *testing.T) {
	dir := t.TempDir()
	fake := newFakeTools("FAKE_THUMB=hang")
	e := NewExtractor(fake.runner(), time.Minute, dir)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	_, err := e.Extract(ctx, "src.mp4", 30, 100)
	if !errors.Is(err, ErrThumbnail) {
		t.Fatalf("Extract() error = %v, want ErrThumbnail", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Extract() error = %v, want context.Canceled", err)
	}
	if got := fake.count("ffmpeg", ""); got != 1 {
		t.Errorf("ffmpeg calls = %d, want no fallback after cancellation", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("temp dir not cleaned up: %d entries", len(entries))
	}
}

package transcoder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeTools fakes ffmpeg and ffprobe by re-running the test binary as
// TestHelperProcess with behavior selected through environment variables.
type fakeTools struct {
	env []string

	mu    sync.Mutex
	calls []fakeCall
}

type fakeCall struct {
	name string
	args []string
}

func newFakeTools(env ...string) *fakeTools {
	return &fakeTools{env: env}
}

func (f *fakeTools) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{name: filepath.Base(name), args: args})
	f.mu.Unlock()

	cs := append([]string{"-test.run=TestHelperProcess", "--", filepath.Base(name)}, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
	cmd.Env = append(cmd.Env, f.env...)
	return cmd
}

func (f *fakeTools) runner() *Runner {
	return NewRunner("ffmpeg", "ffprobe", f.command)
}

// count returns how many invocations matched name and, when non-empty,
// contained marker among their arguments.
func (f *fakeTools) count(name, marker string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.name != name {
			continue
		}
		if marker == "" || contains(c.args, marker) {
			n++
		}
	}
	return n
}

func (f *fakeTools) lastArgs(name, marker string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		c := f.calls[i]
		if c.name == name && (marker == "" || contains(c.args, marker)) {
			return c.args
		}
	}
	return nil
}

func contains(args []string, s string) bool {
	for _, a := range args {
		if a == s {
			return true
		}
	}
	return false
}

const sampleProbeJSON = `{
  "streams": [
    {"index": 0, "codec_type": "audio", "duration": "99.0"},
    {"index": 1, "codec_type": "video", "width": 1920, "height": 1080, "duration": "30.5"}
  ],
  "format": {"duration": "31.0"}
}`

// fakeWebP is enough of a RIFF/WEBP header for content sniffing.
var fakeWebP = []byte("RIFF\x1a\x00\x00\x00WEBPVP8 \x0e\x00\x00\x00fake-frame-data")

// TestHelperProcess is not a real test. It stands in for ffmpeg/ffprobe.
//
// Environment:
//
//	FAKE_PROBE      json (default) | fail | garbage | hang | <literal JSON>
//	FAKE_THUMB      ok (default) | fail | hang   primary (seeking) grab
//	FAKE_FALLBACK   ok (default) | fail          first-frame grab
//	FAKE_TRANSCODE  ok (default) | fail | hang | flood
//	FAKE_OUTPUT_BYTES  bytes written by a successful transcode
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "no command")
		os.Exit(2)
	}
	name, args := args[1], args[2:]

	switch name {
	case "ffprobe":
		fakeProbe()
	case "ffmpeg":
		if len(args) > 0 && args[len(args)-1] == "pipe:1" {
			fakeTranscode()
		}
		fakeThumbnail(args)
	}
	os.Exit(2)
}

func fakeProbe() {
	switch mode := os.Getenv("FAKE_PROBE"); mode {
	case "", "json":
		fmt.Print(sampleProbeJSON)
	case "fail":
		fmt.Fprintln(os.Stderr, "probe: invalid data found when processing input")
		os.Exit(1)
	case "garbage":
		fmt.Print("not json")
	case "hang":
		time.Sleep(time.Minute)
		os.Exit(1)
	default:
		fmt.Print(mode)
	}
	os.Exit(0)
}

func fakeThumbnail(args []string) {
	mode := os.Getenv("FAKE_FALLBACK")
	if contains(args, "-ss") {
		mode = os.Getenv("FAKE_THUMB")
	}
	switch mode {
	case "fail":
		fmt.Fprintln(os.Stderr, "could not seek")
		os.Exit(1)
	case "hang":
		time.Sleep(time.Minute)
		os.Exit(1)
	}
	if err := os.WriteFile(args[len(args)-1], fakeWebP, 0o600); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

func fakeTranscode() {
	size := 200 * 1024
	if v := os.Getenv("FAKE_OUTPUT_BYTES"); v != "" {
		_, _ = fmt.Sscan(v, &size)
	}

	for i := 1; i <= 3; i++ {
		fmt.Fprintf(os.Stderr, "frame=%5d fps= 30 q=28.0 size=%6dkB time=00:00:0%d.00 bitrate= 800.0kbits/s speed=1.5x\r", i*30, i*64, i)
	}

	switch os.Getenv("FAKE_TRANSCODE") {
	case "fail":
		_, _ = os.Stdout.Write([]byte(strings.Repeat("p", 1024)))
		fmt.Fprintln(os.Stderr, "\nError while encoding: conversion failed")
		os.Exit(1)
	case "hang":
		time.Sleep(time.Minute)
		os.Exit(1)
	case "flood":
		chunk := []byte(strings.Repeat("f", 64*1024))
		for {
			if _, err := os.Stdout.Write(chunk); err != nil {
				os.Exit(1)
			}
		}
	}

	chunk := []byte(strings.Repeat("v", 4096))
	for written := 0; written < size; {
		n := min(len(chunk), size-written)
		if _, err := os.Stdout.Write(chunk[:n]); err != nil {
			os.Exit(1)
		}
		written += n
	}
	fmt.Fprintln(os.Stderr, "\nvideo:195kB audio:5kB muxing overhead: 0.5%")
	os.Exit(0)
}

package transcoder

import (
	"bufio"
	"strings"
	"testing"
)

func TestParseProgress(t *testing.T) {
	line := "frame=  120 fps= 29.97 q=28.0 size=     512kB time=00:00:04.00 bitrate=1048.6kbits/s speed=1.5x"

	p, ok := ParseProgress(line)
	if !ok {
		t.Fatal("ParseProgress() ok = false")
	}
	if p.Frame != 120 {
		t.Errorf("Frame = %d, want 120", p.Frame)
	}
	if p.FPS != 29.97 {
		t.Errorf("FPS = %v, want 29.97", p.FPS)
	}
	if p.Size != "512kB" {
		t.Errorf("Size = %q, want 512kB", p.Size)
	}
	if p.Time != "00:00:04.00" {
		t.Errorf("Time = %q", p.Time)
	}
	if p.Bitrate != "1048.6kbits/s" {
		t.Errorf("Bitrate = %q", p.Bitrate)
	}
	if p.Speed != "1.5x" {
		t.Errorf("Speed = %q", p.Speed)
	}

	if _, ok := ParseProgress("Stream #0:0: Video: h264"); ok {
		t.Error("ParseProgress() accepted a non-status line")
	}
}

func TestScanStatusLines(t *testing.T) {
	sc := bufio.NewScanner(strings.NewReader("a\rb\nc\r\nd"))
	sc.Split(scanStatusLines)

	var got []string
	for sc.Scan() {
		got = append(got, sc.Text())
	}

	want := []string{"a", "b", "c", "", "d"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("tokens = %q, want %q", got, want)
	}
}

func TestConsumeStderr(t *testing.T) {
	input := "Input #0, mov\n" +
		"frame=   30 fps=30 size=64kB time=00:00:01.00\r" +
		"frame=   60 fps=30 size=128kB time=00:00:02.00\r" +
		"\nError while encoding\n"

	tail := newTailBuffer(2)
	var frames []int64
	consumeStderr(strings.NewReader(input), tail, func(p Progress) {
		frames = append(frames, p.Frame)
	})

	if len(frames) != 2 || frames[0] != 30 || frames[1] != 60 {
		t.Errorf("progress frames = %v, want [30 60]", frames)
	}
	if got := tail.String(); got != "Input #0, mov | Error while encoding" {
		t.Errorf("tail = %q", got)
	}
}

func TestTailBufferKeepsLastLines(t *testing.T) {
	tail := newTailBuffer(3)
	for _, l := range []string{"1", "2", "3", "4", "5"} {
		tail.add(l)
	}
	if got := tail.String(); got != "3 | 4 | 5" {
		t.Errorf("tail = %q, want %q", got, "3 | 4 | 5")
	}
}

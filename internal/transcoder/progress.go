package transcoder

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Progress is one parsed ffmpeg status line.
type Progress struct {
	Frame   int64
	FPS     float64
	Size    string
	Time    string
	Bitrate string
	Speed   string
}

var progressField = regexp.MustCompile(`(\w+)=\s*(\S+)`)

// ParseProgress parses an ffmpeg status line such as
// "frame=  120 fps= 30 q=28.0 size=512kB time=00:00:04.00 bitrate=1048.6kbits/s speed=1.5x".
// It reports false for lines that are not status lines.
func ParseProgress(line string) (Progress, bool) {
	if !strings.Contains(line, "frame=") {
		return Progress{}, false
	}

	var p Progress
	for _, m := range progressField.FindAllStringSubmatch(line, -1) {
		switch m[1] {
		case "frame":
			p.Frame, _ = strconv.ParseInt(m[2], 10, 64)
		case "fps":
			p.FPS, _ = strconv.ParseFloat(m[2], 64)
		case "size", "Lsize":
			p.Size = m[2]
		case "time":
			p.Time = m[2]
		case "bitrate":
			p.Bitrate = m[2]
		case "speed":
			p.Speed = m[2]
		}
	}
	return p, true
}

// scanStatusLines splits on either '\n' or '\r'; ffmpeg rewrites its status
// line in place with carriage returns.
func scanStatusLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// tailBuffer keeps the last n non-empty lines written to it.
type tailBuffer struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{max: n}
}

func (t *tailBuffer) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, " | ")
}

// consumeStderr reads ffmpeg diagnostics line by line until EOF, forwarding
// status lines to onProgress and keeping other lines in tail. It always drains
// r so the process never blocks on a full stderr pipe.
func consumeStderr(r io.Reader, tail *tailBuffer, onProgress func(Progress)) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	sc.Split(scanStatusLines)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if p, ok := ParseProgress(line); ok {
			if onProgress != nil {
				onProgress(p)
			}
			continue
		}
		tail.add(line)
	}

	_, _ = io.Copy(io.Discard, r)
}

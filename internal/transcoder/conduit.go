package transcoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// conduit is a named FIFO connecting ffmpeg (writer) to the uploader (reader).
// The kernel pipe buffer bounds it, so a stalled upload blocks the encoder.
type conduit struct {
	dir  string
	path string

	r *os.File
	w *os.File

	closeOnce sync.Once
}

// openConduit creates a FIFO in a fresh directory under tempDir and opens
// both ends. The read end is opened non-blocking first so the write end can
// be opened immediately; no sleep is needed for the two sides to meet.
func openConduit(tempDir string) (*conduit, error) {
	dir, err := os.MkdirTemp(tempDir, "pipeline-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create conduit dir: %v", ErrIO, err)
	}

	c := &conduit{dir: dir, path: filepath.Join(dir, "transcode.fifo")}

	if err := unix.Mkfifo(c.path, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: mkfifo: %v", ErrIO, err)
	}

	c.r, err = os.OpenFile(c.path, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("%w: open conduit reader: %v", ErrIO, err)
	}

	c.w, err = os.OpenFile(c.path, os.O_WRONLY, 0)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("%w: open conduit writer: %v", ErrIO, err)
	}

	return c, nil
}

// Reader returns the consuming end.
func (c *conduit) Reader() *os.File {
	return c.r
}

// Writer returns the producing end, to be handed to the subprocess.
func (c *conduit) Writer() *os.File {
	return c.w
}

// releaseWriter closes this process's copy of the write end. Once the
// subprocess exits, the reader then observes EOF.
func (c *conduit) releaseWriter() {
	if c.w != nil {
		_ = c.w.Close()
	}
}

// Close closes both ends and removes the FIFO and its directory.
func (c *conduit) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.r != nil {
			_ = c.r.Close()
		}
		if c.w != nil {
			_ = c.w.Close()
		}
		err = os.RemoveAll(c.dir)
	})
	return err
}

// exitGate publishes a process exit status once.
type exitGate struct {
	done chan struct{}
	err  error
}

func newExitGate() *exitGate {
	return &exitGate{done: make(chan struct{})}
}

func (g *exitGate) set(err error) {
	g.err = err
	close(g.done)
}

// commitReader holds back EOF from the conduit until the producer has exited,
// and replaces it with an error if the producer failed. A truncated stream is
// therefore never committed as a complete object.
type commitReader struct {
	ctx  context.Context
	r    io.Reader
	gate *exitGate
}

func (c *commitReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if !errors.Is(err, io.EOF) {
		return n, err
	}
	select {
	case <-c.gate.done:
		if c.gate.err != nil {
			return n, fmt.Errorf("producer failed: %w", c.gate.err)
		}
		return n, io.EOF
	case <-c.ctx.Done():
		return n, c.ctx.Err()
	}
}

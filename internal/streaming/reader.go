package streaming

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"media-deriver/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrIdleTimeout indicates no data arrived for longer than IdleTimeout.
	ErrIdleTimeout = errors.New("read idle timeout exceeded")

	// ErrMaxDuration indicates the stream ran longer than MaxDuration.
	ErrMaxDuration = errors.New("maximum stream duration exceeded")

	// ErrStreamCanceled indicates the stream was closed or its parent
	// context was canceled.
	ErrStreamCanceled = errors.New("stream canceled")
)

// ReaderConfig configures ProgressReader behavior.
type ReaderConfig struct {
	// IdleTimeout is the maximum time between successful reads (0 = unlimited).
	IdleTimeout time.Duration
	// MaxDuration is the absolute maximum streaming duration (0 = unlimited).
	MaxDuration time.Duration
	// ReportEvery is the byte interval between OnProgress calls.
	ReportEvery int64
	// OnProgress is called each time another ReportEvery bytes have been read.
	OnProgress func(bytesRead int64, duration time.Duration)
}

// DefaultReaderConfig returns sensible defaults.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		IdleTimeout: 0,
		MaxDuration: 0,
		ReportEvery: 16 * 1024 * 1024,
	}
}

// ProgressReader wraps an io.Reader with byte counting and stall detection.
type ProgressReader struct {
	r          io.Reader
	ctx        context.Context
	cancel     context.CancelCauseFunc
	config     ReaderConfig
	startTime  time.Time
	lastRead   time.Time
	bytesRead  int64
	nextReport int64
	mu         sync.Mutex
	closed     bool
}

// NewProgressReader creates a ProgressReader. Its Context is derived from ctx.
func NewProgressReader(ctx context.Context, r io.Reader, config ReaderConfig) *ProgressReader {
	readerCtx, cancel := context.WithCancelCause(ctx)

	now := time.Now()
	pr := &ProgressReader{
		r:          r,
		ctx:        readerCtx,
		cancel:     cancel,
		config:     config,
		startTime:  now,
		lastRead:   now,
		nextReport: config.ReportEvery,
	}

	go pr.watchdog()

	return pr
}

// Context is canceled when the reader stalls, exceeds MaxDuration, or closes.
func (pr *ProgressReader) Context() context.Context {
	return pr.ctx
}

// Read implements io.Reader.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	if err := pr.err(); err != nil {
		return 0, err
	}

	n, err := pr.r.Read(p)
	if n > 0 {
		pr.mu.Lock()
		pr.lastRead = time.Now()
		pr.bytesRead += int64(n)
		total := pr.bytesRead
		report := pr.config.OnProgress != nil && pr.config.ReportEvery > 0 && total >= pr.nextReport
		if report {
			for pr.nextReport <= total {
				pr.nextReport += pr.config.ReportEvery
			}
		}
		pr.mu.Unlock()

		if report {
			pr.config.OnProgress(total, time.Since(pr.startTime))
		}
	}

	if err != nil && !errors.Is(err, io.EOF) {
		if cerr := pr.err(); cerr != nil {
			return n, cerr
		}
	}
	return n, err
}

func (pr *ProgressReader) err() error {
	pr.mu.Lock()
	closed := pr.closed
	pr.mu.Unlock()
	if closed {
		return ErrStreamCanceled
	}

	if pr.ctx.Err() == nil {
		return nil
	}
	cause := context.Cause(pr.ctx)
	if errors.Is(cause, ErrIdleTimeout) || errors.Is(cause, ErrMaxDuration) {
		return cause
	}
	return ErrStreamCanceled
}

// watchdog cancels the context when the stream stalls or runs too long.
func (pr *ProgressReader) watchdog() {
	interval := pr.config.IdleTimeout / 4
	if pr.config.MaxDuration > 0 && (interval <= 0 || pr.config.MaxDuration/4 < interval) {
		interval = pr.config.MaxDuration / 4
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pr.mu.Lock()
			idle := time.Since(pr.lastRead)
			closed := pr.closed
			pr.mu.Unlock()

			if closed {
				return
			}

			if pr.config.IdleTimeout > 0 && idle > pr.config.IdleTimeout {
				logging.Warn("Stream idle timeout exceeded: %v", idle)
				pr.cancel(ErrIdleTimeout)
				return
			}

			if pr.config.MaxDuration > 0 && time.Since(pr.startTime) > pr.config.MaxDuration {
				logging.Warn("Stream exceeded maximum duration: %v", pr.config.MaxDuration)
				pr.cancel(ErrMaxDuration)
				return
			}

		case <-pr.ctx.Done():
			return
		}
	}
}

// Close marks the reader as closed and cancels its context. It does not close
// the underlying reader.
func (pr *ProgressReader) Close() error {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if pr.closed {
		return nil
	}

	pr.closed = true
	pr.cancel(ErrStreamCanceled)

	return nil
}

// Stats returns bytes read and elapsed time.
func (pr *ProgressReader) Stats() (bytesRead int64, duration time.Duration) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.bytesRead, time.Since(pr.startTime)
}

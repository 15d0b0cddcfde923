/*
Package streaming provides stall-protected readers for long-running uploads.

# Overview

The video pipeline uploads ffmpeg output while it is still being produced.
If the encoder hangs without exiting, an upload reading from it would wait
forever. The streaming package wraps an io.Reader with idle and maximum
duration limits, and reports progress as bytes flow.

# Basic Usage

	config := streaming.DefaultReaderConfig()
	config.IdleTimeout = 5 * time.Minute
	config.OnProgress = func(bytesRead int64, duration time.Duration) {
		logging.Debug("uploaded %d bytes in %v", bytesRead, duration)
	}

	pr := streaming.NewProgressReader(ctx, fifo, config)
	defer pr.Close()

	err := store.Put(pr.Context(), key, pr, "video/webm")

	bytesRead, duration := pr.Stats()

When the reader goes idle or exceeds MaxDuration, its context is canceled
with the corresponding sentinel error as the cause. Passing Context() to the
consumer lets it abort promptly, for example by aborting a multipart upload.

# Error Handling

	var (
		ErrIdleTimeout    = errors.New("read idle timeout exceeded")
		ErrMaxDuration    = errors.New("maximum stream duration exceeded")
		ErrStreamCanceled = errors.New("stream canceled")
	)

These errors can be checked using errors.Is.

# Thread Safety

ProgressReader is safe for Stats and Close calls from other goroutines while
a single goroutine reads. The idle checker runs in its own goroutine.
*/
package streaming

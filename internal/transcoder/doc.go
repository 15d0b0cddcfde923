// Package transcoder derives video artifacts using FFmpeg.
//
// It provides:
//   - Size-bucketed compression settings selection
//   - Metadata probing via ffprobe (duration, height)
//   - Thumbnail frame extraction with a first-frame fallback
//   - A streaming transcode pipeline that pipes ffmpeg output through a
//     named FIFO directly into an object store upload, without staging the
//     compressed file on disk
//
// FFmpeg and ffprobe must be installed and available in the system PATH, or
// configured explicitly on the Runner.
package transcoder

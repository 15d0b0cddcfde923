package transcoder

import (
	"fmt"
	"time"
)

const mib = 1024 * 1024

// CompressionReport summarises one finished transcode.
type CompressionReport struct {
	OriginalBytes   int64
	CompressedBytes int64
	Elapsed         time.Duration
}

// SavedBytes returns the size reduction, negative if the output grew.
func (r CompressionReport) SavedBytes() int64 {
	return r.OriginalBytes - r.CompressedBytes
}

// SavedPercent returns the size reduction as a percentage of the original.
func (r CompressionReport) SavedPercent() float64 {
	if r.OriginalBytes <= 0 {
		return 0
	}
	return float64(r.SavedBytes()) / float64(r.OriginalBytes) * 100
}

// Ratio returns original/compressed, or 0 when nothing was written.
func (r CompressionReport) Ratio() float64 {
	if r.CompressedBytes <= 0 {
		return 0
	}
	return float64(r.OriginalBytes) / float64(r.CompressedBytes)
}

// ThroughputMBps returns source megabytes processed per second.
func (r CompressionReport) ThroughputMBps() float64 {
	secs := r.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.OriginalBytes) / mib / secs
}

// Fields returns the report as structured logging key/value pairs.
func (r CompressionReport) Fields() []interface{} {
	return []interface{}{
		"original_mb", fmt.Sprintf("%.2f", float64(r.OriginalBytes)/mib),
		"compressed_mb", fmt.Sprintf("%.2f", float64(r.CompressedBytes)/mib),
		"saved_mb", fmt.Sprintf("%.2f", float64(r.SavedBytes())/mib),
		"saved_pct", fmt.Sprintf("%.1f", r.SavedPercent()),
		"ratio", fmt.Sprintf("%.2fx", r.Ratio()),
		"elapsed", r.Elapsed.Round(time.Second).String(),
		"mb_per_sec", fmt.Sprintf("%.2f", r.ThroughputMBps()),
	}
}

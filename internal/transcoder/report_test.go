package transcoder

import (
	"testing"
	"time"
)

func TestCompressionReport(t *testing.T) {
	r := CompressionReport{
		OriginalBytes:   100 * mib,
		CompressedBytes: 25 * mib,
		Elapsed:         10 * time.Second,
	}

	if got := r.SavedBytes(); got != 75*mib {
		t.Errorf("SavedBytes() = %d", got)
	}
	if got := r.SavedPercent(); got != 75 {
		t.Errorf("SavedPercent() = %v, want 75", got)
	}
	if got := r.Ratio(); got != 4 {
		t.Errorf("Ratio() = %v, want 4", got)
	}
	if got := r.ThroughputMBps(); got != 10 {
		t.Errorf("ThroughputMBps() = %v, want 10", got)
	}

	fields := r.Fields()
	if len(fields)%2 != 0 {
		t.Fatalf("Fields() has odd length %d", len(fields))
	}
}

func TestCompressionReportZeroValues(t *testing.T) {
	var r CompressionReport
	if r.SavedPercent() != 0 || r.Ratio() != 0 || r.ThroughputMBps() != 0 {
		t.Errorf("zero report should not divide by zero: %+v", r)
	}
}

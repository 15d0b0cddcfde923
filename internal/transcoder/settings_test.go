package transcoder

import "testing"

func TestSelectSettings(t *testing.T) {
	tests := []struct {
		name       string
		size       int64
		wantBucket Bucket
		wantCRF    int
		wantHeight int
		wantAudio  int
	}{
		{"zero", 0, BucketSmall, 25, 720, 96},
		{"negative treated as small", -5, BucketSmall, 25, 720, 96},
		{"half GiB", GiB / 2, BucketSmall, 25, 720, 96},
		{"just under small threshold", SmallThreshold - 1, BucketSmall, 25, 720, 96},
		{"small threshold", SmallThreshold, BucketMedium, 28, 720, 64},
		{"3 GiB", 3 * GiB, BucketMedium, 28, 720, 64},
		{"just under large threshold", LargeThreshold - 1, BucketMedium, 28, 720, 64},
		{"large threshold", LargeThreshold, BucketLarge, 30, 480, 32},
		{"huge", 500 * GiB, BucketLarge, 30, 480, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectSettings(tt.size)
			if got.Bucket != tt.wantBucket {
				t.Errorf("Bucket = %v, want %v", got.Bucket, tt.wantBucket)
			}
			if got.CRF != tt.wantCRF || got.Height != tt.wantHeight || got.AudioBitrateKbps != tt.wantAudio {
				t.Errorf("SelectSettings(%d) = %+v", tt.size, got)
			}
		})
	}
}

func TestSelectSettingsMonotonic(t *testing.T) {
	sizes := []int64{0, GiB / 4, GiB - 1, GiB, 2 * GiB, 5*GiB - 1, 5 * GiB, 6 * GiB, 1 << 50}

	prev := SelectSettings(sizes[0])
	for _, s := range sizes[1:] {
		cur := SelectSettings(s)
		if cur.Bucket < prev.Bucket {
			t.Errorf("bucket decreased at size %d", s)
		}
		if cur.CRF < prev.CRF {
			t.Errorf("CRF decreased at size %d: %d < %d", s, cur.CRF, prev.CRF)
		}
		if cur.Height > prev.Height {
			t.Errorf("height increased at size %d: %d > %d", s, cur.Height, prev.Height)
		}
		prev = cur
	}
}

func TestClamp(t *testing.T) {
	base := SelectSettings(0)

	tests := []struct {
		name         string
		sourceHeight int
		want         int
	}{
		{"unknown height", 0, 720},
		{"negative height", -1, 720},
		{"smaller source", 360, 360},
		{"equal source", 720, 720},
		{"larger source", 2160, 720},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := base.Clamp(tt.sourceHeight)
			if got.Height != tt.want {
				t.Errorf("Clamp(%d).Height = %d, want %d", tt.sourceHeight, got.Height, tt.want)
			}
			if got.CRF != base.CRF || got.AudioBitrateKbps != base.AudioBitrateKbps {
				t.Error("Clamp() must only change height")
			}
		})
	}
}

func TestBucketString(t *testing.T) {
	tests := map[Bucket]string{
		BucketSmall:  "small",
		BucketMedium: "medium",
		BucketLarge:  "large",
		Bucket(9):    "bucket(9)",
	}
	for b, want := range tests {
		if got := b.String(); got != want {
			t.Errorf("Bucket(%d).String() = %q, want %q", int(b), got, want)
		}
	}
}

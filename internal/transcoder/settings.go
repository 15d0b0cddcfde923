package transcoder

import "fmt"

// Size thresholds separating the settings buckets.
const (
	GiB = int64(1) << 30

	// SmallThreshold is the exclusive upper bound of the small bucket.
	SmallThreshold = 1 * GiB
	// LargeThreshold is the inclusive lower bound of the large bucket.
	LargeThreshold = 5 * GiB
)

// Bucket is a source size range.
type Bucket int

// Size buckets, ordered by increasing source size.
const (
	BucketSmall Bucket = iota
	BucketMedium
	BucketLarge
)

func (b Bucket) String() string {
	switch b {
	case BucketSmall:
		return "small"
	case BucketMedium:
		return "medium"
	case BucketLarge:
		return "large"
	default:
		return fmt.Sprintf("bucket(%d)", int(b))
	}
}

// CompressionSettings are the encoder parameters chosen for one video.
type CompressionSettings struct {
	Bucket           Bucket
	CRF              int
	Height           int
	AudioBitrateKbps int
}

var bucketSettings = [...]CompressionSettings{
	BucketSmall:  {Bucket: BucketSmall, CRF: 25, Height: 720, AudioBitrateKbps: 96},
	BucketMedium: {Bucket: BucketMedium, CRF: 28, Height: 720, AudioBitrateKbps: 64},
	BucketLarge:  {Bucket: BucketLarge, CRF: 30, Height: 480, AudioBitrateKbps: 32},
}

// BucketFor returns the bucket for a source size. Negative sizes are small.
func BucketFor(sizeBytes int64) Bucket {
	switch {
	case sizeBytes < SmallThreshold:
		return BucketSmall
	case sizeBytes < LargeThreshold:
		return BucketMedium
	default:
		return BucketLarge
	}
}

// SelectSettings returns the compression settings for a source size.
func SelectSettings(sizeBytes int64) CompressionSettings {
	return bucketSettings[BucketFor(sizeBytes)]
}

// Clamp lowers the target height to the source height so video is never
// upscaled. A source height of 0 means unknown and leaves s unchanged.
func (s CompressionSettings) Clamp(sourceHeight int) CompressionSettings {
	if sourceHeight > 0 && sourceHeight < s.Height {
		s.Height = sourceHeight
	}
	return s
}

package transcoder

import (
	"fmt"
	"strconv"

	"media-deriver/internal/mediatypes"
)

// Encoder constants shared by every output format.
const (
	keyframeInterval = 150
	audioChannels    = 1
)

// TranscodeArgs builds the ffmpeg arguments that read url and write a single
// container of the given format to stdout.
func TranscodeArgs(url string, s CompressionSettings, format mediatypes.VideoFormat) []string {
	height := s.Height
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", url,
	}

	switch format {
	case mediatypes.FormatMP4, mediatypes.FormatMKV:
		// libx264 requires even dimensions.
		height &^= 1
		args = append(args,
			"-c:v", "libx264",
			"-preset", "medium",
			"-crf", strconv.Itoa(s.CRF),
			"-pix_fmt", "yuv420p",
		)
	default:
		args = append(args,
			"-c:v", "libvpx-vp9",
			"-b:v", "0",
			"-crf", strconv.Itoa(s.CRF),
			"-row-mt", "1",
		)
	}

	args = append(args,
		"-g", strconv.Itoa(keyframeInterval),
		"-keyint_min", strconv.Itoa(keyframeInterval),
		"-vf", fmt.Sprintf("scale=-2:%d", height),
	)

	audioCodec := "libopus"
	if format == mediatypes.FormatMP4 {
		audioCodec = "aac"
	}
	args = append(args,
		"-c:a", audioCodec,
		"-ac", strconv.Itoa(audioChannels),
		"-b:a", fmt.Sprintf("%dk", s.AudioBitrateKbps),
	)

	switch format {
	case mediatypes.FormatMP4:
		args = append(args,
			"-movflags", "frag_keyframe+empty_moov+default_base_moof",
			"-f", "mp4",
		)
	case mediatypes.FormatMKV:
		args = append(args,
			"-cluster_size_limit", "2M",
			"-cluster_time_limit", "5000",
			"-f", "matroska",
		)
	default:
		args = append(args,
			"-index_correction", "1",
			"-cluster_size_limit", "2M",
			"-cluster_time_limit", "5000",
			"-skip_threshold", "0",
			"-f", "webm",
		)
	}

	return append(args, "pipe:1")
}

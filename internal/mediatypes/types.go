package mediatypes

import (
	"fmt"
	"path"
	"strings"
)

// Classification is the media category of an asset.
type Classification string

const (
	// ClassImage represents a still image asset.
	ClassImage Classification = "image"
	// ClassVideo represents a video asset.
	ClassVideo Classification = "video"
	// ClassUnknown represents an asset the pipeline does not handle.
	ClassUnknown Classification = "unknown"
)

// Image output contract shared by the image encoder and the video frame grabber.
const (
	ImageOutputFormat    = "webp"
	ImageOutputExtension = ".webp"
	ImageOutputMimeType  = "image/webp"
	ImageOutputQuality   = 90

	// DefaultThumbnailHeight is the thumbnail height used when none is requested.
	DefaultThumbnailHeight = 512
)

// Asset is a source object in the store. Identity is Path.
type Asset struct {
	Path        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Classification returns the asset's media category.
func (a Asset) Classification() Classification {
	return Classify(a.ContentType, a.Path)
}

// VideoFormat is the container used for compressed video renditions.
type VideoFormat string

const (
	// FormatWebM is VP9 video with Opus audio.
	FormatWebM VideoFormat = "webm"
	// FormatMP4 is H.264 video with AAC audio, fragmented so it can be piped.
	FormatMP4 VideoFormat = "mp4"
	// FormatMKV is H.264 video with Opus audio in Matroska.
	FormatMKV VideoFormat = "mkv"
)

// ParseVideoFormat parses a format name. The empty string yields "".
func ParseVideoFormat(s string) (VideoFormat, error) {
	switch f := VideoFormat(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))); f {
	case "", FormatWebM, FormatMP4, FormatMKV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown video format %q", s)
	}
}

// Extension returns the file extension for the format, including the dot.
func (f VideoFormat) Extension() string {
	if f == "" {
		return "." + string(FormatWebM)
	}
	return "." + string(f)
}

// MimeType returns the content type written for compressed renditions.
func (f VideoFormat) MimeType() string {
	switch f {
	case FormatMP4:
		return "video/mp4"
	case FormatMKV:
		return "video/x-matroska"
	default:
		return "video/webm"
	}
}

// ProcessingOptions are caller-supplied knobs. Zero values mean "use default".
type ProcessingOptions struct {
	ThumbnailHeight int         `json:"height,omitempty"`
	VideoFormat     VideoFormat `json:"output_format,omitempty"`
}

// DefaultOptions returns the built-in defaults.
func DefaultOptions() ProcessingOptions {
	return ProcessingOptions{
		ThumbnailHeight: DefaultThumbnailHeight,
		VideoFormat:     FormatWebM,
	}
}

// Resolve fills unset fields from defaults and returns the result.
func (o ProcessingOptions) Resolve(defaults ProcessingOptions) ProcessingOptions {
	if o.ThumbnailHeight <= 0 {
		o.ThumbnailHeight = defaults.ThumbnailHeight
	}
	if o.ThumbnailHeight <= 0 {
		o.ThumbnailHeight = DefaultThumbnailHeight
	}
	if o.VideoFormat == "" {
		o.VideoFormat = defaults.VideoFormat
	}
	if o.VideoFormat == "" {
		o.VideoFormat = FormatWebM
	}
	return o
}

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".gif":  true,
	".webp": true,
}

// ImageMimeTypes lists the content types accepted as images.
var ImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/gif":  true,
	"image/webp": true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".wmv":  true,
	".flv":  true,
	".mkv":  true,
	".webm": true,
	".m4v":  true,
	".mpg":  true,
	".mpeg": true,
	".3gp":  true,
	".3g2":  true,
	".ts":   true,
	".mts":  true,
	".m2ts": true,
	".mp2":  true,
}

// Classify returns the Classification for a content type and/or file name.
// Either argument may be empty. Video is checked before image.
func Classify(contentType, name string) Classification {
	if IsVideo(contentType, name) {
		return ClassVideo
	}
	if IsImage(contentType, name) {
		return ClassImage
	}
	return ClassUnknown
}

// IsVideo reports whether the content type or extension denotes a video.
func IsVideo(contentType, name string) bool {
	if strings.HasPrefix(normalizeContentType(contentType), "video/") {
		return true
	}
	return VideoExtensions[extension(name)]
}

// IsImage reports whether the content type or extension denotes a supported image.
func IsImage(contentType, name string) bool {
	if ImageMimeTypes[normalizeContentType(contentType)] {
		return true
	}
	return ImageExtensions[extension(name)]
}

// normalizeContentType strips parameters such as "; charset=binary".
func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func extension(name string) string {
	return strings.ToLower(path.Ext(name))
}

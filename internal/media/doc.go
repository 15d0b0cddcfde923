// Package media encodes still images into thumbnails.
//
// EncodeThumbnail decodes JPEG, PNG, GIF, BMP, TIFF and WebP sources,
// applies the EXIF orientation so output is always upright, scales down to
// the requested height with Lanczos resampling (never up), and writes WebP
// at a fixed quality.
package media

// Package layout computes where derived artifacts live relative to their
// source asset. The mapping is deterministic, so the existence of a derived
// object doubles as the "already processed" marker.
package layout

import (
	"path"
	"strings"

	"media-deriver/internal/mediatypes"
)

// Derived directory names. Matching against existing keys is case-insensitive.
const (
	ThumbsDir     = "THUMBS"
	CompressedDir = "COMPRESSED"
)

// split returns the directory and extension-less base name of an object key.
func split(p string) (dir, stem string) {
	dir, file := path.Split(p)
	dir = strings.TrimSuffix(dir, "/")
	return dir, strings.TrimSuffix(file, path.Ext(file))
}

func join(dir, sub, file string) string {
	if dir == "" {
		return sub + "/" + file
	}
	return dir + "/" + sub + "/" + file
}

// ThumbnailPath returns dir/THUMBS/<stem>.webp for the asset at p.
func ThumbnailPath(p string) string {
	dir, stem := split(p)
	return join(dir, ThumbsDir, stem+mediatypes.ImageOutputExtension)
}

// CompressedPath returns dir/COMPRESSED/<stem>.<ext> for the asset at p.
func CompressedPath(p string, format mediatypes.VideoFormat) string {
	dir, stem := split(p)
	return join(dir, CompressedDir, stem+format.Extension())
}

// MarkerPaths returns the zero-byte directory marker keys for the derived
// directories next to p.
func MarkerPaths(p string) (thumbs, compressed string) {
	dir, _ := split(p)
	return join(dir, ThumbsDir, ""), join(dir, CompressedDir, "")
}

// IsDerived reports whether any directory component of p is a derived
// directory, in any case. Such keys are never enumerated or reprocessed.
func IsDerived(p string) bool {
	dir, _ := path.Split(p)
	for _, seg := range strings.Split(dir, "/") {
		if strings.EqualFold(seg, ThumbsDir) || strings.EqualFold(seg, CompressedDir) {
			return true
		}
	}
	return false
}

// IsMarker reports whether p is a directory marker key.
func IsMarker(p string) bool {
	return strings.HasSuffix(p, "/")
}

// Origin inverts ThumbnailPath and CompressedPath: it returns the source
// directory and stem a derived key was computed from. The source extension
// is not recoverable.
func Origin(derived string) (dir, stem string, ok bool) {
	parent, stem := split(derived)
	base := path.Base(parent)
	if parent == "" || !(strings.EqualFold(base, ThumbsDir) || strings.EqualFold(base, CompressedDir)) {
		return "", "", false
	}
	dir = path.Dir(parent)
	if dir == "." {
		dir = ""
	}
	return dir, stem, true
}

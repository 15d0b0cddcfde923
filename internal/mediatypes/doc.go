// Package mediatypes provides the shared data model for media assets and the
// classifier that decides whether an asset is an image, a video, or neither.
//
// This package exists as a dependency-free foundation that can be imported by
// other packages without creating import cycles. It contains primitive types,
// constants, and pure utility functions.
//
// # Classification
//
// Classify combines the content type reported by the object store with the
// asset's file name. Video signals are checked first, so an asset with a
// video extension but an image-like content type is still a video:
//
//	switch mediatypes.Classify(asset.ContentType, asset.Path) {
//	case mediatypes.ClassImage:
//	    // thumbnail only
//	case mediatypes.ClassVideo:
//	    // thumbnail + compressed rendition
//	default:
//	    // skipped, not failed
//	}
//
// # Options
//
// ProcessingOptions are supplied by callers with zero values meaning "use the
// default". Defaults are an explicit value resolved once per call:
//
//	opts = opts.Resolve(mediatypes.DefaultOptions())
package mediatypes

// Package storage defines the object store capability the pipeline consumes
// and provides two backends for it.
//
// The capability is deliberately small: existence checks, metadata, streaming
// reads and writes, signed URLs, and prefix listing. Directory markers are
// zero-byte objects whose key ends in "/".
//
// Backends:
//   - S3: any S3-compatible service (AWS, R2, MinIO, GCS interoperability)
//     via aws-sdk-go-v2. Writes go through the multipart upload manager so
//     bodies of unknown length, such as a transcoder pipe, stream without
//     buffering the whole object.
//   - Local: a directory tree on disk, used for development and tests.
//     Signed URLs are absolute file paths, which ffmpeg and ffprobe accept.
package storage

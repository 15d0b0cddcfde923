package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Signed URL methods.
const (
	MethodGet = "GET"
	MethodPut = "PUT"
)

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// ObjectStore is the object store capability consumed by the pipeline.
type ObjectStore interface {
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Stat returns object metadata or ErrNotFound.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Get opens the object for reading. Callers close the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Put stores body under key. body may be of unknown length.
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	// SignedURL returns a time-limited URL granting method on key.
	SignedURL(ctx context.Context, key, method string, ttl time.Duration) (string, error)
	// List returns objects under prefix. When recursive is false only
	// direct children are returned.
	List(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, error)
}

// EnsureMarker creates the zero-byte directory marker key if it is missing.
func EnsureMarker(ctx context.Context, store ObjectStore, key string) error {
	if !strings.HasSuffix(key, "/") {
		return fmt.Errorf("marker key %q must end with /", key)
	}
	exists, err := store.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return store.Put(ctx, key, strings.NewReader(""), "application/x-directory")
}

// folderPrefix normalises a folder path into a listing prefix.
func folderPrefix(folder string) string {
	folder = strings.TrimPrefix(folder, "/")
	if folder != "" && !strings.HasSuffix(folder, "/") {
		folder += "/"
	}
	return folder
}

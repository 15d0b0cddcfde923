package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"media-deriver/internal/filesystem"

	"github.com/gabriel-vasile/mimetype"
)

// Local is an ObjectStore backed by a directory tree, typically an NFS
// export. Reads retry on stale file handles.
type Local struct {
	root  string
	retry filesystem.RetryConfig
}

// NewLocal creates a Local store rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{root: abs, retry: filesystem.DefaultRetryConfig()}, nil
}

// Root returns the absolute directory backing the store.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if strings.Contains(clean, "\x00") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}

// Exists reports whether key is present. Marker keys map to directories.
func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	p, err := l.resolve(key)
	if err != nil {
		return false, err
	}
	info, err := filesystem.StatWithRetry(ctx, p, l.retry)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if strings.HasSuffix(key, "/") {
		return info.IsDir(), nil
	}
	return !info.IsDir(), nil
}

// Stat returns metadata for key. The content type is sniffed from the bytes.
func (l *Local) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	p, err := l.resolve(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	info, err := filesystem.StatWithRetry(ctx, p, l.retry)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return ObjectInfo{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return ObjectInfo{}, err
	}

	contentType := ""
	if info.Size() > 0 {
		if mt, err := mimetype.DetectFile(p); err == nil {
			contentType = mt.String()
		}
	}

	return ObjectInfo{
		Key:          key,
		Size:         info.Size(),
		ContentType:  contentType,
		LastModified: info.ModTime(),
	}, nil
}

// Get opens key for reading.
func (l *Local) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := filesystem.OpenWithRetry(ctx, p, l.retry)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return f, err
}

// Put writes body to key atomically. A key ending in "/" creates a directory.
func (l *Local) Put(ctx context.Context, key string, body io.Reader, _ string) error {
	p, err := l.resolve(key)
	if err != nil {
		return err
	}
	if strings.HasSuffix(key, "/") {
		return os.MkdirAll(p, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".put-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, contextReader{ctx: ctx, r: body}); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// SignedURL returns the absolute file path for key; local files need no signing.
func (l *Local) SignedURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return l.resolve(key)
}

// List returns objects under folder. Directory markers are reported with a
// trailing slash, as an object store would.
func (l *Local) List(_ context.Context, folder string, recursive bool) ([]ObjectInfo, error) {
	prefix := folderPrefix(folder)
	base, err := l.resolve(prefix)
	if err != nil {
		return nil, err
	}

	var out []ObjectInfo
	add := func(p string, d fs.DirEntry) error {
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			out = append(out, ObjectInfo{Key: key + "/", LastModified: info.ModTime()})
			return nil
		}
		out = append(out, ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	}

	if !recursive {
		entries, err := os.ReadDir(base)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".put-") {
				continue
			}
			if err := add(filepath.Join(base, e.Name()), e); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == base {
				return fs.SkipAll
			}
			return err
		}
		if p == base || strings.HasPrefix(d.Name(), ".put-") {
			return nil
		}
		return add(p, d)
	})
	return out, err
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

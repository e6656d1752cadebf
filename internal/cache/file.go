package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const fileExt = ".json"

// FileBackend stores one file per key under root: key "tasks:abc" lives at
// root/tasks/abc.json. Writes go through a temporary file and a rename so a
// reader never sees a partial entry.
type FileBackend struct {
	fs   afero.Fs
	root string
}

// NewFileBackend creates a FileBackend rooted at dir on fsys.
func NewFileBackend(fsys afero.Fs, dir string) (*FileBackend, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, ioError("create cache dir", "", err)
	}
	return &FileBackend{fs: fsys, root: dir}, nil
}

// Name implements Backend.
func (f *FileBackend) Name() string { return "file" }

func (f *FileBackend) path(key string) (string, error) {
	ns, name, ok := strings.Cut(key, ":")
	if !ok || ns == "" || name == "" || !safeSegment(ns) || !safeSegment(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(f.root, ns, name+fileExt), nil
}

func safeSegment(s string) bool {
	return s != "." && s != ".." && !strings.ContainsAny(s, `/\:`)
}

// keyOf maps a file path under root back to its key.
func (f *FileBackend) keyOf(path string) (string, bool) {
	rel, err := filepath.Rel(f.root, path)
	if err != nil || !strings.HasSuffix(rel, fileExt) {
		return "", false
	}
	ns, name := filepath.Split(strings.TrimSuffix(rel, fileExt))
	ns = filepath.Clean(ns)
	if ns == "." || strings.ContainsRune(ns, filepath.Separator) {
		return "", false
	}
	return ns + ":" + name, true
}

// Get implements Backend.
func (f *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(f.fs, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, ioError("read", key, err)
	}
	return data, nil
}

// Set implements Backend. The retention hint is ignored; stale files are
// overwritten or removed by DeletePrefix.
func (f *FileBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return ioError("create dir", key, err)
	}

	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	if err := afero.WriteFile(f.fs, tmp, value, 0o644); err != nil {
		_ = f.fs.Remove(tmp)
		return ioError("write", key, err)
	}
	if err := f.fs.Rename(tmp, p); err != nil {
		_ = f.fs.Remove(tmp)
		return ioError("rename", key, err)
	}
	return nil
}

// walk calls fn for every entry file whose key starts with prefix.
func (f *FileBackend) walk(prefix string, fn func(path, key string, info os.FileInfo) error) error {
	err := afero.Walk(f.fs, f.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		key, ok := f.keyOf(path)
		if !ok || !strings.HasPrefix(key, prefix) {
			return nil
		}
		return fn(path, key, info)
	})
	return err
}

// DeletePrefix implements Backend.
func (f *FileBackend) DeletePrefix(_ context.Context, prefix string) (int, error) {
	var paths []string
	err := f.walk(prefix, func(path, _ string, _ os.FileInfo) error {
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return 0, ioError("scan", prefix, err)
	}

	removed := 0
	for _, p := range paths {
		if err := f.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, ioError("remove", p, err)
		}
		removed++
	}
	return removed, nil
}

// Usage implements Backend.
func (f *FileBackend) Usage(_ context.Context, prefix string) (Usage, error) {
	var u Usage
	err := f.walk(prefix, func(_, _ string, info os.FileInfo) error {
		u.Keys++
		u.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return Usage{}, ioError("scan", prefix, err)
	}
	return u, nil
}

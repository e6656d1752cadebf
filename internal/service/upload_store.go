package service

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// UploadStore keeps the raw bytes of uploaded documents, addressed by
// sanitised filename. A later upload with the same name replaces the file.
type UploadStore struct {
	fs  afero.Fs
	dir string
}

// NewUploadStore creates dir on fs if needed and returns a store rooted there.
func NewUploadStore(fs afero.Fs, dir string) (*UploadStore, error) {
	if fs == nil {
		return nil, fmt.Errorf("upload filesystem cannot be nil")
	}
	if dir == "" {
		return nil, fmt.Errorf("upload directory cannot be empty")
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &UploadStore{fs: fs, dir: dir}, nil
}

// Save writes data verbatim under filename, which must already be sanitised.
// It returns the path written.
func (s *UploadStore) Save(filename string, data []byte) (string, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	p := filepath.Join(s.dir, filename)
	if err := afero.WriteFile(s.fs, p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload %s: %w", filename, err)
	}
	return p, nil
}


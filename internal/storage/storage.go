package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Scratch hands out per-track working directories under one base directory.
type Scratch struct {
	BasePath string
}

// NewScratch creates a fresh base directory under parent (os.TempDir when empty).
func NewScratch(parent, prefix string) (*Scratch, error) {
	base, err := os.MkdirTemp(parent, prefix)
	if err != nil {
		return nil, fmt.Errorf("create scratch base: %w", err)
	}
	return &Scratch{BasePath: base}, nil
}

// TrackDir creates a unique directory for one track. The caller removes it.
func (s *Scratch) TrackDir(key string) (string, error) {
	return os.MkdirTemp(s.BasePath, key+"-")
}

// Close removes the base directory and everything under it.
func (s *Scratch) Close() error {
	return os.RemoveAll(s.BasePath)
}

// Save writes r to destPath, truncating any previous content.
func Save(r io.Reader, destPath string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		return n, err
	}
	return n, f.Close()
}

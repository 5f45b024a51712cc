package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	nsVaults = "vaults"
	nsThumbs = "thumbs"
)

// LocalFS implements Store on the local filesystem:
// <root>/vaults/<owner_id>/<object_id> and <root>/thumbs/<owner_id>/<object_id>.
type LocalFS struct {
	RootDir string
}

var _ Store = (*LocalFS)(nil)

func NewLocalFS(rootDir string) (*LocalFS, error) {
	if strings.TrimSpace(rootDir) == "" {
		return nil, fmt.Errorf("rootDir is required")
	}
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &LocalFS{RootDir: abs}, nil
}

func (s *LocalFS) Put(ctx context.Context, ownerID, objectID int64, r io.Reader, contentType string) (int64, error) {
	final := s.objectPath(nsVaults, ownerID, objectID)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return 0, err
	}

	// write to a temp file and rename so a crashed Put never leaves a
	// half-written object at the final key
	tmpDir := filepath.Join(s.RootDir, ".tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return 0, err
	}
	tmpFile, err := os.CreateTemp(tmpDir, "put-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmpFile.Name()
	defer func() { _ = os.Remove(tmpName) }()

	n, err := io.CopyBuffer(tmpFile, r, make([]byte, 32*1024))
	if cerr := tmpFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmpName, final); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *LocalFS) Get(ctx context.Context, ownerID, objectID int64) ([]byte, error) {
	data, err := os.ReadFile(s.objectPath(nsVaults, ownerID, objectID))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *LocalFS) Delete(ctx context.Context, ownerID, objectID int64) error {
	err := os.Remove(s.objectPath(nsVaults, ownerID, objectID))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

func (s *LocalFS) PutThumb(ctx context.Context, ownerID, objectID int64, data []byte, contentType string) error {
	final := s.objectPath(nsThumbs, ownerID, objectID)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return err
	}
	return os.WriteFile(final, data, 0o644)
}

func (s *LocalFS) GetThumb(ctx context.Context, ownerID, objectID int64) ([]byte, error) {
	data, err := os.ReadFile(s.objectPath(nsThumbs, ownerID, objectID))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *LocalFS) objectPath(ns string, ownerID, objectID int64) string {
	return filepath.Join(s.RootDir, ns,
		strconv.FormatInt(ownerID, 10), strconv.FormatInt(objectID, 10))
}

// Package storage is the local-storage capability used by the session
// controller: model files and the catalog cache live under one root.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"modelbridge/internal/common/fsutil"
)

const (
	modelsSubdir = "models"
	cacheSubdir  = "cache"
	modelExt     = ".gguf"
)

// Local stores files on the local filesystem below Root.
type Local struct {
	Root string
}

// NewLocal resolves root (expanding '~') and creates the directory layout.
func NewLocal(root string) (*Local, error) {
	expanded, err := fsutil.ExpandHome(root)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	for _, sub := range []string{modelsSubdir, cacheSubdir} {
		if err := os.MkdirAll(filepath.Join(abs, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", sub, err)
		}
	}
	return &Local{Root: abs}, nil
}

// ModelPath returns where the model file for id lives. Ids that already
// carry the .gguf extension are not suffixed twice.
func (l *Local) ModelPath(id string) string {
	name := sanitizeID(id)
	if !strings.HasSuffix(strings.ToLower(name), modelExt) {
		name += modelExt
	}
	return filepath.Join(l.Root, modelsSubdir, name)
}

// CachePath returns the path of a named cache artifact.
func (l *Local) CachePath(name string) string {
	return filepath.Join(l.Root, cacheSubdir, sanitizeID(name))
}

func (l *Local) Exists(path string) bool { return fsutil.IsRegularFile(path) }

func (l *Local) Read(path string) ([]byte, error) { return os.ReadFile(path) }

func (l *Local) Write(path string, data []byte) error {
	return fsutil.WriteFileAtomic(path, data, 0o644)
}

// Delete removes path; deleting a missing file is not an error.
func (l *Local) Delete(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// sanitizeID keeps ids from escaping the storage root.
func sanitizeID(id string) string {
	id = strings.TrimSpace(id)
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_")
	id = r.Replace(id)
	id = strings.TrimLeft(id, ".")
	if id == "" {
		id = "_"
	}
	return id
}

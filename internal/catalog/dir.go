package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"modelbridge/internal/common/fsutil"
	"modelbridge/pkg/types"
)

// GGUFScanner lists *.gguf files in a directory.
type GGUFScanner struct{}

func NewGGUFScanner() GGUFScanner { return GGUFScanner{} }

// Scan returns one model per *.gguf file (case-insensitive). ID and Name
// are the full filename; URL is a file:// reference to the absolute path.
func (GGUFScanner) Scan(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		m := types.Model{ID: name, Name: name, URL: "file://" + filepath.Join(abs, name)}
		if fi, err := e.Info(); err == nil {
			m.SizeBytes = fi.Size()
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Dir is a catalog backed by a directory scan.
type Dir struct {
	Path string
}

func (d Dir) ListModels(context.Context) ([]types.Model, error) {
	return NewGGUFScanner().Scan(d.Path)
}

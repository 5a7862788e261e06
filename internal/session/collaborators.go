package session

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_collaborators.go -package=mocks modelbridge/internal/session Fetcher,Storage,Catalog

import (
	"context"

	"modelbridge/pkg/types"
)

// Fetcher downloads a model and returns its local path. onProgress receives
// fractions in [0,1].
type Fetcher interface {
	FetchModel(ctx context.Context, id string, onProgress func(float64)) (string, error)
}

// Storage is the local file capability: model files and the catalog cache.
type Storage interface {
	Exists(path string) bool
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	Delete(path string) error
	ModelPath(id string) string
	CachePath(name string) string
}

// Catalog lists the models that can be downloaded.
type Catalog interface {
	ListModels(ctx context.Context) ([]types.Model, error)
}

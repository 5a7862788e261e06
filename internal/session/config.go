package session

import (
	"time"

	"github.com/rs/zerolog"

	"modelbridge/internal/telemetry"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultContextSize = 2048
	// CatalogCacheFile is the name of the cached model list inside Storage.
	CatalogCacheFile = "catalog.json"

	drainPollInterval = 10 * time.Millisecond
)

// Config encapsulates the collaborators and tunables of a Controller.
type Config struct {
	// ModelID and ContextSize are used by the implicit Init at the top of
	// Complete/Embed when no handle is bound yet.
	ModelID     string
	ContextSize int
	CorpusDir   string
	Threads     int

	Engine    Engine
	Fetcher   Fetcher
	Storage   Storage
	Catalog   Catalog
	Publisher telemetry.Publisher
	// Logger defaults to zerolog.Nop() when nil.
	Logger *zerolog.Logger
}

// ResponseBufferSize is the number of bytes reserved for a completion of at
// most maxTokens tokens.
func ResponseBufferSize(maxTokens int) int {
	return maxTokens*8 + 1024
}

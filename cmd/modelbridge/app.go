package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"modelbridge/internal/catalog"
	"modelbridge/internal/common/fsutil"
	"modelbridge/internal/config"
	"modelbridge/internal/fetch"
	"modelbridge/internal/session"
	"modelbridge/internal/storage"
	"modelbridge/internal/telemetry"
)

// app is the wired session together with everything that must be closed
// when the process exits.
type app struct {
	ctrl    *session.Controller
	store   *storage.Local
	events  *telemetry.SQLitePublisher
	closers []func() error

	// releaseTimeout bounds how long Close waits for an in-flight call to
	// stop before the native handle is released.
	releaseTimeout time.Duration
}

const defaultReleaseTimeout = 10 * time.Second

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// newApp builds storage, fetcher, catalog and telemetry from cfg and hands
// them to a session controller.
func newApp(cfg config.Config, log zerolog.Logger, reg prometheus.Registerer) (*app, error) {
	store, err := storage.NewLocal(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	a := &app{store: store}

	cat, err := newCatalog(cfg, store)
	if err != nil {
		return nil, err
	}

	pubs := telemetry.Multi{telemetry.NewLogPublisher(log, zerolog.DebugLevel)}
	if reg != nil {
		mp, err := telemetry.NewMetricsPublisher(reg)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		pubs = append(pubs, mp)
	}
	if cfg.TelemetryDB != "" {
		path, err := fsutil.ExpandHome(cfg.TelemetryDB)
		if err != nil {
			return nil, err
		}
		db, err := telemetry.OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("telemetry db: %w", err)
		}
		a.events = db
		a.closers = append(a.closers, db.Close)
		pubs = append(pubs, db)
	}

	a.releaseTimeout = defaultReleaseTimeout
	fetcher := fetch.NewHTTPFetcher(cfg.FetchBaseURL, store, fetch.WithLogger(log))

	a.ctrl = session.New(session.Config{
		ModelID:     cfg.ModelID,
		ContextSize: cfg.ContextSize,
		CorpusDir:   cfg.CorpusDir,
		Threads:     cfg.Threads,
		Engine:      newEngine(cfg, store, log),
		Fetcher:     fetcher,
		Storage:     store,
		Catalog:     cat,
		Publisher:   pubs,
		Logger:      &log,
	})
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), a.releaseTimeout)
		defer cancel()
		return a.ctrl.Destroy(ctx)
	})
	if cfg.LlamaServerURL == "" && !session.LlamaBuilt() {
		log.Warn().Msg("built without the llama tag and no llama server configured; completions will report the engine as unavailable")
	}
	return a, nil
}

// newCatalog picks the first configured source: a JSON catalog URL, an
// Ollama server, an explicit models directory, and finally the models
// directory inside storage.
func newCatalog(cfg config.Config, store *storage.Local) (session.Catalog, error) {
	switch {
	case cfg.CatalogURL != "":
		return catalog.HTTP{URL: cfg.CatalogURL}, nil
	case cfg.OllamaURL != "":
		return catalog.NewOllama(cfg.OllamaURL, nil)
	case cfg.ModelsDir != "":
		return catalog.Dir{Path: cfg.ModelsDir}, nil
	}
	return catalog.Dir{Path: filepath.Dir(store.ModelPath("catalog"))}, nil
}

// newEngine prefers a configured llama.cpp server over the in-process engine.
func newEngine(cfg config.Config, store *storage.Local, log zerolog.Logger) session.Engine {
	if cfg.LlamaServerURL != "" {
		return session.NewServerEngine(session.ServerEngineConfig{
			BaseURL: cfg.LlamaServerURL,
			APIKey:  cfg.LlamaAPIKey,
			Logger:  log,
		})
	}
	return session.NewLlamaEngine(filepath.Join(store.Root, "cache"))
}

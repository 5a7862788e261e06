package session

import (
	"context"
	"time"
)

// Init binds a native handle for modelID. Calling it again with identical
// parameters is a no-op. With different parameters the new handle is loaded
// first and the old one released before the new one is bound, so a failure
// leaves the session exactly as it was.
func (c *Controller) Init(ctx context.Context, modelID string, contextSize int) error {
	if modelID == "" {
		modelID = c.cfg.ModelID
	}
	if contextSize <= 0 {
		contextSize = c.cfg.ContextSize
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if b := c.bound.Load(); b != nil {
		if b.modelID == modelID && b.contextSize == contextSize {
			c.log.Debug().Str("event", "init_noop").Str("model", modelID).Msg("session")
			return nil
		}
		if c.generating.Load() {
			return ErrAlreadyGenerating()
		}
	}
	return c.bindLocked(ctx, modelID, contextSize)
}

// acquire returns the bound handle, running the implicit init with the
// configured model when nothing is bound. The caller holds the generating flag.
func (c *Controller) acquire(ctx context.Context) (*binding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b := c.bound.Load(); b != nil {
		return b, nil
	}
	if err := c.bindLocked(ctx, c.cfg.ModelID, c.cfg.ContextSize); err != nil {
		return nil, err
	}
	return c.bound.Load(), nil
}

// bindLocked loads and binds a handle. c.mu must be held.
func (c *Controller) bindLocked(ctx context.Context, modelID string, contextSize int) error {
	if modelID == "" {
		return ErrModelNotDownloaded("(unspecified)")
	}
	if c.cfg.Storage == nil {
		return ErrDependencyUnavailable("no model storage configured")
	}
	path := c.cfg.Storage.ModelPath(modelID)
	if !c.cfg.Storage.Exists(path) {
		return ErrModelNotDownloaded(modelID)
	}
	if c.cfg.Engine == nil {
		return ErrDependencyUnavailable("no inference engine configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	c.log.Info().Str("event", "init_start").Str("model", modelID).Int("ctx", contextSize).Msg("session")
	c.publish("init_start", modelID, map[string]any{"ctx": contextSize})

	h, err := c.cfg.Engine.Load(ctx, LoadParams{
		ModelPath:   path,
		ContextSize: contextSize,
		CorpusDir:   c.cfg.CorpusDir,
		Threads:     c.cfg.Threads,
	})
	if err != nil {
		c.log.Error().Str("event", "init_error").Str("model", modelID).Err(err).Msg("session")
		c.publish("init_error", modelID, map[string]any{"error": err.Error()})
		switch {
		case IsDependencyUnavailable(err):
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return ErrNativeEngineFailure("load", err)
		}
	}
	if old := c.bound.Load(); old != nil {
		if cerr := old.handle.Close(); cerr != nil {
			c.log.Warn().Str("event", "release_error").Str("model", old.modelID).Err(cerr).Msg("session")
		}
		c.publish("release", old.modelID, map[string]any{"reason": "rebind"})
	}
	c.bound.Store(&binding{handle: h, modelID: modelID, contextSize: contextSize})
	dur := time.Since(start)
	c.log.Info().Str("event", "init_done").Str("model", modelID).Dur("dur", dur).Msg("session")
	c.publish("init_done", modelID, map[string]any{"ctx": contextSize, "dur_ms": float64(dur.Microseconds()) / 1000, "op": "init"})
	return nil
}

package session

import (
	"context"
	"fmt"
	"time"
)

// Download makes modelID available locally. A model already on disk
// reports 1.0 and returns without fetching. On success the cached catalog
// is invalidated so download status is recomputed.
func (c *Controller) Download(ctx context.Context, modelID string, onProgress func(float64)) error {
	if modelID == "" {
		modelID = c.cfg.ModelID
	}
	if !c.downloading.CompareAndSwap(false, true) {
		return ErrAlreadyDownloading(modelID)
	}
	defer c.downloading.Store(false)

	if modelID == "" {
		return fmt.Errorf("download: no model id")
	}
	if c.cfg.Storage == nil {
		return ErrDependencyUnavailable("no model storage configured")
	}
	last := -1.0
	report := func(p float64) {
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		if p < last {
			return
		}
		last = p
		if onProgress != nil {
			onProgress(p)
		}
	}
	if c.cfg.Storage.Exists(c.cfg.Storage.ModelPath(modelID)) {
		report(1)
		return nil
	}
	if c.cfg.Fetcher == nil {
		return ErrDependencyUnavailable("no model fetcher configured")
	}

	start := time.Now()
	c.log.Info().Str("event", "download_start").Str("model", modelID).Msg("session")
	c.publish("download_start", modelID, nil)
	path, err := c.cfg.Fetcher.FetchModel(ctx, modelID, report)
	if err != nil {
		c.log.Error().Str("event", "download_error").Str("model", modelID).Err(err).Msg("session")
		c.publish("download_error", modelID, map[string]any{"error": err.Error()})
		return fmt.Errorf("download %s: %w", modelID, err)
	}
	c.invalidateCatalog()
	if last < 1 {
		report(1)
	}
	dur := time.Since(start)
	c.log.Info().Str("event", "download_done").Str("model", modelID).Str("path", path).Dur("dur", dur).Msg("session")
	c.publish("download_done", modelID, map[string]any{"dur_ms": float64(dur.Microseconds()) / 1000, "op": "download"})
	return nil
}

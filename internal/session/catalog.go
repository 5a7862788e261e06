package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"modelbridge/pkg/types"
)

// catalogCache is the persisted form of the last fetched catalog.
type catalogCache struct {
	FetchedAt time.Time     `json:"fetched_at"`
	Models    []types.Model `json:"models"`
}

// GetModels returns the cached catalog unless it is absent, corrupted or
// forceRefresh is set. A refresh re-queries the Catalog, recomputes the
// download status of every model and rewrites the cache.
func (c *Controller) GetModels(ctx context.Context, forceRefresh bool) ([]types.Model, error) {
	if c.cfg.Storage == nil {
		return nil, ErrDependencyUnavailable("no model storage configured")
	}
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	path := c.cfg.Storage.CachePath(CatalogCacheFile)
	if !forceRefresh && c.cfg.Storage.Exists(path) {
		models, err := c.readCatalog(path)
		if err == nil {
			return models, nil
		}
		c.log.Warn().Str("event", "catalog_cache_corrupt").Err(err).Msg("session")
		if derr := c.cfg.Storage.Delete(path); derr != nil {
			c.log.Warn().Str("event", "catalog_cache_delete").Err(derr).Msg("session")
		}
	}

	if c.cfg.Catalog == nil {
		return nil, ErrDependencyUnavailable("no model catalog configured")
	}
	models, err := c.cfg.Catalog.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	if models == nil {
		models = []types.Model{}
	}
	for i := range models {
		models[i].Downloaded = c.cfg.Storage.Exists(c.cfg.Storage.ModelPath(models[i].ID))
	}
	data, err := json.Marshal(catalogCache{FetchedAt: time.Now().UTC(), Models: models})
	if err == nil {
		err = c.cfg.Storage.Write(path, data)
	}
	if err != nil {
		c.log.Warn().Str("event", "catalog_cache_write").Err(err).Msg("session")
	}
	c.publish("catalog_refresh", "", map[string]any{"models": len(models), "forced": forceRefresh})
	return models, nil
}

func (c *Controller) readCatalog(path string) ([]types.Model, error) {
	data, err := c.cfg.Storage.Read(path)
	if err != nil {
		return nil, err
	}
	var cache catalogCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, err
	}
	if cache.Models == nil {
		return nil, errors.New("catalog cache has no model list")
	}
	return cache.Models, nil
}

// invalidateCatalog drops the cached catalog so the next GetModels refreshes.
func (c *Controller) invalidateCatalog() {
	if c.cfg.Storage == nil {
		return
	}
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	if err := c.cfg.Storage.Delete(c.cfg.Storage.CachePath(CatalogCacheFile)); err != nil {
		c.log.Warn().Str("event", "catalog_cache_delete").Err(err).Msg("session")
	}
}

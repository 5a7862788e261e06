package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"modelbridge/pkg/types"
)

// maxCatalogBytes bounds the catalog document we are willing to read.
const maxCatalogBytes = 4 << 20

// HTTP fetches a JSON catalog. The document is either an array of models
// or an object with a "models" array.
type HTTP struct {
	URL    string
	Client *http.Client
}

func (c HTTP) ListModels(ctx context.Context) ([]types.Model, error) {
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list models: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return decodeModels(body)
}

func decodeModels(body []byte) ([]types.Model, error) {
	var list []types.Model
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var wrapped types.ModelsResponse
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return wrapped.Models, nil
}

package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"modelbridge/pkg/types"
)

// Ollama lists the models known to an Ollama server.
type Ollama struct {
	client *api.Client
}

// NewOllama builds a catalog for the Ollama server at baseURL
// (default http://localhost:11434).
func NewOllama(baseURL string, hc *http.Client) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Ollama{client: api.NewClient(u, hc)}, nil
}

func (o *Ollama) ListModels(ctx context.Context) ([]types.Model, error) {
	resp, err := o.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	out := make([]types.Model, 0, len(resp.Models))
	for _, m := range resp.Models {
		id := m.Model
		if id == "" {
			id = m.Name
		}
		out = append(out, types.Model{
			ID:        id,
			Name:      m.Name,
			SizeBytes: m.Size,
			Quant:     m.Details.QuantizationLevel,
			Family:    m.Details.Family,
		})
	}
	return out, nil
}

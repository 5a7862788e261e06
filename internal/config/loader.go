package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by Defaults.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	DataDir   string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`

	ModelID     string `json:"model_id" yaml:"model_id" toml:"model_id"`
	ContextSize int    `json:"context_size" yaml:"context_size" toml:"context_size"`
	Threads     int    `json:"threads" yaml:"threads" toml:"threads"`
	CorpusDir   string `json:"corpus_dir" yaml:"corpus_dir" toml:"corpus_dir"`

	// Catalog sources; the first non-empty one wins: CatalogURL, OllamaURL, ModelsDir.
	CatalogURL   string `json:"catalog_url" yaml:"catalog_url" toml:"catalog_url"`
	OllamaURL    string `json:"ollama_url" yaml:"ollama_url" toml:"ollama_url"`
	FetchBaseURL string `json:"fetch_base_url" yaml:"fetch_base_url" toml:"fetch_base_url"`

	// LlamaServerURL switches inference to a running llama.cpp server instead
	// of the in-process engine.
	LlamaServerURL string `json:"llama_server_url" yaml:"llama_server_url" toml:"llama_server_url"`
	LlamaAPIKey    string `json:"llama_api_key" yaml:"llama_api_key" toml:"llama_api_key"`

	TelemetryDB string `json:"telemetry_db" yaml:"telemetry_db" toml:"telemetry_db"`
	LogLevel    string `json:"log_level" yaml:"log_level" toml:"log_level"`

	MaxBodyBytes       int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

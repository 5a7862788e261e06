package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "MODELBRIDGE_"

// LoadEnv reads MODELBRIDGE_* variables into a Config. Files in envFiles are
// loaded first when they exist; variables already set in the process take
// precedence over their values. Missing variables leave fields zero.
func LoadEnv(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	var errs []string
	str := func(key string) string { return strings.TrimSpace(os.Getenv(EnvPrefix + key)) }
	num := func(key string, dst *int) {
		if v := str(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, EnvPrefix+key)
				return
			}
			*dst = n
		}
	}
	list := func(key string) []string {
		v := str(key)
		if v == "" {
			return nil
		}
		var out []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}

	cfg.Addr = str("ADDR")
	cfg.DataDir = str("DATA_DIR")
	cfg.ModelsDir = str("MODELS_DIR")
	cfg.ModelID = str("MODEL_ID")
	num("CONTEXT_SIZE", &cfg.ContextSize)
	num("THREADS", &cfg.Threads)
	cfg.CorpusDir = str("CORPUS_DIR")
	cfg.CatalogURL = str("CATALOG_URL")
	cfg.OllamaURL = str("OLLAMA_URL")
	cfg.FetchBaseURL = str("FETCH_BASE_URL")
	cfg.LlamaServerURL = str("LLAMA_SERVER_URL")
	cfg.LlamaAPIKey = str("LLAMA_API_KEY")
	cfg.TelemetryDB = str("TELEMETRY_DB")
	cfg.LogLevel = str("LOG_LEVEL")
	if v := str("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, EnvPrefix+"MAX_BODY_BYTES")
		} else {
			cfg.MaxBodyBytes = n
		}
	}
	if v := str("CORS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, EnvPrefix+"CORS_ENABLED")
		} else {
			cfg.CORSEnabled = b
		}
	}
	cfg.CORSAllowedOrigins = list("CORS_ALLOWED_ORIGINS")
	cfg.CORSAllowedMethods = list("CORS_ALLOWED_METHODS")
	cfg.CORSAllowedHeaders = list("CORS_ALLOWED_HEADERS")

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid environment values: %s", strings.Join(errs, ", "))
	}
	return cfg, nil
}

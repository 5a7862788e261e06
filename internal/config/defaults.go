package config

// Defaults returns the values used for every field left unspecified.
func Defaults() Config {
	return Config{
		Addr:               ":8080",
		DataDir:            "~/.modelbridge",
		ContextSize:        2048,
		Threads:            4,
		LogLevel:           "info",
		MaxBodyBytes:       1 << 20,
		CORSAllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "X-Log-Level", "X-Request-Id"},
	}
}

// Merge returns base with every non-zero field of over applied on top.
func Merge(base, over Config) Config {
	out := base
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	setList := func(dst *[]string, v []string) {
		if len(v) > 0 {
			*dst = append([]string(nil), v...)
		}
	}
	setStr(&out.Addr, over.Addr)
	setStr(&out.DataDir, over.DataDir)
	setStr(&out.ModelsDir, over.ModelsDir)
	setStr(&out.ModelID, over.ModelID)
	setInt(&out.ContextSize, over.ContextSize)
	setInt(&out.Threads, over.Threads)
	setStr(&out.CorpusDir, over.CorpusDir)
	setStr(&out.CatalogURL, over.CatalogURL)
	setStr(&out.OllamaURL, over.OllamaURL)
	setStr(&out.FetchBaseURL, over.FetchBaseURL)
	setStr(&out.LlamaServerURL, over.LlamaServerURL)
	setStr(&out.LlamaAPIKey, over.LlamaAPIKey)
	setStr(&out.TelemetryDB, over.TelemetryDB)
	setStr(&out.LogLevel, over.LogLevel)
	if over.MaxBodyBytes > 0 {
		out.MaxBodyBytes = over.MaxBodyBytes
	}
	if over.CORSEnabled {
		out.CORSEnabled = true
	}
	setList(&out.CORSAllowedOrigins, over.CORSAllowedOrigins)
	setList(&out.CORSAllowedMethods, over.CORSAllowedMethods)
	setList(&out.CORSAllowedHeaders, over.CORSAllowedHeaders)
	return out
}

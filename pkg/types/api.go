package types

// Model is a catalog entry for a downloadable model.
type Model struct {
	// Stable identifier for the model.
	// example: qwen3-0.6b
	ID string `json:"id" example:"qwen3-0.6b"`
	// Human-friendly name.
	// example: Qwen3 0.6B
	Name string `json:"name" example:"Qwen3 0.6B"`
	// Where the model file can be fetched from.
	URL string `json:"url,omitempty"`
	// Size of the model file in bytes, when known.
	// example: 394000000
	SizeBytes int64 `json:"size_bytes,omitempty" example:"394000000"`
	// Quantization level or variant string.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" example:"Q4_K_M"`
	// Optional family (e.g., llama, qwen, gemma).
	// example: qwen
	Family string `json:"family,omitempty" example:"qwen"`
	// Whether the model file is present in local storage.
	// example: true
	Downloaded bool `json:"downloaded" example:"true"`
}

// ModelsResponse wraps the list of models returned by GET /v1/models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// InitRequest selects the model bound to the session.
type InitRequest struct {
	// example: qwen3-0.6b
	Model string `json:"model" example:"qwen3-0.6b"`
	// example: 2048
	ContextSize int `json:"context_size,omitempty" example:"2048"`
}

// DownloadRequest asks the session to fetch a model into local storage.
type DownloadRequest struct {
	// example: qwen3-0.6b
	Model string `json:"model" example:"qwen3-0.6b"`
}

// EmbedRequest carries the text to embed.
type EmbedRequest struct {
	// example: The quick brown fox.
	Text string `json:"text" example:"The quick brown fox."`
}

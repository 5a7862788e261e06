package types

// Role identifies the speaker of a chat turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ChatTurn is one message of a conversation, kept in conversation order.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToolSpec describes a callable function offered to the model.
// Schema holds the raw parameters object exactly as received; it is nil when
// no balanced object could be located.
type ToolSpec struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Schema      *string `json:"schema,omitempty"`
}

// Sentinels meaning "let the engine decide".
const (
	DefaultTemperature float32 = -1
	DefaultTopP        float32 = -1
	DefaultTopK                = 0
	// DefaultMaxTokens is applied at the boundary; the response buffer is
	// sized from it before the native call.
	DefaultMaxTokens = 100
)

// GenerationOptions carries sampling parameters. Use NewGenerationOptions to
// get the sentinel defaults.
type GenerationOptions struct {
	Temperature   float32  `json:"temperature"`
	TopP          float32  `json:"top_p"`
	TopK          int      `json:"top_k"`
	MaxTokens     int      `json:"max_tokens"`
	StopSequences []string `json:"stop_sequences,omitempty"`
}

// NewGenerationOptions returns options with every field unset.
func NewGenerationOptions() GenerationOptions {
	return GenerationOptions{
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
		TopK:        DefaultTopK,
		MaxTokens:   DefaultMaxTokens,
	}
}

// CompletionResult is the outcome of one completion call.
type CompletionResult struct {
	Success            bool
	Response           string
	FunctionCalls      []string
	TimeToFirstTokenMs float64
	TotalTimeMs        float64
	TokensPerSecond    float64
	PromptTokens       int
	CompletionTokens   int
}

// TotalTokens is always derived, never stored.
func (r CompletionResult) TotalTokens() int {
	return r.PromptTokens + r.CompletionTokens
}

// SessionState is a read-only projection of a session controller.
type SessionState struct {
	SessionID   string `json:"session_id"`
	ModelID     string `json:"model_id"`
	ContextSize int    `json:"context_size"`
	CorpusDir   string `json:"corpus_dir,omitempty"`
	Downloaded  bool   `json:"downloaded"`
	Initialized bool   `json:"initialized"`
	Downloading bool   `json:"downloading"`
	Generating  bool   `json:"generating"`
}

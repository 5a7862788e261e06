package session

import (
	"context"

	"modelbridge/pkg/types"
)

// Engine abstracts the native runtime used by the Controller.
// Concrete implementations (e.g., llama.cpp) should satisfy this interface.
type Engine interface {
	// Load binds a native handle for the model file. It must not retain ctx.
	Load(ctx context.Context, p LoadParams) (Handle, error)
}

// LoadParams captures what the native runtime needs to open a model.
type LoadParams struct {
	ModelPath   string
	ContextSize int
	CorpusDir   string
	Threads     int
}

// Handle is one loaded model. The Controller never calls Complete and Embed
// concurrently on the same handle.
type Handle interface {
	// Complete generates a reply. onToken is invoked synchronously for each
	// token; returning false asks the engine to halt. Implementations must
	// return when ctx is canceled.
	Complete(ctx context.Context, req NativeRequest, onToken func(string) bool) (NativeResult, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	// Stop requests the in-flight call to halt. It must not block.
	Stop()
	// Reset clears accumulated context while keeping the model loaded.
	Reset() error
	Close() error
}

// NativeRequest is one completion call.
type NativeRequest struct {
	Turns   []types.ChatTurn
	Tools   string
	Options types.GenerationOptions
	// BufferSize is the response capacity in bytes reserved by the caller.
	BufferSize int
}

// NativeResult summarizes the generation after streaming. Text may be empty
// when the engine streamed every token.
type NativeResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

//go:build !llama

package session

// This file provides a no-CGO stub for the llama engine. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.
// The real engine lives in engine_llama.go (tagged 'llama').

import "context"

var llamaBuilt = false

type llamaEngine struct{}

// NewLlamaEngine returns an engine that refuses to load models without the
// 'llama' build tag.
func NewLlamaEngine(string) Engine { return llamaEngine{} }

func (llamaEngine) Load(context.Context, LoadParams) (Handle, error) {
	// Fail fast: llama runtime not available in this build.
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}

// LlamaBuilt reports whether this binary carries the native engine.
func LlamaBuilt() bool { return llamaBuilt }

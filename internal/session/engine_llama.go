//go:build llama

package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/google/uuid"

	"modelbridge/pkg/types"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaEngine loads models in-process through go-llama.cpp.
type llamaEngine struct {
	cacheDir string
}

// NewLlamaEngine returns the in-process engine. Prompt caches are kept under
// cacheDir (os.TempDir when empty).
func NewLlamaEngine(cacheDir string) Engine {
	if cacheDir == "" {
		cacheDir = os.TempDir()
	}
	return &llamaEngine{cacheDir: cacheDir}
}

// llamaHandle owns the loaded model.
type llamaHandle struct {
	model     *llama.LLama
	threads   int
	cachePath string
	stop      atomic.Bool
}

func (e *llamaEngine) Load(_ context.Context, p LoadParams) (Handle, error) {
	if strings.TrimSpace(p.ModelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	m, err := llama.New(p.ModelPath, llama.SetContext(p.ContextSize), llama.EnableEmbeddings)
	if err != nil {
		return nil, err
	}
	return &llamaHandle{
		model:     m,
		threads:   max(1, p.Threads),
		cachePath: filepath.Join(e.cacheDir, "modelbridge-"+uuid.NewString()+".promptcache"),
	}, nil
}

func (h *llamaHandle) Complete(ctx context.Context, req NativeRequest, onToken func(string) bool) (NativeResult, error) {
	if h.model == nil {
		return NativeResult{}, errors.New("llama model not initialized")
	}
	h.stop.Store(false)
	prompt := RenderChatML(req.Turns, req.Tools)
	completion := 0
	// Bridge token streaming to onToken and respect cancellation
	h.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if h.stop.Load() {
			return false
		}
		completion++
		return onToken(tok)
	})

	text, err := h.model.Predict(prompt, predictOptions(req.Options, h.threads, h.cachePath)...)
	if err != nil {
		if ctx.Err() != nil {
			return NativeResult{}, ctx.Err()
		}
		return NativeResult{}, err
	}
	res := NativeResult{Text: text, CompletionTokens: completion}
	if n, _, terr := h.model.TokenizeString(prompt); terr == nil {
		res.PromptTokens = int(n)
	}
	return res, nil
}

func (h *llamaHandle) Embed(ctx context.Context, text string) ([]float32, error) {
	if h.model == nil {
		return nil, errors.New("llama model not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.model.Embeddings(text, llama.SetThreads(h.threads))
}

func (h *llamaHandle) Stop() { h.stop.Store(true) }

// Reset drops the prompt cache so the next prediction starts from an empty context.
func (h *llamaHandle) Reset() error {
	if err := os.Remove(h.cachePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (h *llamaHandle) Close() error {
	_ = h.Reset()
	if h.model != nil {
		h.model.Free()
		h.model = nil
	}
	return nil
}

// predictOptions converts generation options into go-llama.cpp options.
// Sentinel values leave the engine defaults in place.
func predictOptions(o types.GenerationOptions, threads int, cachePath string) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, o.MaxTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetPathPromptCache(cachePath),
		llama.EnablePromptCacheAll,
	}
	if o.Temperature >= 0 {
		po = append(po, llama.SetTemperature(o.Temperature))
	}
	if o.TopP >= 0 {
		po = append(po, llama.SetTopP(o.TopP))
	}
	if o.TopK > 0 {
		po = append(po, llama.SetTopK(o.TopK))
	}
	if len(o.StopSequences) > 0 {
		po = append(po, llama.SetStopWords(o.StopSequences...))
	}
	return po
}

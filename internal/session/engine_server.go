package session

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"modelbridge/pkg/types"
)

// ServerEngineConfig configures an engine backed by a running llama.cpp
// server speaking the OpenAI-compatible HTTP API.
type ServerEngineConfig struct {
	BaseURL string
	APIKey  string
	// RequestTimeout bounds one completion or embedding call; zero disables it.
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	Logger         zerolog.Logger
}

// serverEngine implements Engine by talking to a llama.cpp server over HTTP.
type serverEngine struct {
	cfg    ServerEngineConfig
	client *http.Client
}

// NewServerEngine constructs a server-backed engine.
func NewServerEngine(cfg ServerEngineConfig) Engine {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// No client timeout: every request carries a context deadline.
	return &serverEngine{cfg: cfg, client: &http.Client{Transport: tr}}
}

// Load checks that the server answers and returns a handle naming the model
// by its file name. The server is expected to serve that model already.
func (e *serverEngine) Load(ctx context.Context, p LoadParams) (Handle, error) {
	if e.cfg.BaseURL == "" {
		return nil, ErrDependencyUnavailable("no llama server URL configured")
	}
	hctx, cancel := context.WithTimeout(ctx, e.cfg.ConnectTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(hctx, http.MethodGet, e.cfg.BaseURL+"/v1/models", nil)
	if err != nil {
		return nil, err
	}
	e.authorize(req)
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, ErrDependencyUnavailable("llama server unreachable: " + err.Error())
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrDependencyUnavailable("llama server not healthy: " + resp.Status)
	}
	model := strings.TrimSuffix(filepath.Base(p.ModelPath), filepath.Ext(p.ModelPath))
	return &serverHandle{e: e, model: model}, nil
}

func (e *serverEngine) authorize(req *http.Request) {
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}
}

// serverHandle keeps no native state; the server owns the KV cache.
type serverHandle struct {
	e     *serverEngine
	model string

	stop     atomic.Bool
	mu       sync.Mutex
	inflight context.CancelFunc
}

// completionRequest is the payload for /v1/completions. Pointer fields stay
// unset when the caller left the option at its engine-default sentinel.
type completionRequest struct {
	Model         string        `json:"model,omitempty"`
	Prompt        string        `json:"prompt"`
	MaxTokens     int           `json:"max_tokens,omitempty"`
	Temperature   *float32      `json:"temperature,omitempty"`
	TopP          *float32      `json:"top_p,omitempty"`
	TopK          int           `json:"top_k,omitempty"`
	Stop          []string      `json:"stop,omitempty"`
	Stream        bool          `json:"stream"`
	StreamOptions *streamOption `json:"stream_options,omitempty"`
}

type streamOption struct {
	IncludeUsage bool `json:"include_usage"`
}

// streamChunk is the subset of an OpenAI streaming chunk we read. llama.cpp
// also emits a bare "content" field in its native format.
type streamChunk struct {
	Choices []struct {
		Text  string `json:"text"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Content string `json:"content"`
	Usage   *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c streamChunk) fragment() string {
	if len(c.Choices) > 0 {
		if c.Choices[0].Text != "" {
			return c.Choices[0].Text
		}
		return c.Choices[0].Delta.Content
	}
	return c.Content
}

// begin derives the context of one request and registers its cancel so
// Stop can interrupt it.
func (h *serverHandle) begin(ctx context.Context) (context.Context, func()) {
	tcancel := func() {}
	if h.e.cfg.RequestTimeout > 0 {
		ctx, tcancel = context.WithTimeout(ctx, h.e.cfg.RequestTimeout)
	}
	ctx, cancel := context.WithCancel(ctx)
	h.setInflight(cancel)
	return ctx, func() {
		h.setInflight(nil)
		cancel()
		tcancel()
	}
}

func (h *serverHandle) setInflight(cancel context.CancelFunc) {
	h.mu.Lock()
	h.inflight = cancel
	h.mu.Unlock()
}

func (h *serverHandle) Complete(ctx context.Context, req NativeRequest, onToken func(string) bool) (NativeResult, error) {
	h.stop.Store(false)
	ctx, done := h.begin(ctx)
	defer done()

	payload := completionRequest{
		Model:         h.model,
		Prompt:        RenderChatML(req.Turns, req.Tools),
		MaxTokens:     req.Options.MaxTokens,
		TopK:          req.Options.TopK,
		Stop:          append([]string{imEnd}, req.Options.StopSequences...),
		Stream:        true,
		StreamOptions: &streamOption{IncludeUsage: true},
	}
	if t := req.Options.Temperature; t != types.DefaultTemperature {
		payload.Temperature = &t
	}
	if p := req.Options.TopP; p != types.DefaultTopP {
		payload.TopP = &p
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return NativeResult{}, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.e.cfg.BaseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return NativeResult{}, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	h.e.authorize(hreq)
	resp, err := h.e.client.Do(hreq)
	if err != nil {
		if ctx.Err() != nil {
			return NativeResult{}, ctx.Err()
		}
		return NativeResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return NativeResult{}, fmt.Errorf("llama server http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	// Server-Sent Events: lines beginning with "data: ".
	var res NativeResult
	r := bufio.NewReader(resp.Body)
	for {
		line, rerr := r.ReadString('\n')
		if data, ok := sseData(line); ok {
			if data == "[DONE]" {
				break
			}
			var chunk streamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				h.e.cfg.Logger.Debug().Str("event", "unknown_stream_line").Str("line", data).Msg("llama_server")
			} else {
				if chunk.Usage != nil {
					res.PromptTokens = chunk.Usage.PromptTokens
					res.CompletionTokens = chunk.Usage.CompletionTokens
				}
				if frag := chunk.fragment(); frag != "" {
					if h.stop.Load() || !onToken(frag) {
						return res, nil
					}
				}
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			return res, rerr
		}
	}
	return res, nil
}

func sseData(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if len(line) < len("data:") || !strings.EqualFold(line[:len("data:")], "data:") {
		return "", false
	}
	return strings.TrimSpace(line[len("data:"):]), true
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (h *serverHandle) Embed(ctx context.Context, text string) ([]float32, error) {
	h.stop.Store(false)
	ctx, done := h.begin(ctx)
	defer done()
	body, err := json.Marshal(map[string]any{"model": h.model, "input": text})
	if err != nil {
		return nil, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.e.cfg.BaseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	h.e.authorize(hreq)
	resp, err := h.e.client.Do(hreq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("llama server http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, errors.New("llama server returned no embedding")
	}
	return out.Data[0].Embedding, nil
}

func (h *serverHandle) Stop() {
	h.stop.Store(true)
	h.mu.Lock()
	cancel := h.inflight
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (h *serverHandle) Reset() error { return nil }

func (h *serverHandle) Close() error {
	h.e.client.CloseIdleConnections()
	return nil
}

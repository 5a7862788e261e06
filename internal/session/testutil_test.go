package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"modelbridge/internal/storage"
	"modelbridge/internal/telemetry"
	"modelbridge/pkg/types"
)

// fakeEngine is a lightweight in-memory engine used for tests. Every handle
// it loads shares the engine's behaviour fields.
type fakeEngine struct {
	mu      sync.Mutex
	loads   []LoadParams
	handles []*fakeHandle
	loadErr error

	tokens       []string
	text         string
	promptTokens int
	completeErr  error
	embedding    []float32
	// block, when set, holds Complete/Embed after the tokens until it is
	// closed, ctx is canceled or Stop is called.
	block   chan struct{}
	started chan struct{}
	// stubborn handles ignore Stop and cancellation while blocked.
	stubborn bool
	// loadGate, when set, holds Load until it is closed; loading is
	// signalled as Load starts waiting.
	loadGate  chan struct{}
	loading   chan struct{}
	completes atomic.Int32
}

func (e *fakeEngine) Load(ctx context.Context, p LoadParams) (Handle, error) {
	if e.loading != nil {
		e.loading <- struct{}{}
	}
	if e.loadGate != nil {
		<-e.loadGate
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loads = append(e.loads, p)
	if e.loadErr != nil {
		return nil, e.loadErr
	}
	h := &fakeHandle{e: e, params: p, halt: make(chan struct{})}
	e.handles = append(e.handles, h)
	return h, nil
}

func (e *fakeEngine) loadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.loads)
}

func (e *fakeEngine) handle(i int) *fakeHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handles[i]
}

type fakeHandle struct {
	e        *fakeEngine
	params   LoadParams
	lastReq  NativeRequest
	halt     chan struct{}
	haltOnce sync.Once
	stops    atomic.Int32
	resets   atomic.Int32
	closed   atomic.Bool
}

func (h *fakeHandle) wait(ctx context.Context) error {
	if h.e.started != nil {
		h.e.started <- struct{}{}
	}
	if h.e.block == nil {
		return nil
	}
	if h.e.stubborn {
		<-h.e.block
		return nil
	}
	select {
	case <-h.e.block:
		return nil
	case <-h.halt:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *fakeHandle) Complete(ctx context.Context, req NativeRequest, onToken func(string) bool) (NativeResult, error) {
	h.lastReq = req
	h.e.completes.Add(1)
	res := NativeResult{Text: h.e.text, PromptTokens: h.e.promptTokens}
	for _, tok := range h.e.tokens {
		if !onToken(tok) {
			return res, nil
		}
	}
	if err := h.wait(ctx); err != nil {
		return res, err
	}
	if h.e.completeErr != nil {
		return NativeResult{}, h.e.completeErr
	}
	return res, nil
}

func (h *fakeHandle) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := h.wait(ctx); err != nil {
		return nil, err
	}
	return h.e.embedding, nil
}

func (h *fakeHandle) Stop() {
	h.stops.Add(1)
	h.haltOnce.Do(func() { close(h.halt) })
}

func (h *fakeHandle) Reset() error {
	h.resets.Add(1)
	return nil
}

func (h *fakeHandle) Close() error {
	h.closed.Store(true)
	return nil
}

// writeModel places an empty model file for id into st.
func writeModel(t *testing.T, st *storage.Local, id string) {
	t.Helper()
	if err := st.Write(st.ModelPath(id), []byte("GGUF")); err != nil {
		t.Fatalf("write model: %v", err)
	}
}

func newTestController(t *testing.T, eng *fakeEngine) (*Controller, *storage.Local, *telemetry.MemoryPublisher) {
	t.Helper()
	st, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	writeModel(t, st, "m1")
	pub := telemetry.NewMemoryPublisher()
	c := New(Config{
		ModelID:   "m1",
		Engine:    eng,
		Storage:   st,
		Publisher: pub,
	})
	return c, st, pub
}

func userTurn(s string) []types.ChatTurn {
	return []types.ChatTurn{{Role: types.RoleUser, Content: s}}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

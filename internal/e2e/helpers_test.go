package e2e

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"modelbridge/internal/catalog"
	"modelbridge/internal/fetch"
	"modelbridge/internal/httpapi"
	"modelbridge/internal/session"
	"modelbridge/internal/storage"
	"modelbridge/internal/telemetry"
)

// echoEngine replies with the content of the last turn, one word per token.
// When gate is set every completion waits on it after the first token.
type echoEngine struct {
	gate    chan struct{}
	started chan struct{}
}

func (e *echoEngine) Load(ctx context.Context, p session.LoadParams) (session.Handle, error) {
	return &echoHandle{e: e, halt: make(chan struct{})}, nil
}

type echoHandle struct {
	e        *echoEngine
	halt     chan struct{}
	haltOnce sync.Once
}

func (h *echoHandle) Complete(ctx context.Context, req session.NativeRequest, onToken func(string) bool) (session.NativeResult, error) {
	last := req.Turns[len(req.Turns)-1].Content
	words := strings.Fields(last)
	for i, w := range words {
		if i > 0 {
			w = " " + w
		}
		if !onToken(w) {
			break
		}
		if i == 0 && h.e.gate != nil {
			if h.e.started != nil {
				h.e.started <- struct{}{}
			}
			select {
			case <-h.e.gate:
			case <-h.halt:
				return session.NativeResult{PromptTokens: len(req.Turns)}, nil
			case <-ctx.Done():
				return session.NativeResult{}, ctx.Err()
			}
		}
	}
	return session.NativeResult{PromptTokens: len(req.Turns)}, nil
}

func (h *echoHandle) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

func (h *echoHandle) Stop()        { h.haltOnce.Do(func() { close(h.halt) }) }
func (h *echoHandle) Reset() error { return nil }
func (h *echoHandle) Close() error { return nil }

// origin serves a JSON catalog at /models.json and model files at /files/<id>.
func newOrigin(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/models.json", func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString(`{"models":[`)
		i := 0
		for id := range files {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, `{"id":%q,"name":%q}`, id, id)
			i++
		}
		b.WriteString(`]}`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(b.String()))
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[strings.TrimPrefix(r.URL.Path, "/files/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		_, _ = w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type env struct {
	srv    *httptest.Server
	ctrl   *session.Controller
	store  *storage.Local
	events *telemetry.MemoryPublisher
}

func newEnv(t *testing.T, eng session.Engine, modelID string, files map[string]string) *env {
	t.Helper()
	origin := newOrigin(t, files)
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	events := telemetry.NewMemoryPublisher()
	ctrl := session.New(session.Config{
		ModelID:   modelID,
		Engine:    eng,
		Fetcher:   fetch.NewHTTPFetcher(origin.URL+"/files", store),
		Storage:   store,
		Catalog:   catalog.HTTP{URL: origin.URL + "/models.json"},
		Publisher: events,
	})
	srv := httptest.NewServer(httpapi.NewMux(ctrl))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { _ = ctrl.Destroy(context.Background()) })
	return &env{srv: srv, ctrl: ctrl, store: store, events: events}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil { t.Fatalf("new req: %v", err) }
	resp, err := http.DefaultClient.Do(req)
	if err != nil { t.Fatalf("do req: %v", err) }
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil { t.Fatalf("new req: %v", err) }
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil { t.Fatalf("do req: %v", err) }
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpDelete(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, url, nil)
	if err != nil { t.Fatalf("new req: %v", err) }
	resp, err := http.DefaultClient.Do(req)
	if err != nil { t.Fatalf("do req: %v", err) }
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp
}

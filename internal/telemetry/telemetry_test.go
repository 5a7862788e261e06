package telemetry

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestMultiJoinsErrors(t *testing.T) {
	ok := NewMemoryPublisher()
	bad := NewMemoryPublisher()
	bad.FailWith(errors.New("sink down"))
	err := Multi{ok, nil, bad}.Publish(Event{Name: "x"})
	if err == nil || !strings.Contains(err.Error(), "sink down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.Events()) != 1 || len(bad.Events()) != 1 {
		t.Fatalf("every publisher should receive the event")
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf), zerolog.InfoLevel)
	if err := p.Publish(Event{Name: "init_done", SessionID: "s1", ModelID: "m", Fields: map[string]any{"ctx": 2048}}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	out := buf.String()
	for _, frag := range []string{`"event":"init_done"`, `"session":"s1"`, `"model":"m"`, `"ctx":2048`} {
		if !strings.Contains(out, frag) {
			t.Fatalf("missing %s in %s", frag, out)
		}
	}
}

func TestMetricsPublisher(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewMetricsPublisher(reg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_ = p.Publish(Event{Name: "complete_done", Fields: map[string]any{
		"prompt_tokens": 7, "completion_tokens": 5, "ttft_ms": 12.5, "tokens_per_second": 40.0, "dur_ms": 100.0, "op": "complete",
	}})
	_ = p.Publish(Event{Name: "complete_done", Fields: map[string]any{"prompt_tokens": 3, "completion_tokens": 1}})
	if got := testutil.ToFloat64(p.tokens.WithLabelValues("prompt")); got != 10 {
		t.Fatalf("prompt tokens=%v", got)
	}
	if got := testutil.ToFloat64(p.events.WithLabelValues("complete_done")); got != 2 {
		t.Fatalf("events=%v", got)
	}
	if got := testutil.ToFloat64(p.throughput); got != 40 {
		t.Fatalf("throughput=%v", got)
	}
	if _, err := NewMetricsPublisher(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestSQLitePublisher(t *testing.T) {
	p, err := OpenSQLite(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()
	base := time.UnixMilli(1_700_000_000_000)
	for i, name := range []string{"init_start", "init_done", "complete_done"} {
		e := Event{ID: name, SessionID: "s1", Name: name, ModelID: "m", Time: base.Add(time.Duration(i) * time.Second)}
		if name == "complete_done" {
			e.Fields = map[string]any{"decode_tokens": 5}
		}
		if err := p.Publish(e); err != nil {
			t.Fatalf("publish %s: %v", name, err)
		}
	}
	if err := p.Publish(Event{ID: "init_start", SessionID: "s1", Name: "dup"}); err == nil {
		t.Fatalf("expected primary key violation")
	}
	got, err := p.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].Name != "complete_done" || got[1].Name != "init_done" {
		t.Fatalf("unexpected events: %+v", got)
	}
	if got[0].Fields["decode_tokens"] != float64(5) {
		t.Fatalf("fields=%v", got[0].Fields)
	}
}

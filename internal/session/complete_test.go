package session

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"modelbridge/internal/telemetry"
	"modelbridge/internal/wire"
	"modelbridge/pkg/types"
)

func defaultOpts() types.GenerationOptions { return types.NewGenerationOptions() }

func TestComplete_ImplicitInitAndFunctionCalls(t *testing.T) {
	eng := &fakeEngine{
		tokens:       []string{"Let me check. ", `{"function_call": `, `{"name": "x", "arguments": {}}}`},
		promptTokens: 7,
	}
	c, _, pub := newTestController(t, eng)
	var seen []string
	res, err := c.Complete(context.Background(), userTurn("weather?"), defaultOpts(), nil, func(tok string) {
		seen = append(seen, tok)
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if eng.loadCount() != 1 || !c.Ready() {
		t.Fatalf("expected implicit init")
	}
	if !reflect.DeepEqual(seen, eng.tokens) {
		t.Fatalf("callback saw %q", seen)
	}
	if !res.Success || res.Response != "Let me check. " {
		t.Fatalf("result=%+v", res)
	}
	if want := []string{`{"name": "x", "arguments": {}}`}; !reflect.DeepEqual(res.FunctionCalls, want) {
		t.Fatalf("calls=%q", res.FunctionCalls)
	}
	if res.PromptTokens != 7 || res.CompletionTokens != 3 || res.TotalTokens() != 10 {
		t.Fatalf("token accounting: %+v total=%d", res, res.TotalTokens())
	}
	if res.TimeToFirstTokenMs > res.TotalTimeMs {
		t.Fatalf("ttft %v > total %v", res.TimeToFirstTokenMs, res.TotalTimeMs)
	}
	names := strings.Join(pub.Names(), ",")
	if !strings.Contains(names, "init_done") || !strings.Contains(names, "complete_done") {
		t.Fatalf("events=%s", names)
	}
	if c.State().Generating {
		t.Fatalf("generating flag left set")
	}
}

func TestComplete_BufferSizedFromMaxTokens(t *testing.T) {
	eng := &fakeEngine{tokens: []string{"ok"}}
	c, _, _ := newTestController(t, eng)
	opts := defaultOpts()
	opts.MaxTokens = 0
	if _, err := c.Complete(context.Background(), userTurn("a"), opts, nil, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	req := eng.handle(0).lastReq
	if req.Options.MaxTokens != types.DefaultMaxTokens || req.BufferSize != 100*8+1024 {
		t.Fatalf("req=%+v", req)
	}
	opts.MaxTokens = 50
	if _, err := c.Complete(context.Background(), userTurn("a"), opts, nil, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := eng.handle(0).lastReq.BufferSize; got != ResponseBufferSize(50) {
		t.Fatalf("buffer=%d", got)
	}
}

func TestComplete_SingleFlight(t *testing.T) {
	eng := &fakeEngine{block: make(chan struct{}), started: make(chan struct{}, 1)}
	c, _, _ := newTestController(t, eng)
	done := make(chan error, 1)
	go func() {
		_, err := c.Complete(context.Background(), userTurn("first"), defaultOpts(), nil, nil)
		done <- err
	}()
	<-eng.started

	start := time.Now()
	_, err := c.Complete(context.Background(), userTurn("second"), defaultOpts(), nil, nil)
	if !IsAlreadyGenerating(err) {
		t.Fatalf("expected AlreadyGenerating, got %v", err)
	}
	if _, err := c.Embed(context.Background(), "text"); !IsAlreadyGenerating(err) {
		t.Fatalf("embed must share the in-flight flag, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("second call blocked")
	}
	if !c.State().Generating {
		t.Fatalf("state should report generating")
	}
	close(eng.block)
	if err := <-done; err != nil {
		t.Fatalf("first complete: %v", err)
	}
}

func TestComplete_StopReturnsPartialResult(t *testing.T) {
	eng := &fakeEngine{tokens: []string{"par", "tial"}, block: make(chan struct{}), started: make(chan struct{}, 1)}
	c, _, _ := newTestController(t, eng)
	type out struct {
		res types.CompletionResult
		err error
	}
	done := make(chan out, 1)
	go func() {
		res, err := c.Complete(context.Background(), userTurn("go"), defaultOpts(), nil, nil)
		done <- out{res, err}
	}()
	<-eng.started
	c.Stop()
	o := <-done
	if o.err != nil {
		t.Fatalf("stopped completion should succeed, got %v", o.err)
	}
	if !o.res.Success || o.res.Response != "partial" || o.res.CompletionTokens != 2 {
		t.Fatalf("result=%+v", o.res)
	}
	if eng.handle(0).stops.Load() != 1 {
		t.Fatalf("handle Stop not called")
	}
	// A later completion is not affected by the earlier stop.
	eng.block = nil
	res, err := c.Complete(context.Background(), userTurn("again"), defaultOpts(), nil, nil)
	if err != nil || res.Response != "partial" {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}

func TestComplete_NativeErrorIsSanitizedAndReleasesFlag(t *testing.T) {
	eng := &fakeEngine{completeErr: errors.New("decode failed:\n\"kv cache full\"")}
	c, _, _ := newTestController(t, eng)
	_, err := c.Complete(context.Background(), userTurn("x"), defaultOpts(), nil, nil)
	if !IsNativeEngineFailure(err) {
		t.Fatalf("expected NativeEngineFailure, got %v", err)
	}
	if strings.ContainsAny(err.Error(), "\n") {
		t.Fatalf("unsanitized: %q", err)
	}
	if c.State().Generating {
		t.Fatalf("flag stranded after failure")
	}
	eng.completeErr = nil
	if _, err := c.Complete(context.Background(), userTurn("x"), defaultOpts(), nil, nil); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestComplete_CallerCancellation(t *testing.T) {
	eng := &fakeEngine{block: make(chan struct{}), started: make(chan struct{}, 1)}
	c, _, _ := newTestController(t, eng)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Complete(ctx, userTurn("x"), defaultOpts(), nil, nil)
		done <- err
	}()
	<-eng.started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestComplete_Validation(t *testing.T) {
	eng := &fakeEngine{}
	c, _, _ := newTestController(t, eng)
	if _, err := c.Complete(context.Background(), nil, defaultOpts(), nil, nil); !wire.IsMalformedPayload(err) {
		t.Fatalf("expected MalformedPayload, got %v", err)
	}
	if eng.loadCount() != 0 {
		t.Fatalf("no native call expected")
	}
	c.cfg.ModelID = ""
	if _, err := c.Complete(context.Background(), userTurn("x"), defaultOpts(), nil, nil); !IsModelNotDownloaded(err) {
		t.Fatalf("expected ModelNotDownloaded without a model, got %v", err)
	}
}

func TestComplete_EngineTextWhenNotStreamed(t *testing.T) {
	eng := &fakeEngine{text: "whole answer"}
	c, _, _ := newTestController(t, eng)
	res, err := c.Complete(context.Background(), userTurn("x"), defaultOpts(), nil, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Response != "whole answer" || res.CompletionTokens != 0 || res.TokensPerSecond != 0 {
		t.Fatalf("res=%+v", res)
	}
}

func TestComplete_ToolsReachEngine(t *testing.T) {
	eng := &fakeEngine{tokens: []string{"ok"}}
	c, _, _ := newTestController(t, eng)
	schema := `{"type":"object"}`
	tools := []types.ToolSpec{{Name: "get_weather", Description: "Weather", Schema: &schema}}
	if _, err := c.Complete(context.Background(), userTurn("x"), defaultOpts(), tools, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got := eng.handle(0).lastReq.Tools
	if !strings.Contains(got, `"name": "get_weather"`) || !strings.Contains(got, schema) {
		t.Fatalf("tools prompt=%s", got)
	}
}

type panickyPublisher struct{}

func (panickyPublisher) Publish(telemetry.Event) error { panic("sink exploded") }

func TestComplete_TelemetryFailuresSwallowed(t *testing.T) {
	eng := &fakeEngine{tokens: []string{"ok"}}
	c, _, pub := newTestController(t, eng)
	pub.FailWith(errors.New("sink down"))
	if _, err := c.Complete(context.Background(), userTurn("x"), defaultOpts(), nil, nil); err != nil {
		t.Fatalf("telemetry error leaked: %v", err)
	}
	c.pub = panickyPublisher{}
	if _, err := c.Complete(context.Background(), userTurn("x"), defaultOpts(), nil, nil); err != nil {
		t.Fatalf("telemetry panic leaked: %v", err)
	}
}

func TestEmbed(t *testing.T) {
	eng := &fakeEngine{embedding: []float32{0.1, 0.2, 0.3}}
	c, _, _ := newTestController(t, eng)
	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 3 || eng.loadCount() != 1 {
		t.Fatalf("vec=%v loads=%d", vec, eng.loadCount())
	}
}

func TestEmbed_BlocksCompletion(t *testing.T) {
	eng := &fakeEngine{block: make(chan struct{}), started: make(chan struct{}, 1), embedding: []float32{1}}
	c, _, _ := newTestController(t, eng)
	done := make(chan error, 1)
	go func() {
		_, err := c.Embed(context.Background(), "x")
		done <- err
	}()
	<-eng.started
	if _, err := c.Complete(context.Background(), userTurn("x"), defaultOpts(), nil, nil); !IsAlreadyGenerating(err) {
		t.Fatalf("expected AlreadyGenerating, got %v", err)
	}
	close(eng.block)
	if err := <-done; err != nil {
		t.Fatalf("embed: %v", err)
	}
}

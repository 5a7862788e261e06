package httpapi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHandlerContext_EndsWithBaseContext(t *testing.T) {
	base, cancelBase := context.WithCancel(context.Background())
	Configure(Options{BaseContext: base})
	defer Configure(Options{})

	ctx, cancel := handlerContext(httptest.NewRequest("GET", "/", nil), 0)
	defer cancel()
	cancelBase()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("handler context survived base cancellation")
	}
}

func TestHandlerContext_EndsWithRequest(t *testing.T) {
	rctx, cancelReq := context.WithCancel(context.Background())
	r := httptest.NewRequest("GET", "/", nil).WithContext(rctx)
	ctx, cancel := handlerContext(r, 0)
	defer cancel()
	cancelReq()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("handler context survived request cancellation")
	}
}

func TestHandlerContext_Timeout(t *testing.T) {
	ctx, cancel := handlerContext(httptest.NewRequest("GET", "/", nil), 10*time.Millisecond)
	defer cancel()
	select {
	case <-ctx.Done():
		if ctx.Err() != context.DeadlineExceeded {
			t.Fatalf("err = %v", ctx.Err())
		}
	case <-time.After(time.Second):
		t.Fatal("timeout not applied")
	}
}

func TestConfigure_Normalizes(t *testing.T) {
	defer Configure(Options{})
	Configure(Options{MaxBodyBytes: -1, CompleteTimeout: -time.Second})
	if settings.MaxBodyBytes != defaultMaxBodyBytes {
		t.Fatalf("max body = %d", settings.MaxBodyBytes)
	}
	if settings.CompleteTimeout != 0 {
		t.Fatalf("negative timeout kept: %v", settings.CompleteTimeout)
	}
	if settings.BaseContext == nil || settings.BaseContext.Err() != nil {
		t.Fatal("base context must default to a live background context")
	}
	origins := []string{"http://a"}
	Configure(Options{CORS: CORSOptions{Enabled: true, Origins: origins}})
	origins[0] = "mutated"
	if settings.CORS.Origins[0] != "http://a" {
		t.Fatalf("origins aliased the caller slice")
	}
}

package httpapi

import (
	"context"
	"net/http"
	"time"
)

// handlerContext derives the context for one session call. It ends when the
// request goes away, when the server base context is canceled, or after
// timeout when timeout is positive.
func handlerContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	unhook := context.AfterFunc(settings.BaseContext, cancel)
	if timeout <= 0 {
		return ctx, func() {
			unhook()
			cancel()
		}
	}
	tctx, tcancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		tcancel()
		unhook()
		cancel()
	}
}

package session

import (
	"context"
	"time"
)

// Embed returns the embedding of text. It shares the in-flight flag with
// Complete, so the two are mutually exclusive.
func (c *Controller) Embed(ctx context.Context, text string) ([]float32, error) {
	id, ok := c.beginCall()
	if !ok {
		return nil, ErrAlreadyGenerating()
	}
	defer c.endCall()
	stopRequested := c.stopper(id)

	b, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	if stopRequested() {
		return nil, context.Canceled
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.setActive(b.handle, cancel)

	start := time.Now()
	vec, err := b.handle.Embed(runCtx, text)
	if err != nil {
		c.log.Error().Str("event", "embed_error").Str("model", b.modelID).Err(err).Msg("session")
		c.publish("embed_error", b.modelID, map[string]any{"error": err.Error()})
		switch {
		case stopRequested():
			return nil, context.Canceled
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case IsDependencyUnavailable(err):
			return nil, err
		default:
			return nil, ErrNativeEngineFailure("embed", err)
		}
	}
	dur := time.Since(start)
	c.log.Debug().Str("event", "embed_done").Str("model", b.modelID).Int("dim", len(vec)).Dur("dur", dur).Msg("session")
	c.publish("embed_done", b.modelID, map[string]any{"dimension": len(vec), "dur_ms": ms(dur), "op": "embed"})
	return vec, nil
}

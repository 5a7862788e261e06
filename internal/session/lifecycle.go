package session

import (
	"context"
	"time"
)

// Stop asks the in-flight completion or embedding to halt and returns
// immediately. It is a no-op when nothing is in flight. The request is bound
// to the call that is in flight now and never reaches a later call.
func (c *Controller) Stop() {
	c.activeMu.Lock()
	id := c.call
	if id == 0 {
		c.activeMu.Unlock()
		return
	}
	c.stopCall.Store(id)
	// Handle.Stop and cancel do not block; holding activeMu keeps the call
	// from ending and a new one from starting underneath them.
	if c.active != nil {
		c.active.Stop()
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.activeMu.Unlock()
	c.log.Debug().Str("event", "stop_requested").Uint64("call", id).Msg("session")
}

// Reset stops any in-flight call, waits for it to drain and clears the
// native context. The handle stays bound.
func (c *Controller) Reset(ctx context.Context) error {
	if err := c.lockIdle(ctx); err != nil {
		return err
	}
	defer c.mu.Unlock()
	b := c.bound.Load()
	if b == nil {
		return nil
	}
	if err := b.handle.Reset(); err != nil {
		c.log.Error().Str("event", "reset_error").Str("model", b.modelID).Err(err).Msg("session")
		return ErrNativeEngineFailure("reset", err)
	}
	c.log.Info().Str("event", "reset").Str("model", b.modelID).Msg("session")
	c.publish("reset", b.modelID, nil)
	return nil
}

// Destroy stops any in-flight call, waits for it to drain and releases the
// handle. A session that was never initialized and has no call in flight is
// left untouched; a call still in its implicit init is waited for, so the
// handle it binds is released too.
func (c *Controller) Destroy(ctx context.Context) error {
	c.Stop()
	if c.bound.Load() == nil && !c.generating.Load() {
		return nil
	}
	if err := c.lockIdle(ctx); err != nil {
		return err
	}
	defer c.mu.Unlock()
	b := c.bound.Load()
	if b == nil {
		return nil
	}
	c.bound.Store(nil)
	err := b.handle.Close()
	c.log.Info().Str("event", "destroy").Str("model", b.modelID).Err(err).Msg("session")
	c.publish("release", b.modelID, map[string]any{"reason": "destroy"})
	if err != nil {
		return ErrNativeEngineFailure("close", err)
	}
	return nil
}

// lockIdle returns with c.mu held and no generation in flight.
func (c *Controller) lockIdle(ctx context.Context) error {
	for {
		c.Stop()
		if err := c.drain(ctx); err != nil {
			return err
		}
		c.mu.Lock()
		if !c.generating.Load() {
			return nil
		}
		c.mu.Unlock()
	}
}

// drain polls until the generating flag clears. Only ctx bounds the wait.
func (c *Controller) drain(ctx context.Context) error {
	for c.generating.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(drainPollInterval):
		}
	}
	return nil
}

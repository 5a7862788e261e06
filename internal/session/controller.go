package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"modelbridge/internal/telemetry"
	"modelbridge/pkg/types"
)

// binding is the native handle together with the parameters it was loaded with.
type binding struct {
	handle      Handle
	modelID     string
	contextSize int
}

// Controller is the sole owner of one native handle.
type Controller struct {
	id  string
	cfg Config
	log zerolog.Logger
	pub telemetry.Publisher

	// mu serializes Init/Reset/Destroy and the implicit init of Complete/Embed.
	mu    sync.Mutex
	bound atomic.Pointer[binding]

	downloading atomic.Bool
	generating  atomic.Bool

	// activeMu guards the in-flight call: its id (0 when idle), the handle it
	// runs on and its cancel func. generating only flips under activeMu.
	activeMu sync.Mutex
	callSeq  uint64
	call     uint64
	active   Handle
	cancel   func()
	// stopCall is the id of the call the last Stop targeted.
	stopCall atomic.Uint64

	cacheMu sync.Mutex
}

// New constructs a Controller from cfg, applying package defaults.
func New(cfg Config) *Controller {
	if cfg.ContextSize <= 0 {
		cfg.ContextSize = DefaultContextSize
	}
	c := &Controller{
		id:  uuid.NewString(),
		cfg: cfg,
		pub: cfg.Publisher,
	}
	if cfg.Logger != nil {
		c.log = cfg.Logger.With().Str("session", c.id).Logger()
	} else {
		c.log = zerolog.Nop()
	}
	if c.pub == nil {
		c.pub = telemetry.Nop{}
	}
	return c
}

// ID returns the session identifier attached to logs and events.
func (c *Controller) ID() string { return c.id }

// Ready reports whether a native handle is bound.
func (c *Controller) Ready() bool { return c.bound.Load() != nil }

// State returns a snapshot of the session. It never blocks on a running
// Init or generation.
func (c *Controller) State() types.SessionState {
	st := types.SessionState{
		SessionID:   c.id,
		ModelID:     c.cfg.ModelID,
		ContextSize: c.cfg.ContextSize,
		CorpusDir:   c.cfg.CorpusDir,
		Downloading: c.downloading.Load(),
		Generating:  c.generating.Load(),
	}
	if b := c.bound.Load(); b != nil {
		st.ModelID = b.modelID
		st.ContextSize = b.contextSize
		st.Initialized = true
	}
	if st.ModelID != "" && c.cfg.Storage != nil {
		st.Downloaded = c.cfg.Storage.Exists(c.cfg.Storage.ModelPath(st.ModelID))
	}
	return st
}

// publish hands an event to the telemetry sink. Failures and panics are
// logged and dropped.
func (c *Controller) publish(name, modelID string, fields map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn().Str("event", name).Interface("panic", r).Msg("telemetry publisher panicked")
		}
	}()
	e := telemetry.Event{
		ID:        uuid.NewString(),
		SessionID: c.id,
		Name:      name,
		ModelID:   modelID,
		Time:      time.Now(),
		Fields:    fields,
	}
	if err := c.pub.Publish(e); err != nil {
		c.log.Debug().Err(err).Str("event", name).Msg("telemetry publish failed")
	}
}

// beginCall claims the single in-flight slot shared by Complete and Embed.
// It returns the id of the new call, or false when another call holds it.
func (c *Controller) beginCall() (uint64, bool) {
	c.activeMu.Lock()
	defer c.activeMu.Unlock()
	if !c.generating.CompareAndSwap(false, true) {
		return 0, false
	}
	c.callSeq++
	c.call = c.callSeq
	return c.call, true
}

// endCall releases the slot taken by beginCall.
func (c *Controller) endCall() {
	c.activeMu.Lock()
	c.call = 0
	c.active = nil
	c.cancel = nil
	c.generating.Store(false)
	c.activeMu.Unlock()
}

// setActive records the handle and cancel func that Stop targets.
func (c *Controller) setActive(h Handle, cancel func()) {
	c.activeMu.Lock()
	c.active = h
	c.cancel = cancel
	c.activeMu.Unlock()
}

// stopper reports whether a Stop was issued for the call with the given id.
func (c *Controller) stopper(id uint64) func() bool {
	return func() bool { return c.stopCall.Load() == id }
}

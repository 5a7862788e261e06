package telemetry

import "github.com/rs/zerolog"

// LogPublisher writes events as structured log lines.
type LogPublisher struct {
	log   zerolog.Logger
	level zerolog.Level
}

func NewLogPublisher(l zerolog.Logger, level zerolog.Level) *LogPublisher {
	return &LogPublisher{log: l, level: level}
}

func (p *LogPublisher) Publish(e Event) error {
	ev := p.log.WithLevel(p.level).
		Str("event", e.Name).
		Str("session", e.SessionID)
	if e.ModelID != "" {
		ev = ev.Str("model", e.ModelID)
	}
	ev.Fields(e.Fields).Msg("session")
	return nil
}

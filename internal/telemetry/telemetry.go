// Package telemetry implements the fire-and-forget event sink the engine
// reports pack-build, governor, and safeguard outcomes to.
package telemetry

import (
	"log/slog"

	"github.com/google/uuid"
)

// EventType names one of the three event kinds §6 requires.
type EventType string

const (
	EventPackMetrics    EventType = "pack_metrics"
	EventGovernorAction EventType = "governor_action"
	EventSafeguard      EventType = "safeguard"
)

// Event is a single telemetry record. Fields is deliberately a loose map
// since each EventType carries a different field set (§6 lists them per
// event, not as one shared schema).
type Event struct {
	ID     string
	Type   EventType
	Fields map[string]any
}

// Sink is the telemetry collaborator interface. Implementations must
// never block the caller on a slow downstream and must never propagate
// an error back into the engine (§7: fire-and-forget).
type Sink interface {
	Emit(e Event)
}

// LogSink is the reference implementation: structured log lines via
// log/slog, the way Hoofy reports pipeline stage outcomes.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink wraps logger, or the default slog logger if nil.
func NewLogSink(logger *slog.Logger) LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return LogSink{logger: logger}
}

// Emit implements Sink.
func (s LogSink) Emit(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	args := make([]any, 0, 2+2*len(e.Fields))
	args = append(args, "event_id", e.ID)
	for k, v := range e.Fields {
		args = append(args, k, v)
	}
	s.logger.Info(string(e.Type), args...)
}

// NoopSink discards every event, used when telemetry is not wired (e.g.
// in unit tests of other packages).
type NoopSink struct{}

// Emit implements Sink.
func (NoopSink) Emit(Event) {}

package agent

// EventLogger is the interface for logging structured events during execution
type EventLogger interface {
	LogEvent(eventType string, data map[string]any)
}

// Event types emitted by the executor and evaluation loop
const (
	EventTaskStarted      = "task_started"
	EventTaskCompleted    = "task_completed"
	EventParseFailed      = "parse_failed"
	EventStoreDegraded    = "store_degraded"
	EventIterationStarted = "iteration_started"
	EventContentEvaluated = "content_evaluated"
	EventLoopExhausted    = "loop_exhausted"
)

// NopLogger discards all events
type NopLogger struct{}

func (NopLogger) LogEvent(string, map[string]any) {}

// MultiLogger fans events out to several loggers. Nil entries are skipped.
func MultiLogger(loggers ...EventLogger) EventLogger {
	var active []EventLogger
	for _, l := range loggers {
		if l != nil {
			active = append(active, l)
		}
	}
	return multiLogger(active)
}

type multiLogger []EventLogger

func (m multiLogger) LogEvent(eventType string, data map[string]any) {
	for _, l := range m {
		l.LogEvent(eventType, data)
	}
}

// contextEventLogger wraps an EventLogger and adds context fields to every event
type contextEventLogger struct {
	inner  EventLogger
	fields map[string]any
}

func newContextEventLogger(inner EventLogger, fields map[string]any) EventLogger {
	return &contextEventLogger{inner: inner, fields: fields}
}

func (l *contextEventLogger) LogEvent(eventType string, data map[string]any) {
	merged := make(map[string]any, len(l.fields)+len(data))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	l.inner.LogEvent(eventType, merged)
}

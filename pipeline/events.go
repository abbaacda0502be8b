package pipeline

import (
	"fmt"

	"tutobot/agent"
	"tutobot/streamers"
)

// HandlerEvents forwards loop progress events to a PipelineHandler so the
// terminal shows each attempt and verdict as it happens. Events it does
// not understand are dropped.
type HandlerEvents struct {
	handler streamers.PipelineHandler
}

func NewHandlerEvents(handler streamers.PipelineHandler) *HandlerEvents {
	return &HandlerEvents{handler: handler}
}

func (h *HandlerEvents) LogEvent(eventType string, data map[string]any) {
	switch eventType {
	case agent.EventIterationStarted:
		h.handler.IterationStarted(stringField(data, "stage"), intField(data, "iteration"), intField(data, "max"))
	case agent.EventContentEvaluated:
		h.handler.ContentEvaluated(
			stringField(data, "stage"),
			intField(data, "iteration"),
			stringField(data, "status"),
			intField(data, "quality_score"),
			stringField(data, "feedback"),
		)
	case agent.EventStoreDegraded:
		h.handler.Warning(fmt.Sprintf("session store degraded: %s", stringField(data, "error")))
	}
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

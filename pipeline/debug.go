package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DebugLogger captures pipeline execution events for debugging. Events go
// to events.log as JSONL; per-session LLM transcripts are written by the
// executor into the same directory.
type DebugLogger struct {
	dir        string
	eventsFile *os.File
	mu         sync.Mutex
	enabled    bool
}

// NewDebugLogger creates a debug logger writing to the given directory.
// An empty dir disables logging.
func NewDebugLogger(dir string) (*DebugLogger, error) {
	if dir == "" {
		return &DebugLogger{enabled: false}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating debug directory: %w", err)
	}

	eventsPath := filepath.Join(dir, "events.log")
	eventsFile, err := os.Create(eventsPath)
	if err != nil {
		return nil, fmt.Errorf("creating events file: %w", err)
	}

	return &DebugLogger{
		dir:        dir,
		eventsFile: eventsFile,
		enabled:    true,
	}, nil
}

// Close closes the events file
func (d *DebugLogger) Close() {
	if !d.enabled {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.eventsFile != nil {
		d.eventsFile.Close()
	}
}

// IsEnabled returns true if debug logging is enabled
func (d *DebugLogger) IsEnabled() bool {
	return d.enabled
}

// GetDebugDir returns the debug directory path
func (d *DebugLogger) GetDebugDir() string {
	return d.dir
}

// LogEvent logs a structured event to events.log
func (d *DebugLogger) LogEvent(eventType string, data map[string]any) {
	if !d.enabled {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	entry := map[string]any{
		"timestamp": time.Now().Format(time.RFC3339Nano),
		"event":     eventType,
	}
	for k, v := range data {
		entry[k] = v
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		return
	}

	d.eventsFile.WriteString(string(jsonBytes) + "\n")
}

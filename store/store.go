package store

import "time"

// Bundle holds the stores backing a pipeline run: session transcripts for
// the agent registry and run/stage records for the coordinator.
type Bundle struct {
	Sessions SessionStore
	Runs     RunStore
	closer   func() error
}

// Close cleans up the bundle resources
func (b *Bundle) Close() error {
	if b.closer != nil {
		return b.closer()
	}
	return nil
}

// SessionStore persists agent conversation sessions and their message
// history. GetSession returns (nil, nil) when the session does not exist;
// an error indicates the store itself failed.
type SessionStore interface {
	CreateSession(sessionID, stage, userID string) error
	GetSession(sessionID string) (*SessionInfo, error)
	AppendMessage(sessionID, role, content string) error
	GetMessages(sessionID string) ([]SessionMessage, error)
	CompleteSession(sessionID string, err error)
}

// SessionInfo describes a persisted session
type SessionInfo struct {
	ID        string    `json:"id"`
	Stage     string    `json:"stage"`
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
}

// SessionMessage represents a single message in a session
type SessionMessage struct {
	ID        int       `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// RunStore tracks pipeline runs and their per-stage results
type RunStore interface {
	CreateRun(mode string, inputsJSON string) (id string, err error)
	UpdateRunStatus(id, status string) error
	CreateStageResult(runID, stageName string) (id string, err error)
	UpdateStageResult(id, status string, outputJSON, errMsg *string) error
	GetStageResults(runID string) ([]StageResult, error)
}

// StageResult represents one stage execution within a run
type StageResult struct {
	ID         string     `json:"id"`
	RunID      string     `json:"runId"`
	StageName  string     `json:"stageName"`
	Status     string     `json:"status"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	OutputJSON *string    `json:"outputJson,omitempty"`
	Error      *string    `json:"error,omitempty"`
}

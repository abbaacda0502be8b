package store

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// NewMemoryBundle creates a Bundle backed entirely by in-memory stores
func NewMemoryBundle() *Bundle {
	return &Bundle{
		Sessions: &MemorySessionStore{sessions: make(map[string]*memSession)},
		Runs:     &MemoryRunStore{runs: make(map[string]*memRun), stages: make(map[string]*StageResult)},
	}
}

// =============================================================================
// MemorySessionStore
// =============================================================================

type memSession struct {
	info     SessionInfo
	messages []SessionMessage
}

type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*memSession
}

func (s *MemorySessionStore) CreateSession(sessionID, stage, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sessionID]; exists {
		return fmt.Errorf("session %s already exists", sessionID)
	}
	s.sessions[sessionID] = &memSession{
		info: SessionInfo{
			ID:        sessionID,
			Stage:     stage,
			UserID:    userID,
			Status:    "running",
			StartedAt: time.Now(),
		},
	}
	return nil
}

func (s *MemorySessionStore) GetSession(sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	info := sess.info
	return &info, nil
}

func (s *MemorySessionStore) AppendMessage(sessionID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}

	sess.messages = append(sess.messages, SessionMessage{
		ID:        len(sess.messages) + 1,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *MemorySessionStore) GetMessages(sessionID string) ([]SessionMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}

	msgs := make([]SessionMessage, len(sess.messages))
	copy(msgs, sess.messages)
	return msgs, nil
}

func (s *MemorySessionStore) CompleteSession(sessionID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok {
		if err != nil {
			sess.info.Status = "failed"
		} else {
			sess.info.Status = "completed"
		}
	}
}

// =============================================================================
// MemoryRunStore
// =============================================================================

type memRun struct {
	id     string
	mode   string
	status string
}

type MemoryRunStore struct {
	mu     sync.Mutex
	runs   map[string]*memRun
	stages map[string]*StageResult
}

func (s *MemoryRunStore) CreateRun(mode string, inputsJSON string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := generateID()
	s.runs[id] = &memRun{id: id, mode: mode, status: "running"}
	return id, nil
}

func (s *MemoryRunStore) UpdateRunStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run, ok := s.runs[id]; ok {
		run.status = status
	}
	return nil
}

func (s *MemoryRunStore) CreateStageResult(runID, stageName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := generateID()
	now := time.Now()
	s.stages[id] = &StageResult{
		ID:        id,
		RunID:     runID,
		StageName: stageName,
		Status:    "running",
		StartedAt: &now,
	}
	return id, nil
}

func (s *MemoryRunStore) UpdateStageResult(id, status string, outputJSON, errMsg *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stage, ok := s.stages[id]; ok {
		stage.Status = status
		stage.OutputJSON = outputJSON
		stage.Error = errMsg
		if status == "completed" || status == "failed" {
			now := time.Now()
			stage.FinishedAt = &now
		}
	}
	return nil
}

func (s *MemoryRunStore) GetStageResults(runID string) ([]StageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []StageResult
	for _, stage := range s.stages {
		if stage.RunID == runID {
			results = append(results, *stage)
		}
	}
	return results, nil
}

// =============================================================================
// Helpers
// =============================================================================

func generateID() string {
	const chars = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 12)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))]
	}
	return string(b)
}

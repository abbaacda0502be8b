package agent

import (
	"fmt"
	"sync"

	"tutobot/llm"
	"tutobot/store"
)

// Registry hands out live llm.Sessions keyed by session ID, backed by a
// SessionStore for persistence. Creation is serialized per key so two
// callers racing on the same ID share one session instead of creating two.
type Registry struct {
	store  store.SessionStore
	events EventLogger

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	mu   sync.Mutex
	sess *llm.Session
}

func NewRegistry(sessions store.SessionStore, events EventLogger) *Registry {
	if events == nil {
		events = NopLogger{}
	}
	return &Registry{
		store:   sessions,
		events:  events,
		entries: make(map[string]*registryEntry),
	}
}

// GetOrCreate returns the live session for sessionID, rebuilding it from
// the store's message history when a record exists, or creating a fresh
// one otherwise. A store lookup failure degrades to plain creation with a
// warning; when the store also refuses to record the new session,
// ErrSessionUnavailable is returned.
func (r *Registry) GetOrCreate(sessionID, stage, userID string, create func() (*llm.Session, error)) (*llm.Session, error) {
	r.mu.Lock()
	entry, ok := r.entries[sessionID]
	if !ok {
		entry = &registryEntry{}
		r.entries[sessionID] = entry
	}
	r.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.sess != nil {
		return entry.sess, nil
	}

	info, lookupErr := r.store.GetSession(sessionID)
	if lookupErr != nil {
		r.events.LogEvent(EventStoreDegraded, map[string]any{
			"session_id": sessionID,
			"error":      lookupErr.Error(),
		})
		info = nil
	}

	sess, err := create()
	if err != nil {
		return nil, fmt.Errorf("creating session '%s': %w", sessionID, err)
	}

	if info != nil {
		history, err := r.store.GetMessages(sessionID)
		if err != nil {
			r.events.LogEvent(EventStoreDegraded, map[string]any{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		} else {
			msgs := make([]llm.Message, 0, len(history))
			for _, m := range history {
				msgs = append(msgs, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
			}
			sess.RestoreHistory(msgs)
		}
		entry.sess = sess
		return sess, nil
	}

	if err := r.store.CreateSession(sessionID, stage, userID); err != nil {
		sess.Close()
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	entry.sess = sess
	return sess, nil
}

// AppendTurn persists a user/assistant exchange. Store failures are
// non-fatal; generation already happened.
func (r *Registry) AppendTurn(sessionID, userContent, assistantContent string) {
	if err := r.store.AppendMessage(sessionID, string(llm.RoleUser), userContent); err != nil {
		r.events.LogEvent(EventStoreDegraded, map[string]any{"session_id": sessionID, "error": err.Error()})
		return
	}
	if err := r.store.AppendMessage(sessionID, string(llm.RoleAssistant), assistantContent); err != nil {
		r.events.LogEvent(EventStoreDegraded, map[string]any{"session_id": sessionID, "error": err.Error()})
	}
}

// Complete marks the session finished in the store and drops the live
// entry so a later GetOrCreate rebuilds from persisted history.
func (r *Registry) Complete(sessionID string, runErr error) {
	r.store.CompleteSession(sessionID, runErr)

	r.mu.Lock()
	entry, ok := r.entries[sessionID]
	delete(r.entries, sessionID)
	r.mu.Unlock()

	if ok && entry.sess != nil {
		entry.sess.Close()
	}
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    status TEXT DEFAULT 'running',
    inputs_json TEXT,
    started_at TIMESTAMPTZ DEFAULT now(),
    finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS stage_results (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES runs(id),
    stage_name TEXT NOT NULL,
    status TEXT DEFAULT 'running',
    started_at TIMESTAMPTZ,
    finished_at TIMESTAMPTZ,
    output_json TEXT,
    error TEXT
);

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    stage TEXT NOT NULL,
    user_id TEXT NOT NULL,
    status TEXT DEFAULT 'running',
    started_at TIMESTAMPTZ DEFAULT now(),
    finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS session_messages (
    id BIGSERIAL PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES sessions(id),
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMPTZ DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_session_messages_session ON session_messages(session_id);
`

// NewPostgresBundle creates a Bundle backed by PostgreSQL via pgx.
func NewPostgresBundle(connString string) (*Bundle, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Bundle{
		Sessions: &PostgresSessionStore{db: db},
		Runs:     &PostgresRunStore{db: db},
		closer:   db.Close,
	}, nil
}

// =============================================================================
// PostgresSessionStore
// =============================================================================

type PostgresSessionStore struct {
	db *sql.DB
}

func (s *PostgresSessionStore) CreateSession(sessionID, stage, userID string) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, stage, user_id) VALUES ($1, $2, $3)`,
		sessionID, stage, userID,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) GetSession(sessionID string) (*SessionInfo, error) {
	var info SessionInfo
	err := s.db.QueryRow(
		`SELECT id, stage, user_id, status, started_at FROM sessions WHERE id = $1`,
		sessionID,
	).Scan(&info.ID, &info.Stage, &info.UserID, &info.Status, &info.StartedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *PostgresSessionStore) AppendMessage(sessionID, role, content string) error {
	_, err := s.db.Exec(
		`INSERT INTO session_messages (session_id, role, content) VALUES ($1, $2, $3)`,
		sessionID, role, content,
	)
	return err
}

func (s *PostgresSessionStore) GetMessages(sessionID string) ([]SessionMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, role, content, created_at FROM session_messages WHERE session_id = $1 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []SessionMessage
	for rows.Next() {
		var m SessionMessage
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *PostgresSessionStore) CompleteSession(sessionID string, err error) {
	status := "completed"
	if err != nil {
		status = "failed"
	}
	s.db.Exec(
		`UPDATE sessions SET status = $1, finished_at = $2 WHERE id = $3`,
		status, time.Now(), sessionID,
	)
}

// =============================================================================
// PostgresRunStore
// =============================================================================

type PostgresRunStore struct {
	db *sql.DB
}

func (s *PostgresRunStore) CreateRun(mode string, inputsJSON string) (string, error) {
	id := generateID()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, mode, inputs_json) VALUES ($1, $2, $3)`,
		id, mode, inputsJSON,
	)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

func (s *PostgresRunStore) UpdateRunStatus(id, status string) error {
	var finishedAt *time.Time
	if status == "completed" || status == "failed" {
		now := time.Now()
		finishedAt = &now
	}
	_, err := s.db.Exec(
		`UPDATE runs SET status = $1, finished_at = $2 WHERE id = $3`,
		status, finishedAt, id,
	)
	return err
}

func (s *PostgresRunStore) CreateStageResult(runID, stageName string) (string, error) {
	id := generateID()
	_, err := s.db.Exec(
		`INSERT INTO stage_results (id, run_id, stage_name, started_at) VALUES ($1, $2, $3, $4)`,
		id, runID, stageName, time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("create stage result: %w", err)
	}
	return id, nil
}

func (s *PostgresRunStore) UpdateStageResult(id, status string, outputJSON, errMsg *string) error {
	var finishedAt *time.Time
	if status == "completed" || status == "failed" {
		now := time.Now()
		finishedAt = &now
	}
	_, err := s.db.Exec(
		`UPDATE stage_results SET status = $1, output_json = $2, error = $3, finished_at = $4 WHERE id = $5`,
		status, outputJSON, errMsg, finishedAt, id,
	)
	return err
}

func (s *PostgresRunStore) GetStageResults(runID string) ([]StageResult, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, stage_name, status, started_at, finished_at, output_json, error FROM stage_results WHERE run_id = $1 ORDER BY started_at`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []StageResult
	for rows.Next() {
		var r StageResult
		var startedAt, finishedAt sql.NullTime
		var outputJSON, errMsg sql.NullString

		if err := rows.Scan(&r.ID, &r.RunID, &r.StageName, &r.Status, &startedAt, &finishedAt, &outputJSON, &errMsg); err != nil {
			return nil, err
		}

		if startedAt.Valid {
			r.StartedAt = &startedAt.Time
		}
		if finishedAt.Valid {
			r.FinishedAt = &finishedAt.Time
		}
		if outputJSON.Valid {
			r.OutputJSON = &outputJSON.String
		}
		if errMsg.Valid {
			r.Error = &errMsg.String
		}

		results = append(results, r)
	}
	return results, nil
}

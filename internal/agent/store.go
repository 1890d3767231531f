package agent

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tycho-agent/tycho/internal/llm"
)

// RunRecord is a persisted conversation run for replay and history.
type RunRecord struct {
	ID                string         `json:"id"`
	Prompt            string         `json:"prompt"`
	Model             string         `json:"model"`
	Iterations        int            `json:"iterations"`
	MaxIterations     int            `json:"max_iterations"`
	ToolsExecuted     int            `json:"tools_executed"`
	InputTokens       int            `json:"input_tokens"`
	OutputTokens      int            `json:"output_tokens"`
	Success           bool           `json:"success"`
	TerminationReason string         `json:"termination_reason"`
	ToolsCalled       map[string]int `json:"tools_called,omitempty"`
	Citations         []Citation     `json:"citations,omitempty"`
	Messages          []llm.Message  `json:"messages,omitempty"`
	FinalResponse     string         `json:"final_response"`
	StartedAt         time.Time      `json:"started_at"`
	CompletedAt       time.Time      `json:"completed_at"`
	DurationMs        int64          `json:"duration_ms"`
}

// RecordFromSummary builds a RunRecord from a completed run.
func RecordFromSummary(s *Summary, maxIterations int, messages []llm.Message) *RunRecord {
	toolsCalled := make(map[string]int)
	for _, tc := range s.ToolCalls {
		toolsCalled[tc.Tool]++
	}
	if len(toolsCalled) == 0 {
		toolsCalled = nil
	}

	return &RunRecord{
		ID:                s.RunID,
		Prompt:            s.Prompt,
		Model:             s.Model,
		Iterations:        s.Iterations,
		MaxIterations:     maxIterations,
		ToolsExecuted:     s.ToolsExecuted,
		InputTokens:       s.InputTokens,
		OutputTokens:      s.OutputTokens,
		Success:           s.Success,
		TerminationReason: s.TerminationReason,
		ToolsCalled:       toolsCalled,
		Citations:         s.Citations,
		Messages:          messages,
		FinalResponse:     s.FinalResponse,
		StartedAt:         s.StartedAt,
		CompletedAt:       s.CompletedAt,
		DurationMs:        s.CompletedAt.Sub(s.StartedAt).Milliseconds(),
	}
}

// RunStore persists run records in a SQLite database.
type RunStore struct {
	db *sql.DB
}

// OpenRunStore opens (creating if needed) the run history database at
// dbPath and runs migrations.
func OpenRunStore(dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}

	s := &RunStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run store migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *RunStore) Close() error {
	return s.db.Close()
}

func (s *RunStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id                 TEXT PRIMARY KEY,
			prompt             TEXT NOT NULL,
			model              TEXT NOT NULL,
			iterations         INTEGER NOT NULL,
			max_iterations     INTEGER NOT NULL,
			tools_executed     INTEGER NOT NULL,
			input_tokens       INTEGER NOT NULL,
			output_tokens      INTEGER NOT NULL,
			success            BOOLEAN NOT NULL DEFAULT 0,
			termination_reason TEXT,
			tools_called       TEXT,
			citations          TEXT,
			messages           TEXT,
			final_response     TEXT,
			started_at         TEXT NOT NULL,
			completed_at       TEXT NOT NULL,
			duration_ms        INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started
			ON runs(started_at DESC);
		CREATE INDEX IF NOT EXISTS idx_runs_model
			ON runs(model);
	`)
	return err
}

// Record inserts a run record.
func (s *RunStore) Record(rec *RunRecord) error {
	toolsJSON, err := json.Marshal(rec.ToolsCalled)
	if err != nil {
		return fmt.Errorf("marshal tools_called: %w", err)
	}
	citationsJSON, err := json.Marshal(rec.Citations)
	if err != nil {
		return fmt.Errorf("marshal citations: %w", err)
	}
	msgsJSON, err := json.Marshal(rec.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (
			id, prompt, model, iterations, max_iterations, tools_executed,
			input_tokens, output_tokens, success, termination_reason,
			tools_called, citations, messages, final_response,
			started_at, completed_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Prompt, rec.Model,
		rec.Iterations, rec.MaxIterations, rec.ToolsExecuted,
		rec.InputTokens, rec.OutputTokens,
		rec.Success, rec.TerminationReason,
		string(toolsJSON), string(citationsJSON), string(msgsJSON),
		rec.FinalResponse,
		rec.StartedAt.Format(time.RFC3339Nano),
		rec.CompletedAt.Format(time.RFC3339Nano),
		rec.DurationMs,
	)
	return err
}

// Get retrieves a single run record by ID.
func (s *RunStore) Get(id string) (*RunRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, prompt, model, iterations, max_iterations, tools_executed,
			input_tokens, output_tokens, success, termination_reason,
			tools_called, citations, messages, final_response,
			started_at, completed_at, duration_ms
		FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// List returns run records ordered newest-first. If limit is 0, all
// records are returned.
func (s *RunStore) List(limit int) ([]*RunRecord, error) {
	query := `
		SELECT id, prompt, model, iterations, max_iterations, tools_executed,
			input_tokens, output_tokens, success, termination_reason,
			tools_called, citations, messages, final_response,
			started_at, completed_at, duration_ms
		FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*RunRecord, error) {
	var rec RunRecord
	var termination, toolsJSON, citationsJSON, msgsJSON, finalResponse sql.NullString
	var startedAt, completedAt string

	err := s.Scan(
		&rec.ID, &rec.Prompt, &rec.Model,
		&rec.Iterations, &rec.MaxIterations, &rec.ToolsExecuted,
		&rec.InputTokens, &rec.OutputTokens,
		&rec.Success, &termination,
		&toolsJSON, &citationsJSON, &msgsJSON, &finalResponse,
		&startedAt, &completedAt, &rec.DurationMs,
	)
	if err != nil {
		return nil, err
	}

	rec.TerminationReason = termination.String
	rec.FinalResponse = finalResponse.String
	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	rec.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt)

	if toolsJSON.Valid && toolsJSON.String != "" {
		_ = json.Unmarshal([]byte(toolsJSON.String), &rec.ToolsCalled)
	}
	if citationsJSON.Valid && citationsJSON.String != "" {
		_ = json.Unmarshal([]byte(citationsJSON.String), &rec.Citations)
	}
	if msgsJSON.Valid && msgsJSON.String != "" {
		_ = json.Unmarshal([]byte(msgsJSON.String), &rec.Messages)
	}

	return &rec, nil
}

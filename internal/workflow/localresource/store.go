package localresource

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/capsulrun/internal/executor"
	"github.com/vk/capsulrun/internal/workflow"
	_ "modernc.org/sqlite"
)

// store persists workflows and job states in SQLite.
type store struct {
	db *sql.DB
}

func openStore(path string) (*store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Job goroutines write concurrently; one connection serialises them.
	db.SetMaxOpenConns(1)

	s := &store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workflows (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		queue TEXT,
		input_processing TEXT NOT NULL,
		output_processing TEXT NOT NULL,
		status TEXT NOT NULL,
		submitted_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME
	);
	CREATE TABLE IF NOT EXISTS jobs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		workflow_id TEXT NOT NULL,
		id TEXT NOT NULL,
		process TEXT NOT NULL,
		command TEXT,
		runner TEXT,
		parameters TEXT,
		depends_on TEXT,
		status TEXT NOT NULL,
		error TEXT,
		duration_ms INTEGER DEFAULT 0,
		UNIQUE(workflow_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_workflow ON jobs(workflow_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (s *store) insert(ctx context.Context, wf *workflow.Workflow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO workflows (id, name, queue, input_processing, output_processing, status) VALUES (?, ?, ?, ?, ?, ?)`,
		wf.ID, wf.Name, wf.Queue, string(wf.InputProcessing), string(wf.OutputProcessing), statusPending,
	); err != nil {
		return fmt.Errorf("failed to insert workflow: %w", err)
	}
	for _, job := range wf.Jobs {
		command, _ := json.Marshal(job.Command)
		params, err := json.Marshal(job.Parameters)
		if err != nil {
			return fmt.Errorf("failed to encode parameters of job %q: %w", job.ID, err)
		}
		deps, _ := json.Marshal(job.DependsOn)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (workflow_id, id, process, command, runner, parameters, depends_on, status) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			wf.ID, job.ID, job.Process, string(command), job.Runner, string(params), string(deps), statusPending,
		); err != nil {
			return fmt.Errorf("failed to insert job %q: %w", job.ID, err)
		}
	}
	return tx.Commit()
}

func (s *store) setWorkflowStatus(ctx context.Context, id, status string) error {
	query := `UPDATE workflows SET status = ? WHERE id = ?`
	if status != statusRunning {
		query = `UPDATE workflows SET status = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?`
	}
	_, err := s.db.ExecContext(ctx, query, status, id)
	return err
}

func (s *store) setJobStatus(ctx context.Context, workflowID, jobID, status string, jobErr error, d time.Duration) error {
	var errText sql.NullString
	if jobErr != nil {
		errText = sql.NullString{String: jobErr.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error = ?, duration_ms = ? WHERE workflow_id = ? AND id = ?`,
		status, errText, d.Milliseconds(), workflowID, jobID)
	return err
}

func (s *store) workflowStatus(ctx context.Context, id string) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM workflows WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", workflow.ErrWorkflowNotFound, id)
	}
	return status, err
}

func (s *store) result(ctx context.Context, id string) (*executor.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, error, duration_ms FROM jobs WHERE workflow_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &executor.Result{WorkflowID: id}
	for rows.Next() {
		var (
			jobID, status string
			errText       sql.NullString
			durationMS    int64
		)
		if err := rows.Scan(&jobID, &status, &errText, &durationMS); err != nil {
			return nil, err
		}
		sr := executor.StepResult{
			ID:       jobID,
			Status:   executor.Status(status),
			Duration: time.Duration(durationMS) * time.Millisecond,
		}
		if errText.Valid {
			sr.Err = errors.New(errText.String)
		}
		result.Steps = append(result.Steps, sr)
	}
	return result, rows.Err()
}

func (s *store) delete(ctx context.Context, id string) error {
	if _, err := s.workflowStatus(ctx, id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE workflow_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, id)
	return err
}

func (s *store) close() error {
	return s.db.Close()
}

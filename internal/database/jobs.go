package database

import (
	"context"
	"database/sql"
	"fmt"
)

// SaveExecution inserts a new job execution record.
func (db *DB) SaveExecution(ctx context.Context, exec *JobExecution) error {
	query := `
		INSERT INTO job_executions (id, job_name, params_key, status, exit_error, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := db.ExecContext(ctx, query,
		exec.ID, exec.JobName, exec.ParamsKey, exec.Status, exec.ExitError, exec.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert job execution: %w", err)
	}
	return nil
}

// UpdateExecution stores the terminal status of a job execution.
func (db *DB) UpdateExecution(ctx context.Context, exec *JobExecution) error {
	query := `
		UPDATE job_executions
		SET status = $1, exit_error = $2, ended_at = $3
		WHERE id = $4
	`

	_, err := db.ExecContext(ctx, query, exec.Status, exec.ExitError, exec.EndedAt, exec.ID)
	if err != nil {
		return fmt.Errorf("failed to update job execution: %w", err)
	}
	return nil
}

// FindExecution returns the most recent execution of a job with the given
// parameter key, or nil when the job never ran with those parameters.
func (db *DB) FindExecution(ctx context.Context, jobName, paramsKey string) (*JobExecution, error) {
	query := `
		SELECT id, job_name, params_key, status, exit_error, started_at, ended_at
		FROM job_executions
		WHERE job_name = $1 AND params_key = $2
		ORDER BY started_at DESC
		LIMIT 1
	`

	var exec JobExecution
	err := db.QueryRowContext(ctx, query, jobName, paramsKey).Scan(
		&exec.ID,
		&exec.JobName,
		&exec.ParamsKey,
		&exec.Status,
		&exec.ExitError,
		&exec.StartedAt,
		&exec.EndedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query job execution: %w", err)
	}
	return &exec, nil
}

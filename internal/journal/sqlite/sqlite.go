package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/devcoord/devco/internal/journal"
	"github.com/devcoord/devco/internal/log"
)

// RecorderConfig is the configuration for the SQLite journal recorder.
type RecorderConfig struct {
	DB     *sql.DB
	Logger log.Logger
}

func (c *RecorderConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "journal.SQLite"})
	return nil
}

// Recorder is a SQLite implementation of journal.Recorder.
type Recorder struct {
	db     *sql.DB
	logger log.Logger
}

// NewRecorder creates a new SQLite journal recorder.
func NewRecorder(cfg RecorderConfig) (*Recorder, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Recorder{
		db:     cfg.DB,
		logger: cfg.Logger,
	}, nil
}

// AddStep adds a single step to an operation.
func (r *Recorder) AddStep(ctx context.Context, operation, deviceID, name string) error {
	return r.AddSteps(ctx, operation, []journal.Step{{DeviceID: deviceID, Name: name}})
}

// AddSteps adds multiple steps to an operation in order.
func (r *Recorder) AddSteps(ctx context.Context, operation string, steps []journal.Step) error {
	if len(steps) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Get the current max sequence for this operation
	var maxSeq int
	query := `SELECT COALESCE(MAX(sequence), 0) FROM journal_steps WHERE operation = ?`
	if err := tx.QueryRowContext(ctx, query, operation).Scan(&maxSeq); err != nil {
		return fmt.Errorf("could not get max sequence: %w", err)
	}

	// Insert all steps
	insertQuery := `
		INSERT INTO journal_steps (id, device_id, operation, sequence, name, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, '', ?)
	`
	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("could not prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, step := range steps {
		stepID := ulid.Make().String()
		sequence := maxSeq + i + 1
		_, err := stmt.ExecContext(ctx, stepID, step.DeviceID, operation, sequence, step.Name, journal.StatusPending, now.Unix())
		if err != nil {
			return fmt.Errorf("could not insert step: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Added %d steps for operation %s", len(steps), operation)
	return nil
}

// NextStep returns the next pending step for an operation, or nil if all done.
func (r *Recorder) NextStep(ctx context.Context, operation string) (*journal.Step, error) {
	query := selectSteps + `
		WHERE operation = ? AND status = ?
		ORDER BY sequence ASC
		LIMIT 1
	`

	s, err := scanStep(r.db.QueryRowContext(ctx, query, operation, journal.StatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No pending steps
		}
		return nil, fmt.Errorf("could not query next step: %w", err)
	}

	return s, nil
}

// CompleteStep marks a step as completed.
func (r *Recorder) CompleteStep(ctx context.Context, stepID string) error {
	query := `UPDATE journal_steps SET status = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, journal.StatusDone, stepID)
	if err != nil {
		return fmt.Errorf("could not update step: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("step %s not found", stepID)
	}

	r.logger.Debugf("Completed step: %s", stepID)
	return nil
}

// FailStep marks a step as failed with an error message.
func (r *Recorder) FailStep(ctx context.Context, stepID string, stepErr error) error {
	errMsg := ""
	if stepErr != nil {
		errMsg = stepErr.Error()
	}

	query := `UPDATE journal_steps SET status = ?, error = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, journal.StatusFailed, errMsg, stepID)
	if err != nil {
		return fmt.Errorf("could not update step: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("step %s not found", stepID)
	}

	r.logger.Debugf("Failed step: %s (error: %s)", stepID, errMsg)
	return nil
}

// Progress returns the completion progress for an operation.
func (r *Recorder) Progress(ctx context.Context, operation string) (*journal.Progress, error) {
	query := `
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) as done
		FROM journal_steps
		WHERE operation = ?
	`

	var total, done int
	err := r.db.QueryRowContext(ctx, query, journal.StatusDone, operation).Scan(&total, &done)
	if err != nil {
		return nil, fmt.Errorf("could not query progress: %w", err)
	}

	return &journal.Progress{
		Done:  done,
		Total: total,
	}, nil
}

// ListOperationSteps returns all steps of an operation in sequence order.
func (r *Recorder) ListOperationSteps(ctx context.Context, operation string) ([]journal.Step, error) {
	query := selectSteps + `
		WHERE operation = ?
		ORDER BY sequence ASC
	`

	rows, err := r.db.QueryContext(ctx, query, operation)
	if err != nil {
		return nil, fmt.Errorf("could not query steps: %w", err)
	}
	defer rows.Close()

	steps := []journal.Step{}
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan step: %w", err)
		}
		steps = append(steps, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate steps: %w", err)
	}

	return steps, nil
}

// HasPendingOperation checks if a device has any pending steps.
func (r *Recorder) HasPendingOperation(ctx context.Context, deviceID string) (operation string, hasPending bool, err error) {
	query := `
		SELECT operation
		FROM journal_steps
		WHERE device_id = ? AND status = ?
		ORDER BY created_at ASC
		LIMIT 1
	`

	err = r.db.QueryRowContext(ctx, query, deviceID, journal.StatusPending).Scan(&operation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("could not query pending operation: %w", err)
	}

	return operation, true, nil
}

// ClearOperation removes all steps for an operation.
func (r *Recorder) ClearOperation(ctx context.Context, operation string) error {
	query := `DELETE FROM journal_steps WHERE operation = ?`

	result, err := r.db.ExecContext(ctx, query, operation)
	if err != nil {
		return fmt.Errorf("could not delete steps: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}

	r.logger.Debugf("Cleared %d steps for operation %s", rows, operation)
	return nil
}

const selectSteps = `
	SELECT id, device_id, operation, sequence, name, status, error, created_at
	FROM journal_steps
`

type scanner interface {
	Scan(dest ...any) error
}

func scanStep(s scanner) (*journal.Step, error) {
	var st journal.Step
	var createdAt int64

	err := s.Scan(
		&st.ID,
		&st.DeviceID,
		&st.Operation,
		&st.Sequence,
		&st.Name,
		&st.Status,
		&st.Error,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	st.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &st, nil
}

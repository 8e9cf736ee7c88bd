package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/vessel-tracks/internal/database"
	"github.com/jengzang/vessel-tracks/internal/models"
)

// ErrDayTaskNotFound is returned when no day task has the requested id
var ErrDayTaskNotFound = errors.New("day task not found")

const dayTaskColumns = `
	id, run_id, day, status, pings_in, pings_in_region, rejected_pings,
	vessels_in, vessels_kept, rows_out, warnings, result_summary, error_message,
	start_time, end_time, created_at, updated_at`

// DayTaskRepository handles database operations for the run ledger
type DayTaskRepository struct {
	db *sql.DB
}

// NewDayTaskRepository creates a new day task repository
func NewDayTaskRepository(db *sql.DB) *DayTaskRepository {
	return &DayTaskRepository{db: db}
}

// CreateRun inserts one pending task per day of a run, atomically
func (r *DayTaskRepository) CreateRun(runID string, days []string) ([]*models.DayTask, error) {
	tasks := make([]*models.DayTask, 0, len(days))
	err := database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO day_tasks (run_id, day, status) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, day := range days {
			result, err := stmt.Exec(runID, day, models.TaskStatusPending)
			if err != nil {
				return fmt.Errorf("failed to create day task %s: %w", day, err)
			}
			id, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get last insert id: %w", err)
			}
			tasks = append(tasks, &models.DayTask{
				ID:     id,
				RunID:  runID,
				Day:    day,
				Status: models.TaskStatusPending,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetByID retrieves a day task by ID
func (r *DayTaskRepository) GetByID(id int64) (*models.DayTask, error) {
	query := `SELECT ` + dayTaskColumns + ` FROM day_tasks WHERE id = ?`

	task, err := scanDayTask(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrDayTaskNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get day task: %w", err)
	}
	return task, nil
}

// List retrieves day tasks with optional filters in day order
func (r *DayTaskRepository) List(filter models.DayTaskFilter) ([]*models.DayTask, error) {
	query := `SELECT ` + dayTaskColumns + ` FROM day_tasks WHERE 1=1`

	args := []interface{}{}
	if filter.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " ORDER BY day ASC, id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list day tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.DayTask
	for rows.Next() {
		task, err := scanDayTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan day task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// ListFailed returns the failed days of a run in day order
func (r *DayTaskRepository) ListFailed(runID string) ([]*models.DayTask, error) {
	tasks, err := r.List(models.DayTaskFilter{RunID: runID, Status: models.TaskStatusFailed})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListCompletedDays returns the completed days of a run, YYYY-MM-DD in day order
func (r *DayTaskRepository) ListCompletedDays(runID string) ([]string, error) {
	rows, err := r.db.Query(`SELECT day FROM day_tasks WHERE run_id = ? AND status = ? ORDER BY day`,
		runID, models.TaskStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("failed to scan day: %w", err)
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

// MarkAsRunning marks a task as running and clears any previous failure
func (r *DayTaskRepository) MarkAsRunning(id int64) error {
	now := time.Now().Unix()
	query := `
		UPDATE day_tasks
		SET status = ?, start_time = ?, end_time = 0, error_message = '',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.Exec(query, models.TaskStatusRunning, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark day task as running: %w", err)
	}
	return nil
}

// MarkAsCompleted marks a task as completed with its counts and result summary
func (r *DayTaskRepository) MarkAsCompleted(id int64, stats models.DayStats, warnings int, resultSummary string) error {
	now := time.Now().Unix()
	query := `
		UPDATE day_tasks
		SET status = ?, end_time = ?, pings_in = ?, pings_in_region = ?,
			rejected_pings = ?, vessels_in = ?, vessels_kept = ?, rows_out = ?,
			warnings = ?, result_summary = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.Exec(query, models.TaskStatusCompleted, now,
		stats.PingsIn, stats.PingsInRegion, stats.RejectedPings,
		stats.VesselsIn, stats.VesselsKept, stats.RowsOut,
		warnings, resultSummary, id)
	if err != nil {
		return fmt.Errorf("failed to mark day task as completed: %w", err)
	}
	return nil
}

// MarkAsFailed marks a task as failed with an error message
func (r *DayTaskRepository) MarkAsFailed(id int64, errorMessage string) error {
	now := time.Now().Unix()
	query := `
		UPDATE day_tasks
		SET status = ?, end_time = ?, error_message = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.Exec(query, models.TaskStatusFailed, now, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to mark day task as failed: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDayTask(row rowScanner) (*models.DayTask, error) {
	task := &models.DayTask{}
	err := row.Scan(
		&task.ID,
		&task.RunID,
		&task.Day,
		&task.Status,
		&task.PingsIn,
		&task.PingsInRegion,
		&task.RejectedPings,
		&task.VesselsIn,
		&task.VesselsKept,
		&task.RowsOut,
		&task.Warnings,
		&task.ResultSummary,
		&task.ErrorMessage,
		&task.StartTime,
		&task.EndTime,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

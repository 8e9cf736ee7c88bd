package models

import "time"

// DayTask represents one day's unit of work within a processing run
type DayTask struct {
	ID int64 `json:"id" db:"id"`

	// Task identification
	RunID string `json:"run_id" db:"run_id"` // uuid shared by every day of a run
	Day   string `json:"day" db:"day"`       // YYYY-MM-DD

	// Status
	Status string `json:"status" db:"status"` // pending, running, completed, failed

	// Execution info
	PingsIn       int   `json:"pings_in" db:"pings_in"`
	PingsInRegion int   `json:"pings_in_region" db:"pings_in_region"`
	RejectedPings int   `json:"rejected_pings" db:"rejected_pings"`
	VesselsIn     int   `json:"vessels_in" db:"vessels_in"`
	VesselsKept   int   `json:"vessels_kept" db:"vessels_kept"`
	RowsOut       int   `json:"rows_out" db:"rows_out"`
	StartTime     int64 `json:"start_time,omitempty" db:"start_time"` // Unix timestamp
	EndTime       int64 `json:"end_time,omitempty" db:"end_time"`     // Unix timestamp

	// Results
	Warnings      int    `json:"warnings" db:"warnings"`
	ResultSummary string `json:"result_summary,omitempty" db:"result_summary"` // JSON object
	ErrorMessage  string `json:"error_message,omitempty" db:"error_message"`

	// Metadata
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TaskStatus constants
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

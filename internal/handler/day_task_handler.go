package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/vessel-tracks/internal/models"
	"github.com/jengzang/vessel-tracks/internal/repository"
	"github.com/jengzang/vessel-tracks/internal/service"
	"github.com/jengzang/vessel-tracks/pkg/response"
)

// DayTaskStore reads the run ledger
type DayTaskStore interface {
	GetByID(id int64) (*models.DayTask, error)
	List(filter models.DayTaskFilter) ([]*models.DayTask, error)
}

// RunStarter schedules runs in the background
type RunStarter interface {
	Start(begin, end time.Time) (string, error)
	StartRetry(runID string) (int, error)
}

// DayTaskHandler handles HTTP requests for runs and their day tasks
type DayTaskHandler struct {
	store     DayTaskStore
	runs      RunStarter
	csvOutDir string
}

// NewDayTaskHandler creates a new day task handler
func NewDayTaskHandler(store DayTaskStore, runs RunStarter, csvOutDir string) *DayTaskHandler {
	return &DayTaskHandler{store: store, runs: runs, csvOutDir: csvOutDir}
}

// ListDays retrieves day tasks
// GET /api/v1/days
func (h *DayTaskHandler) ListDays(c *gin.Context) {
	var filter models.DayTaskFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	tasks, err := h.store.List(filter)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"days":   tasks,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetDay retrieves a day task by ID
// GET /api/v1/days/:id
func (h *DayTaskHandler) GetDay(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid day task ID")
		return
	}

	task, err := h.store.GetByID(id)
	if errors.Is(err, repository.ErrDayTaskNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, task)
}

// DownloadOutput sends a day's CSV output
// GET /api/v1/outputs/:day
func (h *DayTaskHandler) DownloadOutput(c *gin.Context) {
	day := c.Param("day")
	if _, err := time.Parse(models.DayLayout, day); err != nil {
		response.BadRequest(c, "Invalid day, expected YYYY-MM-DD")
		return
	}

	path := filepath.Join(h.csvOutDir, day+".csv")
	if _, err := os.Stat(path); err != nil {
		response.NotFound(c, "No output for "+day)
		return
	}

	c.FileAttachment(path, day+".csv")
}

// StartRunRequest represents the request body for starting a run
type StartRunRequest struct {
	Begin string `json:"begin" binding:"required,datetime=2006-01-02"`
	End   string `json:"end" binding:"required,datetime=2006-01-02"`
}

// StartRun schedules processing of every raw day in a date range
// POST /api/admin/runs
func (h *DayTaskHandler) StartRun(c *gin.Context) {
	var req StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	begin, _ := time.Parse(models.DayLayout, req.Begin)
	end, _ := time.Parse(models.DayLayout, req.End)
	if begin.After(end) {
		response.BadRequest(c, "begin must not be after end")
		return
	}

	runID, err := h.runs.Start(begin, end)
	if errors.Is(err, service.ErrDaysBusy) {
		response.Error(c, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Accepted(c, gin.H{
		"run_id":     runID,
		"started_by": c.GetString("user"),
	})
}

// RetryRun re-schedules the failed days of a run
// POST /api/admin/runs/:run_id/retry
func (h *DayTaskHandler) RetryRun(c *gin.Context) {
	runID := c.Param("run_id")

	days, err := h.runs.StartRetry(runID)
	if errors.Is(err, service.ErrDaysBusy) {
		response.Error(c, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	if days == 0 {
		response.NotFound(c, "No failed days for run "+runID)
		return
	}

	response.Accepted(c, gin.H{
		"run_id": runID,
		"days":   days,
	})
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jengzang/vessel-tracks/internal/analysis"
	"github.com/jengzang/vessel-tracks/internal/config"
	"github.com/jengzang/vessel-tracks/internal/models"
	"github.com/jengzang/vessel-tracks/internal/repository"
	"github.com/jengzang/vessel-tracks/internal/storage"
)

// RunReport summarizes one execution of a run or a retry
type RunReport struct {
	RunID     string            `json:"run_id"`
	Days      int               `json:"days"`
	Completed []string          `json:"completed"`
	Failed    map[string]string `json:"failed,omitempty"` // day -> error
	Aggregate *AggregateResult  `json:"aggregate,omitempty"`
}

// HasFailures reports whether any day failed
func (r *RunReport) HasFailures() bool {
	return len(r.Failed) > 0
}

// DaySummary is the JSON stored in the ledger's result_summary for a completed day
type DaySummary struct {
	Stats     models.DayStats                   `json:"stats"`
	Outputs   []string                          `json:"outputs"`
	Analytics map[string]map[string]interface{} `json:"analytics,omitempty"`
	Warnings  []string                          `json:"warnings,omitempty"`
}

// ErrDaysBusy is returned when a run asks for days that another run is still processing
var ErrDaysBusy = errors.New("days already being processed")

// RunService schedules one task per day over a bounded worker pool.
// A failing day is recorded in the ledger and never affects the other days.
// A day belongs to at most one in-flight run at a time.
type RunService struct {
	cfg        *config.Config
	repo       *repository.DayTaskRepository
	pipeline   *DailyPipeline
	aggregator *AggregateService

	// SkipAggregate disables the cross-day merge after a run
	SkipAggregate bool

	// background runs derive from ctx and are cancelled by Close
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	active map[string]string // day -> run id
}

// NewRunService creates a new run service
func NewRunService(cfg *config.Config, repo *repository.DayTaskRepository) *RunService {
	ctx, cancel := context.WithCancel(context.Background())
	return &RunService{
		cfg:  cfg,
		repo: repo,
		pipeline: NewDailyPipeline(PipelineConfig{
			Bounds:      cfg.Bounds(),
			MaxSpeedKph: cfg.MaxSpeedKph,
		}),
		aggregator: NewAggregateService(cfg),
		ctx:        ctx,
		cancel:     cancel,
		active:     make(map[string]string),
	}
}

// Close cancels background runs and waits for them to record their outcome.
// Days cut short are marked failed and can be retried.
func (s *RunService) Close() {
	s.cancel()
	s.wg.Wait()
}

// Run processes every raw day in [begin,end] and waits for completion
func (s *RunService) Run(ctx context.Context, begin, end time.Time) (*RunReport, error) {
	runID, tasks, err := s.prepare(begin, end)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, runID, tasks), nil
}

// Start schedules a run in the background and returns its id
func (s *RunService) Start(begin, end time.Time) (string, error) {
	runID, tasks, err := s.prepare(begin, end)
	if err != nil {
		return "", err
	}
	s.background(runID, tasks)
	return runID, nil
}

// RetryFailed re-processes the failed days of a run and waits for completion
func (s *RunService) RetryFailed(ctx context.Context, runID string) (*RunReport, error) {
	tasks, err := s.claimFailed(runID)
	if err != nil {
		return nil, err
	}
	log.Printf("[RunService] Retrying %d failed days of run %s", len(tasks), runID)
	return s.execute(ctx, runID, tasks), nil
}

// StartRetry schedules a retry in the background and returns the number of days retried
func (s *RunService) StartRetry(runID string) (int, error) {
	tasks, err := s.claimFailed(runID)
	if err != nil {
		return 0, err
	}
	if len(tasks) > 0 {
		s.background(runID, tasks)
	}
	return len(tasks), nil
}

func (s *RunService) background(runID string, tasks []*models.DayTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(s.ctx, runID, tasks)
	}()
}

func (s *RunService) claimFailed(runID string) ([]*models.DayTask, error) {
	tasks, err := s.repo.ListFailed(runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed days: %w", err)
	}
	if err := s.claim(runID, taskDays(tasks)); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *RunService) prepare(begin, end time.Time) (string, []*models.DayTask, error) {
	if begin.After(end) {
		return "", nil, fmt.Errorf("%w: %s after %s", config.ErrInvalidDateRange,
			begin.Format(models.DayLayout), end.Format(models.DayLayout))
	}

	rawDays, err := storage.DiscoverDays(s.cfg.Paths.RawDir, begin, end)
	if err != nil {
		return "", nil, err
	}

	days := make([]string, len(rawDays))
	for i, d := range rawDays {
		days[i] = d.Name()
	}

	runID := uuid.NewString()
	if err := s.claim(runID, days); err != nil {
		return "", nil, err
	}
	tasks, err := s.repo.CreateRun(runID, days)
	if err != nil {
		s.release(days)
		return "", nil, fmt.Errorf("failed to create run: %w", err)
	}

	log.Printf("[RunService] Run %s: %d days between %s and %s", runID, len(days),
		begin.Format(models.DayLayout), end.Format(models.DayLayout))
	return runID, tasks, nil
}

// claim reserves days for runID, or reserves nothing if any of them is taken
func (s *RunService) claim(runID string, days []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var busy []string
	for _, day := range days {
		if owner, ok := s.active[day]; ok {
			busy = append(busy, day+" (run "+owner+")")
		}
	}
	if len(busy) > 0 {
		return fmt.Errorf("%w: %s", ErrDaysBusy, strings.Join(busy, ", "))
	}
	for _, day := range days {
		s.active[day] = runID
	}
	return nil
}

func (s *RunService) release(days []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, day := range days {
		delete(s.active, day)
	}
}

func taskDays(tasks []*models.DayTask) []string {
	days := make([]string, len(tasks))
	for i, t := range tasks {
		days[i] = t.Day
	}
	return days
}

func (s *RunService) execute(ctx context.Context, runID string, tasks []*models.DayTask) *RunReport {
	report := &RunReport{
		RunID:     runID,
		Days:      len(tasks),
		Completed: []string{},
		Failed:    make(map[string]string),
	}
	defer s.release(taskDays(tasks))

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(max(1, s.cfg.Workers))

	for _, task := range tasks {
		g.Go(func() error {
			err := s.runDay(ctx, task)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("[RunService] Day %s failed: %v", task.Day, err)
				report.Failed[task.Day] = err.Error()
				if markErr := s.repo.MarkAsFailed(task.ID, err.Error()); markErr != nil {
					log.Printf("[RunService] Failed to record failure of %s: %v", task.Day, markErr)
				}
				return nil
			}
			report.Completed = append(report.Completed, task.Day)
			return nil
		})
	}
	g.Wait()
	sort.Strings(report.Completed)

	if !s.SkipAggregate {
		agg, err := s.aggregateRun(ctx, runID)
		if err != nil {
			log.Printf("[RunService] Run %s: aggregate skipped: %v", runID, err)
		}
		report.Aggregate = agg
	}

	log.Printf("[RunService] Run %s finished: %d completed, %d failed", runID, len(report.Completed), len(report.Failed))
	return report
}

// runDay processes one day in isolation; panics are converted into that day's error
func (s *RunService) runDay(ctx context.Context, task *models.DayTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing %s: %v", task.Day, r)
		}
	}()

	if err := s.repo.MarkAsRunning(task.ID); err != nil {
		return err
	}

	if s.cfg.DayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DayTimeout)
		defer cancel()
	}

	date, err := time.Parse(models.DayLayout, task.Day)
	if err != nil {
		return fmt.Errorf("invalid day %q: %w", task.Day, err)
	}

	batch, err := storage.ReadRawDay(ctx, filepath.Join(s.cfg.Paths.RawDir, task.Day))
	if err != nil {
		return err
	}
	if len(batch.Rejected) > 0 {
		log.Printf("[RunService] %s: rejected %d malformed pings (first: %v)", task.Day, len(batch.Rejected), batch.Rejected[0])
	}

	table, err := s.pipeline.Process(ctx, date, batch.Pings)
	if err != nil {
		return err
	}
	table.Stats.RejectedPings += len(batch.Rejected)

	summary := DaySummary{
		Stats: table.Stats,
		Outputs: []string{
			filepath.Join(s.cfg.Paths.CSVOutDir, task.Day+".csv"),
			filepath.Join(s.cfg.Paths.FeatherOutDir, task.Day+".feather"),
		},
		Analytics: make(map[string]map[string]interface{}),
	}
	if err := storage.WriteCSV(summary.Outputs[0], table.Rows); err != nil {
		return err
	}
	if err := storage.WriteFeather(summary.Outputs[1], table.Rows); err != nil {
		return err
	}

	warnings := append([]error{}, table.Warnings...)
	for _, name := range s.cfg.Analytics {
		result, err := s.runAnalytic(ctx, name, table)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			log.Printf("[RunService] %s: analytic %s failed: %v", task.Day, name, err)
			warnings = append(warnings, fmt.Errorf("analytic %s: %w", name, err))
			continue
		}
		warnings = append(warnings, result.Warnings...)
		summary.Analytics[name] = result.Summary
		summary.Outputs = append(summary.Outputs, filepath.Join(s.cfg.Paths.CSVOutDir, name, task.Day+".csv"))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	for _, w := range warnings {
		summary.Warnings = append(summary.Warnings, w.Error())
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}
	return s.repo.MarkAsCompleted(task.ID, table.Stats, len(warnings), string(summaryJSON))
}

func (s *RunService) runAnalytic(ctx context.Context, name string, table *models.DailyTable) (*analysis.Result, error) {
	analyzer := analysis.GetAnalyzer(name)
	if analyzer == nil {
		return nil, fmt.Errorf("unknown analytic: %s", name)
	}

	result, err := analyzer.Analyze(ctx, table)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.cfg.Paths.CSVOutDir, name, table.Name()+".csv")
	if err := storage.WriteTable(path, result.Header, result.Rows); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *RunService) aggregateRun(ctx context.Context, runID string) (*AggregateResult, error) {
	all, err := s.repo.List(models.DayTaskFilter{RunID: runID})
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNoCompletedDays
	}

	days, err := s.repo.ListCompletedDays(runID)
	if err != nil {
		return nil, err
	}
	return s.aggregator.Aggregate(ctx, all[0].Day, all[len(all)-1].Day, days)
}


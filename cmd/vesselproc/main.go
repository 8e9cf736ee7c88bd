package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/jengzang/vessel-tracks/internal/config"
	"github.com/jengzang/vessel-tracks/internal/database"
	"github.com/jengzang/vessel-tracks/internal/repository"
	"github.com/jengzang/vessel-tracks/internal/service"

	// Import analyzer packages to register them
	_ "github.com/jengzang/vessel-tracks/internal/analysis/spatial"
	_ "github.com/jengzang/vessel-tracks/internal/analysis/stats"
	_ "github.com/jengzang/vessel-tracks/internal/analysis/temporal"
)

const (
	exitOK         = 0
	exitFatal      = 1
	exitDaysFailed = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yml", "path to the YAML configuration")
	begin := flag.String("begin", "", "first day to process, YYYY-MM-DD (default from config)")
	end := flag.String("end", "", "last day to process, YYYY-MM-DD (default from config)")
	workers := flag.Int("workers", 0, "number of days processed concurrently (default from config)")
	retry := flag.String("retry", "", "re-process the failed days of this run id")
	noAggregate := flag.Bool("no-aggregate", false, "skip the multi-day aggregate")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return exitFatal
	}
	if *begin != "" {
		cfg.Begin = *begin
	}
	if *end != "" {
		cfg.End = *end
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("Invalid options: %v", err)
		return exitFatal
	}

	db, err := database.Open(database.Config{Path: cfg.Server.DBPath})
	if err != nil {
		log.Printf("Failed to initialize database: %v", err)
		return exitFatal
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runs := service.NewRunService(cfg, repository.NewDayTaskRepository(db))
	runs.SkipAggregate = *noAggregate
	defer runs.Close()

	start := time.Now()
	var report *service.RunReport
	if *retry != "" {
		report, err = runs.RetryFailed(ctx, *retry)
	} else {
		var from, to time.Time
		from, to, err = cfg.DateRange()
		if err == nil {
			report, err = runs.Run(ctx, from, to)
		}
	}
	if err != nil {
		log.Printf("Run failed: %v", err)
		return exitFatal
	}

	log.Printf("Run %s: %d days, %d completed, %d failed in %v",
		report.RunID, report.Days, len(report.Completed), len(report.Failed), time.Since(start).Round(time.Millisecond))
	if report.Aggregate != nil {
		log.Printf("Aggregate: %s (%d rows)", report.Aggregate.FeatherPath, report.Aggregate.Rows)
	}

	if report.HasFailures() {
		days := make([]string, 0, len(report.Failed))
		for day := range report.Failed {
			days = append(days, day)
		}
		sort.Strings(days)
		for _, day := range days {
			log.Printf("  failed %s: %s", day, report.Failed[day])
		}
		log.Printf("Retry with: -retry %s", report.RunID)
		return exitDaysFailed
	}
	return exitOK
}


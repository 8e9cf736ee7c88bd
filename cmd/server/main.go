package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jengzang/vessel-tracks/internal/api"
	"github.com/jengzang/vessel-tracks/internal/config"
	"github.com/jengzang/vessel-tracks/internal/database"
	"github.com/jengzang/vessel-tracks/internal/handler"
	"github.com/jengzang/vessel-tracks/internal/middleware"
	"github.com/jengzang/vessel-tracks/internal/repository"
	"github.com/jengzang/vessel-tracks/internal/service"

	// Import analyzer packages to register them
	_ "github.com/jengzang/vessel-tracks/internal/analysis/spatial"
	_ "github.com/jengzang/vessel-tracks/internal/analysis/stats"
	_ "github.com/jengzang/vessel-tracks/internal/analysis/temporal"
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yml"), "path to the YAML configuration")
	issueToken := flag.String("issue-token", "", "print an admin token for this subject and exit")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	if *issueToken != "" {
		token, err := middleware.IssueToken(cfg.Server.JWTSecret, *issueToken, 24*time.Hour)
		if err != nil {
			log.Fatal("Failed to issue token: ", err)
		}
		fmt.Println(token)
		return
	}

	// 初始化数据库
	db, err := database.Open(database.Config{Path: cfg.Server.DBPath})
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer db.Close()

	repo := repository.NewDayTaskRepository(db)
	runs := service.NewRunService(cfg, repo)

	// 初始化路由
	router := api.SetupRouter(cfg, handler.NewDayTaskHandler(repo, runs, cfg.Paths.CSVOutDir))

	// 启动服务器
	srv := &http.Server{Addr: cfg.Server.Port, Handler: router}
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	// in-flight days are marked failed and can be retried
	runs.Close()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

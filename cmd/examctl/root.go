package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-assess/internal/config"
	"github.com/stemsi/exstem-assess/internal/database"
	"github.com/stemsi/exstem-assess/internal/grading"
	"github.com/stemsi/exstem-assess/internal/lifecycle"
	"github.com/stemsi/exstem-assess/internal/logger"
	"github.com/stemsi/exstem-assess/internal/repository"
	"github.com/stemsi/exstem-assess/internal/service"
)

var rootCmd = &cobra.Command{
	Use:          "examctl",
	Short:        "Maintenance tool for ExStem Assess",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(recomputeHighestCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(migrateCmd)
}

// app holds the connections and services a command needs.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	pool    *pgxpool.Pool
	rdb     *redis.Client
	grading *service.GradingService
}

// connect loads configuration from the environment and opens PostgreSQL and
// Redis. Callers must call close.
func connect(ctx context.Context) (*app, error) {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	engine := grading.NewEngine(grading.WithPrecision(cfg.ScorePrecision))
	manager := lifecycle.NewManager(engine, lifecycle.WithLateGrace(cfg.LateGrace))

	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	subRepo := repository.NewSubmissionRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)

	examService := service.NewExamService(pool, examRepo, questionRepo, subRepo, rdb, log)
	return &app{
		cfg:     cfg,
		log:     log,
		pool:    pool,
		rdb:     rdb,
		grading: service.NewGradingService(pool, examService, subRepo, answerRepo, manager, rdb, log),
	}, nil
}

func (a *app) close() {
	a.rdb.Close()
	a.pool.Close()
}

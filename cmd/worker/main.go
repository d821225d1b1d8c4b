package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bevdash/salesblitz/internal/blitz"
	"github.com/bevdash/salesblitz/internal/cache"
	"github.com/bevdash/salesblitz/internal/config"
	infraBQ "github.com/bevdash/salesblitz/internal/infra/bigquery"
	"github.com/bevdash/salesblitz/internal/jobs"
	"github.com/bevdash/salesblitz/internal/jobs/inmemory"
	"github.com/bevdash/salesblitz/internal/logger"
	"github.com/bevdash/salesblitz/internal/oracle"
	"github.com/bevdash/salesblitz/internal/pipeline"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.BQProject == "" {
		log.Fatal().Msg("BQ_PROJECT is required")
	}
	repo, err := infraBQ.NewRepository(ctx, cfg.BQProject, cfg.BQDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	var aiOracle pipeline.Oracle
	if cfg.AIEnabled {
		aiOracle = oracle.NewClient(cfg.AIModel)
	}

	engine := pipeline.NewEngine(pipeline.EngineConfig{
		Source:   repo,
		Registry: repo,
		Sink:     repo,
		Cache:    cache.NewController(cache.NewInMemoryStore(), cfg.CacheTTL, nil),
		Rules: blitz.Thresholds{
			LargeThreshold: cfg.LargeThreshold,
			LossRatio:      cfg.LossRatio,
			InactiveDays:   cfg.InactiveDays,
		},
		Oracle:         aiOracle,
		Persister:      repo,
		BaselineMonths: cfg.BaselineMonths,
		RecentMonths:   cfg.RecentMonths,
		AIWorkers:      cfg.AIWorkers,
		Log:            log,
	})

	// In production the queue would be replaced with Cloud Tasks or Pub/Sub.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueBuffer, cfg.JobWorkers, jobStore)

	log.Info().Msg("Starting worker service")

	handler := func(ctx context.Context, job jobs.Job) error {
		recatJob, ok := job.(*jobs.RecategorizeJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", recatJob.JobID).
			Str("organization_id", recatJob.OrganizationID).
			Bool("forced", recatJob.Forced).
			Msg("Processing recategorization job")

		_, stats, err := engine.Run(ctx, recatJob.OrganizationID, recatJob.Forced)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", recatJob.JobID).
				Msg("Recategorization run failed")
			return err
		}

		recatJob.AccountsProcessed = stats.AccountsTotal
		log.Info().
			Str("job_id", recatJob.JobID).
			Int("accounts", stats.AccountsTotal).
			Msg("Recategorization run completed")

		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}

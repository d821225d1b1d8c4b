package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bevdash/salesblitz/internal/api/handlers"
	"github.com/bevdash/salesblitz/internal/api/middleware"
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
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New()

	ctx := context.Background()

	if cfg.BQProject == "" {
		log.Fatal().Msg("BQ_PROJECT is required")
	}
	repo, err := infraBQ.NewRepository(ctx, cfg.BQProject, cfg.BQDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	cacheController := cache.NewController(cache.NewInMemoryStore(), cfg.CacheTTL, nil)

	var aiOracle pipeline.Oracle
	if cfg.AIEnabled {
		aiOracle = oracle.NewClient(cfg.AIModel)
	} else {
		log.Warn().Msg("AI categorization disabled - using rule-based categories only")
	}

	engine := pipeline.NewEngine(pipeline.EngineConfig{
		Source:   repo,
		Registry: repo,
		Sink:     repo,
		Cache:    cacheController,
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

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueBuffer, cfg.JobWorkers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
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

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	accountsHandler := handlers.NewAccountsHandler(engine, jobQueue, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/orgs/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/orgs/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		orgID, action := parts[0], parts[1]

		switch {
		case action == "accounts" && r.Method == http.MethodGet:
			accountsHandler.ListAccounts(w, r, orgID)
		case action == "recategorize" && r.Method == http.MethodPost:
			accountsHandler.Recategorize(w, r, orgID)
		case action == "accounts" || action == "recategorize":
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", handlers.Health)

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         cfg.Host + ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

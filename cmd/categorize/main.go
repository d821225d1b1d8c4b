package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bevdash/salesblitz/internal/blitz"
	"github.com/bevdash/salesblitz/internal/cache"
	"github.com/bevdash/salesblitz/internal/config"
	"github.com/bevdash/salesblitz/internal/domain"
	infraBQ "github.com/bevdash/salesblitz/internal/infra/bigquery"
	"github.com/bevdash/salesblitz/internal/logger"
	"github.com/bevdash/salesblitz/internal/notionsync"
	"github.com/bevdash/salesblitz/internal/oracle"
	"github.com/bevdash/salesblitz/internal/pipeline"
	"github.com/bevdash/salesblitz/internal/recordsource"
)

// gcsSource adapts a JSONL record export in GCS to the pipeline's record
// source. The export is a single-organization file, so the orgID argument
// only scopes the run, not the fetch.
type gcsSource struct {
	uri string
}

func (s *gcsSource) QueryTransactionRecords(ctx context.Context, orgID string) ([]domain.TransactionRecord, error) {
	return recordsource.FetchRecords(ctx, s.uri)
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New()

	// Parse CLI flags
	orgID := flag.String("org", "", "Organization ID to categorize (required)")
	source := flag.String("source", "bigquery", "Record source: bigquery or a gs:// JSONL export URI")
	forced := flag.Bool("forced", false, "Drop the categorization cache before the run")
	jsonOut := flag.Bool("json", false, "Write classified accounts as JSON to stdout")
	syncNotion := flag.Bool("notion", false, "Sync classified accounts to the Notion board")
	dryRun := flag.Bool("dry-run", false, "With -notion, preview the sync without writing")
	flag.Parse()

	if *orgID == "" {
		log.Fatal().Msg("Error: --org is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	engineCfg := pipeline.EngineConfig{
		Cache: cache.NewController(cache.NewInMemoryStore(), cfg.CacheTTL, nil),
		Rules: blitz.Thresholds{
			LargeThreshold: cfg.LargeThreshold,
			LossRatio:      cfg.LossRatio,
			InactiveDays:   cfg.InactiveDays,
		},
		BaselineMonths: cfg.BaselineMonths,
		RecentMonths:   cfg.RecentMonths,
		AIWorkers:      cfg.AIWorkers,
		Log:            log,
	}

	if cfg.AIEnabled {
		engineCfg.Oracle = oracle.NewClient(cfg.AIModel)
	}

	switch {
	case strings.HasPrefix(*source, "gs://"):
		engineCfg.Source = &gcsSource{uri: *source}

	case *source == "bigquery":
		if cfg.BQProject == "" {
			log.Fatal().Msg("BQ_PROJECT is required with the bigquery source")
		}
		repo, err := infraBQ.NewRepository(ctx, cfg.BQProject, cfg.BQDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()

		engineCfg.Source = repo
		engineCfg.Registry = repo
		engineCfg.Sink = repo
		engineCfg.Persister = repo

		// Warm the cache from the write-through table so a fresh process
		// still honors previous categorization dates.
		entries, err := repo.LoadLatestCacheEntries(ctx, *orgID)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to warm cache, starting cold")
		} else {
			store := cache.NewInMemoryStore()
			store.Warm(entries)
			engineCfg.Cache = cache.NewController(store, cfg.CacheTTL, nil)
			log.Info().Int("entries", len(entries)).Msg("Warmed categorization cache")
		}

	default:
		log.Fatal().Str("source", *source).Msg("Error: --source must be bigquery or a gs:// URI")
	}

	engine := pipeline.NewEngine(engineCfg)

	accounts, stats, err := engine.Run(ctx, *orgID, *forced)
	if err != nil {
		log.Fatal().Err(err).Msg("Categorization run failed")
	}

	log.Info().
		Int("accounts", stats.AccountsTotal).
		Int("cache_hits", stats.CacheHits).
		Int("recategorized", stats.Recategorized).
		Int("ai_refined", stats.AIRefined).
		Msg("Categorization completed")

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(accounts); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode accounts")
		}
	}

	if *syncNotion {
		if cfg.NotionToken == "" || cfg.NotionDatabaseID == "" {
			log.Fatal().Msg("NOTION_TOKEN and NOTION_DATABASE_ID are required with --notion")
		}
		notionClient := notionsync.NewNotionClient(cfg.NotionToken)
		if err := notionsync.SyncBlitzAccounts(ctx, notionClient, cfg.NotionDatabaseID, accounts, *dryRun); err != nil {
			log.Fatal().Err(err).Msg("Notion sync failed")
		}
	}
}

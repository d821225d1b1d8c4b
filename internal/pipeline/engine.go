// Package pipeline orchestrates a full categorization run: fetch raw
// records, deduplicate, normalize, aggregate per account, classify through
// the cache and optional AI oracle, and store the results.
package pipeline

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bevdash/salesblitz/internal/blitz"
	"github.com/bevdash/salesblitz/internal/cache"
	"github.com/bevdash/salesblitz/internal/domain"
)

// EngineConfig bundles the collaborators and tuning of an Engine.
type EngineConfig struct {
	Source   RecordSource
	Registry AccountRegistry // optional; accounts get empty tags without it
	Sink     ResultSink      // optional
	Cache    *cache.Controller
	Rules    blitz.Thresholds
	Oracle   Oracle // optional AI refinement
	// Persister mirrors cache writes to durable storage. Optional.
	Persister CachePersister

	BaselineMonths int
	RecentMonths   int
	// AIWorkers bounds the oracle's concurrency. Defaults to 4.
	AIWorkers int

	Log zerolog.Logger
	// Now overrides the engine clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Engine runs categorization for one organization at a time. Engines are
// safe for concurrent runs: all per-run state lives in the pipeline State.
type Engine struct {
	source    RecordSource
	registry  AccountRegistry
	sink      ResultSink
	cache     *cache.Controller
	rules     *blitz.RuleClassifier
	oracle    Oracle
	persister CachePersister

	baselineMonths int
	recentMonths   int
	aiWorkers      int

	log zerolog.Logger
	now func() time.Time
}

// NewEngine wires an Engine from its configuration.
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		source:         cfg.Source,
		registry:       cfg.Registry,
		sink:           cfg.Sink,
		cache:          cfg.Cache,
		rules:          blitz.NewRuleClassifier(cfg.Rules),
		oracle:         cfg.Oracle,
		persister:      cfg.Persister,
		baselineMonths: cfg.BaselineMonths,
		recentMonths:   cfg.RecentMonths,
		aiWorkers:      cfg.AIWorkers,
		log:            cfg.Log,
		now:            cfg.Now,
	}
	if e.baselineMonths <= 0 {
		e.baselineMonths = blitz.DefaultBaselineMonths
	}
	if e.recentMonths <= 0 {
		e.recentMonths = blitz.DefaultRecentMonths
	}
	if e.aiWorkers <= 0 {
		e.aiWorkers = 4
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Run executes one categorization run. forced drops the organization's
// cache first so every account is recategorized. The returned accounts are
// sorted by account name.
func (e *Engine) Run(ctx context.Context, orgID string, forced bool) ([]domain.BlitzAccount, RunStats, error) {
	now := e.now()
	state := &State{
		OrganizationID: orgID,
		RunID:          uuid.New().String(),
		Forced:         forced,
		Now:            now,
		NowDate:        civil.DateOf(now),
	}

	log := e.log.With().
		Str("run_id", state.RunID).
		Str("organization_id", orgID).
		Bool("forced", forced).
		Logger()
	log.Info().Msg("Starting categorization run")

	p := NewPipeline(
		&FetchRecordsStep{engine: e},
		&FetchAccountMetaStep{engine: e},
		&DeduplicateStep{},
		&NormalizeStep{},
		&AggregateStep{engine: e},
		&ClassifyStep{engine: e},
		&StoreResultsStep{engine: e},
	)

	if err := p.Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("Categorization run failed")
		return nil, state.Stats, err
	}

	log.Info().
		Int("accounts", state.Stats.AccountsTotal).
		Int("cache_hits", state.Stats.CacheHits).
		Int("recategorized", state.Stats.Recategorized).
		Int("ai_refined", state.Stats.AIRefined).
		Int("ai_failed", state.Stats.AIFailed).
		Int("duplicates_dropped", state.Stats.DuplicatesDropped).
		Int("malformed_skipped", state.Stats.MalformedSkipped).
		Msg("Categorization run completed")

	return state.Accounts, state.Stats, nil
}

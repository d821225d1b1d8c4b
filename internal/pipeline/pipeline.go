package pipeline

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/bevdash/salesblitz/internal/cache"
	"github.com/bevdash/salesblitz/internal/domain"
)

// Step represents a single step in the categorization pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State holds the shared state across all pipeline steps for one run.
type State struct {
	OrganizationID string
	RunID          string
	Forced         bool

	// Now anchors every recency computation in the run so all accounts
	// see the same clock.
	Now     time.Time
	NowDate civil.Date

	RawRecords  []domain.TransactionRecord
	AccountMeta map[string]domain.AccountMeta
	Canonical   []domain.CanonicalRecord
	Aggregates  []domain.AccountAggregate
	Accounts    []domain.BlitzAccount

	// CommittedEntries are the cache entries written during this run,
	// collected for write-through persistence.
	CommittedEntries []*cache.Entry

	Stats RunStats
}

// RunStats summarizes what one categorization run did.
type RunStats struct {
	RecordsIn         int
	DuplicatesDropped int
	MalformedSkipped  int
	AccountsTotal     int
	CacheHits         int
	Recategorized     int
	AIRefined         int
	AIFailed          int
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

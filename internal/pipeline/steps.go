package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/bevdash/salesblitz/internal/blitz"
	"github.com/bevdash/salesblitz/internal/domain"
)

// Step 1: FetchRecordsStep loads the organization's raw record set. This is
// the only step whose failure aborts the run.
type FetchRecordsStep struct {
	engine *Engine
}

func (s *FetchRecordsStep) Execute(ctx context.Context, state *State) error {
	records, err := s.engine.source.QueryTransactionRecords(ctx, state.OrganizationID)
	if err != nil {
		return fmt.Errorf("fetch records: %w", err)
	}
	state.RawRecords = records
	state.Stats.RecordsIn = len(records)
	return nil
}

// Step 2: FetchAccountMetaStep loads region and premise-type tags from the
// account registry. Registry trouble degrades to untagged accounts.
type FetchAccountMetaStep struct {
	engine *Engine
}

func (s *FetchAccountMetaStep) Execute(ctx context.Context, state *State) error {
	state.AccountMeta = map[string]domain.AccountMeta{}
	if s.engine.registry == nil {
		return nil
	}
	meta, err := s.engine.registry.ListAccountMeta(ctx, state.OrganizationID)
	if err != nil {
		s.engine.log.Warn().Err(err).
			Str("organization_id", state.OrganizationID).
			Msg("Account registry unavailable, continuing without tags")
		return nil
	}
	state.AccountMeta = meta
	return nil
}

// Step 3: DeduplicateStep collapses re-imported orders. Dedup runs before
// normalization and windowing because a dropped duplicate can shift an
// account's window boundaries.
type DeduplicateStep struct{}

func (s *DeduplicateStep) Execute(ctx context.Context, state *State) error {
	deduped := blitz.Deduplicate(state.RawRecords)
	state.Stats.DuplicatesDropped = len(state.RawRecords) - len(deduped)
	state.RawRecords = deduped
	return nil
}

// Step 4: NormalizeStep converts records to canonical case-equivalent
// volumes, silently excluding malformed ones.
type NormalizeStep struct{}

func (s *NormalizeStep) Execute(ctx context.Context, state *State) error {
	canonical, skipped := blitz.Canonicalize(state.RawRecords)
	state.Canonical = canonical
	state.Stats.MalformedSkipped = skipped
	return nil
}

// Step 5: AggregateStep computes windowed statistics per account. Accounts
// with zero canonical records never appear.
type AggregateStep struct {
	engine *Engine
}

func (s *AggregateStep) Execute(ctx context.Context, state *State) error {
	groups := blitz.GroupByAccount(state.Canonical)

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	state.Aggregates = make([]domain.AccountAggregate, 0, len(names))
	for _, name := range names {
		agg := blitz.Aggregate(
			state.OrganizationID, name, groups[name],
			s.engine.baselineMonths, s.engine.recentMonths,
			state.NowDate,
		)
		state.Aggregates = append(state.Aggregates, agg)
	}
	state.Stats.AccountsTotal = len(state.Aggregates)
	return nil
}

// Step 7: StoreResultsStep persists the run output: the classified account
// rows and the write-through copy of the cache entries. Storage trouble is
// logged, not fatal — the classifications themselves remain valid.
type StoreResultsStep struct {
	engine *Engine
}

func (s *StoreResultsStep) Execute(ctx context.Context, state *State) error {
	if s.engine.sink != nil && len(state.Accounts) > 0 {
		if err := s.engine.sink.InsertBlitzAccounts(ctx, state.RunID, state.Accounts); err != nil {
			s.engine.log.Error().Err(err).
				Str("run_id", state.RunID).
				Msg("Failed to store run results")
		}
	}
	if s.engine.persister != nil && len(state.CommittedEntries) > 0 {
		if err := s.engine.persister.SaveCacheEntries(ctx, state.CommittedEntries); err != nil {
			s.engine.log.Error().Err(err).
				Str("run_id", state.RunID).
				Msg("Failed to persist cache entries")
		}
	}
	return nil
}

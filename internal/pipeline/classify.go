package pipeline

import (
	"context"
	"sync"

	"github.com/bevdash/salesblitz/internal/cache"
	"github.com/bevdash/salesblitz/internal/domain"
)

// Step 6: ClassifyStep turns aggregates into classified accounts through
// the categorization cache. Valid cache entries are reused as-is unless the
// run is forced. Everything else is recategorized: the deterministic
// decision list answers immediately, and the AI oracle, when configured,
// refines those answers over a bounded worker pool. A per-account oracle
// failure keeps the deterministic category and never touches sibling
// accounts.
type ClassifyStep struct {
	engine *Engine
}

func (s *ClassifyStep) Execute(ctx context.Context, state *State) error {
	e := s.engine

	if state.Forced {
		if err := e.cache.ForceRefresh(ctx, state.OrganizationID); err != nil {
			// Commits below overwrite per account anyway; a failed
			// invalidation only matters for accounts absent from this run.
			e.log.Error().Err(err).
				Str("organization_id", state.OrganizationID).
				Msg("Cache invalidation failed during forced refresh")
		}
	}

	state.Accounts = make([]domain.BlitzAccount, len(state.Aggregates))
	var pending []int

	for i := range state.Aggregates {
		agg := &state.Aggregates[i]
		meta := state.AccountMeta[agg.AccountName]
		acct := domain.BlitzAccount{
			AccountAggregate: *agg,
			Region:           meta.Region,
			PremiseType:      meta.PremiseType,
		}

		if !state.Forced {
			entry, cacheState, err := e.cache.Lookup(ctx, state.OrganizationID, agg.AccountName)
			if err != nil {
				e.log.Warn().Err(err).
					Str("account", agg.AccountName).
					Msg("Cache lookup failed, recategorizing")
			} else if cacheState == cache.StateValid {
				acct.Category = entry.Category
				acct.CategorizedAt = entry.CategorizedAt
				acct.IsAICategorized = entry.IsAICategorized
				state.Accounts[i] = acct
				state.Stats.CacheHits++
				continue
			}
		}

		// Recategorizing: the rule result is always available immediately.
		category, _ := e.rules.Classify(ctx, agg)
		acct.Category = category
		acct.CategorizedAt = state.Now
		state.Accounts[i] = acct
		pending = append(pending, i)
	}
	state.Stats.Recategorized = len(pending)

	if e.oracle != nil && len(pending) > 0 {
		s.refineWithOracle(ctx, state, pending)
	}

	// Commit each recategorized account. Commits already made stay valid
	// if the run is abandoned here; the rest simply remain stale.
	for _, i := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		acct := &state.Accounts[i]
		entry := &cache.Entry{
			OrganizationID:  state.OrganizationID,
			AccountName:     acct.AccountName,
			Category:        acct.Category,
			IsAICategorized: acct.IsAICategorized,
		}
		if err := e.cache.Commit(ctx, entry); err != nil {
			e.log.Error().Err(err).
				Str("account", acct.AccountName).
				Msg("Cache commit failed")
			continue
		}
		acct.CategorizedAt = entry.CategorizedAt
		state.CommittedEntries = append(state.CommittedEntries, entry)
	}

	return nil
}

// refineWithOracle runs the oracle over the pending accounts with bounded
// concurrency. Workers write disjoint account slots; the mutex only guards
// the shared counters.
func (s *ClassifyStep) refineWithOracle(ctx context.Context, state *State, pending []int) {
	e := s.engine

	workers := e.aiWorkers
	if workers > len(pending) {
		workers = len(pending)
	}

	work := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				acct := &state.Accounts[i]
				category, confidence, err := e.oracle.Classify(ctx, &acct.AccountAggregate)
				if err != nil {
					e.log.Warn().Err(err).
						Str("account", acct.AccountName).
						Msg("AI classification failed, keeping rule-based category")
					mu.Lock()
					state.Stats.AIFailed++
					mu.Unlock()
					continue
				}
				acct.Category = category
				acct.IsAICategorized = true
				mu.Lock()
				state.Stats.AIRefined++
				mu.Unlock()
				e.log.Debug().
					Str("account", acct.AccountName).
					Str("category", string(category)).
					Float64("confidence", confidence).
					Msg("AI classification accepted")
			}
		}()
	}

dispatch:
	for _, i := range pending {
		select {
		case work <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(work)
	wg.Wait()
}

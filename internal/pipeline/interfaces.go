package pipeline

import (
	"context"

	"github.com/bevdash/salesblitz/internal/cache"
	"github.com/bevdash/salesblitz/internal/domain"
)

// RecordSource loads one organization's full raw record set. Its failure is
// the only fatal error of a categorization run.
type RecordSource interface {
	QueryTransactionRecords(ctx context.Context, orgID string) ([]domain.TransactionRecord, error)
}

// AccountRegistry supplies the externally owned region and premise-type
// tags per account.
type AccountRegistry interface {
	ListAccountMeta(ctx context.Context, orgID string) (map[string]domain.AccountMeta, error)
}

// ResultSink receives the classified accounts of a completed run.
type ResultSink interface {
	InsertBlitzAccounts(ctx context.Context, runID string, accounts []domain.BlitzAccount) error
}

// CachePersister writes cache entries through to durable storage so a
// restarted process can warm-load them.
type CachePersister interface {
	SaveCacheEntries(ctx context.Context, entries []*cache.Entry) error
}

// Oracle is the external AI classification collaborator. Its unavailability
// is never fatal; callers fall back to the deterministic classifier.
type Oracle interface {
	Classify(ctx context.Context, agg *domain.AccountAggregate) (domain.Category, float64, error)
}

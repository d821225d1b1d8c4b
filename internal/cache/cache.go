// Package cache holds the categorization cache and its staleness policy.
// Entries are keyed by (organization, account) and stay valid for a
// configured TTL; a forced refresh invalidates a whole organization
// regardless of entry age. Staleness is a predicate evaluated lazily on
// read — nothing actively expires entries.
package cache

import (
	"context"
	"time"

	"github.com/bevdash/salesblitz/internal/domain"
)

// DefaultTTL is the default categorization lifetime.
const DefaultTTL = 30 * 24 * time.Hour

// Entry is one cached categorization result.
type Entry struct {
	OrganizationID  string
	AccountName     string
	Category        domain.Category
	CategorizedAt   time.Time
	IsAICategorized bool
}

// State describes where an account sits in the cache lifecycle.
type State string

const (
	StateUncategorized State = "uncategorized"
	StateValid         State = "cached_valid"
	StateStale         State = "cached_stale"
)

// Store persists cache entries. Writes are last-writer-wins per account;
// classification is idempotent so no stronger coordination is needed.
type Store interface {
	// Get returns the entry for an account, or nil when none exists.
	Get(ctx context.Context, orgID, accountName string) (*Entry, error)

	// Put saves or replaces an entry.
	Put(ctx context.Context, entry *Entry) error

	// InvalidateOrganization removes every entry for an organization.
	InvalidateOrganization(ctx context.Context, orgID string) error
}

// Controller evaluates cache validity against an injected clock and TTL,
// so tests can simulate arbitrary elapsed time without the wall clock.
type Controller struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewController wraps a store with the given TTL. A nil now falls back to
// time.Now; ttl <= 0 falls back to DefaultTTL.
func NewController(store Store, ttl time.Duration, now func() time.Time) *Controller {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Controller{store: store, ttl: ttl, now: now}
}

// Lookup fetches an account's entry and reports its lifecycle state.
func (c *Controller) Lookup(ctx context.Context, orgID, accountName string) (*Entry, State, error) {
	entry, err := c.store.Get(ctx, orgID, accountName)
	if err != nil {
		return nil, StateUncategorized, err
	}
	if entry == nil {
		return nil, StateUncategorized, nil
	}
	return entry, c.Evaluate(entry), nil
}

// Evaluate applies the staleness predicate to an entry.
func (c *Controller) Evaluate(entry *Entry) State {
	if c.now().Sub(entry.CategorizedAt) >= c.ttl {
		return StateStale
	}
	return StateValid
}

// Commit writes a freshly computed categorization, stamping it with the
// controller's clock.
func (c *Controller) Commit(ctx context.Context, entry *Entry) error {
	entry.CategorizedAt = c.now()
	return c.store.Put(ctx, entry)
}

// ForceRefresh drops every entry for the organization so the next run
// recategorizes from scratch. Invoking it twice concurrently is safe: both
// invalidations are idempotent and subsequent writes are last-writer-wins.
func (c *Controller) ForceRefresh(ctx context.Context, orgID string) error {
	return c.store.InvalidateOrganization(ctx, orgID)
}

// TTL exposes the configured lifetime.
func (c *Controller) TTL() time.Duration {
	return c.ttl
}

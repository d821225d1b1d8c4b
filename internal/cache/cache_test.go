package cache

import (
	"context"
	"testing"
	"time"

	"github.com/bevdash/salesblitz/internal/domain"
)

func TestControllerTTL(t *testing.T) {
	now := time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ctrl := NewController(NewInMemoryStore(), 30*24*time.Hour, clock)

	tests := []struct {
		name string
		age  time.Duration
		want State
	}{
		{"fresh entry", time.Hour, StateValid},
		{"twenty nine days old", 29 * 24 * time.Hour, StateValid},
		{"exactly thirty days old", 30 * 24 * time.Hour, StateStale},
		{"thirty one days old", 31 * 24 * time.Hour, StateStale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{
				OrganizationID: "org-1",
				AccountName:    "Acme Bar",
				Category:       domain.CategoryLargeActive,
				CategorizedAt:  now.Add(-tt.age),
			}
			if got := ctrl.Evaluate(entry); got != tt.want {
				t.Errorf("Evaluate(age=%v) = %q, want %q", tt.age, got, tt.want)
			}
		})
	}
}

func TestControllerLookupAndCommit(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ctrl := NewController(NewInMemoryStore(), DefaultTTL, clock)

	_, state, err := ctrl.Lookup(ctx, "org-1", "Acme Bar")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if state != StateUncategorized {
		t.Fatalf("Lookup() state = %q, want uncategorized", state)
	}

	entry := &Entry{
		OrganizationID:  "org-1",
		AccountName:     "Acme Bar",
		Category:        domain.CategorySmallLoss,
		IsAICategorized: true,
	}
	if err := ctrl.Commit(ctx, entry); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if !entry.CategorizedAt.Equal(now) {
		t.Errorf("Commit() stamped %v, want %v", entry.CategorizedAt, now)
	}

	got, state, err := ctrl.Lookup(ctx, "org-1", "Acme Bar")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if state != StateValid {
		t.Errorf("Lookup() state = %q, want valid", state)
	}
	if got.Category != domain.CategorySmallLoss || !got.IsAICategorized {
		t.Errorf("Lookup() entry = %+v, want committed values", got)
	}

	// A lazy read after the TTL elapses reports stale without any writes.
	now = now.Add(DefaultTTL)
	_, state, err = ctrl.Lookup(ctx, "org-1", "Acme Bar")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if state != StateStale {
		t.Errorf("Lookup() after TTL state = %q, want stale", state)
	}
}

func TestForceRefreshScopedToOrganization(t *testing.T) {
	ctx := context.Background()
	ctrl := NewController(NewInMemoryStore(), DefaultTTL, nil)

	entries := []*Entry{
		{OrganizationID: "org-1", AccountName: "A", Category: domain.CategoryLargeActive},
		{OrganizationID: "org-1", AccountName: "B", Category: domain.CategoryInactive},
		{OrganizationID: "org-2", AccountName: "C", Category: domain.CategoryOneTime},
	}
	for _, e := range entries {
		if err := ctrl.Commit(ctx, e); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
	}

	if err := ctrl.ForceRefresh(ctx, "org-1"); err != nil {
		t.Fatalf("ForceRefresh() error = %v", err)
	}
	// Idempotent: a second concurrent-style invalidation is harmless.
	if err := ctrl.ForceRefresh(ctx, "org-1"); err != nil {
		t.Fatalf("second ForceRefresh() error = %v", err)
	}

	for _, name := range []string{"A", "B"} {
		_, state, _ := ctrl.Lookup(ctx, "org-1", name)
		if state != StateUncategorized {
			t.Errorf("org-1 %s state = %q, want uncategorized after refresh", name, state)
		}
	}
	_, state, _ := ctrl.Lookup(ctx, "org-2", "C")
	if state != StateValid {
		t.Errorf("org-2 C state = %q, want valid (other org untouched)", state)
	}
}

func TestInMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	entry := &Entry{OrganizationID: "org-1", AccountName: "A", Category: domain.CategoryOneTime}
	if err := store.Put(ctx, entry); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	entry.Category = domain.CategoryInactive // must not leak into the store

	got, err := store.Get(ctx, "org-1", "A")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Category != domain.CategoryOneTime {
		t.Errorf("stored category = %q, want one_time (caller mutation leaked)", got.Category)
	}

	got.Category = domain.CategoryLargeLoss // nor the other direction
	again, _ := store.Get(ctx, "org-1", "A")
	if again.Category != domain.CategoryOneTime {
		t.Errorf("stored category = %q after reader mutation, want one_time", again.Category)
	}
}

func TestWarmKeepsNewerEntries(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	newer := time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-48 * time.Hour)

	_ = store.Put(ctx, &Entry{OrganizationID: "org-1", AccountName: "A", Category: domain.CategoryLargeActive, CategorizedAt: newer})
	store.Warm([]*Entry{
		{OrganizationID: "org-1", AccountName: "A", Category: domain.CategoryInactive, CategorizedAt: older},
		{OrganizationID: "org-1", AccountName: "B", Category: domain.CategoryOneTime, CategorizedAt: older},
	})

	a, _ := store.Get(ctx, "org-1", "A")
	if a.Category != domain.CategoryLargeActive {
		t.Errorf("A category = %q, want large_active (newer entry kept)", a.Category)
	}
	b, _ := store.Get(ctx, "org-1", "B")
	if b == nil || b.Category != domain.CategoryOneTime {
		t.Errorf("B = %+v, want warmed one_time entry", b)
	}
}

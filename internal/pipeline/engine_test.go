package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/bevdash/salesblitz/internal/blitz"
	"github.com/bevdash/salesblitz/internal/cache"
	"github.com/bevdash/salesblitz/internal/domain"
)

type fakeSource struct {
	records []domain.TransactionRecord
	err     error
}

func (f *fakeSource) QueryTransactionRecords(ctx context.Context, orgID string) ([]domain.TransactionRecord, error) {
	return f.records, f.err
}

type fakeRegistry struct {
	meta map[string]domain.AccountMeta
	err  error
}

func (f *fakeRegistry) ListAccountMeta(ctx context.Context, orgID string) (map[string]domain.AccountMeta, error) {
	return f.meta, f.err
}

type fakeSink struct {
	mu       sync.Mutex
	runID    string
	accounts []domain.BlitzAccount
	err      error
}

func (f *fakeSink) InsertBlitzAccounts(ctx context.Context, runID string, accounts []domain.BlitzAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runID = runID
	f.accounts = accounts
	return f.err
}

type fakePersister struct {
	mu      sync.Mutex
	entries []*cache.Entry
	err     error
}

func (f *fakePersister) SaveCacheEntries(ctx context.Context, entries []*cache.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = entries
	return f.err
}

// fakeOracle resolves per account name; unresolved accounts fail.
type fakeOracle struct {
	mu      sync.Mutex
	answers map[string]domain.Category
	calls   []string
}

func (f *fakeOracle) Classify(ctx context.Context, agg *domain.AccountAggregate) (domain.Category, float64, error) {
	f.mu.Lock()
	f.calls = append(f.calls, agg.AccountName)
	f.mu.Unlock()
	category, ok := f.answers[agg.AccountName]
	if !ok {
		return "", 0, fmt.Errorf("fakeOracle: no answer for %q", agg.AccountName)
	}
	return category, 0.9, nil
}

// testClock is a fixed run clock so assertions on categorized_at and
// recency are deterministic.
var testClock = time.Date(2025, time.November, 25, 12, 0, 0, 0, time.UTC)

func testNow() time.Time { return testClock }

// orderRecord builds a record with one case on the given date.
func orderRecord(account, orderID string, date civil.Date, quantity float64) domain.TransactionRecord {
	d := date
	return domain.TransactionRecord{
		OrganizationID: "org-1",
		AccountName:    account,
		ProductName:    "Pale Ale 12pk",
		OrderID:        orderID,
		OrderDate:      &d,
		Quantity:       quantity,
		QuantityUnit:   domain.UnitCases,
	}
}

// steadyHistory emits one order per month so the account lands in
// small_active with a flat trend.
func steadyHistory(account string, months int) []domain.TransactionRecord {
	records := make([]domain.TransactionRecord, 0, months)
	for i := 0; i < months; i++ {
		date := civil.Date{Year: 2025, Month: time.November, Day: 15}.AddDays(-30 * i)
		records = append(records, orderRecord(account, fmt.Sprintf("%s-%d", account, i), date, 0.5))
	}
	return records
}

func newTestEngine(t *testing.T, cfg EngineConfig) *Engine {
	t.Helper()
	if cfg.Cache == nil {
		cfg.Cache = cache.NewController(cache.NewInMemoryStore(), cache.DefaultTTL, testNow)
	}
	if cfg.Rules == (blitz.Thresholds{}) {
		cfg.Rules = blitz.DefaultThresholds()
	}
	cfg.Log = zerolog.Nop()
	cfg.Now = testNow
	return NewEngine(cfg)
}

func TestEngineRunFullPipeline(t *testing.T) {
	records := steadyHistory("Acme Bar", 11)
	records = append(records, steadyHistory("Bayside Liquor", 11)...)
	// Re-imported order and a record with no resolvable period.
	records = append(records, records[0])
	records = append(records, domain.TransactionRecord{
		OrganizationID: "org-1",
		AccountName:    "Acme Bar",
		Quantity:       1,
		QuantityUnit:   domain.UnitCases,
	})

	source := &fakeSource{records: records}
	registry := &fakeRegistry{meta: map[string]domain.AccountMeta{
		"Acme Bar": {AccountName: "Acme Bar", Region: "North", PremiseType: "on_premise"},
	}}
	sink := &fakeSink{}
	persister := &fakePersister{}

	e := newTestEngine(t, EngineConfig{
		Source:    source,
		Registry:  registry,
		Sink:      sink,
		Persister: persister,
	})

	accounts, stats, err := e.Run(context.Background(), "org-1", false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if stats.DuplicatesDropped != 1 {
		t.Errorf("DuplicatesDropped = %d, want 1", stats.DuplicatesDropped)
	}
	if stats.MalformedSkipped != 1 {
		t.Errorf("MalformedSkipped = %d, want 1", stats.MalformedSkipped)
	}
	if stats.AccountsTotal != 2 || stats.Recategorized != 2 || stats.CacheHits != 0 {
		t.Errorf("stats = %+v, want 2 accounts, 2 recategorized, 0 cache hits", stats)
	}

	if len(accounts) != 2 {
		t.Fatalf("len(accounts) = %d, want 2", len(accounts))
	}
	if accounts[0].AccountName != "Acme Bar" || accounts[1].AccountName != "Bayside Liquor" {
		t.Errorf("accounts not sorted by name: %q, %q", accounts[0].AccountName, accounts[1].AccountName)
	}
	if accounts[0].Region != "North" || accounts[0].PremiseType != "on_premise" {
		t.Errorf("Acme Bar tags = %q/%q, want North/on_premise", accounts[0].Region, accounts[0].PremiseType)
	}
	if accounts[1].Region != "" {
		t.Errorf("Bayside Liquor region = %q, want untagged", accounts[1].Region)
	}
	for _, acct := range accounts {
		if acct.Category != domain.CategorySmallActive {
			t.Errorf("%s category = %q, want %q", acct.AccountName, acct.Category, domain.CategorySmallActive)
		}
		if !acct.CategorizedAt.Equal(testClock) {
			t.Errorf("%s CategorizedAt = %v, want run clock", acct.AccountName, acct.CategorizedAt)
		}
		if acct.IsAICategorized {
			t.Errorf("%s IsAICategorized = true without an oracle", acct.AccountName)
		}
	}

	if len(sink.accounts) != 2 || sink.runID == "" {
		t.Errorf("sink got %d accounts, run %q", len(sink.accounts), sink.runID)
	}
	if len(persister.entries) != 2 {
		t.Errorf("persister got %d entries, want 2", len(persister.entries))
	}
}

func TestEngineRunReusesValidCacheEntries(t *testing.T) {
	store := cache.NewInMemoryStore()
	categorizedAt := testClock.Add(-5 * 24 * time.Hour)
	store.Warm([]*cache.Entry{{
		OrganizationID:  "org-1",
		AccountName:     "Acme Bar",
		Category:        domain.CategoryLargeActive,
		CategorizedAt:   categorizedAt,
		IsAICategorized: true,
	}})

	e := newTestEngine(t, EngineConfig{
		Source: &fakeSource{records: steadyHistory("Acme Bar", 11)},
		Cache:  cache.NewController(store, cache.DefaultTTL, testNow),
	})

	accounts, stats, err := e.Run(context.Background(), "org-1", false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.CacheHits != 1 || stats.Recategorized != 0 {
		t.Errorf("stats = %+v, want 1 cache hit, 0 recategorized", stats)
	}
	// The cached decision wins over what the rules would say today.
	if accounts[0].Category != domain.CategoryLargeActive {
		t.Errorf("Category = %q, want cached %q", accounts[0].Category, domain.CategoryLargeActive)
	}
	if !accounts[0].CategorizedAt.Equal(categorizedAt) {
		t.Errorf("CategorizedAt = %v, want original %v", accounts[0].CategorizedAt, categorizedAt)
	}
	if !accounts[0].IsAICategorized {
		t.Error("IsAICategorized lost on cache reuse")
	}
}

func TestEngineRunStaleEntryRecategorizes(t *testing.T) {
	store := cache.NewInMemoryStore()
	store.Warm([]*cache.Entry{{
		OrganizationID: "org-1",
		AccountName:    "Acme Bar",
		Category:       domain.CategoryLargeActive,
		CategorizedAt:  testClock.Add(-31 * 24 * time.Hour),
	}})

	e := newTestEngine(t, EngineConfig{
		Source: &fakeSource{records: steadyHistory("Acme Bar", 11)},
		Cache:  cache.NewController(store, cache.DefaultTTL, testNow),
	})

	accounts, stats, err := e.Run(context.Background(), "org-1", false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.CacheHits != 0 || stats.Recategorized != 1 {
		t.Errorf("stats = %+v, want 0 cache hits, 1 recategorized", stats)
	}
	if accounts[0].Category != domain.CategorySmallActive {
		t.Errorf("Category = %q, want fresh %q", accounts[0].Category, domain.CategorySmallActive)
	}
}

func TestEngineRunForcedIgnoresCache(t *testing.T) {
	store := cache.NewInMemoryStore()
	store.Warm([]*cache.Entry{{
		OrganizationID: "org-1",
		AccountName:    "Acme Bar",
		Category:       domain.CategoryLargeActive,
		CategorizedAt:  testClock.Add(-time.Hour),
	}})
	controller := cache.NewController(store, cache.DefaultTTL, testNow)

	e := newTestEngine(t, EngineConfig{
		Source: &fakeSource{records: steadyHistory("Acme Bar", 11)},
		Cache:  controller,
	})

	accounts, stats, err := e.Run(context.Background(), "org-1", true)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.CacheHits != 0 || stats.Recategorized != 1 {
		t.Errorf("stats = %+v, want everything recategorized", stats)
	}
	if accounts[0].Category != domain.CategorySmallActive {
		t.Errorf("Category = %q, want %q", accounts[0].Category, domain.CategorySmallActive)
	}

	// The fresh decision replaced the invalidated entry.
	entry, state, err := controller.Lookup(context.Background(), "org-1", "Acme Bar")
	if err != nil || state != cache.StateValid {
		t.Fatalf("Lookup after forced run = (%v, %v), want valid", state, err)
	}
	if entry.Category != domain.CategorySmallActive {
		t.Errorf("committed Category = %q, want %q", entry.Category, domain.CategorySmallActive)
	}
}

func TestEngineOracleRefinesAndFailsPerAccount(t *testing.T) {
	records := steadyHistory("Acme Bar", 11)
	records = append(records, steadyHistory("Bayside Liquor", 11)...)

	oracle := &fakeOracle{answers: map[string]domain.Category{
		"Acme Bar": domain.CategoryLargeActive,
		// Bayside Liquor has no answer and fails.
	}}
	persister := &fakePersister{}

	e := newTestEngine(t, EngineConfig{
		Source:    &fakeSource{records: records},
		Oracle:    oracle,
		Persister: persister,
		AIWorkers: 2,
	})

	accounts, stats, err := e.Run(context.Background(), "org-1", false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.AIRefined != 1 || stats.AIFailed != 1 {
		t.Errorf("stats = %+v, want 1 refined, 1 failed", stats)
	}

	acme, bayside := accounts[0], accounts[1]
	if acme.Category != domain.CategoryLargeActive || !acme.IsAICategorized {
		t.Errorf("Acme Bar = (%q, ai=%v), want AI override", acme.Category, acme.IsAICategorized)
	}
	if bayside.Category != domain.CategorySmallActive || bayside.IsAICategorized {
		t.Errorf("Bayside Liquor = (%q, ai=%v), want rule fallback", bayside.Category, bayside.IsAICategorized)
	}

	// Both outcomes are cached, failure included.
	if len(persister.entries) != 2 {
		t.Fatalf("persister got %d entries, want 2", len(persister.entries))
	}
	for _, entry := range persister.entries {
		wantAI := entry.AccountName == "Acme Bar"
		if entry.IsAICategorized != wantAI {
			t.Errorf("%s cached IsAICategorized = %v, want %v", entry.AccountName, entry.IsAICategorized, wantAI)
		}
	}
}

func TestEngineSourceFailureIsFatal(t *testing.T) {
	wantErr := errors.New("warehouse down")
	e := newTestEngine(t, EngineConfig{
		Source: &fakeSource{err: wantErr},
	})

	_, _, err := e.Run(context.Background(), "org-1", false)
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run() error = %v, want %v", err, wantErr)
	}
}

func TestEngineDegradedCollaboratorsAreNotFatal(t *testing.T) {
	e := newTestEngine(t, EngineConfig{
		Source:    &fakeSource{records: steadyHistory("Acme Bar", 11)},
		Registry:  &fakeRegistry{err: errors.New("registry down")},
		Sink:      &fakeSink{err: errors.New("sink down")},
		Persister: &fakePersister{err: errors.New("persister down")},
	})

	accounts, stats, err := e.Run(context.Background(), "org-1", false)
	if err != nil {
		t.Fatalf("Run() error = %v, want degraded success", err)
	}
	if len(accounts) != 1 || stats.Recategorized != 1 {
		t.Errorf("accounts = %d, stats = %+v", len(accounts), stats)
	}
	if accounts[0].Region != "" {
		t.Errorf("Region = %q, want untagged on registry failure", accounts[0].Region)
	}
}

func TestEngineCancelledContextStopsCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t, EngineConfig{
		Source: &fakeSource{records: steadyHistory("Acme Bar", 11)},
	})

	_, _, err := e.Run(ctx, "org-1", false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}

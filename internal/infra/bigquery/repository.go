package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/bevdash/salesblitz/internal/cache"
	"github.com/bevdash/salesblitz/internal/domain"
)

const (
	recordsTable  = "transaction_records"
	accountsTable = "accounts"
	resultsTable  = "blitz_accounts"
	cacheTable    = "categorization_cache"
)

// Repository is the BigQuery-backed data access layer. It holds a shared
// client to avoid creating a new connection per operation.
type Repository struct {
	client  *bigquery.Client
	project string
	dataset string
}

// NewRepository creates a Repository with its own BigQuery client.
func NewRepository(ctx context.Context, project, dataset string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{client: client, project: project, dataset: dataset}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Repository) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", r.project, r.dataset, name)
}

// QueryTransactionRecords loads one organization's full raw record set.
// Failure here is the one fatal error of a categorization run.
func (r *Repository) QueryTransactionRecords(ctx context.Context, orgID string) ([]domain.TransactionRecord, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			organization_id,
			account_name,
			product_name,
			order_id,
			order_date,
			default_year,
			default_month,
			quantity,
			quantity_unit,
			case_size,
			bottles_per_unit,
			quantity_in_bottles,
			revenue
		FROM %s
		WHERE organization_id = @org_id
		ORDER BY order_date, account_name, product_name
	`, r.table(recordsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "org_id", Value: orgID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionRecords: running query: %w", err)
	}

	var records []domain.TransactionRecord
	for {
		var row TransactionRecordRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionRecords: reading row: %w", err)
		}
		records = append(records, row.ToDomain())
	}

	return records, nil
}

// ListAccountMeta loads the registry's region and premise-type tags for an
// organization, keyed by account name.
func (r *Repository) ListAccountMeta(ctx context.Context, orgID string) (map[string]domain.AccountMeta, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT organization_id, account_name, region, premise_type
		FROM %s
		WHERE organization_id = @org_id
	`, r.table(accountsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "org_id", Value: orgID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAccountMeta: running query: %w", err)
	}

	meta := make(map[string]domain.AccountMeta)
	for {
		var row AccountMetaRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAccountMeta: reading row: %w", err)
		}
		meta[row.AccountName] = row.ToDomain()
	}

	return meta, nil
}

// InsertBlitzAccounts appends one run's classified accounts to the results
// table.
func (r *Repository) InsertBlitzAccounts(ctx context.Context, runID string, accounts []domain.BlitzAccount) error {
	if len(accounts) == 0 {
		return nil
	}

	rows := make([]*BlitzAccountRow, 0, len(accounts))
	for i := range accounts {
		rows = append(rows, NewBlitzAccountRow(runID, &accounts[i]))
	}

	table := r.client.DatasetInProject(r.project, r.dataset).Table(resultsTable)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertBlitzAccounts: inserting rows: %w", err)
	}

	return nil
}

// SaveCacheEntries appends cache entries write-through. Reads take the
// latest row per account, so append-only is enough for last-writer-wins.
func (r *Repository) SaveCacheEntries(ctx context.Context, entries []*cache.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]*CacheEntryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, NewCacheEntryRow(e))
	}

	table := r.client.DatasetInProject(r.project, r.dataset).Table(cacheTable)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("SaveCacheEntries: inserting rows: %w", err)
	}

	return nil
}

// LoadLatestCacheEntries returns the newest persisted cache entry per
// account for an organization, for warm-loading the in-memory store after a
// restart.
func (r *Repository) LoadLatestCacheEntries(ctx context.Context, orgID string) ([]*cache.Entry, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT organization_id, account_name, category, is_ai_categorized, categorized_at
		FROM %s
		WHERE organization_id = @org_id
		QUALIFY ROW_NUMBER() OVER (
			PARTITION BY account_name ORDER BY categorized_at DESC
		) = 1
	`, r.table(cacheTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "org_id", Value: orgID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("LoadLatestCacheEntries: running query: %w", err)
	}

	var entries []*cache.Entry
	for {
		var row CacheEntryRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("LoadLatestCacheEntries: reading row: %w", err)
		}
		entries = append(entries, row.ToEntry())
	}

	return entries, nil
}

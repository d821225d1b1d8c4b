package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/bevdash/salesblitz/internal/cache"
	"github.com/bevdash/salesblitz/internal/domain"
)

// TransactionRecordRow mirrors the salesblitz.transaction_records table.
type TransactionRecordRow struct {
	OrganizationID string `bigquery:"organization_id"` // REQUIRED
	AccountName    string `bigquery:"account_name"`    // REQUIRED
	ProductName    string `bigquery:"product_name"`    // REQUIRED

	OrderID bigquery.NullString `bigquery:"order_id"` // NULLABLE

	OrderDate    bigquery.NullDate  `bigquery:"order_date"`    // NULLABLE
	DefaultYear  bigquery.NullInt64 `bigquery:"default_year"`  // NULLABLE
	DefaultMonth bigquery.NullInt64 `bigquery:"default_month"` // NULLABLE

	Quantity          float64              `bigquery:"quantity"`            // REQUIRED
	QuantityUnit      bigquery.NullString  `bigquery:"quantity_unit"`       // NULLABLE
	CaseSize          bigquery.NullInt64   `bigquery:"case_size"`           // NULLABLE
	BottlesPerUnit    bigquery.NullInt64   `bigquery:"bottles_per_unit"`    // NULLABLE
	QuantityInBottles bigquery.NullFloat64 `bigquery:"quantity_in_bottles"` // NULLABLE

	Revenue *big.Rat `bigquery:"revenue"` // NULLABLE NUMERIC
}

// ToDomain converts a stored row into the engine's record type.
func (r *TransactionRecordRow) ToDomain() domain.TransactionRecord {
	rec := domain.TransactionRecord{
		OrganizationID: r.OrganizationID,
		AccountName:    r.AccountName,
		ProductName:    r.ProductName,
		Quantity:       r.Quantity,
		Revenue:        decimal.Zero,
	}
	if r.OrderID.Valid {
		rec.OrderID = r.OrderID.StringVal
	}
	if r.OrderDate.Valid {
		d := r.OrderDate.Date
		rec.OrderDate = &d
	}
	if r.DefaultYear.Valid {
		rec.DefaultYear = int(r.DefaultYear.Int64)
	}
	if r.DefaultMonth.Valid {
		rec.DefaultMonth = time.Month(r.DefaultMonth.Int64)
	}
	if r.QuantityUnit.Valid {
		rec.QuantityUnit = domain.QuantityUnit(r.QuantityUnit.StringVal)
	}
	if r.CaseSize.Valid {
		rec.CaseSize = int(r.CaseSize.Int64)
	}
	if r.BottlesPerUnit.Valid {
		rec.BottlesPerUnit = int(r.BottlesPerUnit.Int64)
	}
	if r.QuantityInBottles.Valid {
		b := r.QuantityInBottles.Float64
		rec.QuantityInBottles = &b
	}
	if r.Revenue != nil {
		rec.Revenue = decimal.NewFromBigRat(r.Revenue, 2)
	}
	return rec
}

// AccountMetaRow mirrors the salesblitz.accounts registry table.
type AccountMetaRow struct {
	OrganizationID string              `bigquery:"organization_id"`
	AccountName    string              `bigquery:"account_name"`
	Region         bigquery.NullString `bigquery:"region"`
	PremiseType    bigquery.NullString `bigquery:"premise_type"`
}

// ToDomain converts a registry row into account metadata.
func (r *AccountMetaRow) ToDomain() domain.AccountMeta {
	meta := domain.AccountMeta{AccountName: r.AccountName}
	if r.Region.Valid {
		meta.Region = r.Region.StringVal
	}
	if r.PremiseType.Valid {
		meta.PremiseType = r.PremiseType.StringVal
	}
	return meta
}

// BlitzAccountRow mirrors the salesblitz.blitz_accounts results table. One
// row per account per run; runs supersede rather than update.
type BlitzAccountRow struct {
	RunID          string `bigquery:"run_id"`
	OrganizationID string `bigquery:"organization_id"`
	AccountName    string `bigquery:"account_name"`

	Category        string    `bigquery:"category"`
	IsAICategorized bool      `bigquery:"is_ai_categorized"`
	CategorizedAt   time.Time `bigquery:"categorized_at"`

	BaselineAverage       float64           `bigquery:"baseline_average"`
	RecentAverage         float64           `bigquery:"recent_average"`
	TrendPercent          float64           `bigquery:"trend_percent"`
	LastActivityDate      bigquery.NullDate `bigquery:"last_activity_date"`
	DaysSinceLastActivity int64             `bigquery:"days_since_last_activity"`
	TotalOrders           int64             `bigquery:"total_orders"`
	LifetimeVolume        float64           `bigquery:"lifetime_volume"`
	LifetimeRevenue       *big.Rat          `bigquery:"lifetime_revenue"`

	Region      bigquery.NullString `bigquery:"region"`
	PremiseType bigquery.NullString `bigquery:"premise_type"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// NewBlitzAccountRow maps one classified account into its result row.
func NewBlitzAccountRow(runID string, acct *domain.BlitzAccount) *BlitzAccountRow {
	row := &BlitzAccountRow{
		RunID:                 runID,
		OrganizationID:        acct.OrganizationID,
		AccountName:           acct.AccountName,
		Category:              string(acct.Category),
		IsAICategorized:       acct.IsAICategorized,
		CategorizedAt:         acct.CategorizedAt,
		BaselineAverage:       acct.BaselineAverage,
		RecentAverage:         acct.RecentAverage,
		TrendPercent:          acct.TrendPercent,
		DaysSinceLastActivity: int64(acct.DaysSinceLastActivity),
		TotalOrders:           int64(acct.TotalOrders),
		LifetimeVolume:        acct.LifetimeVolume,
		LifetimeRevenue:       acct.LifetimeRevenue.Rat(),
		CreatedTS:             time.Now().UTC(),
	}
	if acct.LastActivityDate != (civil.Date{}) {
		row.LastActivityDate = bigquery.NullDate{Date: acct.LastActivityDate, Valid: true}
	}
	if acct.Region != "" {
		row.Region = bigquery.NullString{StringVal: acct.Region, Valid: true}
	}
	if acct.PremiseType != "" {
		row.PremiseType = bigquery.NullString{StringVal: acct.PremiseType, Valid: true}
	}
	return row
}

// CacheEntryRow mirrors the salesblitz.categorization_cache table. Entries
// are appended write-through; readers take the latest per account.
type CacheEntryRow struct {
	OrganizationID  string    `bigquery:"organization_id"`
	AccountName     string    `bigquery:"account_name"`
	Category        string    `bigquery:"category"`
	IsAICategorized bool      `bigquery:"is_ai_categorized"`
	CategorizedAt   time.Time `bigquery:"categorized_at"`
}

// NewCacheEntryRow maps a cache entry into its persisted row.
func NewCacheEntryRow(entry *cache.Entry) *CacheEntryRow {
	return &CacheEntryRow{
		OrganizationID:  entry.OrganizationID,
		AccountName:     entry.AccountName,
		Category:        string(entry.Category),
		IsAICategorized: entry.IsAICategorized,
		CategorizedAt:   entry.CategorizedAt,
	}
}

// ToEntry converts a persisted row back into a cache entry.
func (r *CacheEntryRow) ToEntry() *cache.Entry {
	return &cache.Entry{
		OrganizationID:  r.OrganizationID,
		AccountName:     r.AccountName,
		Category:        domain.Category(r.Category),
		IsAICategorized: r.IsAICategorized,
		CategorizedAt:   r.CategorizedAt,
	}
}

package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Category is the trend classification of an account's purchasing
// trajectory. Exactly one category applies per run.
type Category string

const (
	CategoryLargeActive Category = "large_active"
	CategorySmallActive Category = "small_active"
	CategoryLargeLoss   Category = "large_loss"
	CategorySmallLoss   Category = "small_loss"
	CategoryOneTime     Category = "one_time"
	CategoryInactive    Category = "inactive"
)

// AllCategories lists every valid category, in display order.
var AllCategories = []Category{
	CategoryLargeActive,
	CategorySmallActive,
	CategoryLargeLoss,
	CategorySmallLoss,
	CategoryOneTime,
	CategoryInactive,
}

// ParseCategory converts a string (case-insensitive, surrounding space
// ignored) into a Category. Used to validate oracle output.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range AllCategories {
		if c == valid {
			return c, nil
		}
	}
	return "", fmt.Errorf("ParseCategory: unknown category %q", s)
}

// AccountAggregate holds the time-windowed statistics computed for one
// account from its full deduplicated record set. Aggregates are recomputed
// from scratch on every run, never updated incrementally.
type AccountAggregate struct {
	OrganizationID string
	AccountName    string

	BaselineMonthlyVolumes []float64
	RecentMonthlyVolumes   []float64
	BaselineAverage        float64
	RecentAverage          float64
	TrendPercent           float64

	LastActivityDate      civil.Date
	DaysSinceLastActivity int

	TotalOrders     int
	LifetimeVolume  float64
	LifetimeRevenue decimal.Decimal
}

// AccountMeta is the reference data the external account registry supplies
// per account. It is consumed, never computed, by this engine.
type AccountMeta struct {
	AccountName string
	Region      string
	PremiseType string
}

// BlitzAccount is the classified output for one account: the aggregate
// statistics plus the category and its cache provenance. A BlitzAccount is
// superseded, not mutated, by the next categorization run.
type BlitzAccount struct {
	AccountAggregate

	Category        Category
	CategorizedAt   time.Time
	IsAICategorized bool

	Region      string
	PremiseType string
}

package blitz

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/bevdash/salesblitz/internal/domain"
)

// Default window sizes, in months. Both are overridable via configuration.
const (
	DefaultBaselineMonths = 8
	DefaultRecentMonths   = 3
)

// monthKey orders (year, month) pairs chronologically as a single int.
func monthKey(year int, month int) int {
	return year*12 + month - 1
}

// Aggregate computes the windowed statistics for one account from its
// deduplicated, normalized records. The baseline window is the earliest
// baselineMonths months present in the account's data and the recent window
// the latest recentMonths months; months without orders are not zero-padded
// into either window. Both averages divide by the configured window size,
// so a short history divides its total volume down rather than averaging
// over fewer months. Records must all belong to the same account; callers
// group beforehand.
func Aggregate(orgID, accountName string, records []domain.CanonicalRecord, baselineMonths, recentMonths int, now civil.Date) domain.AccountAggregate {
	if baselineMonths <= 0 {
		baselineMonths = DefaultBaselineMonths
	}
	if recentMonths <= 0 {
		recentMonths = DefaultRecentMonths
	}

	agg := domain.AccountAggregate{
		OrganizationID:  orgID,
		AccountName:     accountName,
		LifetimeRevenue: decimal.Zero,
	}
	if len(records) == 0 {
		return agg
	}

	monthly := make(map[int]float64)
	var last civil.Date
	for i := range records {
		rec := &records[i]
		monthly[monthKey(rec.ResolvedYear, int(rec.ResolvedMonth))] += rec.CaseEquivalentVolume
		agg.LifetimeVolume += rec.CaseEquivalentVolume
		agg.LifetimeRevenue = agg.LifetimeRevenue.Add(rec.Revenue)
		if rec.ResolvedDate.After(last) {
			last = rec.ResolvedDate
		}
	}
	agg.TotalOrders = len(records)
	agg.LastActivityDate = last
	agg.DaysSinceLastActivity = now.DaysSince(last)

	keys := make([]int, 0, len(monthly))
	for k := range monthly {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	baseCount := baselineMonths
	if baseCount > len(keys) {
		baseCount = len(keys)
	}
	recentCount := recentMonths
	if recentCount > len(keys) {
		recentCount = len(keys)
	}

	agg.BaselineMonthlyVolumes = make([]float64, 0, baseCount)
	for _, k := range keys[:baseCount] {
		agg.BaselineMonthlyVolumes = append(agg.BaselineMonthlyVolumes, monthly[k])
	}
	agg.RecentMonthlyVolumes = make([]float64, 0, recentCount)
	for _, k := range keys[len(keys)-recentCount:] {
		agg.RecentMonthlyVolumes = append(agg.RecentMonthlyVolumes, monthly[k])
	}

	agg.BaselineAverage = sum(agg.BaselineMonthlyVolumes) / float64(baselineMonths)
	agg.RecentAverage = sum(agg.RecentMonthlyVolumes) / float64(recentMonths)

	// An account with no baseline volume cannot decline; it is classified
	// through the zero-baseline branches instead.
	if agg.BaselineAverage == 0 {
		agg.TrendPercent = 0
	} else {
		agg.TrendPercent = (agg.RecentAverage - agg.BaselineAverage) / agg.BaselineAverage * 100
	}

	return agg
}

// GroupByAccount partitions canonical records by account name, preserving
// record order within each group.
func GroupByAccount(records []domain.CanonicalRecord) map[string][]domain.CanonicalRecord {
	groups := make(map[string][]domain.CanonicalRecord)
	for i := range records {
		name := records[i].AccountName
		groups[name] = append(groups[name], records[i])
	}
	return groups
}

func sum(vals []float64) float64 {
	total := 0.0
	for _, v := range vals {
		total += v
	}
	return total
}

package handlers

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/bevdash/salesblitz/internal/domain"
)

// AccountFilter is the parsed query surface of the account list endpoint.
type AccountFilter struct {
	Category    domain.Category // empty means all
	Region      string
	PremiseType string
	Search      string // case-insensitive account-name substring

	Sort  string // volume | trend | recency | name
	Order string // asc | desc
}

var sortKeys = map[string]bool{
	"volume":  true,
	"trend":   true,
	"recency": true,
	"name":    true,
}

// parseAccountFilter validates the list query parameters. Unknown category
// or sort values are rejected rather than silently ignored.
func parseAccountFilter(query url.Values) (AccountFilter, error) {
	filter := AccountFilter{
		Region:      query.Get("region"),
		PremiseType: query.Get("premise_type"),
		Search:      query.Get("search"),
		Sort:        query.Get("sort"),
		Order:       query.Get("order"),
	}

	if raw := query.Get("category"); raw != "" {
		category, err := domain.ParseCategory(raw)
		if err != nil {
			return AccountFilter{}, err
		}
		filter.Category = category
	}

	if filter.Sort == "" {
		filter.Sort = "name"
	}
	if !sortKeys[filter.Sort] {
		return AccountFilter{}, fmt.Errorf("unknown sort key %q", filter.Sort)
	}

	switch filter.Order {
	case "":
		// Name sorts ascending by default; the numeric keys descend so the
		// biggest movers surface first.
		if filter.Sort == "name" {
			filter.Order = "asc"
		} else {
			filter.Order = "desc"
		}
	case "asc", "desc":
	default:
		return AccountFilter{}, fmt.Errorf("unknown order %q", filter.Order)
	}

	return filter, nil
}

// filterAccounts applies the filter in place of a WHERE clause; the account
// set is already in memory from the run.
func filterAccounts(accounts []domain.BlitzAccount, filter AccountFilter) []domain.BlitzAccount {
	out := accounts[:0:0]
	search := strings.ToLower(filter.Search)

	for _, acct := range accounts {
		if filter.Category != "" && acct.Category != filter.Category {
			continue
		}
		if filter.Region != "" && acct.Region != filter.Region {
			continue
		}
		if filter.PremiseType != "" && acct.PremiseType != filter.PremiseType {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(acct.AccountName), search) {
			continue
		}
		out = append(out, acct)
	}

	return out
}

// sortAccounts orders the account list by the requested key. Ties always
// fall back to ascending account name so the listing is stable across runs.
func sortAccounts(accounts []domain.BlitzAccount, key, order string) {
	desc := order == "desc"

	sort.SliceStable(accounts, func(i, j int) bool {
		a, b := &accounts[i], &accounts[j]

		var av, bv float64
		switch key {
		case "volume":
			av, bv = a.RecentAverage, b.RecentAverage
		case "trend":
			av, bv = a.TrendPercent, b.TrendPercent
		case "recency":
			// Fewer days since activity sorts as more recent.
			av, bv = -float64(a.DaysSinceLastActivity), -float64(b.DaysSinceLastActivity)
		default:
			if desc {
				return a.AccountName > b.AccountName
			}
			return a.AccountName < b.AccountName
		}

		if av != bv {
			if desc {
				return av > bv
			}
			return av < bv
		}
		return a.AccountName < b.AccountName
	})
}

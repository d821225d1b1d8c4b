package handlers

import (
	"time"

	"github.com/bevdash/salesblitz/internal/domain"
)

// accountView is the wire shape of one classified account.
type accountView struct {
	AccountName           string  `json:"account_name"`
	Category              string  `json:"category"`
	Region                string  `json:"region,omitempty"`
	PremiseType           string  `json:"premise_type,omitempty"`
	BaselineAverage       float64 `json:"baseline_average"`
	RecentAverage         float64 `json:"recent_average"`
	TrendPercent          float64 `json:"trend_percent"`
	LastActivityDate      string  `json:"last_activity_date,omitempty"`
	DaysSinceLastActivity int     `json:"days_since_last_activity"`
	TotalOrders           int     `json:"total_orders"`
	LifetimeVolume        float64 `json:"lifetime_volume"`
	LifetimeRevenue       string  `json:"lifetime_revenue"`
	CategorizedAt         string  `json:"categorized_at"`
	IsAICategorized       bool    `json:"is_ai_categorized"`
}

func accountViews(accounts []domain.BlitzAccount) []accountView {
	views := make([]accountView, 0, len(accounts))
	for i := range accounts {
		acct := &accounts[i]
		view := accountView{
			AccountName:           acct.AccountName,
			Category:              string(acct.Category),
			Region:                acct.Region,
			PremiseType:           acct.PremiseType,
			BaselineAverage:       acct.BaselineAverage,
			RecentAverage:         acct.RecentAverage,
			TrendPercent:          acct.TrendPercent,
			DaysSinceLastActivity: acct.DaysSinceLastActivity,
			TotalOrders:           acct.TotalOrders,
			LifetimeVolume:        acct.LifetimeVolume,
			LifetimeRevenue:       acct.LifetimeRevenue.StringFixed(2),
			CategorizedAt:         acct.CategorizedAt.UTC().Format(time.RFC3339),
			IsAICategorized:       acct.IsAICategorized,
		}
		if acct.LastActivityDate.IsValid() {
			view.LastActivityDate = acct.LastActivityDate.String()
		}
		views = append(views, view)
	}
	return views
}

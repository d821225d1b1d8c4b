package blitz

import (
	"context"

	"github.com/bevdash/salesblitz/internal/domain"
)

// Thresholds are the tunable parameters of the trend decision list.
type Thresholds struct {
	// LargeThreshold separates large accounts from small ones, in
	// case-equivalents per month.
	LargeThreshold float64

	// LossRatio is the recent/baseline ratio at or below which an account
	// counts as lost. 0.25 means a 75% or deeper decline.
	LossRatio float64

	// InactiveDays is the recency cutoff for the inactive category.
	InactiveDays int
}

// DefaultThresholds returns the production defaults: one case per month,
// a 75% decline, and 90 days of silence.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LargeThreshold: 1.0,
		LossRatio:      0.25,
		InactiveDays:   90,
	}
}

// rule is one predicate→category pair in the decision list.
type rule struct {
	name     string
	match    func(agg *domain.AccountAggregate, t Thresholds) bool
	category domain.Category
}

// trendRules is the ordered decision list; the first matching rule wins.
// One-time and inactive come first because recency and frequency facts
// override any volume trend. The loss rules precede the active rules so a
// deep decline from a real baseline is never masked by residual volume.
var trendRules = []rule{
	{
		name: "one_time",
		match: func(agg *domain.AccountAggregate, t Thresholds) bool {
			return agg.TotalOrders == 1
		},
		category: domain.CategoryOneTime,
	},
	{
		name: "inactive",
		match: func(agg *domain.AccountAggregate, t Thresholds) bool {
			return agg.DaysSinceLastActivity >= t.InactiveDays
		},
		category: domain.CategoryInactive,
	},
	{
		name: "large_loss",
		match: func(agg *domain.AccountAggregate, t Thresholds) bool {
			return agg.BaselineAverage >= t.LargeThreshold &&
				agg.RecentAverage <= agg.BaselineAverage*t.LossRatio
		},
		category: domain.CategoryLargeLoss,
	},
	{
		name: "small_loss",
		match: func(agg *domain.AccountAggregate, t Thresholds) bool {
			return agg.BaselineAverage < t.LargeThreshold &&
				agg.BaselineAverage > 0 &&
				agg.RecentAverage <= agg.BaselineAverage*t.LossRatio
		},
		category: domain.CategorySmallLoss,
	},
	{
		name: "large_active",
		match: func(agg *domain.AccountAggregate, t Thresholds) bool {
			return agg.RecentAverage >= t.LargeThreshold
		},
		category: domain.CategoryLargeActive,
	},
	{
		name: "small_active",
		match: func(agg *domain.AccountAggregate, t Thresholds) bool {
			return true
		},
		category: domain.CategorySmallActive,
	},
}

// Classify maps aggregate statistics to exactly one category by walking the
// decision list in order. It is pure, deterministic, and total: every
// finite, non-negative aggregate lands on a category.
func Classify(agg *domain.AccountAggregate, t Thresholds) domain.Category {
	for _, r := range trendRules {
		if r.match(agg, t) {
			return r.category
		}
	}
	// Unreachable: the last rule always matches.
	return domain.CategorySmallActive
}

// Classifier maps an account's aggregate to a category. Implementations
// include the deterministic decision list and the AI-assisted oracle; the
// refresh controller composes them so a result is always available.
type Classifier interface {
	Classify(ctx context.Context, agg *domain.AccountAggregate) (domain.Category, error)
}

// RuleClassifier is the deterministic Classifier backed by the decision
// list. It never returns an error.
type RuleClassifier struct {
	Thresholds Thresholds
}

// NewRuleClassifier returns a RuleClassifier with the given thresholds.
func NewRuleClassifier(t Thresholds) *RuleClassifier {
	return &RuleClassifier{Thresholds: t}
}

// Classify implements Classifier.
func (c *RuleClassifier) Classify(ctx context.Context, agg *domain.AccountAggregate) (domain.Category, error) {
	return Classify(agg, c.Thresholds), nil
}

var _ Classifier = (*RuleClassifier)(nil)

package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/bevdash/salesblitz/internal/domain"
)

// BlitzAccountToNotionProperties converts a classified account to the
// properties of the Sales Blitz board database. The account name is the
// page title and the upsert key, so it must always be present.
func BlitzAccountToNotionProperties(acct *domain.BlitzAccount) notionapi.Properties {
	props := notionapi.Properties{
		"Account": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: acct.AccountName,
					},
				},
			},
		},
		"Category": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(acct.Category),
			},
		},
		"Trend %": notionapi.NumberProperty{
			Number: acct.TrendPercent,
		},
		"Recent Avg": notionapi.NumberProperty{
			Number: acct.RecentAverage,
		},
		"Baseline Avg": notionapi.NumberProperty{
			Number: acct.BaselineAverage,
		},
		"Orders": notionapi.NumberProperty{
			Number: float64(acct.TotalOrders),
		},
		"Lifetime Volume": notionapi.NumberProperty{
			Number: acct.LifetimeVolume,
		},
		"Lifetime Revenue": notionapi.NumberProperty{
			Number: acct.LifetimeRevenue.InexactFloat64(),
		},
		"AI Categorized": notionapi.CheckboxProperty{
			Checkbox: acct.IsAICategorized,
		},
	}

	if acct.Region != "" {
		props["Region"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: acct.Region,
			},
		}
	}

	if acct.PremiseType != "" {
		props["Premise Type"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: acct.PremiseType,
			},
		}
	}

	if acct.LastActivityDate.IsValid() {
		lastActivity := notionapi.Date(acct.LastActivityDate.In(time.UTC))
		props["Last Activity"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: &lastActivity,
			},
		}
	}

	if !acct.CategorizedAt.IsZero() {
		categorizedAt := notionapi.Date(acct.CategorizedAt)
		props["Categorized At"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: &categorizedAt,
			},
		}
	}

	return props
}

// extractAccountName extracts the account name from a Notion page's title.
// Returns empty string if not found.
func extractAccountName(page notionapi.Page) string {
	if prop, ok := page.Properties["Account"]; ok {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			if len(title.Title) > 0 {
				return title.Title[0].PlainText
			}
		}
	}
	return ""
}

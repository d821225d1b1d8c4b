package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/bevdash/salesblitz/internal/domain"
	"github.com/bevdash/salesblitz/internal/logger"
)

// SyncBlitzAccounts mirrors one organization's classified accounts to the
// Sales Blitz board in Notion. Pages are keyed by account name:
// 1. Queries all existing pages in the board
// 2. Archives stale pages (accounts absent from the current run)
// 3. Updates pages for known accounts and creates pages for new ones
// Per-account Notion failures are logged and skipped so one bad page never
// aborts the sync. dryRun logs the plan without touching Notion.
func SyncBlitzAccounts(ctx context.Context, notionClient NotionService, notionDBID string, accounts []domain.BlitzAccount, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Int("account_count", len(accounts)).
		Bool("dry_run", dryRun).
		Msg("Starting Sales Blitz board sync to Notion")

	valid := make(map[string]bool, len(accounts))
	for _, acct := range accounts {
		valid[acct.AccountName] = true
	}

	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return fmt.Errorf("failed to query Notion pages: %w", err)
	}

	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	// Existing page per account name, for update-instead-of-create.
	existing := make(map[string]string, len(notionPages))

	var deleted int
	for _, page := range notionPages {
		name := extractAccountName(page)

		// Archive pages without an account name or no longer in the run.
		if name == "" || !valid[name] {
			if dryRun {
				log.Info().
					Str("account", name).
					Str("page_id", string(page.ID)).
					Msg("[DRY RUN] Would archive stale Notion page")
				deleted++
				continue
			}
			if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
				log.Warn().
					Err(err).
					Str("account", name).
					Str("page_id", string(page.ID)).
					Msg("Failed to archive stale Notion page")
				continue
			}
			deleted++
			continue
		}

		existing[name] = string(page.ID)
	}

	var created, updated int
	for i := range accounts {
		acct := &accounts[i]
		pageID := existing[acct.AccountName]

		if dryRun {
			if pageID != "" {
				log.Info().
					Str("account", acct.AccountName).
					Str("page_id", pageID).
					Msg("[DRY RUN] Would update Notion page")
				updated++
			} else {
				log.Info().
					Str("account", acct.AccountName).
					Msg("[DRY RUN] Would create Notion page")
				created++
			}
			continue
		}

		props := BlitzAccountToNotionProperties(acct)

		if pageID != "" {
			if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().
					Err(err).
					Str("account", acct.AccountName).
					Str("page_id", pageID).
					Msg("Failed to update Notion page")
				continue
			}
			updated++
		} else {
			page, err := notionClient.CreatePage(ctx, notionDBID, props)
			if err != nil {
				log.Warn().
					Err(err).
					Str("account", acct.AccountName).
					Msg("Failed to create Notion page")
				continue
			}
			log.Debug().
				Str("account", acct.AccountName).
				Str("page_id", string(page.ID)).
				Msg("Created Notion page")
			created++
		}
	}

	log.Info().
		Int("deleted", deleted).
		Int("created", created).
		Int("updated", updated).
		Int("total", len(accounts)).
		Msg("Sales Blitz board sync completed")

	return nil
}

// queryAllNotionPages retrieves every page in a database, following
// pagination cursors.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

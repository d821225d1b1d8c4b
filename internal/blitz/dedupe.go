package blitz

import (
	"fmt"

	"github.com/bevdash/salesblitz/internal/domain"
)

// Deduplicate collapses records that represent the same underlying order,
// keeping the first occurrence and dropping the rest whole. Order is
// preserved. Records with an order ID are identified by (organization,
// order ID); records without one fall back to a composite natural key that
// reliably detects re-imports of the same upload. Two genuinely distinct
// orders that share every composite field collide and one is dropped; that
// is an accepted approximation in the absence of a universal order
// identifier upstream.
func Deduplicate(records []domain.TransactionRecord) []domain.TransactionRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]domain.TransactionRecord, 0, len(records))

	for i := range records {
		key := dedupeKey(&records[i])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, records[i])
	}

	return out
}

// dedupeKey builds the identity key for one record. The strong key wins
// when an order ID exists; otherwise the key is built from the resolved
// date (or default period), account, product and quantities.
func dedupeKey(r *domain.TransactionRecord) string {
	if r.OrderID != "" {
		return fmt.Sprintf("order|%s|%s", r.OrganizationID, r.OrderID)
	}

	datePart := ""
	if r.OrderDate != nil && r.OrderDate.IsValid() {
		datePart = r.OrderDate.String()
	} else if r.DefaultYear > 0 {
		datePart = fmt.Sprintf("%04d-%02d", r.DefaultYear, int(r.DefaultMonth))
	}

	bottles := 0.0
	if r.QuantityInBottles != nil {
		bottles = *r.QuantityInBottles
	}

	return fmt.Sprintf("composite|%s|%s|%s|%s|%g|%g",
		r.OrganizationID, datePart, r.AccountName, r.ProductName, r.Quantity, bottles)
}

package blitz

import (
	"reflect"
	"testing"

	"github.com/bevdash/salesblitz/internal/domain"
)

func TestDeduplicate(t *testing.T) {
	date := mustDate(t, 2025, 6, 1)
	otherDate := mustDate(t, 2025, 6, 2)

	tests := []struct {
		name      string
		records   []domain.TransactionRecord
		wantNames []string // account names surviving, in order
	}{
		{
			name: "repeated order id collapses to first",
			records: []domain.TransactionRecord{
				{OrganizationID: "org-1", OrderID: "ord-9", AccountName: "First", Quantity: 1},
				{OrganizationID: "org-1", OrderID: "ord-9", AccountName: "Second", Quantity: 99},
			},
			wantNames: []string{"First"},
		},
		{
			name: "same order id in different organizations kept",
			records: []domain.TransactionRecord{
				{OrganizationID: "org-1", OrderID: "ord-9", AccountName: "A"},
				{OrganizationID: "org-2", OrderID: "ord-9", AccountName: "B"},
			},
			wantNames: []string{"A", "B"},
		},
		{
			name: "composite key detects re-import",
			records: []domain.TransactionRecord{
				{OrganizationID: "org-1", AccountName: "Acme Bar", ProductName: "IPA", Quantity: 3, OrderDate: &date},
				{OrganizationID: "org-1", AccountName: "Acme Bar", ProductName: "IPA", Quantity: 3, OrderDate: &date},
			},
			wantNames: []string{"Acme Bar"},
		},
		{
			name: "different date breaks the composite key",
			records: []domain.TransactionRecord{
				{OrganizationID: "org-1", AccountName: "Acme Bar", ProductName: "IPA", Quantity: 3, OrderDate: &date},
				{OrganizationID: "org-1", AccountName: "Acme Bar", ProductName: "IPA", Quantity: 3, OrderDate: &otherDate},
			},
			wantNames: []string{"Acme Bar", "Acme Bar"},
		},
		{
			name: "different quantity breaks the composite key",
			records: []domain.TransactionRecord{
				{OrganizationID: "org-1", AccountName: "Acme Bar", ProductName: "IPA", Quantity: 3, OrderDate: &date},
				{OrganizationID: "org-1", AccountName: "Acme Bar", ProductName: "IPA", Quantity: 4, OrderDate: &date},
			},
			wantNames: []string{"Acme Bar", "Acme Bar"},
		},
		{
			name: "default period stands in for the date",
			records: []domain.TransactionRecord{
				{OrganizationID: "org-1", AccountName: "Acme Bar", ProductName: "IPA", Quantity: 3, DefaultYear: 2025, DefaultMonth: 6},
				{OrganizationID: "org-1", AccountName: "Acme Bar", ProductName: "IPA", Quantity: 3, DefaultYear: 2025, DefaultMonth: 6},
			},
			wantNames: []string{"Acme Bar"},
		},
		{
			name: "strong key does not collide with composite key",
			records: []domain.TransactionRecord{
				{OrganizationID: "org-1", OrderID: "ord-1", AccountName: "Acme Bar", ProductName: "IPA", Quantity: 3, OrderDate: &date},
				{OrganizationID: "org-1", AccountName: "Acme Bar", ProductName: "IPA", Quantity: 3, OrderDate: &date},
			},
			wantNames: []string{"Acme Bar", "Acme Bar"},
		},
		{
			name:      "empty input",
			records:   nil,
			wantNames: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Deduplicate(tt.records)
			names := make([]string, 0, len(got))
			for _, r := range got {
				names = append(names, r.AccountName)
			}
			if !reflect.DeepEqual(names, tt.wantNames) {
				t.Errorf("Deduplicate() kept %v, want %v", names, tt.wantNames)
			}
		})
	}
}

// Deduplication must be stable: applying it twice changes nothing.
func TestDeduplicateStability(t *testing.T) {
	date := mustDate(t, 2025, 1, 15)
	records := []domain.TransactionRecord{
		{OrganizationID: "org-1", OrderID: "a", AccountName: "One", Quantity: 1},
		{OrganizationID: "org-1", OrderID: "a", AccountName: "Dup", Quantity: 1},
		{OrganizationID: "org-1", AccountName: "Two", ProductName: "Lager", Quantity: 5, OrderDate: &date},
		{OrganizationID: "org-1", AccountName: "Two", ProductName: "Lager", Quantity: 5, OrderDate: &date},
		{OrganizationID: "org-1", AccountName: "Three", ProductName: "Stout", Quantity: 2, DefaultYear: 2025, DefaultMonth: 2},
	}

	once := Deduplicate(records)
	twice := Deduplicate(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Deduplicate is not stable: first pass %d records, second pass %d", len(once), len(twice))
	}
}

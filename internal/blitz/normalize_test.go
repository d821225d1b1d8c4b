package blitz

import (
	"testing"

	"github.com/bevdash/salesblitz/internal/domain"
)

func floatPtr(f float64) *float64 { return &f }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		record domain.TransactionRecord
		want   float64
	}{
		{
			name: "bottle count with bottles per unit",
			record: domain.TransactionRecord{
				QuantityInBottles: floatPtr(48),
				BottlesPerUnit:    24,
				Quantity:          999, // must be ignored
			},
			want: 2,
		},
		{
			name: "bottle count falls back to case size",
			record: domain.TransactionRecord{
				QuantityInBottles: floatPtr(36),
				CaseSize:          12,
			},
			want: 3,
		},
		{
			name: "bottle count with no denominator falls through to unit",
			record: domain.TransactionRecord{
				QuantityInBottles: floatPtr(24),
				Quantity:          24,
				QuantityUnit:      domain.UnitBottles,
			},
			want: 2, // 24 bottles / default 12
		},
		{
			name: "bottles unit with bottles per unit",
			record: domain.TransactionRecord{
				Quantity:       60,
				QuantityUnit:   domain.UnitBottles,
				BottlesPerUnit: 6,
			},
			want: 10,
		},
		{
			name: "bottles unit with case size only",
			record: domain.TransactionRecord{
				Quantity:     48,
				QuantityUnit: domain.UnitBottles,
				CaseSize:     24,
			},
			want: 2,
		},
		{
			name: "bottles unit with no metadata uses default twelve",
			record: domain.TransactionRecord{
				Quantity:     36,
				QuantityUnit: domain.UnitBottles,
			},
			want: 3,
		},
		{
			name: "cases unit passes through",
			record: domain.TransactionRecord{
				Quantity:     7.5,
				QuantityUnit: domain.UnitCases,
			},
			want: 7.5,
		},
		{
			name: "unset unit treated as cases",
			record: domain.TransactionRecord{
				Quantity: 4,
			},
			want: 4,
		},
		{
			name: "barrel passes through as approximation",
			record: domain.TransactionRecord{
				Quantity:     2,
				QuantityUnit: domain.UnitBarrel,
			},
			want: 2,
		},
		{
			name:   "zero quantity yields zero volume",
			record: domain.TransactionRecord{Quantity: 0, QuantityUnit: domain.UnitBottles},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(&tt.record)
			if got != tt.want {
				t.Errorf("Normalize() = %v, want %v", got, tt.want)
			}
		})
	}
}

// A record already denominated in cases must come back unchanged no matter
// how often it is normalized.
func TestNormalizeIdempotentForCases(t *testing.T) {
	r := domain.TransactionRecord{Quantity: 12.25, QuantityUnit: domain.UnitCases}
	if got := Normalize(&r); got != r.Quantity {
		t.Fatalf("Normalize() = %v, want quantity %v unchanged", got, r.Quantity)
	}
	again := domain.TransactionRecord{Quantity: Normalize(&r), QuantityUnit: domain.UnitCases}
	if got := Normalize(&again); got != r.Quantity {
		t.Errorf("second Normalize() = %v, want %v", got, r.Quantity)
	}
}

func TestCanonicalizeSkipsMalformed(t *testing.T) {
	date := mustDate(t, 2025, 3, 14)
	records := []domain.TransactionRecord{
		{OrganizationID: "org-1", AccountName: "Acme Bar", Quantity: 2, OrderDate: &date},
		{OrganizationID: "org-1", AccountName: "No Date Tavern", Quantity: 3}, // unschedulable
		{OrganizationID: "org-1", AccountName: "Negative Pub", Quantity: -1, OrderDate: &date},
	}

	canonical, skipped := Canonicalize(records)
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if len(canonical) != 1 {
		t.Fatalf("len(canonical) = %d, want 1", len(canonical))
	}
	if canonical[0].AccountName != "Acme Bar" {
		t.Errorf("kept record = %q, want Acme Bar", canonical[0].AccountName)
	}
	if canonical[0].ResolvedYear != 2025 || int(canonical[0].ResolvedMonth) != 3 {
		t.Errorf("resolved year/month = %d/%d, want 2025/3",
			canonical[0].ResolvedYear, canonical[0].ResolvedMonth)
	}
	if canonical[0].CaseEquivalentVolume != 2 {
		t.Errorf("volume = %v, want 2", canonical[0].CaseEquivalentVolume)
	}
}

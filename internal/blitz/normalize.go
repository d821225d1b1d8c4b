package blitz

import (
	"github.com/bevdash/salesblitz/internal/domain"
)

// DefaultBottlesPerCase is the fallback bottles-per-case used when a
// bottle-denominated record carries no packaging metadata at all.
const DefaultBottlesPerCase = 12

// Normalize converts a raw record's volume into case-equivalent cases.
// Resolution prefers the most specific information available, in order:
// an explicit bottle count divided by bottles-per-unit, then by case size;
// a bottle-denominated quantity divided by the best known bottles-per-case;
// a case-denominated (or unit-less) quantity as-is. Unrecognized units such
// as barrels are passed through unchanged; that is a known approximation.
// Normalize is pure and never fails: absent or zero denominators fall
// through to the next rule, and a zero quantity yields zero volume.
func Normalize(r *domain.TransactionRecord) float64 {
	if r.QuantityInBottles != nil {
		if r.BottlesPerUnit > 0 {
			return *r.QuantityInBottles / float64(r.BottlesPerUnit)
		}
		if r.CaseSize > 0 {
			return *r.QuantityInBottles / float64(r.CaseSize)
		}
	}

	if r.QuantityUnit == domain.UnitBottles {
		perCase := DefaultBottlesPerCase
		if r.BottlesPerUnit > 0 {
			perCase = r.BottlesPerUnit
		} else if r.CaseSize > 0 {
			perCase = r.CaseSize
		}
		return r.Quantity / float64(perCase)
	}

	// Cases, unset, and unrecognized units are all treated as
	// case-denominated already.
	return r.Quantity
}

// Canonicalize deduplicates nothing and merges nothing: it maps each
// schedulable, well-formed record to a CanonicalRecord carrying its
// case-equivalent volume and resolved year/month. Malformed records are
// dropped; the second return value reports how many.
func Canonicalize(records []domain.TransactionRecord) ([]domain.CanonicalRecord, int) {
	out := make([]domain.CanonicalRecord, 0, len(records))
	skipped := 0

	for i := range records {
		r := &records[i]
		if r.Malformed() {
			skipped++
			continue
		}
		year, month, _ := r.ResolveYearMonth()
		date, _ := r.ResolveDate()
		out = append(out, domain.CanonicalRecord{
			TransactionRecord:    *r,
			CaseEquivalentVolume: Normalize(r),
			ResolvedYear:         year,
			ResolvedMonth:        month,
			ResolvedDate:         date,
		})
	}

	return out, skipped
}

package domain

import (
	"math"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// QuantityUnit is the unit a raw transaction quantity is denominated in.
// Upstream feeds are inconsistent: some report cases, some bottles, a few
// barrels, and many leave the unit blank (which in practice means cases).
type QuantityUnit string

const (
	UnitUnset   QuantityUnit = ""
	UnitCases   QuantityUnit = "cases"
	UnitBottles QuantityUnit = "bottles"
	UnitBarrel  QuantityUnit = "barrel"
)

// TransactionRecord is one raw sales record as ingested, before
// deduplication and unit normalization. It is immutable once ingested.
type TransactionRecord struct {
	OrganizationID string
	AccountName    string
	ProductName    string

	// OrderID is the distributor's order identifier when the feed carries
	// one. Empty for feeds that only provide line-item exports.
	OrderID string

	// OrderDate is the explicit order date, when known.
	OrderDate *civil.Date

	// DefaultYear/DefaultMonth give the coarser "default period" used when
	// the feed only knows the reporting month. Zero when unset.
	DefaultYear  int
	DefaultMonth time.Month

	Quantity     float64
	QuantityUnit QuantityUnit

	// CaseSize and BottlesPerUnit describe the product's packaging when the
	// feed provides it. Zero when unknown.
	CaseSize       int
	BottlesPerUnit int

	// QuantityInBottles is a precomputed bottle count supplied by some
	// feeds. Nil when absent; presence matters for normalization.
	QuantityInBottles *float64

	// Revenue may be zero when the record source lacked pricing.
	Revenue decimal.Decimal
}

// ResolveYearMonth returns the year and month this record belongs to,
// preferring the explicit order date over the default period. ok is false
// when neither is usable; such records are unschedulable and excluded from
// time-windowed aggregation.
func (r *TransactionRecord) ResolveYearMonth() (year int, month time.Month, ok bool) {
	if r.OrderDate != nil && r.OrderDate.IsValid() {
		return r.OrderDate.Year, r.OrderDate.Month, true
	}
	if r.DefaultYear > 0 && r.DefaultMonth >= time.January && r.DefaultMonth <= time.December {
		return r.DefaultYear, r.DefaultMonth, true
	}
	return 0, 0, false
}

// ResolveDate returns the most precise date available: the explicit order
// date, or the first day of the default period.
func (r *TransactionRecord) ResolveDate() (civil.Date, bool) {
	if r.OrderDate != nil && r.OrderDate.IsValid() {
		return *r.OrderDate, true
	}
	if y, m, ok := r.ResolveYearMonth(); ok {
		return civil.Date{Year: y, Month: m, Day: 1}, true
	}
	return civil.Date{}, false
}

// Malformed reports whether the record must be excluded from aggregation:
// no resolvable year/month, or a quantity that is negative or not finite.
func (r *TransactionRecord) Malformed() bool {
	if _, _, ok := r.ResolveYearMonth(); !ok {
		return true
	}
	if r.Quantity < 0 || math.IsNaN(r.Quantity) || math.IsInf(r.Quantity, 0) {
		return true
	}
	if r.QuantityInBottles != nil {
		b := *r.QuantityInBottles
		if b < 0 || math.IsNaN(b) || math.IsInf(b, 0) {
			return true
		}
	}
	return false
}

// CanonicalRecord is a TransactionRecord after deduplication and unit
// normalization. Canonical records are produced per categorization run and
// never persisted; they are cheap to recompute from the raw set.
type CanonicalRecord struct {
	TransactionRecord

	CaseEquivalentVolume float64
	ResolvedYear         int
	ResolvedMonth        time.Month
	ResolvedDate         civil.Date
}

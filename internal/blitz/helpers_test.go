package blitz

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func mustDate(t *testing.T, year int, month, day int) civil.Date {
	t.Helper()
	d := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if !d.IsValid() {
		t.Fatalf("invalid test date %d-%d-%d", year, month, day)
	}
	return d
}

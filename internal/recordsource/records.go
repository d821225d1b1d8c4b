package recordsource

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/bevdash/salesblitz/internal/domain"
)

// recordLine is the wire form of one uploaded transaction record.
type recordLine struct {
	OrganizationID    string          `json:"organizationId"`
	AccountName       string          `json:"accountName"`
	ProductName       string          `json:"productName"`
	OrderID           string          `json:"orderId,omitempty"`
	OrderDate         string          `json:"orderDate,omitempty"`     // YYYY-MM-DD
	DefaultPeriod     string          `json:"defaultPeriod,omitempty"` // YYYY-MM
	Quantity          float64         `json:"quantity"`
	QuantityUnit      string          `json:"quantityUnit,omitempty"`
	CaseSize          int             `json:"caseSize,omitempty"`
	BottlesPerUnit    int             `json:"bottlesPerUnit,omitempty"`
	QuantityInBottles *float64        `json:"quantityInBottles,omitempty"`
	Revenue           decimal.Decimal `json:"revenue"`
}

// DecodeRecords parses a JSON Lines upload into transaction records. Blank
// lines are skipped. A line that fails to decode aborts the whole upload:
// a malformed file indicates a broken export, not a bad record, and a
// partial ingest would silently skew every aggregate downstream.
func DecodeRecords(data []byte) ([]domain.TransactionRecord, error) {
	var records []domain.TransactionRecord

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var wire recordLine
		if err := json.Unmarshal([]byte(line), &wire); err != nil {
			return nil, fmt.Errorf("DecodeRecords: line %d: %w", lineNo, err)
		}

		rec, err := wire.toDomain()
		if err != nil {
			return nil, fmt.Errorf("DecodeRecords: line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("DecodeRecords: scanning upload: %w", err)
	}

	return records, nil
}

func (w *recordLine) toDomain() (domain.TransactionRecord, error) {
	rec := domain.TransactionRecord{
		OrganizationID:    w.OrganizationID,
		AccountName:       w.AccountName,
		ProductName:       w.ProductName,
		OrderID:           w.OrderID,
		Quantity:          w.Quantity,
		QuantityUnit:      domain.QuantityUnit(w.QuantityUnit),
		CaseSize:          w.CaseSize,
		BottlesPerUnit:    w.BottlesPerUnit,
		QuantityInBottles: w.QuantityInBottles,
		Revenue:           w.Revenue,
	}

	if w.OrderDate != "" {
		d, err := civil.ParseDate(w.OrderDate)
		if err != nil {
			return rec, fmt.Errorf("invalid orderDate %q: %w", w.OrderDate, err)
		}
		rec.OrderDate = &d
	}

	if w.DefaultPeriod != "" {
		t, err := time.Parse("2006-01", w.DefaultPeriod)
		if err != nil {
			return rec, fmt.Errorf("invalid defaultPeriod %q: %w", w.DefaultPeriod, err)
		}
		rec.DefaultYear = t.Year()
		rec.DefaultMonth = t.Month()
	}

	return rec, nil
}

// FetchRecords downloads and decodes a JSONL upload in one call.
func FetchRecords(ctx context.Context, gcsURI string) ([]domain.TransactionRecord, error) {
	data, err := FetchFromGCS(ctx, gcsURI)
	if err != nil {
		return nil, err
	}
	return DecodeRecords(data)
}

package importer

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"apotek/backend/internal/domain"
)

func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, value := range row {
			cellName, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cellName, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestParseWorkbookWithHeader(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"Supplier invoice 0042"},
		{"Product Name", "Qty", "Cost Price"},
		{"Paracetamol 500mg (exp 12/2026)", 10, 1000},
		{"Amoxicillin 250mg", "5", "2300.50"},
		{"Broken row", "abc", 100},
		{},
		{"Total", 15, 12300},
	})

	result, err := Parse(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}

	first := result.Rows[0]
	if first.ProductName != "Paracetamol 500mg" {
		t.Fatalf("expected expiry stripped from name, got %q", first.ProductName)
	}
	if first.AddedQuantity != 10 || first.CostPrice.String() != "1000" {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if first.ExpiryDate == nil || !first.ExpiryDate.Equal(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected expiry 2026-12-31, got %v", first.ExpiryDate)
	}
	if result.Rows[1].CostPrice.String() != "2300.5" {
		t.Fatalf("unexpected second cost %s", result.Rows[1].CostPrice)
	}

	if len(result.Skipped) != 2 {
		t.Fatalf("expected 2 skipped rows, got %+v", result.Skipped)
	}
	if result.Skipped[0].Row != 5 || result.Skipped[1].Reason != "footer row" {
		t.Fatalf("unexpected skipped rows: %+v", result.Skipped)
	}
}

func TestParseRowsWithoutHeaderUsesFirstColumns(t *testing.T) {
	result, err := ParseRows([][]string{
		{"Ibuprofen 200mg", "3", "1800"},
		{"Vitamin C (2027-03-15)", "2", "3500"},
	})
	if err != nil {
		t.Fatalf("parse rows: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if result.Rows[1].ProductName != "Vitamin C" || result.Rows[1].ExpiryDate == nil {
		t.Fatalf("expected parsed expiry, got %+v", result.Rows[1])
	}
}

func TestParseRowsKeepsNonDateParenthetical(t *testing.T) {
	result, err := ParseRows([][]string{
		{"Name", "Quantity", "Price"},
		{"Cough Syrup (strawberry)", "1", "4200"},
	})
	if err != nil {
		t.Fatalf("parse rows: %v", err)
	}
	if result.Rows[0].ProductName != "Cough Syrup (strawberry)" || result.Rows[0].ExpiryDate != nil {
		t.Fatalf("unexpected row: %+v", result.Rows[0])
	}
}

func TestParseRowsRejectsSheetWithoutUsableRows(t *testing.T) {
	_, err := ParseRows([][]string{
		{"Name", "Qty", "Price"},
		{"Subtotal", "1", "1"},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseExpiryFormats(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2026-05-20", time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)},
		{"20.05.2026", time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)},
		{"20/05/2026", time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)},
		{"02/2028", time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"04.2026", time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)},
		{"2026-11", time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseExpiry(tt.raw)
		if err != nil {
			t.Fatalf("%s: %v", tt.raw, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("%s: expected %s, got %s", tt.raw, tt.want.Format("2006-01-02"), got.Format("2006-01-02"))
		}
	}

	if _, err := ParseExpiry("soon"); err == nil {
		t.Fatalf("expected error for non-date")
	}
}

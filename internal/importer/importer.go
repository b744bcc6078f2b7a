package importer

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"apotek/backend/internal/domain"
)

var ErrNoRows = errors.New("spreadsheet has no usable rows")

// headerScanDepth bounds how far down the sheet a header row is looked for.
const headerScanDepth = 10

var (
	nameKeywords   = []string{"name", "product", "item", "nama", "obat"}
	qtyKeywords    = []string{"qty", "quantity", "jumlah", "packs"}
	priceKeywords  = []string{"price", "cost", "harga"}
	expiryKeywords = []string{"expiry", "expired", "exp"}
	uppKeywords    = []string{"units per pack", "units_per_pack", "isi"}

	trailingParen = regexp.MustCompile(`\s*\(([^()]*)\)\s*$`)
	expiryPrefix  = regexp.MustCompile(`(?i)^\s*(exp(iry|ired)?|ed)\s*[:.]?\s*`)
)

// Result is the outcome of parsing one sheet.
type Result struct {
	Rows    []domain.SupplyRow
	Skipped []domain.SkippedRow
}

type columns struct {
	name, qty, price, expiry, upp int
}

// Parse reads the first worksheet of an xlsx workbook into supply rows.
// Malformed and footer rows are reported in Skipped rather than failing the
// whole file.
func Parse(r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open spreadsheet: %v", domain.ErrValidation, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, ErrNoRows)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet: %v", domain.ErrValidation, err)
	}
	return ParseRows(rows)
}

// ParseRows maps raw cell text to supply rows. Without a recognizable header
// the first three columns are read as name, quantity and cost price.
func ParseRows(rows [][]string) (*Result, error) {
	cols, headerIdx := detectHeader(rows)
	result := &Result{
		Rows:    make([]domain.SupplyRow, 0, len(rows)),
		Skipped: make([]domain.SkippedRow, 0),
	}

	for i := headerIdx + 1; i < len(rows); i++ {
		cells := rows[i]
		rowNum := i + 1
		if isBlank(cells) {
			continue
		}

		row, reason := parseRow(cells, cols)
		if reason != "" {
			result.Skipped = append(result.Skipped, domain.SkippedRow{Row: rowNum, Reason: reason})
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	if len(result.Rows) == 0 {
		return result, fmt.Errorf("%w: %v", domain.ErrValidation, ErrNoRows)
	}
	return result, nil
}

func detectHeader(rows [][]string) (columns, int) {
	fallback := columns{name: 0, qty: 1, price: 2, expiry: -1, upp: -1}
	for i := 0; i < len(rows) && i < headerScanDepth; i++ {
		cols := columns{name: -1, qty: -1, price: -1, expiry: -1, upp: -1}
		for c, cell := range rows[i] {
			label := strings.ToLower(strings.TrimSpace(cell))
			if label == "" {
				continue
			}
			switch {
			case cols.upp < 0 && containsAny(label, uppKeywords):
				cols.upp = c
			case cols.expiry < 0 && containsAny(label, expiryKeywords):
				cols.expiry = c
			case cols.name < 0 && containsAny(label, nameKeywords):
				cols.name = c
			case cols.qty < 0 && containsAny(label, qtyKeywords):
				cols.qty = c
			case cols.price < 0 && containsAny(label, priceKeywords):
				cols.price = c
			}
		}
		if cols.name >= 0 && cols.qty >= 0 && cols.price >= 0 {
			return cols, i
		}
	}
	return fallback, -1
}

func parseRow(cells []string, cols columns) (domain.SupplyRow, string) {
	name := strings.TrimSpace(cell(cells, cols.name))
	if name == "" {
		return domain.SupplyRow{}, "missing product name"
	}
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "total") || strings.HasPrefix(lower, "subtotal") || strings.HasPrefix(lower, "grand total") {
		return domain.SupplyRow{}, "footer row"
	}

	qty, err := parseQuantity(cell(cells, cols.qty))
	if err != nil {
		return domain.SupplyRow{}, fmt.Sprintf("invalid quantity %q", cell(cells, cols.qty))
	}
	price, err := parseMoney(cell(cells, cols.price))
	if err != nil {
		return domain.SupplyRow{}, fmt.Sprintf("invalid cost price %q", cell(cells, cols.price))
	}

	name, expiry := splitExpiry(name)
	if raw := strings.TrimSpace(cell(cells, cols.expiry)); raw != "" {
		parsed, err := ParseExpiry(raw)
		if err != nil {
			return domain.SupplyRow{}, fmt.Sprintf("invalid expiry date %q", raw)
		}
		expiry = &parsed
	}

	row := domain.SupplyRow{
		ProductName:   name,
		AddedQuantity: qty,
		CostPrice:     price,
		ExpiryDate:    expiry,
	}
	if raw := strings.TrimSpace(cell(cells, cols.upp)); raw != "" {
		upp, err := parseQuantity(raw)
		if err != nil {
			return domain.SupplyRow{}, fmt.Sprintf("invalid units per pack %q", raw)
		}
		row.UnitsPerPack = upp
	}
	return row, ""
}

// splitExpiry pulls a date out of trailing parenthetical text such as
// "Amoxicillin 500mg (exp 03/2027)". The name is returned unchanged when the
// parenthetical is not a date.
func splitExpiry(name string) (string, *time.Time) {
	m := trailingParen.FindStringSubmatchIndex(name)
	if m == nil {
		return name, nil
	}
	inner := expiryPrefix.ReplaceAllString(name[m[2]:m[3]], "")
	parsed, err := ParseExpiry(inner)
	if err != nil {
		return name, nil
	}
	return strings.TrimSpace(name[:m[0]]), &parsed
}

var dayLayouts = []string{"2006-01-02", "02.01.2006", "02/01/2006", "2/1/2006"}
var monthLayouts = []string{"01/2006", "01.2006", "2006-01", "1/2006"}

// ParseExpiry accepts full dates and month-only dates. A month-only date
// means the last day of that month.
func ParseExpiry(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.AddDate(0, 1, -1), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func parseQuantity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 1 {
			return 0, fmt.Errorf("quantity %d below 1", n)
		}
		return n, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsInteger() || d.LessThan(decimal.NewFromInt(1)) {
		return 0, fmt.Errorf("not a whole quantity: %q", raw)
	}
	return int(d.IntPart()), nil
}

func parseMoney(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(strings.TrimPrefix(cleaned, "Rp"), "rp")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %s", d)
	}
	return d, nil
}

func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func containsAny(label string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(label, k) {
			return true
		}
	}
	return false
}

package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TotalUnits is the number of individually sellable units held, counting
// every sealed pack at full capacity plus the opened-pack remainder.
func (s StockItem) TotalUnits() int {
	return s.PackCount*s.unitsPerPack() + s.LooseUnits
}

func (s StockItem) unitsPerPack() int {
	if s.UnitsPerPack < 1 {
		return 1
	}
	return s.UnitsPerPack
}

// Normalize restores 0 <= LooseUnits < UnitsPerPack by folding surplus loose
// units back into whole packs.
func (s *StockItem) Normalize() {
	if s.UnitsPerPack < 1 {
		s.UnitsPerPack = 1
	}
	if s.LooseUnits >= s.UnitsPerPack {
		s.PackCount += s.LooseUnits / s.UnitsPerPack
		s.LooseUnits = s.LooseUnits % s.UnitsPerPack
	}
}

func (s StockItem) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if s.UnitsPerPack < 1 {
		return fmt.Errorf("%w: units_per_pack must be at least 1", ErrValidation)
	}
	if s.PackCount < 0 || s.LooseUnits < 0 {
		return fmt.Errorf("%w: stock quantities must not be negative", ErrValidation)
	}
	if s.LooseUnits >= s.UnitsPerPack {
		return fmt.Errorf("%w: loose_units must be below units_per_pack", ErrValidation)
	}
	if s.CostPrice.IsNegative() || s.SalePrice.IsNegative() {
		return fmt.Errorf("%w: prices must not be negative", ErrValidation)
	}
	return nil
}

// Deplete removes amount packs or loose units from the item and returns the
// priced sale line. The item is left untouched when stock is insufficient.
func (s *StockItem) Deplete(amount int, kind UnitKind) (SaleLine, error) {
	if amount < 1 {
		return SaleLine{}, fmt.Errorf("%w: amount must be at least 1", ErrValidation)
	}

	line := SaleLine{
		StockItemID: s.ID,
		ProductName: s.Name,
		Amount:      amount,
		UnitKind:    kind,
	}

	switch kind {
	case UnitKindPack:
		if s.PackCount < amount {
			return SaleLine{}, fmt.Errorf("%w: %s has %d pack(s), requested %d", ErrInsufficientStock, s.Name, s.PackCount, amount)
		}
		line.UnitPrice = s.SalePrice
		line.LineTotal = s.SalePrice.Mul(decimal.NewFromInt(int64(amount)))
		s.PackCount -= amount
	case UnitKindUnit:
		upp := s.unitsPerPack()
		total := s.TotalUnits()
		if total < amount {
			return SaleLine{}, fmt.Errorf("%w: %s has %d unit(s), requested %d", ErrInsufficientStock, s.Name, total, amount)
		}
		divisor := decimal.NewFromInt(int64(upp))
		line.UnitPrice = s.SalePrice.DivRound(divisor, 4)
		line.LineTotal = s.SalePrice.Mul(decimal.NewFromInt(int64(amount))).DivRound(divisor, 2)
		remaining := total - amount
		s.PackCount = remaining / upp
		s.LooseUnits = remaining % upp
	default:
		return SaleLine{}, fmt.Errorf("%w: unknown unit kind %q", ErrValidation, kind)
	}

	return line, nil
}

// Restock adds packs from a supply row. The stored prices are replaced only
// when salePrice is strictly above the current one; the return value reports
// whether that happened.
func (s *StockItem) Restock(packs int, costPrice decimal.Decimal, salePrice decimal.Decimal) bool {
	s.PackCount += packs
	if salePrice.GreaterThan(s.SalePrice) {
		s.SalePrice = salePrice
		s.CostPrice = costPrice
		return true
	}
	return false
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks a priced row before it is applied to stock.
func (r PricedSupplyRow) Validate() error {
	if strings.TrimSpace(r.ProductName) == "" {
		return fmt.Errorf("%w: product name is required", ErrValidation)
	}
	if r.AddedQuantity < 1 {
		return fmt.Errorf("%w: added quantity must be at least 1", ErrValidation)
	}
	if r.CostPrice.IsNegative() || r.SalePrice.IsNegative() {
		return fmt.Errorf("%w: prices must not be negative", ErrValidation)
	}
	return nil
}

// NewStockItemFromSupply builds the item a supply row creates when its
// product name is not stocked yet.
func NewStockItemFromSupply(id string, row PricedSupplyRow, at time.Time) (StockItem, SupplyLine) {
	upp := row.UnitsPerPack
	if upp < 1 {
		upp = 1
	}
	item := StockItem{
		ID:           id,
		Name:         row.ProductName,
		CostPrice:    row.CostPrice,
		SalePrice:    row.SalePrice,
		PackCount:    row.AddedQuantity,
		UnitsPerPack: upp,
		ExpiryDate:   copyTime(row.ExpiryDate),
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	line := supplyLine(item, row)
	line.CreatedItem = true
	return item, line
}

// ApplySupply adds a supply row to an existing item, reviving it when it was
// soft-deleted, and returns the audit line describing the change.
func (s *StockItem) ApplySupply(row PricedSupplyRow, at time.Time) SupplyLine {
	raised := s.Restock(row.AddedQuantity, row.CostPrice, row.SalePrice)
	if row.ExpiryDate != nil {
		s.ExpiryDate = copyTime(row.ExpiryDate)
	}
	s.Deleted = false
	s.UpdatedAt = at

	line := supplyLine(*s, row)
	line.PriceRaised = raised
	return line
}

func supplyLine(item StockItem, row PricedSupplyRow) SupplyLine {
	return SupplyLine{
		StockItemID:        item.ID,
		ProductName:        item.Name,
		AddedPacks:         row.AddedQuantity,
		CostPrice:          row.CostPrice,
		MarkupPercent:      row.Markup,
		SalePrice:          row.SalePrice,
		ResultingSalePrice: item.SalePrice,
		ExpiryDate:         copyTime(row.ExpiryDate),
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

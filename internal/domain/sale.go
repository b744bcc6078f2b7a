package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ApplyCheckout runs a checkout against working copies of the shift and the
// stock items it references. Lines are applied one after another against the
// running stock, so a later line sees the depletion of earlier ones. Callers
// persist the mutated copies only when no error is returned.
func ApplyCheckout(cmd CheckoutCommand, shift *Shift, items map[string]*StockItem) (Sale, error) {
	if shift == nil || !shift.IsActive {
		return Sale{}, ErrNoActiveShift
	}
	if len(cmd.Lines) == 0 {
		return Sale{}, fmt.Errorf("%w: sale has no lines", ErrValidation)
	}

	systemTotal := decimal.Zero
	lines := make([]SaleLine, 0, len(cmd.Lines))
	for i, req := range cmd.Lines {
		item, ok := items[req.StockItemID]
		if !ok || item == nil || item.Deleted {
			return Sale{}, fmt.Errorf("%w: stock item %s", ErrNotFound, req.StockItemID)
		}
		line, err := item.Deplete(req.Amount, req.UnitKind)
		if err != nil {
			return Sale{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		item.UpdatedAt = cmd.At
		line.SaleID = cmd.SaleID
		line.Position = i + 1
		systemTotal = systemTotal.Add(line.LineTotal)
		lines = append(lines, line)
	}

	shift.TotalCash = shift.TotalCash.Add(cmd.DeclaredTotal)

	return Sale{
		ID:             cmd.SaleID,
		ShiftID:        shift.ID,
		OperatorID:     cmd.OperatorID,
		IdempotencyKey: cmd.IdempotencyKey,
		SystemTotal:    systemTotal,
		DeclaredTotal:  cmd.DeclaredTotal,
		Adjustment:     systemTotal.Sub(cmd.DeclaredTotal),
		CreatedAt:      cmd.At,
		Lines:          lines,
	}, nil
}

// ReferencedItemIDs lists the distinct stock item ids of a checkout in
// ascending order, the order rows are locked in.
func (c CheckoutCommand) ReferencedItemIDs() []string {
	seen := make(map[string]struct{}, len(c.Lines))
	ids := make([]string, 0, len(c.Lines))
	for _, line := range c.Lines {
		if _, ok := seen[line.StockItemID]; ok {
			continue
		}
		seen[line.StockItemID] = struct{}{}
		ids = append(ids, line.StockItemID)
	}
	sort.Strings(ids)
	return ids
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"apotek/backend/internal/domain"
	"apotek/backend/internal/metrics"
	"apotek/backend/internal/store"
	"apotek/backend/internal/xid"
)

// Checkout records one sale against the operator's active shift. Stock,
// shift cash and the sale itself commit together or not at all.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	resp, err := s.checkout(ctx, req)
	switch {
	case err != nil:
		metrics.CheckoutsTotal.WithLabelValues(domain.ErrorKind(err)).Inc()
	case resp.Duplicate:
		metrics.CheckoutsTotal.WithLabelValues("duplicate").Inc()
	default:
		metrics.CheckoutsTotal.WithLabelValues("ok").Inc()
	}
	return resp, err
}

func (s *Service) checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	operator, err := operatorID(ctx)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	if err := validateCheckout(req); err != nil {
		return domain.CheckoutResponse{}, err
	}
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)

	if req.IdempotencyKey != "" {
		if existing, err := s.repo.FindSaleByIdempotency(ctx, operator, req.IdempotencyKey); err == nil {
			shift, err := s.repo.GetShift(ctx, existing.ShiftID)
			if err != nil {
				return domain.CheckoutResponse{}, err
			}
			return domain.CheckoutResponse{Sale: *existing, Shift: *shift, Duplicate: true}, nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return domain.CheckoutResponse{}, err
		}
	}

	saleID := xid.New("sale")
	sale, shift, err := s.repo.Checkout(ctx, domain.CheckoutCommand{
		SaleID:         saleID,
		OperatorID:     operator,
		IdempotencyKey: req.IdempotencyKey,
		DeclaredTotal:  req.DeclaredTotal,
		Lines:          req.Lines,
		At:             s.now(),
	})
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	// A concurrent request with the same key won the race.
	duplicate := sale.ID != saleID

	if !duplicate {
		if !sale.Adjustment.IsZero() {
			log.Printf("[service] sale %s declared %s against system %s (adjustment %s)", sale.ID, sale.DeclaredTotal, sale.SystemTotal, sale.Adjustment)
		}
		s.logAudit(ctx, "sale_checkout", "sale", sale.ID, fmt.Sprintf("shift=%s,lines=%d,system=%s,declared=%s", sale.ShiftID, len(sale.Lines), sale.SystemTotal, sale.DeclaredTotal))
	}
	return domain.CheckoutResponse{Sale: *sale, Shift: *shift, Duplicate: duplicate}, nil
}

func validateCheckout(req domain.CheckoutRequest) error {
	if len(req.Lines) == 0 {
		return fmt.Errorf("%w: sale needs at least one line", store.ErrValidation)
	}
	if req.DeclaredTotal.IsNegative() {
		return fmt.Errorf("%w: declared_total must not be negative", store.ErrValidation)
	}
	for i, line := range req.Lines {
		if strings.TrimSpace(line.StockItemID) == "" {
			return fmt.Errorf("%w: line %d: stock_item_id is required", store.ErrValidation, i+1)
		}
		if line.Amount < 1 {
			return fmt.Errorf("%w: line %d: amount must be at least 1", store.ErrValidation, i+1)
		}
		if line.UnitKind != domain.UnitKindPack && line.UnitKind != domain.UnitKindUnit {
			return fmt.Errorf("%w: line %d: unit_kind must be pack or unit", store.ErrValidation, i+1)
		}
	}
	return nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, shiftID string, limit int) (domain.SaleListResponse, error) {
	sales, err := s.repo.ListSales(ctx, strings.TrimSpace(shiftID), limit)
	if err != nil {
		return domain.SaleListResponse{}, err
	}
	return domain.SaleListResponse{Sales: sales}, nil
}

// DeleteSale always refuses: a recorded sale has already moved stock and cash.
func (s *Service) DeleteSale(ctx context.Context, id string) error {
	if _, err := s.repo.GetSale(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	return fmt.Errorf("%w: sales cannot be deleted", store.ErrInvalidState)
}

package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"apotek/backend/internal/domain"
	"apotek/backend/internal/importer"
	"apotek/backend/internal/metrics"
	"apotek/backend/internal/pricing"
	"apotek/backend/internal/store"
	"apotek/backend/internal/xid"
)

// IngestSupply prices every row and applies the whole batch atomically. One
// invalid row rejects the batch before anything is written.
func (s *Service) IngestSupply(ctx context.Context, req domain.SupplyRequest) (domain.SupplyResponse, error) {
	if len(req.Rows) == 0 {
		return domain.SupplyResponse{}, fmt.Errorf("%w: supply needs at least one row", store.ErrValidation)
	}
	if req.Source == "" {
		req.Source = domain.SupplySourceManual
		if len(req.Rows) > 1 {
			req.Source = domain.SupplySourceBulk
		}
	}

	for i := range req.Rows {
		req.Rows[i].ProductName = strings.TrimSpace(req.Rows[i].ProductName)
		if req.Rows[i].ExpiryDate == nil {
			expiry, err := parseOptionalDate("expiry_date", req.Rows[i].Expiry)
			if err != nil {
				return domain.SupplyResponse{}, fmt.Errorf("row %d: %w", i+1, err)
			}
			req.Rows[i].ExpiryDate = expiry
		}
		if err := validateSupplyRow(req.Rows[i]); err != nil {
			return domain.SupplyResponse{}, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	var globalMarkup *decimal.Decimal
	priced := make([]domain.PricedSupplyRow, 0, len(req.Rows))
	for i, row := range req.Rows {
		markup := row.MarkupPercent
		if markup == nil {
			if globalMarkup == nil {
				setting, err := s.GetMarkup(ctx)
				if err != nil {
					return domain.SupplyResponse{}, err
				}
				globalMarkup = &setting.MarkupPercent
			}
			markup = globalMarkup
		}
		salePrice, err := pricing.ComputeSalePrice(row.CostPrice, *markup)
		if err != nil {
			return domain.SupplyResponse{}, fmt.Errorf("row %d: %w: %v", i+1, store.ErrValidation, err)
		}
		priced = append(priced, domain.PricedSupplyRow{
			SupplyRow: row,
			Markup:    *markup,
			SalePrice: salePrice,
		})
	}

	createdBy := "system"
	if actor, ok := ActorFromContext(ctx); ok {
		createdBy = actor.Username
	}
	batch, err := s.repo.IngestSupply(ctx, domain.SupplyBatch{
		ID:        xid.New("batch"),
		Reference: strings.TrimSpace(req.Reference),
		Supplier:  strings.TrimSpace(req.Supplier),
		Source:    req.Source,
		CreatedBy: createdBy,
		CreatedAt: s.now(),
	}, priced)
	if err != nil {
		return domain.SupplyResponse{}, err
	}

	summary := summarizeSupply(batch.Lines)
	source := string(batch.Source)
	metrics.SupplyRowsTotal.WithLabelValues(source, "created").Add(float64(summary.Created))
	metrics.SupplyRowsTotal.WithLabelValues(source, "updated").Add(float64(summary.Updated))
	metrics.SupplyRowsTotal.WithLabelValues(source, "price_raised").Add(float64(summary.PriceRaised))

	s.logAudit(ctx, "supply_ingest", "supply_batch", batch.ID, fmt.Sprintf("source=%s,rows=%d,created=%d,price_raised=%d", source, summary.Rows, summary.Created, summary.PriceRaised))
	return domain.SupplyResponse{Batch: *batch, Summary: summary}, nil
}

// ImportSupplySpreadsheet parses an xlsx upload and ingests the usable rows
// as one batch. Rows the parser skipped are reported in the summary.
func (s *Service) ImportSupplySpreadsheet(ctx context.Context, r io.Reader, reference string, supplier string) (domain.SupplyResponse, error) {
	parsed, err := importer.Parse(r)
	if err != nil {
		return domain.SupplyResponse{}, err
	}

	resp, err := s.IngestSupply(ctx, domain.SupplyRequest{
		Reference: reference,
		Supplier:  supplier,
		Rows:      parsed.Rows,
		Source:    domain.SupplySourceSpreadsheet,
	})
	if err != nil {
		return domain.SupplyResponse{}, err
	}
	resp.Summary.Skipped = parsed.Skipped
	return resp, nil
}

func (s *Service) GetSupplyBatch(ctx context.Context, id string) (domain.SupplyBatch, error) {
	batch, err := s.repo.GetSupplyBatch(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.SupplyBatch{}, err
	}
	return *batch, nil
}

func (s *Service) ListSupplyBatches(ctx context.Context, limit int) (domain.SupplyBatchListResponse, error) {
	batches, err := s.repo.ListSupplyBatches(ctx, limit)
	if err != nil {
		return domain.SupplyBatchListResponse{}, err
	}
	return domain.SupplyBatchListResponse{Batches: batches}, nil
}

// DeleteSupplyBatch always refuses: batches are part of the stock audit trail.
func (s *Service) DeleteSupplyBatch(ctx context.Context, id string) error {
	if _, err := s.repo.GetSupplyBatch(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	return fmt.Errorf("%w: supply batches are immutable", store.ErrInvalidState)
}

func validateSupplyRow(row domain.SupplyRow) error {
	if row.ProductName == "" {
		return fmt.Errorf("%w: product_name is required", store.ErrValidation)
	}
	if row.AddedQuantity < 1 {
		return fmt.Errorf("%w: added_quantity must be at least 1", store.ErrValidation)
	}
	if row.CostPrice.IsNegative() {
		return fmt.Errorf("%w: cost_price must not be negative", store.ErrValidation)
	}
	if row.MarkupPercent != nil && row.MarkupPercent.IsNegative() {
		return fmt.Errorf("%w: markup_percent must not be negative", store.ErrValidation)
	}
	if row.UnitsPerPack < 0 {
		return fmt.Errorf("%w: units_per_pack must not be negative", store.ErrValidation)
	}
	return nil
}

func summarizeSupply(lines []domain.SupplyLine) domain.SupplySummary {
	summary := domain.SupplySummary{Rows: len(lines)}
	for _, line := range lines {
		if line.CreatedItem {
			summary.Created++
		} else {
			summary.Updated++
		}
		if line.PriceRaised {
			summary.PriceRaised++
		}
	}
	return summary
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"apotek/backend/internal/domain"
	"apotek/backend/internal/pricing"
	"apotek/backend/internal/store"
)

func (s *Service) CreateStockItem(ctx context.Context, req domain.StockItemCreateRequest) (domain.StockItem, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.StockItem{}, fmt.Errorf("%w: name is required", store.ErrValidation)
	}
	expiry, err := parseOptionalDate("expiry_date", req.ExpiryDate)
	if err != nil {
		return domain.StockItem{}, err
	}

	var salePrice decimal.Decimal
	if req.SalePrice != nil {
		salePrice = *req.SalePrice
	} else {
		markup, err := s.effectiveMarkup(ctx, req.MarkupPercent)
		if err != nil {
			return domain.StockItem{}, err
		}
		salePrice, err = pricing.ComputeSalePrice(req.CostPrice, markup)
		if err != nil {
			return domain.StockItem{}, fmt.Errorf("%w: %v", store.ErrValidation, err)
		}
	}

	upp := req.UnitsPerPack
	if upp == 0 {
		upp = 1
	}
	now := s.now()
	created, err := s.repo.CreateStockItem(ctx, domain.StockItem{
		Name:         req.Name,
		CostPrice:    req.CostPrice,
		SalePrice:    salePrice,
		PackCount:    req.PackCount,
		UnitsPerPack: upp,
		LooseUnits:   req.LooseUnits,
		ExpiryDate:   expiry,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return domain.StockItem{}, err
	}

	s.logAudit(ctx, "stock_item_create", "stock_item", created.ID, fmt.Sprintf("name=%s,sale_price=%s,packs=%d", created.Name, created.SalePrice, created.PackCount))
	return *created, nil
}

func (s *Service) GetStockItem(ctx context.Context, id string) (domain.StockItem, error) {
	item, err := s.repo.GetStockItem(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.StockItem{}, err
	}
	return *item, nil
}

func (s *Service) ListStockItems(ctx context.Context, search string, includeDeleted bool, limit int) (domain.StockItemListResponse, error) {
	items, err := s.repo.ListStockItems(ctx, store.StockItemFilter{
		Search:         search,
		IncludeDeleted: includeDeleted,
		Limit:          limit,
	})
	if err != nil {
		return domain.StockItemListResponse{}, err
	}
	return domain.StockItemListResponse{Items: items}, nil
}

// UpdateStockItem applies a partial update. Loose units above a pack are
// folded into packs before the item is saved.
func (s *Service) UpdateStockItem(ctx context.Context, id string, req domain.StockItemUpdateRequest) (domain.StockItem, error) {
	var expiry *time.Time
	if req.ExpiryDate != nil {
		parsed, err := parseOptionalDate("expiry_date", *req.ExpiryDate)
		if err != nil {
			return domain.StockItem{}, err
		}
		expiry = parsed
	}

	updated, err := s.repo.UpdateStockItem(ctx, strings.TrimSpace(id), func(item *domain.StockItem) error {
		if item.Deleted {
			return store.ErrNotFound
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return fmt.Errorf("%w: name must not be empty", store.ErrValidation)
			}
			item.Name = name
		}
		if req.CostPrice != nil {
			item.CostPrice = *req.CostPrice
		}
		if req.SalePrice != nil {
			item.SalePrice = *req.SalePrice
		}
		if req.PackCount != nil {
			item.PackCount = *req.PackCount
		}
		if req.UnitsPerPack != nil {
			item.UnitsPerPack = *req.UnitsPerPack
		}
		if req.LooseUnits != nil {
			item.LooseUnits = *req.LooseUnits
		}
		if req.ExpiryDate != nil {
			item.ExpiryDate = expiry
		}
		if item.UnitsPerPack < 1 {
			return fmt.Errorf("%w: units_per_pack must be at least 1", store.ErrValidation)
		}
		return nil
	})
	if err != nil {
		return domain.StockItem{}, err
	}

	s.logAudit(ctx, "stock_item_update", "stock_item", updated.ID, fmt.Sprintf("sale_price=%s,packs=%d,loose=%d", updated.SalePrice, updated.PackCount, updated.LooseUnits))
	return *updated, nil
}

func (s *Service) DeleteStockItem(ctx context.Context, id string) (domain.StockItem, error) {
	deleted, err := s.repo.SoftDeleteStockItem(ctx, strings.TrimSpace(id), s.now())
	if err != nil {
		return domain.StockItem{}, err
	}
	s.logAudit(ctx, "stock_item_delete", "stock_item", deleted.ID, "name="+deleted.Name)
	return *deleted, nil
}

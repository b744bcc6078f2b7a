package service

import (
	"context"
	"testing"

	"apotek/backend/internal/domain"
	"apotek/backend/internal/store"
)

func TestCreateStockItemComputesSalePrice(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	item, err := svc.CreateStockItem(ctx, domain.StockItemCreateRequest{
		Name:          "Paracetamol Syrup",
		CostPrice:     dec("1000"),
		MarkupPercent: decPtr("15"),
		PackCount:     3,
		UnitsPerPack:  1,
		ExpiryDate:    "2027-02-28",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !item.SalePrice.Equal(dec("1150")) || item.ExpiryDate == nil {
		t.Fatalf("unexpected item: %+v", item)
	}

	defaulted, err := svc.CreateStockItem(ctx, domain.StockItemCreateRequest{Name: "Saline Drops", CostPrice: dec("12.34")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !defaulted.SalePrice.Equal(dec("14")) || defaulted.UnitsPerPack != 1 {
		t.Fatalf("expected default markup price 14, got %+v", defaulted)
	}

	if _, err := svc.CreateStockItem(ctx, domain.StockItemCreateRequest{Name: "Saline Drops", CostPrice: dec("1")}); !isKind(err, store.ErrInvalidState) {
		t.Fatalf("expected duplicate name to be rejected, got %v", err)
	}
	if _, err := svc.CreateStockItem(ctx, domain.StockItemCreateRequest{Name: "Bad", CostPrice: dec("-1")}); !isKind(err, store.ErrValidation) {
		t.Fatalf("expected negative cost to be rejected, got %v", err)
	}
}

func TestUpdateStockItemNormalizesLooseUnits(t *testing.T) {
	svc, _ := newTestService()
	item := seedItem(t, svc, "Cefadroxil 500mg", 1, 10, 0, "900")

	loose := 23
	updated, err := svc.UpdateStockItem(context.Background(), item.ID, domain.StockItemUpdateRequest{LooseUnits: &loose})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PackCount != 3 || updated.LooseUnits != 3 {
		t.Fatalf("expected 3 packs 3 loose, got %d packs %d loose", updated.PackCount, updated.LooseUnits)
	}

	zero := 0
	if _, err := svc.UpdateStockItem(context.Background(), item.ID, domain.StockItemUpdateRequest{UnitsPerPack: &zero}); !isKind(err, store.ErrValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
}

func TestDeleteStockItemIsSoft(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	item := seedItem(t, svc, "Ranitidine 150mg", 1, 10, 0, "700")

	if _, err := svc.DeleteStockItem(ctx, item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	visible, err := svc.ListStockItems(ctx, "", false, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visible.Items) != 0 {
		t.Fatalf("expected deleted item hidden, got %d", len(visible.Items))
	}
	all, err := svc.ListStockItems(ctx, "ranitidine", true, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all.Items) != 1 || !all.Items[0].Deleted {
		t.Fatalf("expected deleted item listed with flag, got %+v", all.Items)
	}
	if _, err := svc.DeleteStockItem(ctx, item.ID); !isKind(err, store.ErrNotFound) {
		t.Fatalf("expected second delete to be not found, got %v", err)
	}
}

package service

import (
	"context"
	"testing"

	"github.com/xuri/excelize/v2"

	"apotek/backend/internal/domain"
	"apotek/backend/internal/store"
)

func TestIngestSupplyCreatesItemsWithDefaultMarkup(t *testing.T) {
	svc, _ := newTestService()
	ctx := pharmacistCtx("admin")

	resp, err := svc.IngestSupply(ctx, domain.SupplyRequest{
		Reference: "INV-001",
		Supplier:  "PT Farma",
		Rows: []domain.SupplyRow{
			{ProductName: "Paracetamol 500mg", AddedQuantity: 10, CostPrice: dec("1000"), UnitsPerPack: 10},
			{ProductName: "Amoxicillin 250mg", AddedQuantity: 5, CostPrice: dec("999.2"), MarkupPercent: decPtr("0")},
		},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if resp.Batch.Source != domain.SupplySourceBulk || len(resp.Batch.Lines) != 2 {
		t.Fatalf("unexpected batch: %+v", resp.Batch)
	}
	if resp.Summary.Created != 2 || resp.Summary.Updated != 0 {
		t.Fatalf("unexpected summary: %+v", resp.Summary)
	}

	first := resp.Batch.Lines[0]
	if !first.SalePrice.Equal(dec("1100")) || !first.MarkupPercent.Equal(dec("10")) {
		t.Fatalf("expected 1100 at 10%% markup, got %s at %s", first.SalePrice, first.MarkupPercent)
	}
	item := mustGetItem(t, svc, first.StockItemID)
	if item.PackCount != 10 || item.UnitsPerPack != 10 || !item.SalePrice.Equal(dec("1100")) {
		t.Fatalf("unexpected created item: %+v", item)
	}
	if !resp.Batch.Lines[1].SalePrice.Equal(dec("999.5")) {
		t.Fatalf("expected 999.5, got %s", resp.Batch.Lines[1].SalePrice)
	}
}

func TestIngestSupplyPriceRatchet(t *testing.T) {
	svc, _ := newTestService()
	ctx := pharmacistCtx("admin")
	item := seedItem(t, svc, "Ibuprofen 400mg", 2, 10, 0, "150")

	lower, err := svc.IngestSupply(ctx, domain.SupplyRequest{Rows: []domain.SupplyRow{
		{ProductName: item.Name, AddedQuantity: 3, CostPrice: dec("120"), MarkupPercent: decPtr("0")},
	}})
	if err != nil {
		t.Fatalf("ingest lower: %v", err)
	}
	got := mustGetItem(t, svc, item.ID)
	if !got.SalePrice.Equal(dec("150")) || got.PackCount != 5 {
		t.Fatalf("expected price held at 150 with 5 packs, got %s and %d", got.SalePrice, got.PackCount)
	}
	line := lower.Batch.Lines[0]
	if line.PriceRaised || !line.SalePrice.Equal(dec("120")) || !line.ResultingSalePrice.Equal(dec("150")) {
		t.Fatalf("unexpected supply line: %+v", line)
	}

	higher, err := svc.IngestSupply(ctx, domain.SupplyRequest{Rows: []domain.SupplyRow{
		{ProductName: item.Name, AddedQuantity: 1, CostPrice: dec("200"), MarkupPercent: decPtr("0")},
	}})
	if err != nil {
		t.Fatalf("ingest higher: %v", err)
	}
	got = mustGetItem(t, svc, item.ID)
	if !got.SalePrice.Equal(dec("200")) || !got.CostPrice.Equal(dec("200")) || got.PackCount != 6 {
		t.Fatalf("expected price raised to 200, got %+v", got)
	}
	if higher.Summary.PriceRaised != 1 || higher.Summary.Updated != 1 {
		t.Fatalf("unexpected summary: %+v", higher.Summary)
	}
}

func TestIngestSupplyRejectsWholeBatchOnInvalidRow(t *testing.T) {
	svc, _ := newTestService()
	ctx := pharmacistCtx("admin")
	existing := seedItem(t, svc, "Vitamin B Complex", 4, 10, 0, "500")

	_, err := svc.IngestSupply(ctx, domain.SupplyRequest{Rows: []domain.SupplyRow{
		{ProductName: existing.Name, AddedQuantity: 2, CostPrice: dec("400")},
		{ProductName: "New Product", AddedQuantity: 1, CostPrice: dec("100")},
		{ProductName: "Broken", AddedQuantity: 0, CostPrice: dec("100")},
	}})
	if !isKind(err, store.ErrValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}

	if got := mustGetItem(t, svc, existing.ID); got.PackCount != 4 {
		t.Fatalf("expected existing item untouched, got %d packs", got.PackCount)
	}
	list, err := svc.ListStockItems(ctx, "New Product", true, 10)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(list.Items) != 0 {
		t.Fatalf("expected no item created, got %d", len(list.Items))
	}
	batches, err := svc.ListSupplyBatches(ctx, 10)
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(batches.Batches) != 0 {
		t.Fatalf("expected no batch recorded, got %d", len(batches.Batches))
	}
}

func TestIngestSupplyUsesStoredMarkupAndRowOverride(t *testing.T) {
	svc, _ := newTestService()
	ctx := pharmacistCtx("admin")

	if _, err := svc.SetMarkup(ctx, domain.MarkupSetting{MarkupPercent: dec("20")}); err != nil {
		t.Fatalf("set markup: %v", err)
	}
	resp, err := svc.IngestSupply(ctx, domain.SupplyRequest{Rows: []domain.SupplyRow{
		{ProductName: "Loperamide 2mg", AddedQuantity: 1, CostPrice: dec("1000")},
		{ProductName: "Domperidone 10mg", AddedQuantity: 1, CostPrice: dec("1000"), MarkupPercent: decPtr("15")},
	}})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !resp.Batch.Lines[0].SalePrice.Equal(dec("1200")) {
		t.Fatalf("expected stored markup price 1200, got %s", resp.Batch.Lines[0].SalePrice)
	}
	if !resp.Batch.Lines[1].SalePrice.Equal(dec("1150")) {
		t.Fatalf("expected override price 1150, got %s", resp.Batch.Lines[1].SalePrice)
	}
}

func TestIngestSupplyRevivesDeletedItemAndReplacesExpiry(t *testing.T) {
	svc, _ := newTestService()
	ctx := pharmacistCtx("admin")
	item := seedItem(t, svc, "Dexamethasone 0.5mg", 1, 10, 0, "300")
	if _, err := svc.DeleteStockItem(ctx, item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	expiry, err := parseOptionalDate("expiry_date", "2027-06-30")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	resp, err := svc.IngestSupply(ctx, domain.SupplyRequest{Rows: []domain.SupplyRow{
		{ProductName: item.Name, AddedQuantity: 2, CostPrice: dec("250"), ExpiryDate: expiry},
	}})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if resp.Batch.Lines[0].CreatedItem || resp.Batch.Lines[0].StockItemID != item.ID {
		t.Fatalf("expected existing item to be reused, got %+v", resp.Batch.Lines[0])
	}
	got := mustGetItem(t, svc, item.ID)
	if got.Deleted || got.PackCount != 3 {
		t.Fatalf("expected revived item with 3 packs, got %+v", got)
	}
	if got.ExpiryDate == nil || !got.ExpiryDate.Equal(*expiry) {
		t.Fatalf("expected expiry replaced, got %v", got.ExpiryDate)
	}
}

func TestImportSupplySpreadsheet(t *testing.T) {
	svc, _ := newTestService()
	ctx := pharmacistCtx("admin")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Product", "Qty", "Cost"},
		{"Captopril 25mg (exp 2027-01)", 4, 500},
		{"Bad quantity", "x", 100},
		{"Subtotal", 4, 2000},
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	_ = f.Close()

	resp, err := svc.ImportSupplySpreadsheet(ctx, buf, "XLS-7", "PT Sehat")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if resp.Batch.Source != domain.SupplySourceSpreadsheet || len(resp.Batch.Lines) != 1 {
		t.Fatalf("unexpected batch: %+v", resp.Batch)
	}
	line := resp.Batch.Lines[0]
	if line.ProductName != "Captopril 25mg" || line.ExpiryDate == nil || line.ExpiryDate.Format("2006-01-02") != "2027-01-31" {
		t.Fatalf("unexpected line: %+v", line)
	}
	if len(resp.Summary.Skipped) != 2 {
		t.Fatalf("expected 2 skipped rows, got %+v", resp.Summary.Skipped)
	}
}

func TestDeleteSupplyBatchIsRefused(t *testing.T) {
	svc, _ := newTestService()
	ctx := pharmacistCtx("admin")

	resp, err := svc.IngestSupply(ctx, domain.SupplyRequest{Rows: []domain.SupplyRow{
		{ProductName: "Simvastatin 20mg", AddedQuantity: 1, CostPrice: dec("100")},
	}})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := svc.DeleteSupplyBatch(ctx, resp.Batch.ID); !isKind(err, store.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	got, err := svc.GetSupplyBatch(context.Background(), resp.Batch.ID)
	if err != nil || got.Source != domain.SupplySourceManual {
		t.Fatalf("expected manual batch to remain, got %+v, %v", got, err)
	}
}

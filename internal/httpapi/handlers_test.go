package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"apotek/backend/internal/domain"
	"apotek/backend/internal/service"
	"apotek/backend/internal/store/memory"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.New()
	svc := service.New(repo, service.Options{})
	auth := NewAuthManager(context.Background(), "test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, dest any) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if dest != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			t.Fatalf("decode data: %v (%s)", err, env.Data)
		}
	}
	return env
}

func loginAs(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s failed, status %d: %s", username, rec.Code, rec.Body.String())
	}
	var payload domain.LoginResponse
	decodeEnvelope(t, rec, &payload)
	if payload.AccessToken == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}

func expectErrorKind(t *testing.T, rec *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec, nil)
	if env.Status != "error" || env.Error == nil {
		t.Fatalf("expected error envelope, got %+v", env)
	}
	if env.Error.Code != status || env.Error.Kind != kind {
		t.Fatalf("expected error {%d %s}, got %+v", status, kind, *env.Error)
	}
}

func TestHandleHealth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	env := decodeEnvelope(t, rec, &body)
	if env.Status != "ok" {
		t.Fatalf("expected ok envelope, got %q", env.Status)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "nope"})
	expectErrorKind(t, rec, http.StatusUnauthorized, "unauthorized")
}

func TestRoutesRequireAuthAndRole(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/stock-items", "", nil)
	expectErrorKind(t, rec, http.StatusUnauthorized, "unauthorized")

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/stock-items", "not-a-token", nil)
	expectErrorKind(t, rec, http.StatusUnauthorized, "unauthorized")

	pharmacist := loginAs(t, handler, "pharmacist", "pharma123")
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/stock-items", pharmacist, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected pharmacist to list stock, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/stock-items", pharmacist, domain.StockItemCreateRequest{Name: "X", UnitsPerPack: 1})
	expectErrorKind(t, rec, http.StatusForbidden, "forbidden")

	rec = doJSON(t, handler, http.MethodPut, "/api/v1/settings/markup", pharmacist, domain.MarkupSetting{})
	expectErrorKind(t, rec, http.StatusForbidden, "forbidden")
}

func TestCheckoutFlowOverHTTP(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := loginAs(t, handler, "admin", "admin123")
	pharmacist := loginAs(t, handler, "pharmacist", "pharma123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/stock-items", admin, map[string]any{
		"name":           "Paracetamol 500mg",
		"cost_price":     "4000",
		"sale_price":     "5000",
		"pack_count":     3,
		"units_per_pack": 10,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create stock item: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Item domain.StockItem `json:"item"`
	}
	decodeEnvelope(t, rec, &created)

	checkout := map[string]any{
		"declared_total": "10000",
		"lines": []map[string]any{
			{"stock_item_id": created.Item.ID, "amount": 2, "unit_kind": "pack"},
		},
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales", pharmacist, checkout)
	expectErrorKind(t, rec, http.StatusConflict, "no_active_shift")

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/shifts/start", pharmacist, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start shift: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/shifts/start", pharmacist, nil)
	expectErrorKind(t, rec, http.StatusConflict, "invalid_state")

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales", pharmacist, checkout)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: %d %s", rec.Code, rec.Body.String())
	}
	var sold domain.CheckoutResponse
	decodeEnvelope(t, rec, &sold)
	if !sold.Sale.SystemTotal.Equal(dec("10000")) || !sold.Sale.Adjustment.IsZero() {
		t.Fatalf("unexpected sale totals %+v", sold.Sale)
	}
	if !sold.Shift.TotalCash.Equal(dec("10000")) {
		t.Fatalf("expected shift cash 10000, got %s", sold.Shift.TotalCash)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales", pharmacist, checkout)
	expectErrorKind(t, rec, http.StatusConflict, "insufficient_stock")

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/stock-items/"+created.Item.ID, pharmacist, nil)
	var after struct {
		Item domain.StockItem `json:"item"`
	}
	decodeEnvelope(t, rec, &after)
	if after.Item.PackCount != 1 || after.Item.LooseUnits != 0 {
		t.Fatalf("expected 1 pack left after rejected sale, got %+v", after.Item)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/sales/"+sold.Sale.ID, admin, nil)
	expectErrorKind(t, rec, http.StatusConflict, "invalid_state")

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/shifts/end", pharmacist, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("end shift: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCheckoutIdempotencyHeader(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := loginAs(t, handler, "admin", "admin123")
	pharmacist := loginAs(t, handler, "pharmacist", "pharma123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/stock-items", admin, map[string]any{
		"name": "Vitamin C", "cost_price": "1000", "sale_price": "1500", "pack_count": 5, "units_per_pack": 1,
	})
	var created struct {
		Item domain.StockItem `json:"item"`
	}
	decodeEnvelope(t, rec, &created)
	doJSON(t, handler, http.MethodPost, "/api/v1/shifts/start", pharmacist, nil)

	body, _ := json.Marshal(map[string]any{
		"declared_total": "1500",
		"lines":          []map[string]any{{"stock_item_id": created.Item.ID, "amount": 1, "unit_kind": "pack"}},
	})
	send := func() domain.CheckoutResponse {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+pharmacist)
		req.Header.Set("Idempotency-Key", "till-1-0001")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		var resp domain.CheckoutResponse
		decodeEnvelope(t, rec, &resp)
		return resp
	}

	first := send()
	second := send()
	if first.Duplicate || !second.Duplicate {
		t.Fatalf("expected only the replay to be flagged duplicate, got %v/%v", first.Duplicate, second.Duplicate)
	}
	if first.Sale.ID != second.Sale.ID {
		t.Fatalf("expected replay to return sale %s, got %s", first.Sale.ID, second.Sale.ID)
	}
	if !second.Shift.TotalCash.Equal(dec("1500")) {
		t.Fatalf("expected cash counted once, got %s", second.Shift.TotalCash)
	}
}

func TestErrorEnvelopeMapping(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := loginAs(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/stock-items/itm-missing", admin, nil)
	expectErrorKind(t, rec, http.StatusNotFound, "not_found")

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/supplies", admin, domain.SupplyRequest{})
	expectErrorKind(t, rec, http.StatusBadRequest, "validation_failure")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/credits", bytes.NewReader([]byte(`{"customer_name":"A","unknown":1}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+admin)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	expectErrorKind(t, rec, http.StatusBadRequest, "validation_failure")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/credits", bytes.NewReader([]byte(`{"customer_name":`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+admin)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	expectErrorKind(t, rec, http.StatusBadRequest, "validation_failure")

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/nowhere", admin, nil)
	expectErrorKind(t, rec, http.StatusNotFound, "not_found")
}

func TestCreditPaymentsOverHTTP(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := loginAs(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/credits", admin, map[string]any{
		"customer_name": "Budi",
		"total_amount":  "100",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create credit: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Credit domain.Credit `json:"credit"`
	}
	decodeEnvelope(t, rec, &created)

	path := "/api/v1/credits/" + created.Credit.ID + "/payments"
	rec = doJSON(t, handler, http.MethodPost, path, admin, map[string]any{"amount": "150"})
	expectErrorKind(t, rec, http.StatusConflict, "over_payment")

	rec = doJSON(t, handler, http.MethodPost, path, admin, map[string]any{"amount": "40"})
	var paid struct {
		Credit domain.Credit `json:"credit"`
	}
	decodeEnvelope(t, rec, &paid)
	if paid.Credit.Status != domain.CreditPartiallyPaid {
		t.Fatalf("expected PARTIALLY_PAID, got %s", paid.Credit.Status)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/credits/unpaid-total", admin, nil)
	var total domain.UnpaidTotalResponse
	decodeEnvelope(t, rec, &total)
	if !total.TotalUnpaid.Equal(dec("60")) {
		t.Fatalf("expected unpaid total 60, got %s", total.TotalUnpaid)
	}
}

func TestSupplyImportUpload(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := loginAs(t, handler, "admin", "admin123")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Product Name", "Qty", "Cost Price"},
		{"Amoxicillin 500mg (exp 06/2027)", 4, 12000},
		{"Total", 4, 48000},
	}
	for r, row := range rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	workbook, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	_ = f.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	_ = form.WriteField("reference", "INV-77")
	part, err := form.CreateFormFile("file", "supply.xlsx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.Copy(part, workbook); err != nil {
		t.Fatalf("copy workbook: %v", err)
	}
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/supplies/import", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("import: %d %s", rec.Code, rec.Body.String())
	}
	var resp domain.SupplyResponse
	decodeEnvelope(t, rec, &resp)
	if resp.Batch.Source != domain.SupplySourceSpreadsheet || resp.Batch.Reference != "INV-77" {
		t.Fatalf("unexpected batch %+v", resp.Batch)
	}
	if resp.Summary.Created != 1 || len(resp.Summary.Skipped) != 1 {
		t.Fatalf("unexpected summary %+v", resp.Summary)
	}
	// cost 12000 at the default 10% markup
	if !resp.Batch.Lines[0].SalePrice.Equal(dec("13200")) {
		t.Fatalf("expected sale price 13200, got %s", resp.Batch.Lines[0].SalePrice)
	}
}

func TestPharmacistAdministration(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := loginAs(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/users/pharmacists", admin, domain.PharmacistCreateRequest{Username: "sari", Password: "sari-pass"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create pharmacist: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/users/pharmacists", admin, domain.PharmacistCreateRequest{Username: "sari", Password: "sari-pass"})
	expectErrorKind(t, rec, http.StatusConflict, "invalid_state")

	loginAs(t, handler, "sari", "sari-pass")

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/users/pharmacists", admin, nil)
	var list struct {
		Pharmacists []domain.PharmacistUser `json:"pharmacists"`
	}
	decodeEnvelope(t, rec, &list)
	if len(list.Pharmacists) != 2 {
		t.Fatalf("expected seeded pharmacist plus sari, got %+v", list.Pharmacists)
	}
}

func TestSupplyAcceptsPlainExpiryDate(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := loginAs(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/supplies", admin, map[string]any{
		"reference": "PO-12",
		"rows": []map[string]any{
			{"product_name": "Cetirizine 10mg", "added_quantity": 3, "cost_price": "2000", "expiry_date": "2027-06-30"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("ingest supply: %d %s", rec.Code, rec.Body.String())
	}
	var resp domain.SupplyResponse
	decodeEnvelope(t, rec, &resp)
	line := resp.Batch.Lines[0]
	if line.ExpiryDate == nil || line.ExpiryDate.Format("2006-01-02") != "2027-06-30" {
		t.Fatalf("expected expiry 2027-06-30, got %v", line.ExpiryDate)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/stock-items/"+line.StockItemID, admin, nil)
	var stored struct {
		Item domain.StockItem `json:"item"`
	}
	decodeEnvelope(t, rec, &stored)
	if stored.Item.ExpiryDate == nil || stored.Item.ExpiryDate.Format("2006-01-02") != "2027-06-30" {
		t.Fatalf("expected stock item expiry 2027-06-30, got %v", stored.Item.ExpiryDate)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/supplies", admin, map[string]any{
		"rows": []map[string]any{
			{"product_name": "Cetirizine 10mg", "added_quantity": 1, "cost_price": "2000", "expiry_date": "30/06/2027"},
		},
	})
	expectErrorKind(t, rec, http.StatusBadRequest, "validation_failure")
}

func TestActiveShiftIsNullWhenNoneOpen(t *testing.T) {
	handler := newTestAPI(t).Handler()
	pharmacist := loginAs(t, handler, "pharmacist", "pharma123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/shifts/active", pharmacist, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("active shift: %d %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec, nil)
	if string(env.Data) != `{"shift":null}` {
		t.Fatalf("expected null shift, got %s", env.Data)
	}

	doJSON(t, handler, http.MethodPost, "/api/v1/shifts/start", pharmacist, nil)
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/shifts/active", pharmacist, nil)
	var active domain.ActiveShiftResponse
	decodeEnvelope(t, rec, &active)
	if active.Shift == nil || !active.Shift.IsActive || active.Shift.OperatorID != "pharmacist" {
		t.Fatalf("expected open shift for pharmacist, got %+v", active.Shift)
	}
}

func TestDeleteReturnsRemovedEntity(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := loginAs(t, handler, "admin", "admin123")
	pharmacist := loginAs(t, handler, "pharmacist", "pharma123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/credits", admin, map[string]any{
		"customer_name": "Wati",
		"total_amount":  "75",
	})
	var created struct {
		Credit domain.Credit `json:"credit"`
	}
	decodeEnvelope(t, rec, &created)

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/credits/"+created.Credit.ID, admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete credit: %d %s", rec.Code, rec.Body.String())
	}
	var removed struct {
		Credit domain.Credit `json:"credit"`
	}
	decodeEnvelope(t, rec, &removed)
	if removed.Credit.ID != created.Credit.ID || removed.Credit.CustomerName != "Wati" {
		t.Fatalf("expected deleted credit in response, got %+v", removed.Credit)
	}
	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/credits/"+created.Credit.ID, admin, nil)
	expectErrorKind(t, rec, http.StatusNotFound, "not_found")

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/shifts/start", pharmacist, nil)
	var started domain.ShiftResponse
	decodeEnvelope(t, rec, &started)
	doJSON(t, handler, http.MethodPost, "/api/v1/shifts/end", pharmacist, nil)

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/shifts/"+started.Shift.ID, admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete shift: %d %s", rec.Code, rec.Body.String())
	}
	var shift domain.ShiftResponse
	decodeEnvelope(t, rec, &shift)
	if shift.Shift.ID != started.Shift.ID || shift.Shift.IsActive {
		t.Fatalf("expected closed shift %s in response, got %+v", started.Shift.ID, shift.Shift)
	}
}

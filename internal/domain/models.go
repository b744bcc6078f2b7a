package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type UnitKind string

const (
	UnitKindPack UnitKind = "pack"
	UnitKindUnit UnitKind = "unit"
)

type SupplySource string

const (
	SupplySourceManual      SupplySource = "manual"
	SupplySourceBulk        SupplySource = "bulk"
	SupplySourceSpreadsheet SupplySource = "spreadsheet"
)

type CreditStatus string

const (
	CreditUnpaid        CreditStatus = "UNPAID"
	CreditPartiallyPaid CreditStatus = "PARTIALLY_PAID"
	CreditPaid          CreditStatus = "PAID"
	CreditWrittenOff    CreditStatus = "WRITTEN_OFF"
)

const (
	RoleAdmin      = "admin"
	RolePharmacist = "pharmacist"
)

// SettingGlobalMarkup is the settings key holding the default markup
// percentage applied to supplies without a row-level override.
const SettingGlobalMarkup = "global_markup_percent"

type StockItem struct {
	ID           string          `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	CostPrice    decimal.Decimal `db:"cost_price" json:"cost_price"`
	SalePrice    decimal.Decimal `db:"sale_price" json:"sale_price"`
	PackCount    int             `db:"pack_count" json:"pack_count"`
	UnitsPerPack int             `db:"units_per_pack" json:"units_per_pack"`
	LooseUnits   int             `db:"loose_units" json:"loose_units"`
	ExpiryDate   *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	Deleted      bool            `db:"deleted" json:"deleted"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

type StockItemCreateRequest struct {
	Name          string           `json:"name"`
	CostPrice     decimal.Decimal  `json:"cost_price"`
	SalePrice     *decimal.Decimal `json:"sale_price,omitempty"`
	MarkupPercent *decimal.Decimal `json:"markup_percent,omitempty"`
	PackCount     int              `json:"pack_count"`
	UnitsPerPack  int              `json:"units_per_pack"`
	LooseUnits    int              `json:"loose_units"`
	ExpiryDate    string           `json:"expiry_date,omitempty"`
}

type StockItemUpdateRequest struct {
	Name         *string          `json:"name,omitempty"`
	CostPrice    *decimal.Decimal `json:"cost_price,omitempty"`
	SalePrice    *decimal.Decimal `json:"sale_price,omitempty"`
	PackCount    *int             `json:"pack_count,omitempty"`
	UnitsPerPack *int             `json:"units_per_pack,omitempty"`
	LooseUnits   *int             `json:"loose_units,omitempty"`
	ExpiryDate   *string          `json:"expiry_date,omitempty"`
}

type StockItemListResponse struct {
	Items []StockItem `json:"items"`
}

// SupplyRow is one incoming line of a supply batch, whether typed in by an
// operator or produced from a spreadsheet. JSON callers send Expiry as
// YYYY-MM-DD; ExpiryDate holds the parsed value.
type SupplyRow struct {
	ProductName   string           `json:"product_name"`
	AddedQuantity int              `json:"added_quantity"`
	CostPrice     decimal.Decimal  `json:"cost_price"`
	Expiry        string           `json:"expiry_date,omitempty"`
	ExpiryDate    *time.Time       `json:"-"`
	MarkupPercent *decimal.Decimal `json:"markup_percent,omitempty"`
	UnitsPerPack  int              `json:"units_per_pack,omitempty"`
}

type SupplyRequest struct {
	Reference string       `json:"reference"`
	Supplier  string       `json:"supplier"`
	Rows      []SupplyRow  `json:"rows"`
	Source    SupplySource `json:"-"`
}

// PricedSupplyRow carries a validated row together with the markup that
// applied to it and the sale price the pricing engine derived.
type PricedSupplyRow struct {
	SupplyRow
	Markup    decimal.Decimal
	SalePrice decimal.Decimal
}

type SupplyBatch struct {
	ID        string       `db:"id" json:"id"`
	Reference string       `db:"reference" json:"reference,omitempty"`
	Supplier  string       `db:"supplier" json:"supplier,omitempty"`
	Source    SupplySource `db:"source" json:"source"`
	CreatedBy string       `db:"created_by" json:"created_by"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	Lines     []SupplyLine `json:"lines"`
}

type SupplyLine struct {
	ID                 string          `db:"id" json:"id"`
	BatchID            string          `db:"batch_id" json:"batch_id"`
	Position           int             `db:"position" json:"position"`
	StockItemID        string          `db:"stock_item_id" json:"stock_item_id"`
	ProductName        string          `db:"product_name" json:"product_name"`
	AddedPacks         int             `db:"added_packs" json:"added_packs"`
	CostPrice          decimal.Decimal `db:"cost_price" json:"cost_price"`
	MarkupPercent      decimal.Decimal `db:"markup_percent" json:"markup_percent"`
	SalePrice          decimal.Decimal `db:"sale_price" json:"sale_price"`
	ResultingSalePrice decimal.Decimal `db:"resulting_sale_price" json:"resulting_sale_price"`
	PriceRaised        bool            `db:"price_raised" json:"price_raised"`
	CreatedItem        bool            `db:"created_item" json:"created_item"`
	ExpiryDate         *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
}

type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type SupplySummary struct {
	Rows        int          `json:"rows"`
	Created     int          `json:"created"`
	Updated     int          `json:"updated"`
	PriceRaised int          `json:"price_raised"`
	Skipped     []SkippedRow `json:"skipped,omitempty"`
}

type SupplyResponse struct {
	Batch   SupplyBatch   `json:"batch"`
	Summary SupplySummary `json:"summary"`
}

type SupplyBatchListResponse struct {
	Batches []SupplyBatch `json:"batches"`
}

type Shift struct {
	ID         string          `db:"id" json:"id"`
	OperatorID string          `db:"operator_id" json:"operator_id"`
	StartTime  time.Time       `db:"start_time" json:"start_time"`
	EndTime    *time.Time      `db:"end_time" json:"end_time,omitempty"`
	TotalCash  decimal.Decimal `db:"total_cash" json:"total_cash"`
	IsActive   bool            `db:"is_active" json:"is_active"`
}

type ShiftResponse struct {
	Shift Shift `json:"shift"`
}

// ActiveShiftResponse carries a null shift when the operator has none open.
type ActiveShiftResponse struct {
	Shift *Shift `json:"shift"`
}

type ShiftListResponse struct {
	Shifts []Shift `json:"shifts"`
}

type SaleLineRequest struct {
	StockItemID string   `json:"stock_item_id"`
	Amount      int      `json:"amount"`
	UnitKind    UnitKind `json:"unit_kind"`
}

type CheckoutRequest struct {
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
	DeclaredTotal  decimal.Decimal   `json:"declared_total"`
	Lines          []SaleLineRequest `json:"lines"`
}

// CheckoutCommand is what the service hands the store once the request has
// been validated and bound to an operator.
type CheckoutCommand struct {
	SaleID         string
	OperatorID     string
	IdempotencyKey string
	DeclaredTotal  decimal.Decimal
	Lines          []SaleLineRequest
	At             time.Time
}

type Sale struct {
	ID             string          `db:"id" json:"id"`
	ShiftID        string          `db:"shift_id" json:"shift_id"`
	OperatorID     string          `db:"operator_id" json:"operator_id"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotency_key,omitempty"`
	SystemTotal    decimal.Decimal `db:"system_total" json:"system_total"`
	DeclaredTotal  decimal.Decimal `db:"declared_total" json:"declared_total"`
	Adjustment     decimal.Decimal `db:"adjustment" json:"adjustment"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	Lines          []SaleLine      `json:"lines"`
}

type SaleLine struct {
	SaleID      string          `db:"sale_id" json:"-"`
	Position    int             `db:"position" json:"position"`
	StockItemID string          `db:"stock_item_id" json:"stock_item_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Amount      int             `db:"amount" json:"amount"`
	UnitKind    UnitKind        `db:"unit_kind" json:"unit_kind"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal   decimal.Decimal `db:"line_total" json:"line_total"`
}

type CheckoutResponse struct {
	Sale      Sale  `json:"sale"`
	Shift     Shift `json:"shift"`
	Duplicate bool  `json:"duplicate"`
}

type SaleListResponse struct {
	Sales []Sale `json:"sales"`
}

type Credit struct {
	ID            string          `db:"id" json:"id"`
	CustomerName  string          `db:"customer_name" json:"customer_name"`
	CustomerPhone string          `db:"customer_phone" json:"customer_phone,omitempty"`
	Description   string          `db:"description" json:"description,omitempty"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaidAmount    decimal.Decimal `db:"paid_amount" json:"paid_amount"`
	Status        CreditStatus    `db:"status" json:"status"`
	DueDate       *time.Time      `db:"due_date" json:"due_date,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
	Payments      []CreditPayment `json:"payments"`
}

type CreditPayment struct {
	ID       string          `db:"id" json:"id"`
	CreditID string          `db:"credit_id" json:"-"`
	Amount   decimal.Decimal `db:"amount" json:"amount"`
	PaidAt   time.Time       `db:"paid_at" json:"paid_at"`
}

type CreditCreateRequest struct {
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	Description   string          `json:"description"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DueDate       string          `json:"due_date,omitempty"`
}

type CreditUpdateRequest struct {
	CustomerName  *string          `json:"customer_name,omitempty"`
	CustomerPhone *string          `json:"customer_phone,omitempty"`
	Description   *string          `json:"description,omitempty"`
	TotalAmount   *decimal.Decimal `json:"total_amount,omitempty"`
	DueDate       *string          `json:"due_date,omitempty"`
}

type CreditPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type CreditListResponse struct {
	Credits []Credit `json:"credits"`
}

type UnpaidTotalResponse struct {
	TotalUnpaid decimal.Decimal `json:"total_unpaid"`
}

type MarkupSetting struct {
	MarkupPercent decimal.Decimal `json:"markup_percent"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type PharmacistCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type PharmacistUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string    `db:"username"`
	Password  string    `db:"password_hash"`
	Role      string    `db:"role"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}

type AuditLog struct {
	ID            string    `db:"id" json:"id"`
	ActorUsername string    `db:"actor_username" json:"actor_username"`
	ActorRole     string    `db:"actor_role" json:"actor_role"`
	Action        string    `db:"action" json:"action"`
	EntityType    string    `db:"entity_type" json:"entity_type"`
	EntityID      string    `db:"entity_id" json:"entity_id"`
	Detail        string    `db:"detail" json:"detail"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"apotek/backend/internal/domain"
)

var (
	ErrNotFound          = domain.ErrNotFound
	ErrInsufficientStock = domain.ErrInsufficientStock
	ErrInvalidState      = domain.ErrInvalidState
	ErrValidation        = domain.ErrValidation
	ErrNoActiveShift     = domain.ErrNoActiveShift
	ErrShiftAlreadyOpen  = domain.ErrShiftAlreadyOpen
	ErrOverPayment       = domain.ErrOverPayment
)

type StockItemFilter struct {
	Search         string
	IncludeDeleted bool
	Limit          int
}

type CreditFilter struct {
	Status domain.CreditStatus
	Limit  int
}

// Repository is the transactional ledger store. Every method that touches more
// than one row runs as a single transaction: either all of its writes apply or
// none do.
type Repository interface {
	CreateStockItem(ctx context.Context, item domain.StockItem) (*domain.StockItem, error)
	GetStockItem(ctx context.Context, id string) (*domain.StockItem, error)
	ListStockItems(ctx context.Context, filter StockItemFilter) ([]domain.StockItem, error)
	// UpdateStockItem loads the item under lock, lets mutate change it and
	// saves the result unless mutate fails.
	UpdateStockItem(ctx context.Context, id string, mutate func(*domain.StockItem) error) (*domain.StockItem, error)
	SoftDeleteStockItem(ctx context.Context, id string, at time.Time) (*domain.StockItem, error)

	IngestSupply(ctx context.Context, batch domain.SupplyBatch, rows []domain.PricedSupplyRow) (*domain.SupplyBatch, error)
	GetSupplyBatch(ctx context.Context, id string) (*domain.SupplyBatch, error)
	ListSupplyBatches(ctx context.Context, limit int) ([]domain.SupplyBatch, error)

	StartShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	EndShift(ctx context.Context, operatorID string, at time.Time) (*domain.Shift, error)
	GetActiveShift(ctx context.Context, operatorID string) (*domain.Shift, error)
	GetShift(ctx context.Context, id string) (*domain.Shift, error)
	ListShifts(ctx context.Context, operatorID string, limit int) ([]domain.Shift, error)
	DeleteShift(ctx context.Context, id string) error

	Checkout(ctx context.Context, cmd domain.CheckoutCommand) (*domain.Sale, *domain.Shift, error)
	// FindSaleByIdempotency looks a key up within one operator's sales; keys
	// are not shared between operators.
	FindSaleByIdempotency(ctx context.Context, operatorID string, key string) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, shiftID string, limit int) ([]domain.Sale, error)

	CreateCredit(ctx context.Context, credit domain.Credit) (*domain.Credit, error)
	GetCredit(ctx context.Context, id string) (*domain.Credit, error)
	ListCredits(ctx context.Context, filter CreditFilter) ([]domain.Credit, error)
	// UpdateCredit follows the same locked read-modify-write contract as
	// UpdateStockItem; payments appended by mutate are persisted with it.
	UpdateCredit(ctx context.Context, id string, mutate func(*domain.Credit) error) (*domain.Credit, error)
	DeleteCredit(ctx context.Context, id string) error
	TotalUnpaid(ctx context.Context) (decimal.Decimal, error)

	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key string, value string) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

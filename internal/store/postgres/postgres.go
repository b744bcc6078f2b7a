package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"apotek/backend/internal/domain"
	"apotek/backend/internal/store"
	"apotek/backend/internal/xid"
)

const (
	stockItemColumns = `id, name, cost_price, sale_price, pack_count, units_per_pack, loose_units, expiry_date, deleted, created_at, updated_at`
	shiftColumns     = `id, operator_id, start_time, end_time, total_cash, is_active`
	saleColumns      = `id, shift_id, operator_id, idempotency_key, system_total, declared_total, adjustment, created_at`
	saleLineColumns  = `sale_id, position, stock_item_id, product_name, amount, unit_kind, unit_price, line_total`
	creditColumns    = `id, customer_name, customer_phone, description, total_amount, paid_amount, status, due_date, created_at, updated_at`
	supplyLineCols   = `id, batch_id, position, stock_item_id, product_name, added_packs, cost_price, markup_percent, sale_price, resulting_sale_price, price_raised, created_item, expiry_date`
)

type Store struct {
	db *sqlx.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	return s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (s *Store) CreateStockItem(ctx context.Context, item domain.StockItem) (*domain.StockItem, error) {
	item.Normalize()
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if item.ID == "" {
		item.ID = xid.New("item")
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO stock_items (`+stockItemColumns+`)
		VALUES (:id, :name, :cost_price, :sale_price, :pack_count, :units_per_pack, :loose_units, :expiry_date, :deleted, :created_at, :updated_at)
	`, item)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: stock item %q already exists", store.ErrInvalidState, item.Name)
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetStockItem(ctx context.Context, id string) (*domain.StockItem, error) {
	var item domain.StockItem
	err := s.db.GetContext(ctx, &item, `SELECT `+stockItemColumns+` FROM stock_items WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListStockItems(ctx context.Context, filter store.StockItemFilter) ([]domain.StockItem, error) {
	limit := filter.Limit
	if limit < 1 {
		limit = 500
	}
	search := "%" + strings.TrimSpace(filter.Search) + "%"

	items := make([]domain.StockItem, 0, 64)
	err := s.db.SelectContext(ctx, &items, `
		SELECT `+stockItemColumns+`
		FROM stock_items
		WHERE ($1 OR deleted = false) AND name ILIKE $2
		ORDER BY name
		LIMIT $3
	`, filter.IncludeDeleted, search, limit)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateStockItem(ctx context.Context, id string, mutate func(*domain.StockItem) error) (*domain.StockItem, error) {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var item domain.StockItem
	err = tx.GetContext(ctx, &item, `SELECT `+stockItemColumns+` FROM stock_items WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if err := mutate(&item); err != nil {
		return nil, err
	}
	item.ID = id
	item.Normalize()
	if err := item.Validate(); err != nil {
		return nil, err
	}
	item.UpdatedAt = time.Now().UTC()

	if err := updateStockItem(ctx, tx, item); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: stock item %q already exists", store.ErrInvalidState, item.Name)
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SoftDeleteStockItem(ctx context.Context, id string, at time.Time) (*domain.StockItem, error) {
	var item domain.StockItem
	err := s.db.GetContext(ctx, &item, `
		UPDATE stock_items SET deleted = true, updated_at = $2
		WHERE id = $1 AND deleted = false
		RETURNING `+stockItemColumns, id, at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// IngestSupply applies a whole batch in one transaction. Every product the
// batch names is locked up front in id order; names that are not stocked yet
// get a placeholder row first so concurrent batches creating the same product
// serialize on the name constraint instead of failing.
func (s *Store) IngestSupply(ctx context.Context, batch domain.SupplyBatch, rows []domain.PricedSupplyRow) (*domain.SupplyBatch, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: supply batch has no rows", store.ErrValidation)
	}
	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	if batch.ID == "" {
		batch.ID = xid.New("batch")
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	names := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.ProductName]; ok {
			continue
		}
		seen[row.ProductName] = struct{}{}
		names = append(names, row.ProductName)
	}
	sort.Strings(names)

	created := make(map[string]bool)
	for _, name := range names {
		upp := 1
		for _, row := range rows {
			if row.ProductName == name && row.UnitsPerPack > 0 {
				upp = row.UnitsPerPack
				break
			}
		}
		id := xid.New("item")
		res, err := tx.ExecContext(ctx, `
			INSERT INTO stock_items (`+stockItemColumns+`)
			VALUES ($1, $2, 0, 0, 0, $3, 0, NULL, false, $4, $4)
			ON CONFLICT (name) DO NOTHING
		`, id, name, upp, batch.CreatedAt)
		if err != nil {
			return nil, err
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 1 {
			created[id] = true
		}
	}

	locked := make([]domain.StockItem, 0, len(names))
	if err := tx.SelectContext(ctx, &locked, `
		SELECT `+stockItemColumns+`
		FROM stock_items
		WHERE name = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, names); err != nil {
		return nil, err
	}
	byName := make(map[string]*domain.StockItem, len(locked))
	for i := range locked {
		byName[locked[i].Name] = &locked[i]
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO supply_batches (id, reference, supplier, source, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, batch.ID, batch.Reference, batch.Supplier, string(batch.Source), batch.CreatedBy, batch.CreatedAt); err != nil {
		return nil, err
	}

	lines := make([]domain.SupplyLine, 0, len(rows))
	for i, row := range rows {
		item, ok := byName[row.ProductName]
		if !ok {
			return nil, fmt.Errorf("stock item %q vanished during supply", row.ProductName)
		}

		var line domain.SupplyLine
		if created[item.ID] {
			fresh, freshLine := domain.NewStockItemFromSupply(item.ID, row, batch.CreatedAt)
			*item = fresh
			line = freshLine
			delete(created, item.ID)
		} else {
			line = item.ApplySupply(row, batch.CreatedAt)
		}
		line.ID = xid.New("sline")
		line.BatchID = batch.ID
		line.Position = i + 1
		lines = append(lines, line)
	}

	for _, item := range byName {
		if err := updateStockItem(ctx, tx, *item); err != nil {
			return nil, err
		}
	}
	for _, line := range lines {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO supply_lines (`+supplyLineCols+`)
			VALUES (:id, :batch_id, :position, :stock_item_id, :product_name, :added_packs, :cost_price, :markup_percent, :sale_price, :resulting_sale_price, :price_raised, :created_item, :expiry_date)
		`, line); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	batch.Lines = lines
	return &batch, nil
}

func (s *Store) GetSupplyBatch(ctx context.Context, id string) (*domain.SupplyBatch, error) {
	var batch domain.SupplyBatch
	err := s.db.GetContext(ctx, &batch, `
		SELECT id, reference, supplier, source, created_by, created_at
		FROM supply_batches WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	batch.Lines = make([]domain.SupplyLine, 0, 16)
	if err := s.db.SelectContext(ctx, &batch.Lines, `
		SELECT `+supplyLineCols+` FROM supply_lines WHERE batch_id = $1 ORDER BY position
	`, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

func (s *Store) ListSupplyBatches(ctx context.Context, limit int) ([]domain.SupplyBatch, error) {
	if limit < 1 {
		limit = 50
	}
	batches := make([]domain.SupplyBatch, 0, limit)
	if err := s.db.SelectContext(ctx, &batches, `
		SELECT id, reference, supplier, source, created_by, created_at
		FROM supply_batches
		ORDER BY created_at DESC
		LIMIT $1
	`, limit); err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return batches, nil
	}

	ids := make([]string, len(batches))
	for i, b := range batches {
		ids[i] = b.ID
	}
	lines := make([]domain.SupplyLine, 0, len(batches)*4)
	if err := s.db.SelectContext(ctx, &lines, `
		SELECT `+supplyLineCols+` FROM supply_lines WHERE batch_id = ANY($1) ORDER BY batch_id, position
	`, ids); err != nil {
		return nil, err
	}
	byBatch := make(map[string][]domain.SupplyLine, len(batches))
	for _, line := range lines {
		byBatch[line.BatchID] = append(byBatch[line.BatchID], line)
	}
	for i := range batches {
		batches[i].Lines = byBatch[batches[i].ID]
		if batches[i].Lines == nil {
			batches[i].Lines = []domain.SupplyLine{}
		}
	}
	return batches, nil
}

func (s *Store) StartShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	if strings.TrimSpace(shift.OperatorID) == "" {
		return nil, fmt.Errorf("%w: operator is required", store.ErrValidation)
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.StartTime.IsZero() {
		shift.StartTime = time.Now().UTC()
	}
	shift.EndTime = nil
	shift.TotalCash = decimal.Zero
	shift.IsActive = true

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO shifts (`+shiftColumns+`)
		VALUES (:id, :operator_id, :start_time, :end_time, :total_cash, :is_active)
	`, shift)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrShiftAlreadyOpen
		}
		return nil, err
	}
	return &shift, nil
}

func (s *Store) EndShift(ctx context.Context, operatorID string, at time.Time) (*domain.Shift, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	var shift domain.Shift
	err := s.db.GetContext(ctx, &shift, `
		UPDATE shifts SET is_active = false, end_time = $2
		WHERE operator_id = $1 AND is_active = true
		RETURNING `+shiftColumns, operatorID, at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNoActiveShift
		}
		return nil, err
	}
	return &shift, nil
}

func (s *Store) GetActiveShift(ctx context.Context, operatorID string) (*domain.Shift, error) {
	var shift domain.Shift
	err := s.db.GetContext(ctx, &shift, `
		SELECT `+shiftColumns+` FROM shifts WHERE operator_id = $1 AND is_active = true
	`, operatorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &shift, nil
}

func (s *Store) GetShift(ctx context.Context, id string) (*domain.Shift, error) {
	var shift domain.Shift
	err := s.db.GetContext(ctx, &shift, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &shift, nil
}

func (s *Store) ListShifts(ctx context.Context, operatorID string, limit int) ([]domain.Shift, error) {
	if limit < 1 {
		limit = 50
	}
	shifts := make([]domain.Shift, 0, limit)
	err := s.db.SelectContext(ctx, &shifts, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE ($1 = '' OR operator_id = $1)
		ORDER BY start_time DESC
		LIMIT $2
	`, operatorID, limit)
	if err != nil {
		return nil, err
	}
	return shifts, nil
}

func (s *Store) DeleteShift(ctx context.Context, id string) error {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var shift domain.Shift
	if err := tx.GetContext(ctx, &shift, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	if shift.IsActive {
		return fmt.Errorf("%w: shift %s is still open", store.ErrInvalidState, id)
	}
	var hasSales bool
	if err := tx.GetContext(ctx, &hasSales, `SELECT EXISTS (SELECT 1 FROM sales WHERE shift_id = $1)`, id); err != nil {
		return err
	}
	if hasSales {
		return fmt.Errorf("%w: shift %s has recorded sales", store.ErrInvalidState, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM shifts WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// Checkout locks the operator's active shift and then every referenced stock
// row in id order, so two checkouts over the same products always queue
// rather than deadlock.
func (s *Store) Checkout(ctx context.Context, cmd domain.CheckoutCommand) (*domain.Sale, *domain.Shift, error) {
	if cmd.IdempotencyKey != "" {
		if sale, shift, err := s.saleWithShiftByKey(ctx, cmd.OperatorID, cmd.IdempotencyKey); err == nil {
			return sale, shift, nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, nil, err
		}
	}
	if cmd.SaleID == "" {
		cmd.SaleID = xid.New("sale")
	}
	if cmd.At.IsZero() {
		cmd.At = time.Now().UTC()
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var shift domain.Shift
	err = tx.GetContext(ctx, &shift, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE operator_id = $1 AND is_active = true
		FOR UPDATE
	`, cmd.OperatorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, store.ErrNoActiveShift
		}
		return nil, nil, err
	}

	locked := make([]domain.StockItem, 0, len(cmd.Lines))
	if err := tx.SelectContext(ctx, &locked, `
		SELECT `+stockItemColumns+`
		FROM stock_items
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, cmd.ReferencedItemIDs()); err != nil {
		return nil, nil, err
	}
	items := make(map[string]*domain.StockItem, len(locked))
	for i := range locked {
		items[locked[i].ID] = &locked[i]
	}

	sale, err := domain.ApplyCheckout(cmd, &shift, items)
	if err != nil {
		return nil, nil, err
	}

	for _, item := range items {
		if err := updateStockItem(ctx, tx, *item); err != nil {
			return nil, nil, err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE shifts SET total_cash = $2 WHERE id = $1`, shift.ID, shift.TotalCash); err != nil {
		return nil, nil, err
	}
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO sales (`+saleColumns+`)
		VALUES (:id, :shift_id, :operator_id, :idempotency_key, :system_total, :declared_total, :adjustment, :created_at)
	`, sale); err != nil {
		if isUniqueViolation(err) && cmd.IdempotencyKey != "" {
			_ = tx.Rollback()
			return s.saleWithShiftByKey(ctx, cmd.OperatorID, cmd.IdempotencyKey)
		}
		return nil, nil, err
	}
	for _, line := range sale.Lines {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO sale_lines (`+saleLineColumns+`)
			VALUES (:sale_id, :position, :stock_item_id, :product_name, :amount, :unit_kind, :unit_price, :line_total)
		`, line); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &sale, &shift, nil
}

func (s *Store) saleWithShiftByKey(ctx context.Context, operatorID string, key string) (*domain.Sale, *domain.Shift, error) {
	sale, err := s.FindSaleByIdempotency(ctx, operatorID, key)
	if err != nil {
		return nil, nil, err
	}
	shift, err := s.GetShift(ctx, sale.ShiftID)
	if err != nil {
		return nil, nil, err
	}
	return sale, shift, nil
}

func (s *Store) FindSaleByIdempotency(ctx context.Context, operatorID string, key string) (*domain.Sale, error) {
	return s.getSale(ctx, `
		SELECT `+saleColumns+` FROM sales
		WHERE operator_id = $1 AND idempotency_key = $2 AND idempotency_key <> ''
	`, operatorID, key)
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	return s.getSale(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
}

func (s *Store) getSale(ctx context.Context, query string, args ...any) (*domain.Sale, error) {
	var sale domain.Sale
	if err := s.db.GetContext(ctx, &sale, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.Lines = make([]domain.SaleLine, 0, 8)
	if err := s.db.SelectContext(ctx, &sale.Lines, `
		SELECT `+saleLineColumns+` FROM sale_lines WHERE sale_id = $1 ORDER BY position
	`, sale.ID); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, shiftID string, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 50
	}
	sales := make([]domain.Sale, 0, limit)
	if err := s.db.SelectContext(ctx, &sales, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE ($1 = '' OR shift_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, shiftID, limit); err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return sales, nil
	}

	ids := make([]string, len(sales))
	for i, sale := range sales {
		ids[i] = sale.ID
	}
	lines := make([]domain.SaleLine, 0, len(sales)*2)
	if err := s.db.SelectContext(ctx, &lines, `
		SELECT `+saleLineColumns+` FROM sale_lines WHERE sale_id = ANY($1) ORDER BY sale_id, position
	`, ids); err != nil {
		return nil, err
	}
	bySale := make(map[string][]domain.SaleLine, len(sales))
	for _, line := range lines {
		bySale[line.SaleID] = append(bySale[line.SaleID], line)
	}
	for i := range sales {
		sales[i].Lines = bySale[sales[i].ID]
		if sales[i].Lines == nil {
			sales[i].Lines = []domain.SaleLine{}
		}
	}
	return sales, nil
}

func (s *Store) CreateCredit(ctx context.Context, credit domain.Credit) (*domain.Credit, error) {
	if strings.TrimSpace(credit.CustomerName) == "" || !credit.TotalAmount.IsPositive() {
		return nil, fmt.Errorf("%w: customer name and positive total are required", store.ErrValidation)
	}
	if credit.ID == "" {
		credit.ID = xid.New("credit")
	}
	if credit.CreatedAt.IsZero() {
		credit.CreatedAt = time.Now().UTC()
	}
	credit.UpdatedAt = credit.CreatedAt
	credit.PaidAmount = decimal.Zero
	credit.Status = domain.CreditUnpaid
	credit.Payments = []domain.CreditPayment{}

	if _, err := s.db.NamedExecContext(ctx, `
		INSERT INTO credits (`+creditColumns+`)
		VALUES (:id, :customer_name, :customer_phone, :description, :total_amount, :paid_amount, :status, :due_date, :created_at, :updated_at)
	`, credit); err != nil {
		return nil, err
	}
	return &credit, nil
}

func (s *Store) GetCredit(ctx context.Context, id string) (*domain.Credit, error) {
	return getCredit(ctx, s.db, id, false)
}

func (s *Store) ListCredits(ctx context.Context, filter store.CreditFilter) ([]domain.Credit, error) {
	limit := filter.Limit
	if limit < 1 {
		limit = 100
	}
	credits := make([]domain.Credit, 0, limit)
	if err := s.db.SelectContext(ctx, &credits, `
		SELECT `+creditColumns+`
		FROM credits
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2
	`, string(filter.Status), limit); err != nil {
		return nil, err
	}
	if len(credits) == 0 {
		return credits, nil
	}

	ids := make([]string, len(credits))
	for i, c := range credits {
		ids[i] = c.ID
	}
	payments := make([]domain.CreditPayment, 0, len(credits))
	if err := s.db.SelectContext(ctx, &payments, `
		SELECT id, credit_id, amount, paid_at FROM credit_payments
		WHERE credit_id = ANY($1) ORDER BY paid_at, id
	`, ids); err != nil {
		return nil, err
	}
	byCredit := make(map[string][]domain.CreditPayment, len(credits))
	for _, p := range payments {
		byCredit[p.CreditID] = append(byCredit[p.CreditID], p)
	}
	for i := range credits {
		credits[i].Payments = byCredit[credits[i].ID]
		if credits[i].Payments == nil {
			credits[i].Payments = []domain.CreditPayment{}
		}
	}
	return credits, nil
}

func (s *Store) UpdateCredit(ctx context.Context, id string, mutate func(*domain.Credit) error) (*domain.Credit, error) {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	credit, err := getCredit(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	recorded := len(credit.Payments)

	if err := mutate(credit); err != nil {
		return nil, err
	}
	credit.ID = id
	if credit.PaidAmount.IsNegative() || credit.PaidAmount.GreaterThan(credit.TotalAmount) {
		return nil, fmt.Errorf("%w: paid amount outside [0, total]", store.ErrInvalidState)
	}

	if _, err := tx.NamedExecContext(ctx, `
		UPDATE credits
		SET customer_name = :customer_name, customer_phone = :customer_phone, description = :description,
			total_amount = :total_amount, paid_amount = :paid_amount, status = :status,
			due_date = :due_date, updated_at = :updated_at
		WHERE id = :id
	`, credit); err != nil {
		return nil, err
	}
	for _, payment := range credit.Payments[recorded:] {
		payment.CreditID = id
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO credit_payments (id, credit_id, amount, paid_at)
			VALUES (:id, :credit_id, :amount, :paid_at)
		`, payment); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return credit, nil
}

func (s *Store) DeleteCredit(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM credits WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) TotalUnpaid(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(total_amount - paid_amount), 0)
		FROM credits
		WHERE status IN ($1, $2)
	`, string(domain.CreditUnpaid), string(domain.CreditPartiallyPaid))
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (s *Store) SetSetting(ctx context.Context, key string, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	return err
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES (:id, :actor_username, :actor_role, :action, :entity_type, :entity_id, :detail, :created_at)
	`, entry)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	logs := make([]domain.AuditLog, 0, limit)
	err := s.db.SelectContext(ctx, &logs, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		VALUES (:username, :password_hash, :role, :active, :created_at)
	`, user)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username already exists", store.ErrInvalidState)
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	users := make([]domain.UserAccount, 0, 16)
	if err := s.db.SelectContext(ctx, &users, `
		SELECT username, password_hash, role, active, created_at FROM users ORDER BY username
	`); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2 WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username)), password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func updateStockItem(ctx context.Context, tx *sqlx.Tx, item domain.StockItem) error {
	_, err := tx.NamedExecContext(ctx, `
		UPDATE stock_items
		SET name = :name, cost_price = :cost_price, sale_price = :sale_price,
			pack_count = :pack_count, units_per_pack = :units_per_pack, loose_units = :loose_units,
			expiry_date = :expiry_date, deleted = :deleted, updated_at = :updated_at
		WHERE id = :id
	`, item)
	return err
}

func getCredit(ctx context.Context, q sqlx.QueryerContext, id string, forUpdate bool) (*domain.Credit, error) {
	query := `SELECT ` + creditColumns + ` FROM credits WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var credit domain.Credit
	if err := sqlx.GetContext(ctx, q, &credit, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	credit.Payments = make([]domain.CreditPayment, 0, 4)
	if err := sqlx.SelectContext(ctx, q, &credit.Payments, `
		SELECT id, credit_id, amount, paid_at FROM credit_payments
		WHERE credit_id = $1 ORDER BY paid_at, id
	`, id); err != nil {
		return nil, err
	}
	return &credit, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

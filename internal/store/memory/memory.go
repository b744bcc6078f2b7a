package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"apotek/backend/internal/domain"
	"apotek/backend/internal/store"
	"apotek/backend/internal/xid"
)

type Store struct {
	mu                    sync.RWMutex
	itemsByID             map[string]domain.StockItem
	itemIDByName          map[string]string
	batchesByID           map[string]domain.SupplyBatch
	batchOrder            []string
	shiftsByID            map[string]domain.Shift
	activeShiftByOperator map[string]string
	salesByID             map[string]domain.Sale
	saleIDByIdem          map[idempotencyKey]string
	saleOrder             []string
	creditsByID           map[string]domain.Credit
	settings              map[string]string
	auditLogs             []domain.AuditLog
	usersByUsername       map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_PHARMACIST_PASSWORD;
// hardcoded dev defaults are used with a warning when they are unset. The
// postgres store never sees these accounts.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	pharmacistPwd := envOr("SEED_PHARMACIST_PASSWORD", "pharma123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_PHARMACIST_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_PHARMACIST_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"pharmacist", pharmacistPwd, domain.RolePharmacist},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// New returns an empty store with the dev user accounts.
func New() *Store {
	return &Store{
		itemsByID:             make(map[string]domain.StockItem),
		itemIDByName:          make(map[string]string),
		batchesByID:           make(map[string]domain.SupplyBatch),
		batchOrder:            make([]string, 0, 64),
		shiftsByID:            make(map[string]domain.Shift),
		activeShiftByOperator: make(map[string]string),
		salesByID:             make(map[string]domain.Sale),
		saleIDByIdem:          make(map[idempotencyKey]string),
		saleOrder:             make([]string, 0, 256),
		creditsByID:           make(map[string]domain.Credit),
		settings:              make(map[string]string),
		auditLogs:             make([]domain.AuditLog, 0, 128),
		usersByUsername:       seedUsers(),
	}
}

// NewSeeded returns a store stocked with a handful of demo products.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	for _, seed := range []struct {
		name  string
		cost  string
		sale  string
		packs int
		upp   int
	}{
		{"Paracetamol 500mg", "1000", "1150", 40, 10},
		{"Amoxicillin 250mg", "2300", "2550", 25, 20},
		{"Ibuprofen 200mg", "1800", "2000", 30, 10},
		{"Vitamin C 1000mg", "3500", "4000", 15, 30},
		{"Cough Syrup 100ml", "4200", "4650", 12, 1},
		{"Omeprazole 20mg", "2600", "2900", 20, 14},
	} {
		item := domain.StockItem{
			ID:           xid.New("item"),
			Name:         seed.name,
			CostPrice:    decimal.RequireFromString(seed.cost),
			SalePrice:    decimal.RequireFromString(seed.sale),
			PackCount:    seed.packs,
			UnitsPerPack: seed.upp,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		s.itemsByID[item.ID] = item
		s.itemIDByName[item.Name] = item.ID
	}
	return s
}

func (s *Store) CreateStockItem(_ context.Context, item domain.StockItem) (*domain.StockItem, error) {
	item.Normalize()
	if err := item.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.itemIDByName[item.Name]; exists {
		return nil, fmt.Errorf("%w: stock item %q already exists", store.ErrInvalidState, item.Name)
	}
	if item.ID == "" {
		item.ID = xid.New("item")
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	s.itemsByID[item.ID] = item
	s.itemIDByName[item.Name] = item.ID
	created := cloneStockItem(item)
	return &created, nil
}

func (s *Store) GetStockItem(_ context.Context, id string) (*domain.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.itemsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := cloneStockItem(item)
	return &found, nil
}

func (s *Store) ListStockItems(_ context.Context, filter store.StockItemFilter) ([]domain.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	items := make([]domain.StockItem, 0, len(s.itemsByID))
	for _, item := range s.itemsByID {
		if item.Deleted && !filter.IncludeDeleted {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(item.Name), search) {
			continue
		}
		items = append(items, cloneStockItem(item))
	}
	slices.SortFunc(items, func(a, b domain.StockItem) int {
		return strings.Compare(a.Name, b.Name)
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *Store) UpdateStockItem(_ context.Context, id string, mutate func(*domain.StockItem) error) (*domain.StockItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.itemsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	working := cloneStockItem(current)
	if err := mutate(&working); err != nil {
		return nil, err
	}
	working.ID = current.ID
	working.Normalize()
	if err := working.Validate(); err != nil {
		return nil, err
	}
	if working.Name != current.Name {
		if _, taken := s.itemIDByName[working.Name]; taken {
			return nil, fmt.Errorf("%w: stock item %q already exists", store.ErrInvalidState, working.Name)
		}
		delete(s.itemIDByName, current.Name)
		s.itemIDByName[working.Name] = working.ID
	}
	working.UpdatedAt = time.Now().UTC()

	s.itemsByID[id] = working
	updated := cloneStockItem(working)
	return &updated, nil
}

func (s *Store) SoftDeleteStockItem(_ context.Context, id string, at time.Time) (*domain.StockItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.itemsByID[id]
	if !ok || item.Deleted {
		return nil, store.ErrNotFound
	}
	item.Deleted = true
	item.UpdatedAt = at
	s.itemsByID[id] = item
	deleted := cloneStockItem(item)
	return &deleted, nil
}

func (s *Store) IngestSupply(_ context.Context, batch domain.SupplyBatch, rows []domain.PricedSupplyRow) (*domain.SupplyBatch, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: supply batch has no rows", store.ErrValidation)
	}
	if batch.ID == "" {
		batch.ID = xid.New("batch")
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Changes are staged here and only copied into the store once every row
	// has been applied.
	staged := make(map[string]*domain.StockItem, len(rows))
	stagedNames := make(map[string]string, len(rows))
	lookup := func(name string) *domain.StockItem {
		if id, ok := stagedNames[name]; ok {
			return staged[id]
		}
		id, ok := s.itemIDByName[name]
		if !ok {
			return nil
		}
		if item, ok := staged[id]; ok {
			return item
		}
		item := cloneStockItem(s.itemsByID[id])
		staged[id] = &item
		return &item
	}

	lines := make([]domain.SupplyLine, 0, len(rows))
	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		var line domain.SupplyLine
		if item := lookup(row.ProductName); item != nil {
			line = item.ApplySupply(row, batch.CreatedAt)
		} else {
			created, createdLine := domain.NewStockItemFromSupply(xid.New("item"), row, batch.CreatedAt)
			staged[created.ID] = &created
			stagedNames[created.Name] = created.ID
			line = createdLine
		}
		line.ID = xid.New("sline")
		line.BatchID = batch.ID
		line.Position = i + 1
		lines = append(lines, line)
	}

	for id, item := range staged {
		s.itemsByID[id] = *item
	}
	for name, id := range stagedNames {
		s.itemIDByName[name] = id
	}
	batch.Lines = lines
	s.batchesByID[batch.ID] = cloneSupplyBatch(batch)
	s.batchOrder = append(s.batchOrder, batch.ID)

	saved := cloneSupplyBatch(batch)
	return &saved, nil
}

func (s *Store) GetSupplyBatch(_ context.Context, id string) (*domain.SupplyBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch, ok := s.batchesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := cloneSupplyBatch(batch)
	return &found, nil
}

func (s *Store) ListSupplyBatches(_ context.Context, limit int) ([]domain.SupplyBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 50
	}
	result := make([]domain.SupplyBatch, 0, min(limit, len(s.batchOrder)))
	for i := len(s.batchOrder) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, cloneSupplyBatch(s.batchesByID[s.batchOrder[i]]))
	}
	return result, nil
}

func (s *Store) StartShift(_ context.Context, shift domain.Shift) (*domain.Shift, error) {
	if strings.TrimSpace(shift.OperatorID) == "" {
		return nil, fmt.Errorf("%w: operator is required", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.activeShiftByOperator[shift.OperatorID]; exists {
		return nil, store.ErrShiftAlreadyOpen
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

	s.shiftsByID[shift.ID] = shift
	s.activeShiftByOperator[shift.OperatorID] = shift.ID
	started := cloneShift(shift)
	return &started, nil
}

func (s *Store) EndShift(_ context.Context, operatorID string, at time.Time) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shiftID, exists := s.activeShiftByOperator[operatorID]
	if !exists {
		return nil, store.ErrNoActiveShift
	}
	shift := s.shiftsByID[shiftID]
	if at.IsZero() {
		at = time.Now().UTC()
	}
	shift.EndTime = &at
	shift.IsActive = false

	delete(s.activeShiftByOperator, operatorID)
	s.shiftsByID[shiftID] = shift
	ended := cloneShift(shift)
	return &ended, nil
}

func (s *Store) GetActiveShift(_ context.Context, operatorID string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shiftID, exists := s.activeShiftByOperator[operatorID]
	if !exists {
		return nil, store.ErrNotFound
	}
	shift := cloneShift(s.shiftsByID[shiftID])
	return &shift, nil
}

func (s *Store) GetShift(_ context.Context, id string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shift, ok := s.shiftsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := cloneShift(shift)
	return &found, nil
}

func (s *Store) ListShifts(_ context.Context, operatorID string, limit int) ([]domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 50
	}
	shifts := make([]domain.Shift, 0, len(s.shiftsByID))
	for _, shift := range s.shiftsByID {
		if operatorID != "" && shift.OperatorID != operatorID {
			continue
		}
		shifts = append(shifts, cloneShift(shift))
	}
	slices.SortFunc(shifts, func(a, b domain.Shift) int {
		return b.StartTime.Compare(a.StartTime)
	})
	if len(shifts) > limit {
		shifts = shifts[:limit]
	}
	return shifts, nil
}

func (s *Store) DeleteShift(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	shift, ok := s.shiftsByID[id]
	if !ok {
		return store.ErrNotFound
	}
	if shift.IsActive {
		return fmt.Errorf("%w: shift %s is still open", store.ErrInvalidState, id)
	}
	for _, sale := range s.salesByID {
		if sale.ShiftID == id {
			return fmt.Errorf("%w: shift %s has recorded sales", store.ErrInvalidState, id)
		}
	}
	delete(s.shiftsByID, id)
	return nil
}

func (s *Store) Checkout(_ context.Context, cmd domain.CheckoutCommand) (*domain.Sale, *domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cmd.IdempotencyKey != "" {
		if saleID, ok := s.saleIDByIdem[idempotencyKey{cmd.OperatorID, cmd.IdempotencyKey}]; ok {
			sale := cloneSale(s.salesByID[saleID])
			shift := cloneShift(s.shiftsByID[sale.ShiftID])
			return &sale, &shift, nil
		}
	}

	shiftID, ok := s.activeShiftByOperator[cmd.OperatorID]
	if !ok {
		return nil, nil, store.ErrNoActiveShift
	}
	shift := cloneShift(s.shiftsByID[shiftID])

	items := make(map[string]*domain.StockItem, len(cmd.Lines))
	for _, id := range cmd.ReferencedItemIDs() {
		item, exists := s.itemsByID[id]
		if !exists {
			continue
		}
		working := cloneStockItem(item)
		items[id] = &working
	}

	if cmd.SaleID == "" {
		cmd.SaleID = xid.New("sale")
	}
	if cmd.At.IsZero() {
		cmd.At = time.Now().UTC()
	}
	sale, err := domain.ApplyCheckout(cmd, &shift, items)
	if err != nil {
		return nil, nil, err
	}

	for id, item := range items {
		s.itemsByID[id] = *item
	}
	s.shiftsByID[shift.ID] = shift
	s.salesByID[sale.ID] = cloneSale(sale)
	s.saleOrder = append(s.saleOrder, sale.ID)
	if sale.IdempotencyKey != "" {
		s.saleIDByIdem[idempotencyKey{sale.OperatorID, sale.IdempotencyKey}] = sale.ID
	}

	savedShift := cloneShift(shift)
	return &sale, &savedShift, nil
}

type idempotencyKey struct {
	operatorID string
	key        string
}

func (s *Store) FindSaleByIdempotency(_ context.Context, operatorID string, key string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	saleID, ok := s.saleIDByIdem[idempotencyKey{operatorID, key}]
	if !ok {
		return nil, store.ErrNotFound
	}
	sale := cloneSale(s.salesByID[saleID])
	return &sale, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := cloneSale(sale)
	return &found, nil
}

func (s *Store) ListSales(_ context.Context, shiftID string, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 50
	}
	sales := make([]domain.Sale, 0, min(limit, len(s.saleOrder)))
	for i := len(s.saleOrder) - 1; i >= 0 && len(sales) < limit; i-- {
		sale := s.salesByID[s.saleOrder[i]]
		if shiftID != "" && sale.ShiftID != shiftID {
			continue
		}
		sales = append(sales, cloneSale(sale))
	}
	return sales, nil
}

func (s *Store) CreateCredit(_ context.Context, credit domain.Credit) (*domain.Credit, error) {
	if strings.TrimSpace(credit.CustomerName) == "" || !credit.TotalAmount.IsPositive() {
		return nil, fmt.Errorf("%w: customer name and positive total are required", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if credit.ID == "" {
		credit.ID = xid.New("credit")
	}
	now := time.Now().UTC()
	if credit.CreatedAt.IsZero() {
		credit.CreatedAt = now
	}
	credit.UpdatedAt = credit.CreatedAt
	credit.PaidAmount = decimal.Zero
	credit.Status = domain.CreditUnpaid
	credit.Payments = []domain.CreditPayment{}

	s.creditsByID[credit.ID] = cloneCredit(credit)
	created := cloneCredit(credit)
	return &created, nil
}

func (s *Store) GetCredit(_ context.Context, id string) (*domain.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	credit, ok := s.creditsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := cloneCredit(credit)
	return &found, nil
}

func (s *Store) ListCredits(_ context.Context, filter store.CreditFilter) ([]domain.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.Limit
	if limit < 1 {
		limit = 100
	}
	credits := make([]domain.Credit, 0, len(s.creditsByID))
	for _, credit := range s.creditsByID {
		if filter.Status != "" && credit.Status != filter.Status {
			continue
		}
		credits = append(credits, cloneCredit(credit))
	}
	slices.SortFunc(credits, func(a, b domain.Credit) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if len(credits) > limit {
		credits = credits[:limit]
	}
	return credits, nil
}

func (s *Store) UpdateCredit(_ context.Context, id string, mutate func(*domain.Credit) error) (*domain.Credit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.creditsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	working := cloneCredit(current)
	if err := mutate(&working); err != nil {
		return nil, err
	}
	working.ID = current.ID
	if working.PaidAmount.IsNegative() || working.PaidAmount.GreaterThan(working.TotalAmount) {
		return nil, fmt.Errorf("%w: paid amount outside [0, total]", store.ErrInvalidState)
	}

	s.creditsByID[id] = cloneCredit(working)
	updated := cloneCredit(working)
	return &updated, nil
}

func (s *Store) DeleteCredit(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.creditsByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.creditsByID, id)
	return nil
}

func (s *Store) TotalUnpaid(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, credit := range s.creditsByID {
		if credit.IsOpen() {
			total = total.Add(credit.Outstanding())
		}
	}
	return total, nil
}

func (s *Store) GetSetting(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.settings[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return value, nil
}

func (s *Store) SetSetting(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[key] = value
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	result := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	if _, exists := s.usersByUsername[username]; exists {
		return fmt.Errorf("%w: username already exists", store.ErrInvalidState)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Username = username
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneTime(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	v := *src
	return &v
}

func cloneStockItem(src domain.StockItem) domain.StockItem {
	dst := src
	dst.ExpiryDate = cloneTime(src.ExpiryDate)
	return dst
}

func cloneShift(src domain.Shift) domain.Shift {
	dst := src
	dst.EndTime = cloneTime(src.EndTime)
	return dst
}

func cloneSupplyBatch(src domain.SupplyBatch) domain.SupplyBatch {
	dst := src
	dst.Lines = make([]domain.SupplyLine, len(src.Lines))
	for i, line := range src.Lines {
		line.ExpiryDate = cloneTime(line.ExpiryDate)
		dst.Lines[i] = line
	}
	return dst
}

func cloneSale(src domain.Sale) domain.Sale {
	dst := src
	dst.Lines = slices.Clone(src.Lines)
	return dst
}

func cloneCredit(src domain.Credit) domain.Credit {
	dst := src
	dst.DueDate = cloneTime(src.DueDate)
	dst.Payments = slices.Clone(src.Payments)
	if dst.Payments == nil {
		dst.Payments = []domain.CreditPayment{}
	}
	return dst
}

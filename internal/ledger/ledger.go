package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"labstock-api/internal/model"
	"labstock-api/internal/repository"
	"labstock-api/pkg/uid"
)

const (
	// MaxTransactionHistory bounds the in-memory transaction log per user.
	MaxTransactionHistory = 100

	// DefaultExpiryWindowDays is the default horizon for expiring-item queries.
	DefaultExpiryWindowDays = 30

	// ReasonInitialStock tags the transaction created alongside a new item.
	ReasonInitialStock = "Initial stock"

	// ReasonItemDeleted tags the terminal transaction on item deletion.
	ReasonItemDeleted = "Item deleted"

	// ReasonManualAdjustment is the default reason for quantity updates.
	ReasonManualAdjustment = "Manual adjustment"
)

var (
	// ErrItemNotFound is returned when an operation references an unknown item.
	ErrItemNotFound = errors.New("item not found")

	// ErrValidation is wrapped by all input validation failures.
	ErrValidation = errors.New("validation failed")
)

// ItemInput holds the caller-supplied fields for a new item.
type ItemInput struct {
	Name              string          `json:"name"`
	Category          model.Category  `json:"category"`
	Manufacturer      string          `json:"manufacturer"`
	CatalogNumber     string          `json:"catalog_number"`
	LotNumber         string          `json:"lot_number"`
	Location          string          `json:"location"`
	StorageConditions string          `json:"storage_conditions"`
	Supplier          string          `json:"supplier"`
	Notes             string          `json:"notes"`
	Barcode           string          `json:"barcode"`
	Quantity          float64         `json:"quantity"`
	Unit              string          `json:"unit"`
	MinStockLevel     float64         `json:"min_stock_level"`
	CostPerUnit       *float64        `json:"cost_per_unit"`
	ExpirationDate    *time.Time      `json:"expiration_date"`
	PurchaseDate      *time.Time      `json:"purchase_date"`
}

// ItemUpdate holds a partial update; nil fields are left unchanged.
// Quantity is deliberately absent: quantity changes go through SetQuantity
// so that every change lands in the transaction log.
type ItemUpdate struct {
	Name              *string         `json:"name"`
	Category          *model.Category `json:"category"`
	Manufacturer      *string         `json:"manufacturer"`
	CatalogNumber     *string         `json:"catalog_number"`
	LotNumber         *string         `json:"lot_number"`
	Location          *string         `json:"location"`
	StorageConditions *string         `json:"storage_conditions"`
	Supplier          *string         `json:"supplier"`
	Notes             *string         `json:"notes"`
	Barcode           *string         `json:"barcode"`
	Unit              *string         `json:"unit"`
	MinStockLevel     *float64        `json:"min_stock_level"`
	CostPerUnit       *float64        `json:"cost_per_unit"`
	ExpirationDate    *time.Time      `json:"expiration_date"`
	PurchaseDate      *time.Time      `json:"purchase_date"`
}

// Summary holds the dashboard reductions over one user's inventory.
type Summary struct {
	TotalItems      int                    `json:"total_items"`
	TotalStockValue float64                `json:"total_stock_value"`
	LowStockCount   int                    `json:"low_stock_count"`
	ExpiringCount   int                    `json:"expiring_count"`
	CategoryCounts  map[model.Category]int `json:"category_counts"`
}

// userState is one user's loaded inventory: items newest-first and a bounded
// transaction log, newest-first.
type userState struct {
	items        []model.InventoryItem
	transactions []model.InventoryTransaction
}

// Ledger owns the per-user in-memory inventory state over a repository.
// Every quantity mutation is persisted together with its transaction record
// in one atomic repository write; memory is only updated after persistence
// succeeds.
type Ledger struct {
	repo     repository.LedgerRepository
	seedDemo bool

	mu    sync.RWMutex
	users map[string]*userState

	now func() time.Time
}

// New creates a new Ledger. Returns nil if repo is nil (required dependency).
func New(repo repository.LedgerRepository, seedDemo bool) *Ledger {
	if repo == nil {
		return nil
	}
	return &Ledger{
		repo:     repo,
		seedDemo: seedDemo,
		users:    make(map[string]*userState),
		now:      time.Now,
	}
}

// LoadUser fetches the user's items and recent transactions from the
// repository and replaces the in-memory state. A first-time user with no
// data gets demo items seeded (best effort; a seed failure leaves the state
// empty, it never fails the load).
func (l *Ledger) LoadUser(ctx context.Context, userID string) error {
	items, err := l.repo.ListItems(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}

	txns, err := l.repo.ListTransactions(ctx, userID, MaxTransactionHistory)
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}

	l.mu.Lock()
	l.users[userID] = &userState{items: items, transactions: txns}
	l.mu.Unlock()

	if l.seedDemo && len(items) == 0 && len(txns) == 0 {
		if err := l.seedUser(ctx, userID); err != nil {
			log.Printf("[Ledger] Demo seed failed for user %s: %v", userID, err)
		}
	}
	return nil
}

// ClearUser drops the user's in-memory state (session end hook).
func (l *Ledger) ClearUser(userID string) {
	l.mu.Lock()
	delete(l.users, userID)
	l.mu.Unlock()
}

// LoadedUsers returns the IDs of users with in-memory state.
func (l *Ledger) LoadedUsers() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.users))
	for id := range l.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ensureLoaded loads the user's state if it is not already in memory.
// Covers sessions that outlive a server restart.
func (l *Ledger) ensureLoaded(ctx context.Context, userID string) error {
	l.mu.RLock()
	_, ok := l.users[userID]
	l.mu.RUnlock()
	if ok {
		return nil
	}
	return l.LoadUser(ctx, userID)
}

// validateInput checks a new item's fields.
func validateInput(in *ItemInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !in.Category.IsValid() {
		return fmt.Errorf("%w: invalid category %q", ErrValidation, in.Category)
	}
	if in.Quantity < 0 {
		return fmt.Errorf("%w: quantity must be non-negative", ErrValidation)
	}
	if in.MinStockLevel < 0 {
		return fmt.Errorf("%w: min_stock_level must be non-negative", ErrValidation)
	}
	if in.CostPerUnit != nil && *in.CostPerUnit < 0 {
		return fmt.Errorf("%w: cost_per_unit must be non-negative", ErrValidation)
	}
	return nil
}

// AddItem creates a new item plus its initial-stock transaction, persisted
// atomically, and prepends both to the in-memory state.
func (l *Ledger) AddItem(ctx context.Context, userID, performedBy string, in ItemInput) (*model.InventoryItem, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	if err := l.ensureLoaded(ctx, userID); err != nil {
		return nil, err
	}

	now := l.now().UTC()
	item := model.InventoryItem{
		ID:                uid.NewItem(),
		UserID:            userID,
		Name:              in.Name,
		Category:          in.Category,
		Manufacturer:      in.Manufacturer,
		CatalogNumber:     in.CatalogNumber,
		LotNumber:         in.LotNumber,
		Location:          in.Location,
		StorageConditions: in.StorageConditions,
		Supplier:          in.Supplier,
		Notes:             in.Notes,
		Barcode:           in.Barcode,
		Quantity:          in.Quantity,
		Unit:              in.Unit,
		MinStockLevel:     in.MinStockLevel,
		CostPerUnit:       in.CostPerUnit,
		ExpirationDate:    in.ExpirationDate,
		PurchaseDate:      in.PurchaseDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	txn := model.InventoryTransaction{
		ID:               uid.NewTransaction(),
		ItemID:           item.ID,
		Kind:             model.TxAdd,
		QuantityChange:   item.Quantity,
		PreviousQuantity: 0,
		NewQuantity:      item.Quantity,
		Reason:           ReasonInitialStock,
		PerformedBy:      performedBy,
		UserID:           userID,
		CreatedAt:        now,
	}

	if err := l.repo.CreateItemWithTransaction(ctx, &item, &txn); err != nil {
		return nil, fmt.Errorf("failed to add item: %w", err)
	}

	l.mu.Lock()
	state := l.stateLocked(userID)
	state.items = append([]model.InventoryItem{item}, state.items...)
	state.prependTransaction(txn)
	l.mu.Unlock()

	return &item, nil
}

// UpdateItem merges the partial update into the item and persists it.
// Descriptive updates produce no transaction record.
func (l *Ledger) UpdateItem(ctx context.Context, userID, id string, update ItemUpdate) (*model.InventoryItem, error) {
	if err := l.ensureLoaded(ctx, userID); err != nil {
		return nil, err
	}

	current := l.ItemByID(userID, id)
	if current == nil {
		return nil, ErrItemNotFound
	}

	item := *current
	applyUpdate(&item, &update)
	if !item.Category.IsValid() {
		return nil, fmt.Errorf("%w: invalid category %q", ErrValidation, item.Category)
	}
	if item.MinStockLevel < 0 {
		return nil, fmt.Errorf("%w: min_stock_level must be non-negative", ErrValidation)
	}
	if item.CostPerUnit != nil && *item.CostPerUnit < 0 {
		return nil, fmt.Errorf("%w: cost_per_unit must be non-negative", ErrValidation)
	}
	item.UpdatedAt = l.now().UTC()

	if err := l.repo.UpdateItem(ctx, &item); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	l.mu.Lock()
	l.stateLocked(userID).replaceItem(item)
	l.mu.Unlock()

	return &item, nil
}

// applyUpdate merges non-nil update fields into the item.
func applyUpdate(item *model.InventoryItem, u *ItemUpdate) {
	if u.Name != nil {
		item.Name = *u.Name
	}
	if u.Category != nil {
		item.Category = *u.Category
	}
	if u.Manufacturer != nil {
		item.Manufacturer = *u.Manufacturer
	}
	if u.CatalogNumber != nil {
		item.CatalogNumber = *u.CatalogNumber
	}
	if u.LotNumber != nil {
		item.LotNumber = *u.LotNumber
	}
	if u.Location != nil {
		item.Location = *u.Location
	}
	if u.StorageConditions != nil {
		item.StorageConditions = *u.StorageConditions
	}
	if u.Supplier != nil {
		item.Supplier = *u.Supplier
	}
	if u.Notes != nil {
		item.Notes = *u.Notes
	}
	if u.Barcode != nil {
		item.Barcode = *u.Barcode
	}
	if u.Unit != nil {
		item.Unit = *u.Unit
	}
	if u.MinStockLevel != nil {
		item.MinStockLevel = *u.MinStockLevel
	}
	if u.CostPerUnit != nil {
		item.CostPerUnit = u.CostPerUnit
	}
	if u.ExpirationDate != nil {
		item.ExpirationDate = u.ExpirationDate
	}
	if u.PurchaseDate != nil {
		item.PurchaseDate = u.PurchaseDate
	}
}

// SetQuantity records a quantity change: persists the new quantity together
// with a transaction whose kind is derived from the sign of the delta.
func (l *Ledger) SetQuantity(ctx context.Context, userID, performedBy, id string, newQuantity float64, reason string) (*model.InventoryTransaction, error) {
	if newQuantity < 0 {
		return nil, fmt.Errorf("%w: quantity must be non-negative", ErrValidation)
	}
	if err := l.ensureLoaded(ctx, userID); err != nil {
		return nil, err
	}

	current := l.ItemByID(userID, id)
	if current == nil {
		return nil, ErrItemNotFound
	}

	if reason == "" {
		reason = ReasonManualAdjustment
	}

	now := l.now().UTC()
	delta := newQuantity - current.Quantity

	item := *current
	item.Quantity = newQuantity
	item.UpdatedAt = now

	txn := model.InventoryTransaction{
		ID:               uid.NewTransaction(),
		ItemID:           id,
		Kind:             model.KindForDelta(delta),
		QuantityChange:   delta,
		PreviousQuantity: current.Quantity,
		NewQuantity:      newQuantity,
		Reason:           reason,
		PerformedBy:      performedBy,
		UserID:           userID,
		CreatedAt:        now,
	}

	if err := l.repo.UpdateQuantityWithTransaction(ctx, &item, &txn); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to update quantity: %w", err)
	}

	l.mu.Lock()
	state := l.stateLocked(userID)
	state.replaceItem(item)
	state.prependTransaction(txn)
	l.mu.Unlock()

	return &txn, nil
}

// DeleteItem removes the item and records the terminal transaction.
func (l *Ledger) DeleteItem(ctx context.Context, userID, performedBy, id string) error {
	if err := l.ensureLoaded(ctx, userID); err != nil {
		return err
	}

	current := l.ItemByID(userID, id)
	if current == nil {
		return ErrItemNotFound
	}

	txn := model.InventoryTransaction{
		ID:               uid.NewTransaction(),
		ItemID:           id,
		Kind:             model.TxRemove,
		QuantityChange:   -current.Quantity,
		PreviousQuantity: current.Quantity,
		NewQuantity:      0,
		Reason:           ReasonItemDeleted,
		PerformedBy:      performedBy,
		UserID:           userID,
		CreatedAt:        l.now().UTC(),
	}

	if err := l.repo.DeleteItemWithTransaction(ctx, id, &txn); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("failed to delete item: %w", err)
	}

	l.mu.Lock()
	state := l.stateLocked(userID)
	state.removeItem(id)
	state.prependTransaction(txn)
	l.mu.Unlock()

	return nil
}

// Items returns a snapshot of the user's items, newest first.
func (l *Ledger) Items(ctx context.Context, userID string) ([]model.InventoryItem, error) {
	if err := l.ensureLoaded(ctx, userID); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	state := l.users[userID]
	if state == nil {
		return nil, nil
	}
	items := make([]model.InventoryItem, len(state.items))
	copy(items, state.items)
	return items, nil
}

// ItemByID is a pure lookup in the in-memory state. Returns nil if absent.
func (l *Ledger) ItemByID(userID, id string) *model.InventoryItem {
	l.mu.RLock()
	defer l.mu.RUnlock()

	state := l.users[userID]
	if state == nil {
		return nil
	}
	for i := range state.items {
		if state.items[i].ID == id {
			item := state.items[i]
			return &item
		}
	}
	return nil
}

// LowStockItems returns all items at or below their minimum stock level.
// Pure, derived from current in-memory state.
func (l *Ledger) LowStockItems(userID string) []model.InventoryItem {
	l.mu.RLock()
	defer l.mu.RUnlock()

	state := l.users[userID]
	if state == nil {
		return nil
	}
	var low []model.InventoryItem
	for _, item := range state.items {
		if item.IsLowStock() {
			low = append(low, item)
		}
	}
	return low
}

// ExpiringItems returns all items whose expiration date falls on or before
// now + withinDays. Items without an expiration date are excluded; already
// expired items are included.
func (l *Ledger) ExpiringItems(userID string, withinDays int) []model.InventoryItem {
	if withinDays <= 0 {
		withinDays = DefaultExpiryWindowDays
	}
	window := time.Duration(withinDays) * 24 * time.Hour
	now := l.now().UTC()

	l.mu.RLock()
	defer l.mu.RUnlock()

	state := l.users[userID]
	if state == nil {
		return nil
	}
	var expiring []model.InventoryItem
	for _, item := range state.items {
		if item.ExpiresWithin(now, window) {
			expiring = append(expiring, item)
		}
	}
	return expiring
}

// Transactions returns a snapshot of the user's transaction log, newest
// first, bounded to MaxTransactionHistory entries.
func (l *Ledger) Transactions(ctx context.Context, userID string) ([]model.InventoryTransaction, error) {
	if err := l.ensureLoaded(ctx, userID); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	state := l.users[userID]
	if state == nil {
		return nil, nil
	}
	txns := make([]model.InventoryTransaction, len(state.transactions))
	copy(txns, state.transactions)
	return txns, nil
}

// Summary computes the dashboard reductions over the user's inventory.
func (l *Ledger) Summary(ctx context.Context, userID string) (*Summary, error) {
	if err := l.ensureLoaded(ctx, userID); err != nil {
		return nil, err
	}

	lowStock := len(l.LowStockItems(userID))
	expiring := len(l.ExpiringItems(userID, DefaultExpiryWindowDays))

	l.mu.RLock()
	defer l.mu.RUnlock()

	s := &Summary{
		LowStockCount:  lowStock,
		ExpiringCount:  expiring,
		CategoryCounts: make(map[model.Category]int),
	}
	state := l.users[userID]
	if state == nil {
		return s, nil
	}

	s.TotalItems = len(state.items)
	for _, item := range state.items {
		s.CategoryCounts[item.Category]++
		if item.CostPerUnit != nil {
			s.TotalStockValue += item.Quantity * *item.CostPerUnit
		}
	}
	return s, nil
}

// stateLocked returns the user's state, creating an empty one if needed.
// Caller must hold l.mu.
func (l *Ledger) stateLocked(userID string) *userState {
	state := l.users[userID]
	if state == nil {
		state = &userState{}
		l.users[userID] = state
	}
	return state
}

func (s *userState) prependTransaction(txn model.InventoryTransaction) {
	s.transactions = append([]model.InventoryTransaction{txn}, s.transactions...)
	if len(s.transactions) > MaxTransactionHistory {
		s.transactions = s.transactions[:MaxTransactionHistory]
	}
}

func (s *userState) replaceItem(item model.InventoryItem) {
	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i] = item
			return
		}
	}
}

func (s *userState) removeItem(id string) {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

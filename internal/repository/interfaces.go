package repository

import (
	"context"
	"errors"

	"labstock-api/internal/model"
)

// ErrNotFound is returned when a record does not exist in the store.
var ErrNotFound = errors.New("record not found")

// LedgerRepository defines item and transaction data access methods.
// Mutations that change an item's quantity take the companion transaction
// record and persist both in a single atomic write.
type LedgerRepository interface {
	// ListItems returns all items owned by userID, most recently created first.
	ListItems(ctx context.Context, userID string) ([]model.InventoryItem, error)

	// GetItem retrieves a single item by ID. Returns ErrNotFound if absent.
	GetItem(ctx context.Context, id string) (*model.InventoryItem, error)

	// CreateItemWithTransaction persists a new item and its initial-stock
	// transaction atomically.
	CreateItemWithTransaction(ctx context.Context, item *model.InventoryItem, txn *model.InventoryTransaction) error

	// UpdateItem persists descriptive field changes. No transaction record.
	// Returns ErrNotFound if the item does not exist.
	UpdateItem(ctx context.Context, item *model.InventoryItem) error

	// UpdateQuantityWithTransaction persists a quantity change and its ledger
	// entry atomically. Returns ErrNotFound if the item does not exist.
	UpdateQuantityWithTransaction(ctx context.Context, item *model.InventoryItem, txn *model.InventoryTransaction) error

	// DeleteItemWithTransaction removes the item and records the terminal
	// transaction atomically. Returns ErrNotFound if the item does not exist.
	DeleteItemWithTransaction(ctx context.Context, id string, txn *model.InventoryTransaction) error

	// ListTransactions returns up to limit transactions owned by userID,
	// most recent first.
	ListTransactions(ctx context.Context, userID string, limit int) ([]model.InventoryTransaction, error)

	// Stats returns statistics about the ledger database.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}

// UserRepository defines user account data access methods.
type UserRepository interface {
	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *model.User) error

	// GetUserByEmail finds a user by email. Returns ErrNotFound if absent.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// GetUserByID finds a user by ID. Returns ErrNotFound if absent.
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"

	"labstock-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteLedgerRepository implements LedgerRepository using SQLite.
// Thread-safe with WAL mode for high-concurrency reads.
type SQLiteLedgerRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteLedgerRepository creates a new SQLite ledger repository.
// dbPath is the path to the SQLite database file (e.g., "./data/labstock.db")
func NewSQLiteLedgerRepository(dbPath string) (*SQLiteLedgerRepository, error) {
	// Open with WAL mode and other optimizations
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Keep connection alive

	if err := createLedgerTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteLedgerRepository] Initialized with database: %s", dbPath)
	return &SQLiteLedgerRepository{db: db}, nil
}

// createLedgerTables creates the item and transaction tables.
func createLedgerTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS inventory_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		manufacturer TEXT NOT NULL DEFAULT '',
		catalog_number TEXT NOT NULL DEFAULT '',
		lot_number TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		storage_conditions TEXT NOT NULL DEFAULT '',
		supplier TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		barcode TEXT NOT NULL DEFAULT '',
		quantity REAL NOT NULL CHECK (quantity >= 0),
		unit TEXT NOT NULL DEFAULT '',
		min_stock_level REAL NOT NULL DEFAULT 0 CHECK (min_stock_level >= 0),
		cost_per_unit REAL,
		expiration_date DATETIME,
		purchase_date DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_items_user ON inventory_items(user_id);
	CREATE INDEX IF NOT EXISTS idx_items_expiration ON inventory_items(expiration_date);

	CREATE TABLE IF NOT EXISTS inventory_transactions (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		quantity_change REAL NOT NULL,
		previous_quantity REAL NOT NULL,
		new_quantity REAL NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		performed_by TEXT NOT NULL,
		user_id TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_user ON inventory_transactions(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_item ON inventory_transactions(item_id);
	`
	_, err := db.Exec(query)
	return err
}

const itemColumns = `id, user_id, name, category, manufacturer, catalog_number, lot_number,
	location, storage_conditions, supplier, notes, barcode, quantity, unit,
	min_stock_level, cost_per_unit, expiration_date, purchase_date, created_at, updated_at`

// scanItem reads one item row.
func scanItem(row interface{ Scan(...interface{}) error }) (*model.InventoryItem, error) {
	var item model.InventoryItem
	var cost sql.NullFloat64
	var expiration, purchase sql.NullTime

	err := row.Scan(
		&item.ID, &item.UserID, &item.Name, &item.Category,
		&item.Manufacturer, &item.CatalogNumber, &item.LotNumber,
		&item.Location, &item.StorageConditions, &item.Supplier,
		&item.Notes, &item.Barcode, &item.Quantity, &item.Unit,
		&item.MinStockLevel, &cost, &expiration, &purchase,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if cost.Valid {
		item.CostPerUnit = &cost.Float64
	}
	if expiration.Valid {
		t := expiration.Time
		item.ExpirationDate = &t
	}
	if purchase.Valid {
		t := purchase.Time
		item.PurchaseDate = &t
	}
	return &item, nil
}

// itemArgs returns the insert/update argument list matching itemColumns.
func itemArgs(item *model.InventoryItem) []interface{} {
	var cost sql.NullFloat64
	if item.CostPerUnit != nil {
		cost = sql.NullFloat64{Float64: *item.CostPerUnit, Valid: true}
	}
	var expiration, purchase sql.NullTime
	if item.ExpirationDate != nil {
		expiration = sql.NullTime{Time: *item.ExpirationDate, Valid: true}
	}
	if item.PurchaseDate != nil {
		purchase = sql.NullTime{Time: *item.PurchaseDate, Valid: true}
	}

	return []interface{}{
		item.ID, item.UserID, item.Name, item.Category,
		item.Manufacturer, item.CatalogNumber, item.LotNumber,
		item.Location, item.StorageConditions, item.Supplier,
		item.Notes, item.Barcode, item.Quantity, item.Unit,
		item.MinStockLevel, cost, expiration, purchase,
		item.CreatedAt, item.UpdatedAt,
	}
}

// insertTransaction appends one ledger entry inside an open transaction.
func insertTransaction(ctx context.Context, tx *sql.Tx, txn *model.InventoryTransaction) error {
	query := `
		INSERT INTO inventory_transactions
			(id, item_id, kind, quantity_change, previous_quantity, new_quantity,
			 reason, performed_by, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := tx.ExecContext(ctx, query,
		txn.ID, txn.ItemID, txn.Kind, txn.QuantityChange,
		txn.PreviousQuantity, txn.NewQuantity, txn.Reason,
		txn.PerformedBy, txn.UserID, txn.CreatedAt,
	)
	return err
}

// ListItems returns all items owned by userID, most recently created first.
func (r *SQLiteLedgerRepository) ListItems(ctx context.Context, userID string) ([]model.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE user_id = ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetItem retrieves a single item by ID.
func (r *SQLiteLedgerRepository) GetItem(ctx context.Context, id string) (*model.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE id = ?`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// CreateItemWithTransaction persists a new item and its initial-stock
// transaction in a single SQL transaction.
func (r *SQLiteLedgerRepository) CreateItemWithTransaction(ctx context.Context, item *model.InventoryItem, txn *model.InventoryTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO inventory_items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := tx.ExecContext(ctx, query, itemArgs(item)...); err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}

	if err := insertTransaction(ctx, tx, txn); err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// UpdateItem persists descriptive field changes.
func (r *SQLiteLedgerRepository) UpdateItem(ctx context.Context, item *model.InventoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE inventory_items SET
			name = ?, category = ?, manufacturer = ?, catalog_number = ?,
			lot_number = ?, location = ?, storage_conditions = ?, supplier = ?,
			notes = ?, barcode = ?, quantity = ?, unit = ?, min_stock_level = ?,
			cost_per_unit = ?, expiration_date = ?, purchase_date = ?, updated_at = ?
		WHERE id = ?`

	args := itemArgs(item)
	// itemArgs is ordered for insert; reorder for the update statement.
	updateArgs := append(args[2:18], item.UpdatedAt, item.ID)

	result, err := r.db.ExecContext(ctx, query, updateArgs...)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateQuantityWithTransaction persists a quantity change and its ledger
// entry in a single SQL transaction.
func (r *SQLiteLedgerRepository) UpdateQuantityWithTransaction(ctx context.Context, item *model.InventoryItem, txn *model.InventoryTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE inventory_items SET quantity = ?, updated_at = ? WHERE id = ?`
	result, err := tx.ExecContext(ctx, query, item.Quantity, item.UpdatedAt, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update quantity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := insertTransaction(ctx, tx, txn); err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// DeleteItemWithTransaction removes the item and records the terminal
// transaction in a single SQL transaction.
func (r *SQLiteLedgerRepository) DeleteItemWithTransaction(ctx context.Context, id string, txn *model.InventoryTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := insertTransaction(ctx, tx, txn); err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// ListTransactions returns up to limit transactions owned by userID,
// most recent first.
func (r *SQLiteLedgerRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]model.InventoryTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, item_id, kind, quantity_change, previous_quantity, new_quantity,
		       reason, performed_by, user_id, created_at
		FROM inventory_transactions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.InventoryTransaction
	for rows.Next() {
		var txn model.InventoryTransaction
		err := rows.Scan(
			&txn.ID, &txn.ItemID, &txn.Kind, &txn.QuantityChange,
			&txn.PreviousQuantity, &txn.NewQuantity, &txn.Reason,
			&txn.PerformedBy, &txn.UserID, &txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// Stats returns statistics about the ledger database.
func (r *SQLiteLedgerRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]interface{})

	var itemCount, txnCount int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inventory_items").Scan(&itemCount); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inventory_transactions").Scan(&txnCount); err != nil {
		return nil, err
	}
	stats["total_items"] = itemCount
	stats["total_transactions"] = txnCount

	// Database file size (approximate from page count)
	var pageCount, pageSize int64
	r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Close closes the database connection.
func (r *SQLiteLedgerRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLiteLedgerRepository implements LedgerRepository
var _ LedgerRepository = (*SQLiteLedgerRepository)(nil)

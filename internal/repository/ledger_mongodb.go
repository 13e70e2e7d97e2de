package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"labstock-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoLedgerRepository implements LedgerRepository using MongoDB.
//
// Note: without a replica set MongoDB offers no multi-document transactions,
// so the item+ledger-entry pairs are written item-first in order. The item
// write is checked before the ledger entry is attempted.
type MongoLedgerRepository struct {
	client       *mongo.Client
	db           *mongo.Database
	items        *mongo.Collection
	transactions *mongo.Collection
}

// itemDocument is the BSON shape of an inventory item.
type itemDocument struct {
	ID                string     `bson:"_id"`
	UserID            string     `bson:"user_id"`
	Name              string     `bson:"name"`
	Category          string     `bson:"category"`
	Manufacturer      string     `bson:"manufacturer,omitempty"`
	CatalogNumber     string     `bson:"catalog_number,omitempty"`
	LotNumber         string     `bson:"lot_number,omitempty"`
	Location          string     `bson:"location,omitempty"`
	StorageConditions string     `bson:"storage_conditions,omitempty"`
	Supplier          string     `bson:"supplier,omitempty"`
	Notes             string     `bson:"notes,omitempty"`
	Barcode           string     `bson:"barcode,omitempty"`
	Quantity          float64    `bson:"quantity"`
	Unit              string     `bson:"unit,omitempty"`
	MinStockLevel     float64    `bson:"min_stock_level"`
	CostPerUnit       *float64   `bson:"cost_per_unit,omitempty"`
	ExpirationDate    *time.Time `bson:"expiration_date,omitempty"`
	PurchaseDate      *time.Time `bson:"purchase_date,omitempty"`
	CreatedAt         time.Time  `bson:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at"`
}

// txnDocument is the BSON shape of a ledger entry.
type txnDocument struct {
	ID               string    `bson:"_id"`
	ItemID           string    `bson:"item_id"`
	Kind             string    `bson:"kind"`
	QuantityChange   float64   `bson:"quantity_change"`
	PreviousQuantity float64   `bson:"previous_quantity"`
	NewQuantity      float64   `bson:"new_quantity"`
	Reason           string    `bson:"reason,omitempty"`
	PerformedBy      string    `bson:"performed_by"`
	UserID           string    `bson:"user_id"`
	CreatedAt        time.Time `bson:"created_at"`
}

func toItemDocument(item *model.InventoryItem) itemDocument {
	return itemDocument{
		ID:                item.ID,
		UserID:            item.UserID,
		Name:              item.Name,
		Category:          string(item.Category),
		Manufacturer:      item.Manufacturer,
		CatalogNumber:     item.CatalogNumber,
		LotNumber:         item.LotNumber,
		Location:          item.Location,
		StorageConditions: item.StorageConditions,
		Supplier:          item.Supplier,
		Notes:             item.Notes,
		Barcode:           item.Barcode,
		Quantity:          item.Quantity,
		Unit:              item.Unit,
		MinStockLevel:     item.MinStockLevel,
		CostPerUnit:       item.CostPerUnit,
		ExpirationDate:    item.ExpirationDate,
		PurchaseDate:      item.PurchaseDate,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
}

func (d *itemDocument) toModel() model.InventoryItem {
	return model.InventoryItem{
		ID:                d.ID,
		UserID:            d.UserID,
		Name:              d.Name,
		Category:          model.Category(d.Category),
		Manufacturer:      d.Manufacturer,
		CatalogNumber:     d.CatalogNumber,
		LotNumber:         d.LotNumber,
		Location:          d.Location,
		StorageConditions: d.StorageConditions,
		Supplier:          d.Supplier,
		Notes:             d.Notes,
		Barcode:           d.Barcode,
		Quantity:          d.Quantity,
		Unit:              d.Unit,
		MinStockLevel:     d.MinStockLevel,
		CostPerUnit:       d.CostPerUnit,
		ExpirationDate:    d.ExpirationDate,
		PurchaseDate:      d.PurchaseDate,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

func toTxnDocument(txn *model.InventoryTransaction) txnDocument {
	return txnDocument{
		ID:               txn.ID,
		ItemID:           txn.ItemID,
		Kind:             string(txn.Kind),
		QuantityChange:   txn.QuantityChange,
		PreviousQuantity: txn.PreviousQuantity,
		NewQuantity:      txn.NewQuantity,
		Reason:           txn.Reason,
		PerformedBy:      txn.PerformedBy,
		UserID:           txn.UserID,
		CreatedAt:        txn.CreatedAt,
	}
}

func (d *txnDocument) toModel() model.InventoryTransaction {
	return model.InventoryTransaction{
		ID:               d.ID,
		ItemID:           d.ItemID,
		Kind:             model.TxKind(d.Kind),
		QuantityChange:   d.QuantityChange,
		PreviousQuantity: d.PreviousQuantity,
		NewQuantity:      d.NewQuantity,
		Reason:           d.Reason,
		PerformedBy:      d.PerformedBy,
		UserID:           d.UserID,
		CreatedAt:        d.CreatedAt,
	}
}

// NewMongoLedgerRepository creates a new MongoDB ledger repository.
func NewMongoLedgerRepository(uri, database string) (*MongoLedgerRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	items := db.Collection("inventory_items")
	transactions := db.Collection("inventory_transactions")

	itemIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	}
	if _, err := items.Indexes().CreateOne(ctx, itemIndex); err != nil {
		log.Printf("[MongoDB] Warning: failed to create item index: %v", err)
	}

	txnIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	}
	if _, err := transactions.Indexes().CreateOne(ctx, txnIndex); err != nil {
		log.Printf("[MongoDB] Warning: failed to create transaction index: %v", err)
	}

	log.Printf("[MongoDB] Connected to %s", database)
	return &MongoLedgerRepository{
		client:       client,
		db:           db,
		items:        items,
		transactions: transactions,
	}, nil
}

// ListItems returns all items owned by userID, most recently created first.
func (r *MongoLedgerRepository) ListItems(ctx context.Context, userID string) ([]model.InventoryItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.items.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []model.InventoryItem
	for cursor.Next(ctx) {
		var doc itemDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}
		items = append(items, doc.toModel())
	}
	return items, cursor.Err()
}

// GetItem retrieves a single item by ID.
func (r *MongoLedgerRepository) GetItem(ctx context.Context, id string) (*model.InventoryItem, error) {
	var doc itemDocument
	err := r.items.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	item := doc.toModel()
	return &item, nil
}

// CreateItemWithTransaction persists a new item and its initial-stock
// transaction. Item first; the ledger entry is only written after the item
// insert succeeds.
func (r *MongoLedgerRepository) CreateItemWithTransaction(ctx context.Context, item *model.InventoryItem, txn *model.InventoryTransaction) error {
	if _, err := r.items.InsertOne(ctx, toItemDocument(item)); err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	if _, err := r.transactions.InsertOne(ctx, toTxnDocument(txn)); err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// UpdateItem persists descriptive field changes.
func (r *MongoLedgerRepository) UpdateItem(ctx context.Context, item *model.InventoryItem) error {
	doc := toItemDocument(item)
	result, err := r.items.ReplaceOne(ctx, bson.M{"_id": item.ID}, doc)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateQuantityWithTransaction persists a quantity change and its ledger entry.
func (r *MongoLedgerRepository) UpdateQuantityWithTransaction(ctx context.Context, item *model.InventoryItem, txn *model.InventoryTransaction) error {
	update := bson.M{"$set": bson.M{
		"quantity":   item.Quantity,
		"updated_at": item.UpdatedAt,
	}}

	result, err := r.items.UpdateOne(ctx, bson.M{"_id": item.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	if _, err := r.transactions.InsertOne(ctx, toTxnDocument(txn)); err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// DeleteItemWithTransaction removes the item and records the terminal transaction.
func (r *MongoLedgerRepository) DeleteItemWithTransaction(ctx context.Context, id string, txn *model.InventoryTransaction) error {
	result, err := r.items.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	if _, err := r.transactions.InsertOne(ctx, toTxnDocument(txn)); err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// ListTransactions returns up to limit transactions owned by userID,
// most recent first.
func (r *MongoLedgerRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]model.InventoryTransaction, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.transactions.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var txns []model.InventoryTransaction
	for cursor.Next(ctx) {
		var doc txnDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}
		txns = append(txns, doc.toModel())
	}
	return txns, cursor.Err()
}

// Stats returns statistics about the ledger database.
func (r *MongoLedgerRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	itemCount, err := r.items.EstimatedDocumentCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	txnCount, err := r.transactions.EstimatedDocumentCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}
	stats["total_items"] = itemCount
	stats["total_transactions"] = txnCount

	return stats, nil
}

// Close disconnects from MongoDB.
func (r *MongoLedgerRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// Ensure MongoLedgerRepository implements LedgerRepository
var _ LedgerRepository = (*MongoLedgerRepository)(nil)

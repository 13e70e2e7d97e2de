package model

import "time"

// TxKind identifies what kind of quantity change a transaction records.
type TxKind string

const (
	TxAdd      TxKind = "add"
	TxRemove   TxKind = "remove"
	TxAdjust   TxKind = "adjust"
	TxTransfer TxKind = "transfer"
)

// KindForDelta derives the transaction kind from the sign of a quantity delta.
// Item creation and deletion are always tagged add/remove regardless of sign;
// this applies to plain quantity updates.
func KindForDelta(delta float64) TxKind {
	switch {
	case delta > 0:
		return TxAdd
	case delta < 0:
		return TxRemove
	default:
		return TxAdjust
	}
}

// InventoryTransaction is one immutable ledger entry recording a quantity
// change to an item. NewQuantity == PreviousQuantity + QuantityChange always
// holds. Entries are append-only and never deleted.
type InventoryTransaction struct {
	ID               string    `json:"id"`
	ItemID           string    `json:"item_id"`
	Kind             TxKind    `json:"kind"`
	QuantityChange   float64   `json:"quantity_change"`
	PreviousQuantity float64   `json:"previous_quantity"`
	NewQuantity      float64   `json:"new_quantity"`
	Reason           string    `json:"reason,omitempty"`
	PerformedBy      string    `json:"performed_by"`
	UserID           string    `json:"user_id"`
	CreatedAt        time.Time `json:"created_at"`
}

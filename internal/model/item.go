package model

import "time"

// Category classifies an inventory item. The set is fixed.
type Category string

const (
	CategoryReagent              Category = "reagent"
	CategoryDiluent              Category = "diluent"
	CategoryAntibodyConjugate    Category = "antibody_conjugate"
	CategoryAntibodyUnconjugated Category = "antibody_unconjugated"
	CategoryCalibrator           Category = "calibrator"
	CategoryReactionKit          Category = "reaction_kit"
)

// Categories returns all valid item categories.
func Categories() []Category {
	return []Category{
		CategoryReagent,
		CategoryDiluent,
		CategoryAntibodyConjugate,
		CategoryAntibodyUnconjugated,
		CategoryCalibrator,
		CategoryReactionKit,
	}
}

// IsValid reports whether c is one of the fixed categories.
func (c Category) IsValid() bool {
	for _, valid := range Categories() {
		if c == valid {
			return true
		}
	}
	return false
}

// InventoryItem represents a single stock keeping unit in the lab inventory.
type InventoryItem struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Name              string     `json:"name"`
	Category          Category   `json:"category"`
	Manufacturer      string     `json:"manufacturer,omitempty"`
	CatalogNumber     string     `json:"catalog_number,omitempty"`
	LotNumber         string     `json:"lot_number,omitempty"`
	Location          string     `json:"location,omitempty"`
	StorageConditions string     `json:"storage_conditions,omitempty"`
	Supplier          string     `json:"supplier,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	Barcode           string     `json:"barcode,omitempty"`
	Quantity          float64    `json:"quantity"`
	Unit              string     `json:"unit"`
	MinStockLevel     float64    `json:"min_stock_level"`
	CostPerUnit       *float64   `json:"cost_per_unit,omitempty"`
	ExpirationDate    *time.Time `json:"expiration_date,omitempty"`
	PurchaseDate      *time.Time `json:"purchase_date,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsLowStock reports whether the item is at or below its minimum stock level.
func (i *InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.MinStockLevel
}

// ExpiresWithin reports whether the item has an expiration date on or before
// now + d. Items without an expiration date never expire.
func (i *InventoryItem) ExpiresWithin(now time.Time, d time.Duration) bool {
	if i.ExpirationDate == nil {
		return false
	}
	return !i.ExpirationDate.After(now.Add(d))
}

package ledger

import (
	"context"
	"fmt"
	"log"
	"time"
)

// demoInputs returns the starter inventory for first-time users.
func demoInputs(now time.Time) []ItemInput {
	cost := func(v float64) *float64 { return &v }
	date := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}

	return []ItemInput{
		{
			Name:              "Anti-CD3 FITC Conjugate",
			Category:          "antibody_conjugate",
			Manufacturer:      "BioLegend",
			CatalogNumber:     "300306",
			LotNumber:         "B345678",
			Location:          "Fridge 2, Shelf A",
			StorageConditions: "2-8 C, protect from light",
			Supplier:          "BioLegend",
			Quantity:          25,
			Unit:              "tests",
			MinStockLevel:     10,
			CostPerUnit:       cost(4.80),
			ExpirationDate:    date(90 * 24 * time.Hour),
		},
		{
			Name:              "Phosphate Buffered Saline 10X",
			Category:          "diluent",
			Manufacturer:      "Thermo Fisher",
			CatalogNumber:     "70011044",
			Location:          "Shelf 3",
			StorageConditions: "Room temperature",
			Supplier:          "Fisher Scientific",
			Quantity:          6,
			Unit:              "bottles",
			MinStockLevel:     2,
			CostPerUnit:       cost(32.50),
		},
		{
			Name:              "TMB Substrate Reagent",
			Category:          "reagent",
			Manufacturer:      "BD Biosciences",
			CatalogNumber:     "555214",
			LotNumber:         "1078921",
			Location:          "Fridge 1, Door",
			StorageConditions: "2-8 C",
			Supplier:          "BD",
			Quantity:          3,
			Unit:              "kits",
			MinStockLevel:     1,
			CostPerUnit:       cost(118.00),
			ExpirationDate:    date(21 * 24 * time.Hour),
		},
		{
			Name:              "Multi-Analyte Calibrator Set",
			Category:          "calibrator",
			Manufacturer:      "Bio-Rad",
			CatalogNumber:     "C-310",
			Location:          "Freezer -20, Box 4",
			StorageConditions: "-20 C",
			Supplier:          "Bio-Rad",
			Quantity:          2,
			Unit:              "sets",
			MinStockLevel:     1,
			CostPerUnit:       cost(245.00),
			ExpirationDate:    date(180 * 24 * time.Hour),
		},
	}
}

// seedUser creates the demo inventory through the normal AddItem path so the
// transaction log stays consistent with the items.
func (l *Ledger) seedUser(ctx context.Context, userID string) error {
	inputs := demoInputs(l.now().UTC())
	for _, in := range inputs {
		if _, err := l.AddItem(ctx, userID, "system", in); err != nil {
			return fmt.Errorf("failed to seed %q: %w", in.Name, err)
		}
	}
	log.Printf("[Ledger] Seeded %d demo items for user %s", len(inputs), userID)
	return nil
}

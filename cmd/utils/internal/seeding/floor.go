package seeding

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/appetiteclub/fulfillment/internal/tables"
)

// Prefixes marking demo documents so clear-demo can find them again.
const (
	TableNumberPrefix = "D"
	OrderNumberPrefix = "DEMO-"
)

// SeedFloor creates a small demo floor plan: a mix of available, reserved
// and cleaning tables across two locations.
func SeedFloor(ctx context.Context, db *mongo.Database) error {
	specs := []struct {
		number   string
		capacity int
		location string
		status   string
	}{
		{"D1", 2, "terrace", "available"},
		{"D2", 4, "terrace", "available"},
		{"D3", 4, "main", "available"},
		{"D4", 6, "main", "reserved"},
		{"D5", 2, "main", "cleaning"},
		{"D6", 8, "main", "available"},
	}

	docs := make([]interface{}, 0, len(specs))
	for _, spec := range specs {
		table := tables.NewTable()
		table.Number = spec.number
		table.Capacity = spec.capacity
		table.Location = spec.location
		table.Status = spec.status
		table.BeforeCreate()
		docs = append(docs, table)
	}

	if _, err := db.Collection("tables").InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("cannot insert demo tables: %w", err)
	}

	return nil
}

package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repo persists orders. Save performs a compare-and-set on ModelVersion.
type Repo interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	Save(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Order, error)
	ListByStatus(ctx context.Context, status string) ([]*Order, error)
	ListByTable(ctx context.Context, tableID uuid.UUID) ([]*Order, error)
	ListVoided(ctx context.Context) ([]*Order, error)
	ListByCashierBetween(ctx context.Context, cashierID uuid.UUID, from, to time.Time) ([]*Order, error)
}

// ItemRepo persists order items.
type ItemRepo interface {
	Create(ctx context.Context, item *OrderItem) error
	Get(ctx context.Context, id uuid.UUID) (*OrderItem, error)
	Save(ctx context.Context, item *OrderItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*OrderItem, error)
	ReassignOrder(ctx context.Context, fromOrderID, toOrderID uuid.UUID) error
}

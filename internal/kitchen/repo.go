package kitchen

import (
	"context"

	"github.com/google/uuid"
)

// TicketFilter narrows ticket listings.
type TicketFilter struct {
	Station string
	Status  string
	OrderID *uuid.UUID
}

// Repository persists kitchen tickets. Save performs a compare-and-set on
// ModelVersion so two concurrent transitions cannot both win; the loser gets
// a conflict error.
type Repository interface {
	Create(ctx context.Context, ticket *Ticket) error
	Get(ctx context.Context, id uuid.UUID) (*Ticket, error)
	Save(ctx context.Context, ticket *Ticket) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter TicketFilter) ([]Ticket, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Ticket, error)
}

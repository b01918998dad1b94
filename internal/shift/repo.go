package shift

import (
	"context"

	"github.com/google/uuid"
)

// Repo persists shifts. GetOpenByCashier returns nil without error when the
// cashier has no open shift.
type Repo interface {
	Create(ctx context.Context, shift *Shift) error
	Get(ctx context.Context, id uuid.UUID) (*Shift, error)
	Save(ctx context.Context, shift *Shift) error
	List(ctx context.Context) ([]*Shift, error)
	ListByCashier(ctx context.Context, cashierID uuid.UUID) ([]*Shift, error)
	GetOpenByCashier(ctx context.Context, cashierID uuid.UUID) (*Shift, error)
}

package tables

import (
	"context"

	"github.com/google/uuid"
)

// Repo persists tables. Save performs a compare-and-set on ModelVersion so
// two concurrent assignments cannot both win.
type Repo interface {
	Create(ctx context.Context, table *Table) error
	Get(ctx context.Context, id uuid.UUID) (*Table, error)
	Save(ctx context.Context, table *Table) error
	List(ctx context.Context) ([]*Table, error)
	ListByStatus(ctx context.Context, status string) ([]*Table, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

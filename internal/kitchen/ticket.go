package kitchen

import (
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"

	"github.com/appetiteclub/fulfillment/internal/fault"
	"github.com/appetiteclub/fulfillment/pkg/enums/kitchenstatus"
)

const (
	DefaultPriority      = 3
	MinPriority          = 1
	MaxPriority          = 5
	DefaultEstimatedTime = 15 // minutes
)

// Ticket is a per-station preparation job fanned out from one order. Item
// names and quantities are snapshots; later edits to the source order do not
// reach an already-created ticket.
type Ticket struct {
	ID          uuid.UUID `json:"id" bson:"_id"`
	OrderID     uuid.UUID `json:"order_id" bson:"order_id"`
	OrderNumber string    `json:"order_number" bson:"order_number"`
	Station     string    `json:"station" bson:"station"`
	Status      string    `json:"status" bson:"status"`
	Priority    int       `json:"priority" bson:"priority"`
	TableNumber string    `json:"table_number,omitempty" bson:"table_number,omitempty"`

	EstimatedTime int  `json:"estimated_time" bson:"estimated_time"`
	ActualTime    *int `json:"actual_time,omitempty" bson:"actual_time,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty" bson:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`

	ServerID *uuid.UUID `json:"server_id,omitempty" bson:"server_id,omitempty"`

	Items []TicketItem `json:"items" bson:"items"`

	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
	ModelVersion int       `json:"model_version" bson:"model_version"`
}

// TicketItem is one line of a ticket, snapshotted from the source order item.
type TicketItem struct {
	ID                  uuid.UUID `json:"id" bson:"id"`
	OrderItemID         uuid.UUID `json:"order_item_id" bson:"order_item_id"`
	Name                string    `json:"name" bson:"name"`
	Quantity            int       `json:"quantity" bson:"quantity"`
	Completed           bool      `json:"completed" bson:"completed"`
	Modifiers           string    `json:"modifiers,omitempty" bson:"modifiers,omitempty"`
	SpecialInstructions string    `json:"special_instructions,omitempty" bson:"special_instructions,omitempty"`
}

func (t *Ticket) GetID() uuid.UUID {
	return t.ID
}

func (t *Ticket) ResourceType() string {
	return "kitchen-ticket"
}

func (t *Ticket) SetID(id uuid.UUID) {
	t.ID = id
}

func NewTicket() *Ticket {
	return &Ticket{
		ID:            aqm.GenerateNewID(),
		Status:        kitchenstatus.Statuses.Pending.Name,
		Priority:      DefaultPriority,
		EstimatedTime: DefaultEstimatedTime,
		Items:         []TicketItem{},
	}
}

func (t *Ticket) EnsureID() {
	if t.ID == uuid.Nil {
		t.ID = aqm.GenerateNewID()
	}
}

func (t *Ticket) BeforeCreate() {
	t.EnsureID()
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()
}

func (t *Ticket) BeforeUpdate() {
	t.UpdatedAt = time.Now()
}

// Terminal reports whether the ticket can no longer move forward.
func (t *Ticket) Terminal() bool {
	s := kitchenstatus.ByName(t.Status)
	return s != nil && s.Terminal()
}

// Start moves the ticket to preparing and stamps the start time.
func (t *Ticket) Start() error {
	if t.Status != kitchenstatus.Statuses.Pending.Name {
		return t.transitionError(kitchenstatus.Statuses.Preparing.Name)
	}
	now := time.Now()
	t.Status = kitchenstatus.Statuses.Preparing.Name
	t.StartedAt = &now
	t.UpdatedAt = now
	return nil
}

// MarkReady completes preparation and derives the actual time in whole
// minutes from the start stamp.
func (t *Ticket) MarkReady() error {
	if t.Status != kitchenstatus.Statuses.Preparing.Name {
		return t.transitionError(kitchenstatus.Statuses.Ready.Name)
	}
	now := time.Now()
	t.Status = kitchenstatus.Statuses.Ready.Name
	t.CompletedAt = &now
	if t.StartedAt != nil {
		actual := int(now.Sub(*t.StartedAt).Minutes())
		t.ActualTime = &actual
	}
	t.UpdatedAt = now
	return nil
}

// Serve hands the prepared ticket off to the floor.
func (t *Ticket) Serve() error {
	if t.Status != kitchenstatus.Statuses.Ready.Name {
		return t.transitionError(kitchenstatus.Statuses.Served.Name)
	}
	t.Status = kitchenstatus.Statuses.Served.Name
	t.UpdatedAt = time.Now()
	return nil
}

// Bump removes a served ticket from the active displays.
func (t *Ticket) Bump() error {
	if t.Status != kitchenstatus.Statuses.Served.Name {
		return t.transitionError(kitchenstatus.Statuses.Completed.Name)
	}
	t.Status = kitchenstatus.Statuses.Completed.Name
	t.UpdatedAt = time.Now()
	return nil
}

// Recall is the only backward edge: served or completed back to ready, for
// correcting a mistaken bump.
func (t *Ticket) Recall() error {
	switch t.Status {
	case kitchenstatus.Statuses.Served.Name, kitchenstatus.Statuses.Completed.Name:
	default:
		return t.transitionError(kitchenstatus.Statuses.Ready.Name)
	}
	t.Status = kitchenstatus.Statuses.Ready.Name
	t.UpdatedAt = time.Now()
	return nil
}

// Cancel terminates the ticket from any non-terminal state.
func (t *Ticket) Cancel() error {
	if t.Terminal() {
		return t.transitionError(kitchenstatus.Statuses.Cancelled.Name)
	}
	t.Status = kitchenstatus.Statuses.Cancelled.Name
	t.UpdatedAt = time.Now()
	return nil
}

// SetPriority adjusts the ticket priority within the 1-5 scale.
func (t *Ticket) SetPriority(priority int) error {
	if priority < MinPriority || priority > MaxPriority {
		return fault.Validation("priority %d out of range %d-%d", priority, MinPriority, MaxPriority)
	}
	if t.Terminal() {
		return fault.InvalidTransition("cannot change priority of ticket %s in status %s", t.ID.String(), t.Status)
	}
	t.Priority = priority
	t.UpdatedAt = time.Now()
	return nil
}

// Delayed holds when the ticket is preparing and has exceeded its estimate.
// It is a derived read, never stored.
func (t *Ticket) Delayed(now time.Time) bool {
	if t.Status != kitchenstatus.Statuses.Preparing.Name || t.StartedAt == nil {
		return false
	}
	return now.Sub(*t.StartedAt).Minutes() > float64(t.EstimatedTime)
}

func (t *Ticket) transitionError(target string) error {
	return fault.InvalidTransition("ticket %s cannot move from %s to %s", t.ID.String(), t.Status, target)
}

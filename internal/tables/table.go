package tables

import (
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"

	"github.com/appetiteclub/fulfillment/internal/fault"
	"github.com/appetiteclub/fulfillment/pkg/enums/tablestatus"
)

type Table struct {
	ID             uuid.UUID  `json:"id" bson:"_id"`
	Number         string     `json:"number" bson:"number"`
	Capacity       int        `json:"capacity" bson:"capacity"`
	Status         string     `json:"status" bson:"status"`
	Location       string     `json:"location,omitempty" bson:"location,omitempty"`
	CurrentOrderID *uuid.UUID `json:"current_order_id,omitempty" bson:"current_order_id,omitempty"`
	OccupiedAt     *time.Time `json:"occupied_at,omitempty" bson:"occupied_at,omitempty"`
	Active         bool       `json:"active" bson:"active"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" bson:"updated_at"`
	ModelVersion   int        `json:"model_version" bson:"model_version"`
}

func (t *Table) GetID() uuid.UUID {
	return t.ID
}

func (t *Table) ResourceType() string {
	return "table"
}

func (t *Table) SetID(id uuid.UUID) {
	t.ID = id
}

func NewTable() *Table {
	return &Table{
		ID:     aqm.GenerateNewID(),
		Status: tablestatus.Statuses.Available.Name,
		Active: true,
	}
}

func (t *Table) EnsureID() {
	if t.ID == uuid.Nil {
		t.ID = aqm.GenerateNewID()
	}
}

func (t *Table) BeforeCreate() {
	t.EnsureID()
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()
}

func (t *Table) BeforeUpdate() {
	t.UpdatedAt = time.Now()
}

// Assign seats an order at the table. Only an available or reserved table
// can be assigned, and never one that still references an order.
func (t *Table) Assign(orderID uuid.UUID) error {
	if t.CurrentOrderID != nil {
		return fault.InvalidTransition("table %s already holds order %s", t.Number, t.CurrentOrderID.String())
	}
	switch t.Status {
	case tablestatus.Statuses.Available.Name, tablestatus.Statuses.Reserved.Name:
	default:
		return fault.InvalidTransition("cannot assign table %s in status %s", t.Number, t.Status)
	}
	now := time.Now()
	t.Status = tablestatus.Statuses.Occupied.Name
	t.CurrentOrderID = &orderID
	t.OccupiedAt = &now
	t.UpdatedAt = now
	return nil
}

// Release clears the occupancy and parks the table in cleaning. A separate
// MarkReady acknowledgment returns it to the available pool.
func (t *Table) Release() error {
	if t.Status != tablestatus.Statuses.Occupied.Name {
		return fault.InvalidTransition("cannot release table %s in status %s", t.Number, t.Status)
	}
	t.Status = tablestatus.Statuses.Cleaning.Name
	t.CurrentOrderID = nil
	t.OccupiedAt = nil
	t.UpdatedAt = time.Now()
	return nil
}

// MarkReady is the housekeeping acknowledgment that returns a cleaned table
// to the available pool.
func (t *Table) MarkReady() error {
	if t.Status != tablestatus.Statuses.Cleaning.Name {
		return fault.InvalidTransition("cannot mark table %s ready in status %s", t.Number, t.Status)
	}
	t.Status = tablestatus.Statuses.Available.Name
	t.UpdatedAt = time.Now()
	return nil
}

// FreeForTransfer releases the table directly to available. Used when the
// occupying order moved elsewhere before any food was served, so no
// cleaning step applies.
func (t *Table) FreeForTransfer() error {
	if t.Status != tablestatus.Statuses.Occupied.Name {
		return fault.InvalidTransition("cannot free table %s in status %s", t.Number, t.Status)
	}
	t.Status = tablestatus.Statuses.Available.Name
	t.CurrentOrderID = nil
	t.OccupiedAt = nil
	t.UpdatedAt = time.Now()
	return nil
}

// ReassignOrder points an occupied table at a different order. Used during a
// merge when the surviving order takes over a table one of the absorbed
// orders was seated at.
func (t *Table) ReassignOrder(orderID uuid.UUID) error {
	if t.Status != tablestatus.Statuses.Occupied.Name || t.CurrentOrderID == nil {
		return fault.InvalidTransition("cannot reassign table %s in status %s", t.Number, t.Status)
	}
	t.CurrentOrderID = &orderID
	t.UpdatedAt = time.Now()
	return nil
}

// CheckInvariant verifies the occupancy rule: occupied implies a current
// order reference and vice versa.
func (t *Table) CheckInvariant() error {
	occupied := t.Status == tablestatus.Statuses.Occupied.Name
	hasOrder := t.CurrentOrderID != nil
	if occupied != hasOrder {
		return fault.InvariantViolation("table %s status %s with current_order=%v", t.Number, t.Status, hasOrder)
	}
	return nil
}

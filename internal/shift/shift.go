package shift

import (
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"

	"github.com/appetiteclub/fulfillment/internal/fault"
)

// Shift statuses.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Shift is one cashier's working window. While open, its report is derived
// on demand; closing the shift freezes the report as a snapshot.
type Shift struct {
	ID        uuid.UUID  `json:"id" bson:"_id"`
	CashierID uuid.UUID  `json:"cashier_id" bson:"cashier_id"`
	BranchID  *uuid.UUID `json:"branch_id,omitempty" bson:"branch_id,omitempty"`
	Status    string     `json:"status" bson:"status"`
	StartedAt time.Time  `json:"started_at" bson:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" bson:"ended_at,omitempty"`

	OpeningFloat float64 `json:"opening_float,omitempty" bson:"opening_float,omitempty"`
	Notes        string  `json:"notes,omitempty" bson:"notes,omitempty"`

	Report *Report `json:"report,omitempty" bson:"report,omitempty"`

	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
	ModelVersion int       `json:"model_version" bson:"model_version"`
}

// Report is the reconciliation snapshot for a shift window.
type Report struct {
	From time.Time `json:"from" bson:"from"`
	To   time.Time `json:"to" bson:"to"`

	TotalSales   float64 `json:"total_sales" bson:"total_sales"`
	TotalRefunds float64 `json:"total_refunds" bson:"total_refunds"`
	NetSales     float64 `json:"net_sales" bson:"net_sales"`

	OrderCount  int `json:"order_count" bson:"order_count"`
	RefundCount int `json:"refund_count" bson:"refund_count"`

	Payments    []PaymentSummary `json:"payments" bson:"payments"`
	TopProducts []ProductSummary `json:"top_products" bson:"top_products"`

	OrderIDs  []uuid.UUID `json:"order_ids" bson:"order_ids"`
	RefundIDs []uuid.UUID `json:"refund_ids" bson:"refund_ids"`
}

// PaymentSummary breaks the shift's sales down by payment type.
type PaymentSummary struct {
	PaymentType string  `json:"payment_type" bson:"payment_type"`
	Amount      float64 `json:"amount" bson:"amount"`
	Count       int     `json:"count" bson:"count"`
	Percentage  float64 `json:"percentage" bson:"percentage"`
}

// ProductSummary is one line of the top-sellers ranking.
type ProductSummary struct {
	ProductID uuid.UUID `json:"product_id" bson:"product_id"`
	Name      string    `json:"name" bson:"name"`
	Quantity  int       `json:"quantity" bson:"quantity"`
	Revenue   float64   `json:"revenue" bson:"revenue"`
}

func (s *Shift) GetID() uuid.UUID {
	return s.ID
}

func (s *Shift) ResourceType() string {
	return "shift"
}

func (s *Shift) SetID(id uuid.UUID) {
	s.ID = id
}

func NewShift(cashierID uuid.UUID) *Shift {
	return &Shift{
		ID:        aqm.GenerateNewID(),
		CashierID: cashierID,
		Status:    StatusOpen,
		StartedAt: time.Now(),
	}
}

func (s *Shift) EnsureID() {
	if s.ID == uuid.Nil {
		s.ID = aqm.GenerateNewID()
	}
}

func (s *Shift) BeforeCreate() {
	s.EnsureID()
	s.CreatedAt = time.Now()
	s.UpdatedAt = time.Now()
}

func (s *Shift) BeforeUpdate() {
	s.UpdatedAt = time.Now()
}

// Close freezes the shift with the given report snapshot.
func (s *Shift) Close(report *Report) error {
	if s.Status != StatusOpen {
		return fault.InvalidTransition("shift %s is already %s", s.ID.String(), s.Status)
	}
	now := time.Now()
	s.Status = StatusClosed
	s.EndedAt = &now
	s.Report = report
	s.UpdatedAt = now
	return nil
}

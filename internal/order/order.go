package order

import (
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"

	"github.com/appetiteclub/fulfillment/internal/fault"
	"github.com/appetiteclub/fulfillment/internal/pricing"
	"github.com/appetiteclub/fulfillment/pkg/enums/discounttype"
	"github.com/appetiteclub/fulfillment/pkg/enums/orderstatus"
)

// Order types.
const (
	TypeDineIn   = "dine_in"
	TypeTakeout  = "takeout"
	TypeDelivery = "delivery"
)

type Order struct {
	ID          uuid.UUID `json:"id" bson:"_id"`
	OrderNumber string    `json:"order_number" bson:"order_number"`
	Status      string    `json:"status" bson:"status"`
	OrderType   string    `json:"order_type" bson:"order_type"`

	Subtotal       float64 `json:"subtotal" bson:"subtotal"`
	DiscountType   string  `json:"discount_type,omitempty" bson:"discount_type,omitempty"`
	DiscountValue  float64 `json:"discount_value,omitempty" bson:"discount_value,omitempty"`
	DiscountAmount float64 `json:"discount_amount" bson:"discount_amount"`
	DiscountReason string  `json:"discount_reason,omitempty" bson:"discount_reason,omitempty"`
	TaxAmount      float64 `json:"tax_amount" bson:"tax_amount"`
	Total          float64 `json:"total" bson:"total"`

	TableID      *uuid.UUID `json:"table_id,omitempty" bson:"table_id,omitempty"`
	TableNumber  string     `json:"table_number,omitempty" bson:"table_number,omitempty"`
	CustomerName string     `json:"customer_name,omitempty" bson:"customer_name,omitempty"`

	ParentOrderID *uuid.UUID `json:"parent_order_id,omitempty" bson:"parent_order_id,omitempty"`
	SplitNumber   *int       `json:"split_number,omitempty" bson:"split_number,omitempty"`
	IsSplit       bool       `json:"is_split" bson:"is_split"`

	IsVoided       bool       `json:"is_voided" bson:"is_voided"`
	VoidReason     string     `json:"void_reason,omitempty" bson:"void_reason,omitempty"`
	VoidNotes      string     `json:"void_notes,omitempty" bson:"void_notes,omitempty"`
	VoidedBy       *uuid.UUID `json:"voided_by,omitempty" bson:"voided_by,omitempty"`
	VoidedAt       *time.Time `json:"voided_at,omitempty" bson:"voided_at,omitempty"`
	VoidApprovedBy *uuid.UUID `json:"void_approved_by,omitempty" bson:"void_approved_by,omitempty"`

	CashierID   *uuid.UUID `json:"cashier_id,omitempty" bson:"cashier_id,omitempty"`
	BranchID    *uuid.UUID `json:"branch_id,omitempty" bson:"branch_id,omitempty"`
	PaymentType string     `json:"payment_type,omitempty" bson:"payment_type,omitempty"`

	CreatedAt    time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" bson:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	ModelVersion int        `json:"model_version" bson:"model_version"`
}

func (o *Order) GetID() uuid.UUID {
	return o.ID
}

func (o *Order) ResourceType() string {
	return "order"
}

func (o *Order) SetID(id uuid.UUID) {
	o.ID = id
}

func NewOrder() *Order {
	return &Order{
		ID:        aqm.GenerateNewID(),
		Status:    orderstatus.Statuses.Pending.Name,
		OrderType: TypeDineIn,
	}
}

func (o *Order) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = aqm.GenerateNewID()
	}
}

func (o *Order) BeforeCreate() {
	o.EnsureID()
	o.CreatedAt = time.Now()
	o.UpdatedAt = time.Now()
}

func (o *Order) BeforeUpdate() {
	o.UpdatedAt = time.Now()
}

// Terminal reports whether the order can no longer change hands.
func (o *Order) Terminal() bool {
	s := orderstatus.ByName(o.Status)
	return s != nil && s.Terminal()
}

// InvoiceDiscount returns the order-level discount rule, or nil when none
// applies.
func (o *Order) InvoiceDiscount() *pricing.Discount {
	if o.DiscountType == "" || o.DiscountType == discounttype.Types.None.Name {
		return nil
	}
	dt := discounttype.ByName(o.DiscountType)
	if dt == nil {
		return nil
	}
	return &pricing.Discount{Type: *dt, Value: o.DiscountValue, Reason: o.DiscountReason}
}

// Recalculate re-derives subtotal, invoice discount and total from the
// given items. Amounts are always derivable from persisted inputs.
func (o *Order) Recalculate(items []*OrderItem) {
	lines := make([]pricing.LineAmounts, 0, len(items))
	for _, item := range items {
		lines = append(lines, pricing.LineAmounts{
			Subtotal: item.Subtotal,
			Discount: item.DiscountAmount,
			Total:    item.TotalPrice,
		})
	}
	amounts := pricing.PriceInvoice(lines, o.InvoiceDiscount(), o.TaxAmount)
	o.Subtotal = amounts.Subtotal
	o.DiscountAmount = amounts.InvoiceDiscount
	o.Total = amounts.Total
	o.UpdatedAt = time.Now()
}

// MarkCompleted moves a pending order to completed.
func (o *Order) MarkCompleted() error {
	if o.Status != orderstatus.Statuses.Pending.Name {
		return fault.InvalidTransition("cannot complete order %s in status %s", o.OrderNumber, o.Status)
	}
	now := time.Now()
	o.Status = orderstatus.Statuses.Completed.Name
	o.CompletedAt = &now
	o.UpdatedAt = now
	return nil
}

// MarkSplit archives the parent after a split-bill operation.
func (o *Order) MarkSplit() error {
	if err := o.MarkCompleted(); err != nil {
		return err
	}
	o.IsSplit = true
	return nil
}

// Void cancels a completed order and records the audit trail. Notes are
// mandatory and a voided order can never be un-voided.
func (o *Order) Void(reason, notes string, actorID uuid.UUID, managerID *uuid.UUID) error {
	if o.IsVoided {
		return fault.InvalidTransition("order %s is already voided", o.OrderNumber)
	}
	if o.Status != orderstatus.Statuses.Completed.Name {
		return fault.InvalidTransition("cannot void order %s in status %s", o.OrderNumber, o.Status)
	}
	if reason == "" {
		return fault.Validation("void reason is required")
	}
	if notes == "" {
		return fault.Validation("void notes are required")
	}
	if actorID == uuid.Nil {
		return fault.Validation("void actor is required")
	}
	now := time.Now()
	o.Status = orderstatus.Statuses.Cancelled.Name
	o.IsVoided = true
	o.VoidReason = reason
	o.VoidNotes = notes
	o.VoidedBy = &actorID
	o.VoidedAt = &now
	o.VoidApprovedBy = managerID
	o.UpdatedAt = now
	return nil
}

package order

import (
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"

	"github.com/appetiteclub/fulfillment/internal/catalog"
	"github.com/appetiteclub/fulfillment/internal/pricing"
	"github.com/appetiteclub/fulfillment/pkg/enums/discounttype"
)

// Modifier is an add-on attached to a line item, priced per unit.
type Modifier struct {
	Name            string  `json:"name" bson:"name"`
	AdditionalPrice float64 `json:"additional_price" bson:"additional_price"`
}

// OrderItem is one product line of an order. Product name, SKU and price are
// snapshots taken at order-entry time so history survives catalog edits.
type OrderItem struct {
	ID      uuid.UUID `json:"id" bson:"_id"`
	OrderID uuid.UUID `json:"order_id" bson:"order_id"`

	ProductID   uuid.UUID `json:"product_id" bson:"product_id"`
	ProductType string    `json:"product_type" bson:"product_type"`
	Name        string    `json:"name" bson:"name"`
	SKU         string    `json:"sku,omitempty" bson:"sku,omitempty"`
	Station     string    `json:"station,omitempty" bson:"station,omitempty"`
	PrepMinutes int       `json:"prep_minutes,omitempty" bson:"prep_minutes,omitempty"`

	Quantity  int     `json:"quantity" bson:"quantity"`
	UnitPrice float64 `json:"unit_price" bson:"unit_price"`

	DiscountType   string  `json:"discount_type,omitempty" bson:"discount_type,omitempty"`
	DiscountValue  float64 `json:"discount_value,omitempty" bson:"discount_value,omitempty"`
	DiscountAmount float64 `json:"discount_amount" bson:"discount_amount"`
	DiscountReason string  `json:"discount_reason,omitempty" bson:"discount_reason,omitempty"`

	SpecialInstructions string     `json:"special_instructions,omitempty" bson:"special_instructions,omitempty"`
	Modifiers           []Modifier `json:"modifiers,omitempty" bson:"modifiers,omitempty"`

	Subtotal   float64 `json:"subtotal" bson:"subtotal"`
	TotalPrice float64 `json:"total_price" bson:"total_price"`

	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
	ModelVersion int       `json:"model_version" bson:"model_version"`
}

func (i *OrderItem) GetID() uuid.UUID {
	return i.ID
}

func (i *OrderItem) ResourceType() string {
	return "order-item"
}

func (i *OrderItem) SetID(id uuid.UUID) {
	i.ID = id
}

func NewOrderItem() *OrderItem {
	return &OrderItem{
		ID:        aqm.GenerateNewID(),
		Modifiers: []Modifier{},
	}
}

func (i *OrderItem) EnsureID() {
	if i.ID == uuid.Nil {
		i.ID = aqm.GenerateNewID()
	}
}

func (i *OrderItem) BeforeCreate() {
	i.EnsureID()
	i.CreatedAt = time.Now()
	i.UpdatedAt = time.Now()
}

func (i *OrderItem) BeforeUpdate() {
	i.UpdatedAt = time.Now()
}

// ApplySnapshot captures the resolved product projection onto the line.
func (i *OrderItem) ApplySnapshot(snap catalog.ProductSnapshot) {
	i.ProductID = snap.ProductID
	i.ProductType = snap.ProductType
	i.Name = snap.Name
	i.SKU = snap.SKU
	i.UnitPrice = snap.SellingPrice
	i.Station = snap.Station
	i.PrepMinutes = snap.PrepMinutes
}

// Prepared reports whether the item routes to a kitchen station.
func (i *OrderItem) Prepared() bool {
	return i.ProductType == catalog.ProductTypeMenuItem && i.Station != ""
}

// Discount returns the line discount rule, or nil when none applies.
func (i *OrderItem) Discount() *pricing.Discount {
	if i.DiscountType == "" || i.DiscountType == discounttype.Types.None.Name {
		return nil
	}
	dt := discounttype.ByName(i.DiscountType)
	if dt == nil {
		return nil
	}
	return &pricing.Discount{Type: *dt, Value: i.DiscountValue, Reason: i.DiscountReason}
}

// Recalculate re-derives subtotal, discount amount and total price.
func (i *OrderItem) Recalculate() {
	mods := make([]pricing.Modifier, 0, len(i.Modifiers))
	for _, m := range i.Modifiers {
		mods = append(mods, pricing.Modifier{Name: m.Name, AdditionalPrice: m.AdditionalPrice})
	}
	amounts := pricing.PriceLine(pricing.Line{
		UnitPrice: i.UnitPrice,
		Quantity:  i.Quantity,
		Modifiers: mods,
		Discount:  i.Discount(),
	})
	i.Subtotal = amounts.Subtotal
	i.DiscountAmount = amounts.Discount
	i.TotalPrice = amounts.Total
	i.UpdatedAt = time.Now()
}

// CopyForSplit clones the item for a split child order, keeping the price
// and discount snapshot but minting a new identity.
func (i *OrderItem) CopyForSplit(childOrderID uuid.UUID) *OrderItem {
	clone := *i
	clone.ID = aqm.GenerateNewID()
	clone.OrderID = childOrderID
	clone.Modifiers = append([]Modifier{}, i.Modifiers...)
	clone.CreatedAt = time.Now()
	clone.UpdatedAt = time.Now()
	clone.ModelVersion = 0
	return &clone
}

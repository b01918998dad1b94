// Package pricing derives line and invoice amounts from their persisted
// inputs. Every function here is pure so totals can be re-derived at any
// time from what is stored.
package pricing

import (
	"math"

	"github.com/appetiteclub/fulfillment/pkg/enums/discounttype"
)

// Modifier is an add-on priced per unit of its parent line.
type Modifier struct {
	Name            string
	AdditionalPrice float64
}

// Discount describes a discount rule before computation.
type Discount struct {
	Type   discounttype.Type
	Value  float64
	Reason string
}

// Line is the input to line-level pricing.
type Line struct {
	UnitPrice float64
	Quantity  int
	Modifiers []Modifier
	Discount  *Discount
}

// LineAmounts is the result of pricing one line.
type LineAmounts struct {
	Subtotal float64
	Discount float64
	Total    float64
}

// InvoiceAmounts is the result of pricing a whole invoice.
type InvoiceAmounts struct {
	Subtotal        float64
	InvoiceDiscount float64
	Tax             float64
	Total           float64
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	if v < 0 {
		return -math.Floor(-v*100+0.5) / 100
	}
	return math.Floor(v*100+0.5) / 100
}

// PriceLine computes subtotal, discount and total for one line.
// Subtotal is unit price times quantity plus each modifier times quantity.
// A fixed discount applies per unit and is capped at the subtotal.
func PriceLine(l Line) LineAmounts {
	qty := float64(l.Quantity)
	subtotal := l.UnitPrice * qty
	for _, m := range l.Modifiers {
		subtotal += m.AdditionalPrice * qty
	}
	subtotal = Round2(subtotal)

	discount := lineDiscount(subtotal, qty, l.Discount)

	return LineAmounts{
		Subtotal: subtotal,
		Discount: discount,
		Total:    Round2(math.Max(0, subtotal-discount)),
	}
}

func lineDiscount(subtotal, qty float64, d *Discount) float64 {
	if d == nil {
		return 0
	}
	switch d.Type.Name {
	case discounttype.Types.Percentage.Name:
		return Round2(subtotal * d.Value / 100)
	case discounttype.Types.FixedAmount.Name:
		return Round2(math.Min(d.Value*qty, subtotal))
	default:
		return 0
	}
}

// PriceInvoice sums already-priced lines and applies the invoice-level
// discount against the invoice subtotal. A fixed invoice discount is capped
// at the subtotal, not multiplied per unit.
func PriceInvoice(lines []LineAmounts, invoiceDiscount *Discount, tax float64) InvoiceAmounts {
	var subtotal float64
	for _, l := range lines {
		subtotal += l.Total
	}
	subtotal = Round2(subtotal)

	var discount float64
	if invoiceDiscount != nil {
		switch invoiceDiscount.Type.Name {
		case discounttype.Types.Percentage.Name:
			discount = Round2(subtotal * invoiceDiscount.Value / 100)
		case discounttype.Types.FixedAmount.Name:
			discount = Round2(math.Min(invoiceDiscount.Value, subtotal))
		}
	}

	return InvoiceAmounts{
		Subtotal:        subtotal,
		InvoiceDiscount: discount,
		Tax:             Round2(tax),
		Total:           Round2(math.Max(0, subtotal-discount+tax)),
	}
}

package shift

import (
	"context"
	"sort"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"

	"github.com/appetiteclub/fulfillment/internal/fault"
	"github.com/appetiteclub/fulfillment/internal/order"
	"github.com/appetiteclub/fulfillment/internal/pricing"
	"github.com/appetiteclub/fulfillment/pkg/enums/orderstatus"
	"github.com/appetiteclub/fulfillment/pkg/enums/paymenttype"
)

// TopProductLimit caps the top-sellers ranking in a shift report.
const TopProductLimit = 5

// Reconciler opens and closes shifts and derives their reports from the
// order history. An open shift's report is always re-derived from the
// source orders, never cached.
type Reconciler struct {
	shifts Repo
	orders order.Repo
	items  order.ItemRepo
	logger aqm.Logger
}

func NewReconciler(shifts Repo, orders order.Repo, items order.ItemRepo, logger aqm.Logger) *Reconciler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Reconciler{
		shifts: shifts,
		orders: orders,
		items:  items,
		logger: logger,
	}
}

// Start opens a new shift for the cashier. A cashier can hold at most one
// open shift at a time.
func (r *Reconciler) Start(ctx context.Context, cashierID uuid.UUID, branchID *uuid.UUID, openingFloat float64) (*Shift, error) {
	if cashierID == uuid.Nil {
		return nil, fault.Validation("cashier_id is required")
	}

	open, err := r.shifts.GetOpenByCashier(ctx, cashierID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, fault.Conflict("cashier %s already has an open shift", cashierID.String())
	}

	s := NewShift(cashierID)
	s.BranchID = branchID
	s.OpeningFloat = openingFloat
	s.BeforeCreate()
	if err := r.shifts.Create(ctx, s); err != nil {
		return nil, err
	}

	r.logger.Info("shift started", "shift_id", s.ID.String(), "cashier_id", cashierID.String())
	return s, nil
}

// End closes the cashier's open shift, freezing the report as of now.
func (r *Reconciler) End(ctx context.Context, cashierID uuid.UUID, notes string) (*Shift, error) {
	s, err := r.shifts.GetOpenByCashier(ctx, cashierID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fault.NotFound("cashier %s has no open shift", cashierID.String())
	}

	report, err := r.Derive(ctx, s, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.Close(report); err != nil {
		return nil, err
	}
	s.Notes = notes
	if err := r.shifts.Save(ctx, s); err != nil {
		return nil, err
	}

	r.logger.Info("shift closed",
		"shift_id", s.ID.String(),
		"cashier_id", cashierID.String(),
		"orders", report.OrderCount,
		"net_sales", report.NetSales)
	return s, nil
}

// Progress returns the cashier's open shift with a report derived up to now.
func (r *Reconciler) Progress(ctx context.Context, cashierID uuid.UUID) (*Shift, error) {
	s, err := r.shifts.GetOpenByCashier(ctx, cashierID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fault.NotFound("cashier %s has no open shift", cashierID.String())
	}

	report, err := r.Derive(ctx, s, time.Now())
	if err != nil {
		return nil, err
	}
	s.Report = report
	return s, nil
}

// Derive builds the reconciliation report for the shift window [start, to).
// A completed order counts as a sale in the window holding its completion
// time; a voided order counts as a refund in the window holding its voided-at
// time. An order sold and voided in the same window contributes both, netting
// to zero. Split parents are skipped since their value lives on in the
// children.
func (r *Reconciler) Derive(ctx context.Context, s *Shift, to time.Time) (*Report, error) {
	orders, err := r.orders.ListByCashierBetween(ctx, s.CashierID, s.StartedAt, to)
	if err != nil {
		return nil, err
	}

	report := &Report{
		From:        s.StartedAt,
		To:          to,
		Payments:    []PaymentSummary{},
		TopProducts: []ProductSummary{},
		OrderIDs:    []uuid.UUID{},
		RefundIDs:   []uuid.UUID{},
	}

	within := func(ts time.Time) bool {
		return !ts.Before(s.StartedAt) && ts.Before(to)
	}

	payments := make(map[string]*PaymentSummary)
	products := make(map[uuid.UUID]*ProductSummary)

	for _, o := range orders {
		if o.IsVoided && o.VoidedAt != nil && within(*o.VoidedAt) {
			report.TotalRefunds = pricing.Round2(report.TotalRefunds + o.Total)
			report.RefundCount++
			report.RefundIDs = append(report.RefundIDs, o.ID)
		}

		// A void only happens to completed orders, so voided ones were
		// sales of the window holding their completion time.
		if !o.IsVoided && o.Status != orderstatus.Statuses.Completed.Name {
			continue
		}
		if o.IsSplit {
			continue
		}
		soldAt := o.CreatedAt
		if o.CompletedAt != nil {
			soldAt = *o.CompletedAt
		}
		if !within(soldAt) {
			continue
		}

		report.TotalSales = pricing.Round2(report.TotalSales + o.Total)
		report.OrderCount++
		report.OrderIDs = append(report.OrderIDs, o.ID)

		paymentType := o.PaymentType
		if paymenttype.ByName(paymentType) == nil {
			paymentType = "unknown"
		}
		ps, ok := payments[paymentType]
		if !ok {
			ps = &PaymentSummary{PaymentType: paymentType}
			payments[paymentType] = ps
		}
		ps.Amount = pricing.Round2(ps.Amount + o.Total)
		ps.Count++

		if err := r.tallyProducts(ctx, o.ID, products); err != nil {
			r.logger.Error("cannot tally products for shift report", "error", err, "order_id", o.ID.String())
		}
	}

	report.NetSales = pricing.Round2(report.TotalSales - report.TotalRefunds)

	for _, ps := range payments {
		if report.TotalSales > 0 {
			ps.Percentage = pricing.Round2(ps.Amount / report.TotalSales * 100)
		}
		report.Payments = append(report.Payments, *ps)
	}
	sort.Slice(report.Payments, func(i, j int) bool {
		return report.Payments[i].Amount > report.Payments[j].Amount
	})

	for _, p := range products {
		report.TopProducts = append(report.TopProducts, *p)
	}
	sort.Slice(report.TopProducts, func(i, j int) bool {
		if report.TopProducts[i].Quantity != report.TopProducts[j].Quantity {
			return report.TopProducts[i].Quantity > report.TopProducts[j].Quantity
		}
		return report.TopProducts[i].Revenue > report.TopProducts[j].Revenue
	})
	if len(report.TopProducts) > TopProductLimit {
		report.TopProducts = report.TopProducts[:TopProductLimit]
	}

	return report, nil
}

func (r *Reconciler) tallyProducts(ctx context.Context, orderID uuid.UUID, products map[uuid.UUID]*ProductSummary) error {
	items, err := r.items.ListByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			p = &ProductSummary{ProductID: item.ProductID, Name: item.Name}
			products[item.ProductID] = p
		}
		p.Quantity += item.Quantity
		p.Revenue = pricing.Round2(p.Revenue + item.TotalPrice)
	}
	return nil
}

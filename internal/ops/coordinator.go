package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/fulfillment/internal/fault"
	"github.com/appetiteclub/fulfillment/internal/order"
	"github.com/appetiteclub/fulfillment/internal/pricing"
	"github.com/appetiteclub/fulfillment/internal/tables"
	"github.com/appetiteclub/fulfillment/pkg/enums/orderstatus"
	"github.com/appetiteclub/fulfillment/pkg/enums/tablestatus"
	"github.com/appetiteclub/fulfillment/pkg/event"
)

// Coordinator orchestrates the composite table operations: change table,
// merge tables and split bill. Each operation locks every aggregate it
// touches in ascending id order, validates the whole transition up front,
// and compensates already-written steps when a later write fails.
type Coordinator struct {
	locks     *LockManager
	orders    order.Repo
	items     order.ItemRepo
	tables    tables.Repo
	publisher events.Publisher
	logger    aqm.Logger
}

func NewCoordinator(orders order.Repo, items order.ItemRepo, tableRepo tables.Repo, publisher events.Publisher, logger aqm.Logger) *Coordinator {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Coordinator{
		locks:     NewLockManager(),
		orders:    orders,
		items:     items,
		tables:    tableRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// SplitGroup names the items one split child takes, with an optional
// customer label.
type SplitGroup struct {
	ItemIDs      []uuid.UUID `json:"item_ids"`
	CustomerName string      `json:"customer_name,omitempty"`
}

// ChangeTable moves an active order to a different table. The item set and
// totals are untouched; only the table reference moves. The old table is
// freed directly to available since nothing was served there by definition
// of an active order.
func (c *Coordinator) ChangeTable(ctx context.Context, orderID, newTableID uuid.UUID) (*order.Order, error) {
	// Pre-read outside the locks to learn the full lock set.
	o, err := c.orders.Get(ctx, orderID)
	if err != nil || o == nil {
		return nil, fault.NotFound("order %s not found", orderID.String())
	}
	if o.TableID == nil {
		return nil, fault.Validation("order %s is not seated at a table", o.OrderNumber)
	}
	oldTableID := *o.TableID

	release := c.locks.Acquire(orderID, oldTableID, newTableID)
	defer release()

	// Re-read under lock; the pre-read may have raced another operation.
	o, err = c.orders.Get(ctx, orderID)
	if err != nil || o == nil {
		return nil, fault.NotFound("order %s not found", orderID.String())
	}
	if o.Status != orderstatus.Statuses.Pending.Name {
		return nil, fault.InvalidTransition("cannot change table of order %s in status %s", o.OrderNumber, o.Status)
	}
	if o.TableID == nil || *o.TableID != oldTableID {
		return nil, fault.Conflict("order %s changed tables concurrently", o.OrderNumber)
	}
	if oldTableID == newTableID {
		return nil, fault.Validation("order %s is already at table %s", o.OrderNumber, newTableID.String())
	}

	newTable, err := c.tables.Get(ctx, newTableID)
	if err != nil || newTable == nil {
		return nil, fault.NotFound("table %s not found", newTableID.String())
	}
	oldTable, err := c.tables.Get(ctx, oldTableID)
	if err != nil || oldTable == nil {
		return nil, fault.NotFound("table %s not found", oldTableID.String())
	}

	// A reserved table is held for a specific party; moves only target
	// available tables.
	if newTable.Status != tablestatus.Statuses.Available.Name {
		return nil, fault.InvalidTransition("cannot move order %s to table %s in status %s", o.OrderNumber, newTable.Number, newTable.Status)
	}
	if err := newTable.Assign(o.ID); err != nil {
		return nil, err
	}
	if err := oldTable.FreeForTransfer(); err != nil {
		return nil, err
	}

	if err := c.tables.Save(ctx, newTable); err != nil {
		return nil, err
	}
	if err := c.tables.Save(ctx, oldTable); err != nil {
		c.revertTable(ctx, newTable, "change-table")
		return nil, err
	}

	o.TableID = &newTable.ID
	o.TableNumber = newTable.Number
	o.BeforeUpdate()
	if err := c.orders.Save(ctx, o); err != nil {
		c.logger.Error("cannot move order after table swap",
			"error", err, "order_id", orderID.String(),
			"from_table", oldTableID.String(), "to_table", newTableID.String())
		return nil, err
	}

	c.publishTableChanged(ctx, o.ID, oldTableID, newTableID)
	c.logger.Info("order changed table", "order_id", orderID.String(), "from", oldTable.Number, "to", newTable.Number)
	return o, nil
}

// MergeTables combines several active orders into the first one. Totals are
// summed additively, never re-derived, so each source's already-computed
// line discounts survive. Every source table except the target is freed and
// the absorbed, now-empty orders are deleted.
func (c *Coordinator) MergeTables(ctx context.Context, sourceOrderIDs []uuid.UUID, targetTableID uuid.UUID) (*order.Order, error) {
	if len(sourceOrderIDs) < 2 {
		return nil, fault.Validation("merge requires at least two source orders")
	}

	// Pre-read to learn the lock set.
	lockIDs := append([]uuid.UUID{targetTableID}, sourceOrderIDs...)
	for _, id := range sourceOrderIDs {
		o, err := c.orders.Get(ctx, id)
		if err != nil || o == nil {
			return nil, fault.NotFound("order %s not found", id.String())
		}
		if o.TableID != nil {
			lockIDs = append(lockIDs, *o.TableID)
		}
	}

	release := c.locks.Acquire(lockIDs...)
	defer release()

	// Re-read everything under lock and validate before any write.
	sources := make([]*order.Order, 0, len(sourceOrderIDs))
	for _, id := range sourceOrderIDs {
		o, err := c.orders.Get(ctx, id)
		if err != nil || o == nil {
			return nil, fault.NotFound("order %s not found", id.String())
		}
		if o.Status != orderstatus.Statuses.Pending.Name {
			return nil, fault.InvalidTransition("cannot merge order %s in status %s", o.OrderNumber, o.Status)
		}
		sources = append(sources, o)
	}

	survivor, absorbed := sources[0], sources[1:]

	var wantTotal float64
	var wantItems int
	for _, o := range sources {
		wantTotal += o.Total
		count, err := c.countItems(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		wantItems += count
	}

	targetTable, err := c.tables.Get(ctx, targetTableID)
	if err != nil || targetTable == nil {
		return nil, fault.NotFound("table %s not found", targetTableID.String())
	}

	// The target must be free, or already seated by one of the sources.
	targetHeldBySource := false
	if targetTable.CurrentOrderID != nil {
		for _, o := range sources {
			if *targetTable.CurrentOrderID == o.ID {
				targetHeldBySource = true
				break
			}
		}
		if !targetHeldBySource {
			return nil, fault.InvalidTransition("table %s is held by an unrelated order", targetTable.Number)
		}
	}

	// Re-parent every absorbed order's items onto the survivor.
	for _, o := range absorbed {
		if err := c.items.ReassignOrder(ctx, o.ID, survivor.ID); err != nil {
			c.logger.Error("merge failed while moving items",
				"error", err, "from_order", o.ID.String(), "to_order", survivor.ID.String())
			c.compensateReassign(ctx, absorbed, survivor.ID, o.ID)
			return nil, fault.Wrap(fault.KindUnknown, err, "cannot move items of order %s", o.OrderNumber)
		}
	}

	// Amounts are additive across sources.
	for _, o := range absorbed {
		survivor.Subtotal = pricing.Round2(survivor.Subtotal + o.Subtotal)
		survivor.DiscountAmount = pricing.Round2(survivor.DiscountAmount + o.DiscountAmount)
		survivor.TaxAmount = pricing.Round2(survivor.TaxAmount + o.TaxAmount)
		survivor.Total = pricing.Round2(survivor.Total + o.Total)
	}

	gotItems, err := c.countItems(ctx, survivor.ID)
	if err != nil {
		return nil, err
	}
	if gotItems != wantItems {
		c.compensateReassign(ctx, absorbed, survivor.ID, uuid.Nil)
		return nil, fault.InvariantViolation("merged order holds %d items, want %d", gotItems, wantItems)
	}
	if pricing.Round2(wantTotal) != survivor.Total {
		c.compensateReassign(ctx, absorbed, survivor.ID, uuid.Nil)
		return nil, fault.InvariantViolation("merged total %.2f does not match source sum %.2f", survivor.Total, wantTotal)
	}

	// Free every source table except the target.
	for _, o := range sources {
		if o.TableID == nil || *o.TableID == targetTableID {
			continue
		}
		table, err := c.tables.Get(ctx, *o.TableID)
		if err != nil || table == nil {
			continue
		}
		if err := table.FreeForTransfer(); err != nil {
			c.logger.Error("cannot free source table during merge", "error", err, "table_id", table.ID.String())
			continue
		}
		if err := c.tables.Save(ctx, table); err != nil {
			c.logger.Error("cannot save freed table during merge", "error", err, "table_id", table.ID.String())
		}
	}

	// Seat the survivor at the target table.
	if targetHeldBySource {
		if err := targetTable.ReassignOrder(survivor.ID); err != nil {
			return nil, err
		}
	} else {
		if err := targetTable.Assign(survivor.ID); err != nil {
			return nil, err
		}
	}
	if err := c.tables.Save(ctx, targetTable); err != nil {
		return nil, err
	}

	survivor.TableID = &targetTable.ID
	survivor.TableNumber = targetTable.Number
	survivor.BeforeUpdate()
	if err := c.orders.Save(ctx, survivor); err != nil {
		c.logger.Error("cannot save merged order", "error", err, "order_id", survivor.ID.String())
		return nil, err
	}

	absorbedIDs := make([]uuid.UUID, 0, len(absorbed))
	for _, o := range absorbed {
		absorbedIDs = append(absorbedIDs, o.ID)
		if err := c.orders.Delete(ctx, o.ID); err != nil {
			c.logger.Error("cannot delete absorbed order", "error", err, "order_id", o.ID.String())
		}
	}

	c.publishOrderMerged(ctx, survivor.ID, absorbedIDs, targetTableID)
	c.logger.Info("orders merged",
		"survivor_id", survivor.ID.String(),
		"absorbed", len(absorbedIDs),
		"target_table", targetTable.Number)
	return survivor, nil
}

// SplitBill divides an order's items into independent child orders for
// separate payment. Items are copied, not moved; the parent is archived as
// completed with its split flag set. Tax and invoice discount are not
// redistributed; each child carries only its own items' totals.
func (c *Coordinator) SplitBill(ctx context.Context, orderID uuid.UUID, groups []SplitGroup) ([]*order.Order, error) {
	if len(groups) < 2 {
		return nil, fault.Validation("split requires at least two groups")
	}

	release := c.locks.Acquire(orderID)
	defer release()

	parent, err := c.orders.Get(ctx, orderID)
	if err != nil || parent == nil {
		return nil, fault.NotFound("order %s not found", orderID.String())
	}
	if parent.Status != orderstatus.Statuses.Pending.Name {
		return nil, fault.InvalidTransition("cannot split order %s in status %s", parent.OrderNumber, parent.Status)
	}

	items, err := c.items.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*order.OrderItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	// The groups must partition the item set exactly: every item in exactly
	// one group, nothing missing, nothing duplicated, nothing unknown.
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, g := range groups {
		if len(g.ItemIDs) == 0 {
			return nil, fault.InvariantViolation("split group must name at least one item")
		}
		for _, itemID := range g.ItemIDs {
			if _, ok := byID[itemID]; !ok {
				return nil, fault.InvariantViolation("item %s does not belong to order %s", itemID.String(), parent.OrderNumber)
			}
			if _, dup := seen[itemID]; dup {
				return nil, fault.InvariantViolation("item %s appears in more than one split group", itemID.String())
			}
			seen[itemID] = struct{}{}
		}
	}
	if len(seen) != len(items) {
		return nil, fault.InvariantViolation("split groups cover %d of %d items", len(seen), len(items))
	}

	children := make([]*order.Order, 0, len(groups))
	var createdItems []*order.OrderItem
	for i, g := range groups {
		child := order.NewOrder()
		child.OrderNumber = splitOrderNumber(parent.OrderNumber, i+1)
		child.OrderType = parent.OrderType
		child.ParentOrderID = &parent.ID
		splitNumber := i + 1
		child.SplitNumber = &splitNumber
		child.CashierID = parent.CashierID
		child.BranchID = parent.BranchID
		child.CustomerName = g.CustomerName

		childItems := make([]*order.OrderItem, 0, len(g.ItemIDs))
		for _, itemID := range g.ItemIDs {
			childItems = append(childItems, byID[itemID].CopyForSplit(child.ID))
		}
		child.Recalculate(childItems)

		child.BeforeCreate()
		if err := c.orders.Create(ctx, child); err != nil {
			c.rollbackSplit(ctx, children, createdItems)
			return nil, fault.Wrap(fault.KindUnknown, err, "cannot create split order %d", i+1)
		}
		children = append(children, child)

		for _, item := range childItems {
			item.BeforeCreate()
			if err := c.items.Create(ctx, item); err != nil {
				c.rollbackSplit(ctx, children, createdItems)
				return nil, fault.Wrap(fault.KindUnknown, err, "cannot copy items for split order %d", i+1)
			}
			createdItems = append(createdItems, item)
		}
	}

	// Conservation: the children's subtotals must add up to the parent's.
	var childSubtotal float64
	for _, child := range children {
		childSubtotal += child.Subtotal
	}
	if pricing.Round2(childSubtotal) != parent.Subtotal {
		c.rollbackSplit(ctx, children, createdItems)
		return nil, fault.InvariantViolation("split subtotals %.2f do not match original %.2f", childSubtotal, parent.Subtotal)
	}

	if err := parent.MarkSplit(); err != nil {
		c.rollbackSplit(ctx, children, createdItems)
		return nil, err
	}
	if err := c.orders.Save(ctx, parent); err != nil {
		c.rollbackSplit(ctx, children, createdItems)
		return nil, err
	}

	childIDs := make([]uuid.UUID, 0, len(children))
	for _, child := range children {
		childIDs = append(childIDs, child.ID)
	}
	c.publishOrderSplit(ctx, parent.ID, childIDs)
	c.logger.Info("order split", "order_id", parent.ID.String(), "children", len(children))
	return children, nil
}

// Helpers

func (c *Coordinator) countItems(ctx context.Context, orderID uuid.UUID) (int, error) {
	items, err := c.items.ListByOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (c *Coordinator) revertTable(ctx context.Context, table *tables.Table, op string) {
	if err := table.FreeForTransfer(); err != nil {
		c.logger.Error("cannot revert table", "error", err, "table_id", table.ID.String(), "op", op)
		return
	}
	if err := c.tables.Save(ctx, table); err != nil {
		c.logger.Error("cannot save reverted table", "error", err, "table_id", table.ID.String(), "op", op)
	}
}

// compensateReassign undoes item moves for absorbed orders up to (and
// excluding) failedAt. With uuid.Nil everything is undone.
func (c *Coordinator) compensateReassign(ctx context.Context, absorbed []*order.Order, survivorID, failedAt uuid.UUID) {
	for _, o := range absorbed {
		if o.ID == failedAt {
			return
		}
		// Moving items back relies on each absorbed order's items having
		// been re-parented as a block; orphans are logged, not hidden.
		if err := c.reassignBack(ctx, survivorID, o.ID); err != nil {
			c.logger.Error("cannot undo item move", "error", err, "order_id", o.ID.String())
		}
	}
}

// reassignBack is best-effort: item provenance is not tracked on the line,
// so the whole block moves back to the absorbed order.
func (c *Coordinator) reassignBack(ctx context.Context, survivorID, originalID uuid.UUID) error {
	return c.items.ReassignOrder(ctx, survivorID, originalID)
}

func (c *Coordinator) rollbackSplit(ctx context.Context, children []*order.Order, items []*order.OrderItem) {
	for _, item := range items {
		if err := c.items.Delete(ctx, item.ID); err != nil {
			c.logger.Error("cannot roll back split item", "error", err, "item_id", item.ID.String())
		}
	}
	for _, child := range children {
		if err := c.orders.Delete(ctx, child.ID); err != nil {
			c.logger.Error("cannot roll back split order", "error", err, "order_id", child.ID.String())
		}
	}
}

func splitOrderNumber(parentNumber string, splitNumber int) string {
	return fmt.Sprintf("%s-S%d", parentNumber, splitNumber)
}

// Event publishing

func (c *Coordinator) publishTableChanged(ctx context.Context, orderID, fromTable, toTable uuid.UUID) {
	if c.publisher == nil {
		return
	}
	evt := event.TableChanged{
		OrderID:    orderID,
		FromTable:  fromTable,
		ToTable:    toTable,
		OccurredAt: time.Now().UTC(),
	}
	c.publish(ctx, event.TopicTableChanged, evt)
}

func (c *Coordinator) publishOrderMerged(ctx context.Context, survivorID uuid.UUID, absorbedIDs []uuid.UUID, targetTableID uuid.UUID) {
	if c.publisher == nil {
		return
	}
	evt := event.OrderMerged{
		TargetOrderID:    survivorID,
		AbsorbedOrderIDs: absorbedIDs,
		TargetTableID:    targetTableID,
		OccurredAt:       time.Now().UTC(),
	}
	c.publish(ctx, event.TopicOrderMerged, evt)
}

func (c *Coordinator) publishOrderSplit(ctx context.Context, parentID uuid.UUID, childIDs []uuid.UUID) {
	if c.publisher == nil {
		return
	}
	evt := event.OrderSplit{
		ParentOrderID: parentID,
		SplitOrderIDs: childIDs,
		OccurredAt:    time.Now().UTC(),
	}
	c.publish(ctx, event.TopicOrderSplit, evt)
}

func (c *Coordinator) publish(ctx context.Context, topic string, evt any) {
	payload, err := json.Marshal(evt)
	if err != nil {
		c.logger.Error("cannot marshal event", "error", err, "topic", topic)
		return
	}
	if err := c.publisher.Publish(ctx, topic, payload); err != nil {
		c.logger.Error("cannot publish event", "error", err, "topic", topic)
	}
}

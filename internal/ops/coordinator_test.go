package ops

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/appetiteclub/fulfillment/internal/fault"
	"github.com/appetiteclub/fulfillment/internal/order"
	"github.com/appetiteclub/fulfillment/internal/tables"
	"github.com/appetiteclub/fulfillment/pkg/enums/orderstatus"
	"github.com/appetiteclub/fulfillment/pkg/enums/tablestatus"
)

type fixture struct {
	coord     *Coordinator
	orders    *MockOrderRepo
	items     *MockItemRepo
	tableRepo *MockTableRepo
	pub       *MockPublisher
}

func newFixture() *fixture {
	orders := NewMockOrderRepo()
	items := NewMockItemRepo()
	tableRepo := NewMockTableRepo()
	pub := NewMockPublisher()
	return &fixture{
		coord:     NewCoordinator(orders, items, tableRepo, pub, nil),
		orders:    orders,
		items:     items,
		tableRepo: tableRepo,
		pub:       pub,
	}
}

func (f *fixture) table(t *testing.T, number string) *tables.Table {
	t.Helper()
	table := tables.NewTable()
	table.Number = number
	table.Capacity = 4
	if err := f.tableRepo.Create(context.Background(), table); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return table
}

// seatedOrder creates a pending order seated at a fresh table with the given
// line totals (unit price x qty, no discounts).
func (f *fixture) seatedOrder(t *testing.T, number string, tableNumber string, lines ...float64) (*order.Order, *tables.Table) {
	t.Helper()
	ctx := context.Background()

	table := f.table(t, tableNumber)

	o := order.NewOrder()
	o.OrderNumber = number
	if err := table.Assign(o.ID); err != nil {
		t.Fatalf("assign table: %v", err)
	}
	if err := f.tableRepo.Save(ctx, table); err != nil {
		t.Fatalf("save table: %v", err)
	}
	o.TableID = &table.ID
	o.TableNumber = table.Number

	items := make([]*order.OrderItem, 0, len(lines))
	for i, price := range lines {
		item := order.NewOrderItem()
		item.OrderID = o.ID
		item.Name = fmt.Sprintf("Item %d", i+1)
		item.Quantity = 1
		item.UnitPrice = price
		item.Recalculate()
		if err := f.items.Create(ctx, item); err != nil {
			t.Fatalf("create item: %v", err)
		}
		items = append(items, item)
	}
	o.Recalculate(items)

	if err := f.orders.Create(ctx, o); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o, table
}

func TestChangeTable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o, oldTable := f.seatedOrder(t, "ORD-1", "T1", 10, 5)
	newTable := f.table(t, "T2")

	moved, err := f.coord.ChangeTable(ctx, o.ID, newTable.ID)
	if err != nil {
		t.Fatalf("change table: %v", err)
	}

	if moved.TableID == nil || *moved.TableID != newTable.ID {
		t.Error("order does not reference the new table")
	}
	if moved.TableNumber != "T2" {
		t.Errorf("table number = %s, want T2", moved.TableNumber)
	}
	if moved.Total != 15.00 {
		t.Errorf("total = %.2f, want 15.00 (unchanged)", moved.Total)
	}

	storedOld, _ := f.tableRepo.Get(ctx, oldTable.ID)
	if storedOld.Status != tablestatus.Statuses.Available.Name {
		t.Errorf("old table status = %s, want available", storedOld.Status)
	}
	if storedOld.CurrentOrderID != nil {
		t.Error("old table still references the order")
	}

	storedNew, _ := f.tableRepo.Get(ctx, newTable.ID)
	if storedNew.Status != tablestatus.Statuses.Occupied.Name {
		t.Errorf("new table status = %s, want occupied", storedNew.Status)
	}
	if storedNew.CurrentOrderID == nil || *storedNew.CurrentOrderID != o.ID {
		t.Error("new table does not reference the order")
	}

	if len(f.pub.Published["table.changed"]) != 1 {
		t.Errorf("table changed events = %d, want 1", len(f.pub.Published["table.changed"]))
	}
}

func TestChangeTableRejectsOccupiedTarget(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o, oldTable := f.seatedOrder(t, "ORD-2", "T1", 10)
	other, otherTable := f.seatedOrder(t, "ORD-3", "T2", 20)
	_ = other

	_, err := f.coord.ChangeTable(ctx, o.ID, otherTable.ID)
	if !fault.IsInvalidTransition(err) {
		t.Fatalf("err = %v, want invalid transition", err)
	}

	// Nothing moved.
	storedOld, _ := f.tableRepo.Get(ctx, oldTable.ID)
	if storedOld.Status != tablestatus.Statuses.Occupied.Name {
		t.Errorf("old table status = %s, want occupied (unchanged)", storedOld.Status)
	}
}

func TestChangeTableRejectsReservedTarget(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o, oldTable := f.seatedOrder(t, "ORD-22", "T1", 10)
	reserved := f.table(t, "T2")
	reserved.Status = tablestatus.Statuses.Reserved.Name
	if err := f.tableRepo.Save(ctx, reserved); err != nil {
		t.Fatalf("save table: %v", err)
	}

	_, err := f.coord.ChangeTable(ctx, o.ID, reserved.ID)
	if !fault.IsInvalidTransition(err) {
		t.Fatalf("err = %v, want invalid transition", err)
	}

	// The reserved hold survives and the order stays put.
	storedReserved, _ := f.tableRepo.Get(ctx, reserved.ID)
	if storedReserved.Status != tablestatus.Statuses.Reserved.Name {
		t.Errorf("reserved table status = %s, want reserved (unchanged)", storedReserved.Status)
	}
	storedOld, _ := f.tableRepo.Get(ctx, oldTable.ID)
	if storedOld.Status != tablestatus.Statuses.Occupied.Name {
		t.Errorf("old table status = %s, want occupied (unchanged)", storedOld.Status)
	}
	stored, _ := f.orders.Get(ctx, o.ID)
	if stored.TableID == nil || *stored.TableID != oldTable.ID {
		t.Error("order moved off its table")
	}
}

func TestChangeTableRejectsCompletedOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o, _ := f.seatedOrder(t, "ORD-4", "T1", 10)
	if err := o.MarkCompleted(); err != nil {
		t.Fatalf("complete order: %v", err)
	}
	newTable := f.table(t, "T2")

	_, err := f.coord.ChangeTable(ctx, o.ID, newTable.ID)
	if !fault.IsInvalidTransition(err) {
		t.Fatalf("err = %v, want invalid transition", err)
	}
}

func TestMergeTables(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, tableA := f.seatedOrder(t, "ORD-5", "T1", 10, 5)
	b, tableB := f.seatedOrder(t, "ORD-6", "T2", 20)
	c, tableC := f.seatedOrder(t, "ORD-7", "T3", 7.50)

	survivor, err := f.coord.MergeTables(ctx, []uuid.UUID{a.ID, b.ID, c.ID}, tableA.ID)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	if survivor.ID != a.ID {
		t.Error("survivor is not the first source order")
	}
	if survivor.Total != 42.50 {
		t.Errorf("total = %.2f, want 42.50", survivor.Total)
	}
	if survivor.Subtotal != 42.50 {
		t.Errorf("subtotal = %.2f, want 42.50", survivor.Subtotal)
	}

	items, _ := f.items.ListByOrder(ctx, survivor.ID)
	if len(items) != 4 {
		t.Errorf("survivor items = %d, want 4", len(items))
	}

	// Absorbed orders are gone.
	if _, err := f.orders.Get(ctx, b.ID); err == nil {
		t.Error("absorbed order still exists")
	}
	if _, err := f.orders.Get(ctx, c.ID); err == nil {
		t.Error("absorbed order still exists")
	}

	// Source tables freed, target still occupied by the survivor.
	storedB, _ := f.tableRepo.Get(ctx, tableB.ID)
	if storedB.Status != tablestatus.Statuses.Available.Name {
		t.Errorf("table B status = %s, want available", storedB.Status)
	}
	storedC, _ := f.tableRepo.Get(ctx, tableC.ID)
	if storedC.Status != tablestatus.Statuses.Available.Name {
		t.Errorf("table C status = %s, want available", storedC.Status)
	}
	storedA, _ := f.tableRepo.Get(ctx, tableA.ID)
	if storedA.Status != tablestatus.Statuses.Occupied.Name {
		t.Errorf("table A status = %s, want occupied", storedA.Status)
	}
	if storedA.CurrentOrderID == nil || *storedA.CurrentOrderID != survivor.ID {
		t.Error("target table does not reference the survivor")
	}

	if len(f.pub.Published["order.merged"]) != 1 {
		t.Errorf("merged events = %d, want 1", len(f.pub.Published["order.merged"]))
	}
}

func TestMergeOntoFreshTable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, tableA := f.seatedOrder(t, "ORD-8", "T1", 10)
	b, tableB := f.seatedOrder(t, "ORD-9", "T2", 20)
	target := f.table(t, "T9")

	survivor, err := f.coord.MergeTables(ctx, []uuid.UUID{a.ID, b.ID}, target.ID)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	storedTarget, _ := f.tableRepo.Get(ctx, target.ID)
	if storedTarget.Status != tablestatus.Statuses.Occupied.Name {
		t.Errorf("target status = %s, want occupied", storedTarget.Status)
	}
	if storedTarget.CurrentOrderID == nil || *storedTarget.CurrentOrderID != survivor.ID {
		t.Error("target does not reference the survivor")
	}

	for _, id := range []uuid.UUID{tableA.ID, tableB.ID} {
		stored, _ := f.tableRepo.Get(ctx, id)
		if stored.Status != tablestatus.Statuses.Available.Name {
			t.Errorf("source table status = %s, want available", stored.Status)
		}
	}
}

func TestMergeRejectsUnrelatedTargetOccupant(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, _ := f.seatedOrder(t, "ORD-10", "T1", 10)
	b, _ := f.seatedOrder(t, "ORD-11", "T2", 20)
	_, busyTable := f.seatedOrder(t, "ORD-12", "T3", 30)

	_, err := f.coord.MergeTables(ctx, []uuid.UUID{a.ID, b.ID}, busyTable.ID)
	if !fault.IsInvalidTransition(err) {
		t.Fatalf("err = %v, want invalid transition", err)
	}
}

func TestMergeRejectsNonPendingSource(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, tableA := f.seatedOrder(t, "ORD-13", "T1", 10)
	b, _ := f.seatedOrder(t, "ORD-14", "T2", 20)
	if err := b.MarkCompleted(); err != nil {
		t.Fatalf("complete order: %v", err)
	}

	_, err := f.coord.MergeTables(ctx, []uuid.UUID{a.ID, b.ID}, tableA.ID)
	if !fault.IsInvalidTransition(err) {
		t.Fatalf("err = %v, want invalid transition", err)
	}

	// No items moved.
	items, _ := f.items.ListByOrder(ctx, a.ID)
	if len(items) != 1 {
		t.Errorf("order A items = %d, want 1 (unchanged)", len(items))
	}
}

func TestMergeRequiresTwoOrders(t *testing.T) {
	f := newFixture()

	a, tableA := f.seatedOrder(t, "ORD-15", "T1", 10)
	_, err := f.coord.MergeTables(context.Background(), []uuid.UUID{a.ID}, tableA.ID)
	if !fault.IsValidation(err) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestSplitBill(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o, table := f.seatedOrder(t, "ORD-16", "T1", 10, 5, 7.50)
	items, _ := f.items.ListByOrder(ctx, o.ID)
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}

	groups := []SplitGroup{
		{ItemIDs: []uuid.UUID{items[0].ID, items[1].ID}, CustomerName: "Ana"},
		{ItemIDs: []uuid.UUID{items[2].ID}, CustomerName: "Luis"},
	}

	children, err := f.coord.SplitBill(ctx, o.ID, groups)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("children = %d, want 2", len(children))
	}

	var total float64
	for i, child := range children {
		if child.ParentOrderID == nil || *child.ParentOrderID != o.ID {
			t.Error("child does not reference the parent")
		}
		if child.SplitNumber == nil || *child.SplitNumber != i+1 {
			t.Errorf("child split number = %v, want %d", child.SplitNumber, i+1)
		}
		if child.TableID != nil {
			t.Error("split child should not hold a table")
		}
		total += child.Subtotal

		childItems, _ := f.items.ListByOrder(ctx, child.ID)
		if len(childItems) != len(groups[i].ItemIDs) {
			t.Errorf("child %d items = %d, want %d", i+1, len(childItems), len(groups[i].ItemIDs))
		}
	}
	if total != o.Subtotal {
		t.Errorf("children subtotal sum = %.2f, want %.2f", total, o.Subtotal)
	}

	// Parent archived as a completed split; its items and table untouched.
	parent, _ := f.orders.Get(ctx, o.ID)
	if parent.Status != orderstatus.Statuses.Completed.Name {
		t.Errorf("parent status = %s, want completed", parent.Status)
	}
	if !parent.IsSplit {
		t.Error("parent split flag not set")
	}
	parentItems, _ := f.items.ListByOrder(ctx, o.ID)
	if len(parentItems) != 3 {
		t.Errorf("parent items = %d, want 3 (copied, not moved)", len(parentItems))
	}
	storedTable, _ := f.tableRepo.Get(ctx, table.ID)
	if storedTable.Status != tablestatus.Statuses.Occupied.Name {
		t.Errorf("table status = %s, want occupied (floor releases later)", storedTable.Status)
	}

	if len(f.pub.Published["order.split"]) != 1 {
		t.Errorf("split events = %d, want 1", len(f.pub.Published["order.split"]))
	}
}

func TestSplitRejectsPartialPartition(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o, _ := f.seatedOrder(t, "ORD-17", "T1", 10, 5, 7.50)
	items, _ := f.items.ListByOrder(ctx, o.ID)

	// Third item left out of every group.
	groups := []SplitGroup{
		{ItemIDs: []uuid.UUID{items[0].ID}},
		{ItemIDs: []uuid.UUID{items[1].ID}},
	}

	_, err := f.coord.SplitBill(ctx, o.ID, groups)
	if !fault.IsInvariantViolation(err) {
		t.Fatalf("err = %v, want invariant violation", err)
	}

	parent, _ := f.orders.Get(ctx, o.ID)
	if parent.Status != orderstatus.Statuses.Pending.Name {
		t.Errorf("parent status = %s, want pending (unchanged)", parent.Status)
	}
}

func TestSplitRejectsDuplicatedItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o, _ := f.seatedOrder(t, "ORD-18", "T1", 10, 5)
	items, _ := f.items.ListByOrder(ctx, o.ID)

	groups := []SplitGroup{
		{ItemIDs: []uuid.UUID{items[0].ID, items[1].ID}},
		{ItemIDs: []uuid.UUID{items[1].ID}},
	}

	_, err := f.coord.SplitBill(ctx, o.ID, groups)
	if !fault.IsInvariantViolation(err) {
		t.Fatalf("err = %v, want invariant violation", err)
	}
}

func TestSplitRejectsForeignItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o, _ := f.seatedOrder(t, "ORD-19", "T1", 10)
	other, _ := f.seatedOrder(t, "ORD-20", "T2", 20)
	items, _ := f.items.ListByOrder(ctx, o.ID)
	foreign, _ := f.items.ListByOrder(ctx, other.ID)

	groups := []SplitGroup{
		{ItemIDs: []uuid.UUID{items[0].ID}},
		{ItemIDs: []uuid.UUID{foreign[0].ID}},
	}

	_, err := f.coord.SplitBill(ctx, o.ID, groups)
	if !fault.IsInvariantViolation(err) {
		t.Fatalf("err = %v, want invariant violation", err)
	}
}

func TestSplitRollsBackOnCreateFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o, _ := f.seatedOrder(t, "ORD-21", "T1", 10, 5)
	items, _ := f.items.ListByOrder(ctx, o.ID)

	created := 0
	f.orders.CreateFunc = func(ctx context.Context, child *order.Order) error {
		if created >= 1 {
			return fmt.Errorf("write failed")
		}
		created++
		f.orders.orders[child.ID] = child
		return nil
	}

	groups := []SplitGroup{
		{ItemIDs: []uuid.UUID{items[0].ID}},
		{ItemIDs: []uuid.UUID{items[1].ID}},
	}

	if _, err := f.coord.SplitBill(ctx, o.ID, groups); err == nil {
		t.Fatal("expected split to fail")
	}

	// Only the parent remains.
	if f.orders.Count() != 1 {
		t.Errorf("orders = %d, want 1 after rollback", f.orders.Count())
	}
	parentItems, _ := f.items.ListByOrder(ctx, o.ID)
	if len(parentItems) != 2 {
		t.Errorf("parent items = %d, want 2", len(parentItems))
	}
}

package ops

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/appetiteclub/fulfillment/internal/order"
	"github.com/appetiteclub/fulfillment/internal/tables"
)

// MockPublisher is a mock implementation of events.Publisher for testing
type MockPublisher struct {
	mu        sync.Mutex
	Published map[string][][]byte
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Published: make(map[string][][]byte),
	}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published[topic] = append(m.Published[topic], msg)
	return nil
}

// MockOrderRepo is a map-backed order.Repo for testing
type MockOrderRepo struct {
	mu         sync.RWMutex
	orders     map[uuid.UUID]*order.Order
	CreateFunc func(ctx context.Context, o *order.Order) error
	SaveFunc   func(ctx context.Context, o *order.Order) error
	DeleteFunc func(ctx context.Context, id uuid.UUID) error
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{
		orders: make(map[uuid.UUID]*order.Order),
	}
}

func (m *MockOrderRepo) Create(ctx context.Context, o *order.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return nil
}

func (m *MockOrderRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order not found")
	}
	return o, nil
}

func (m *MockOrderRepo) Save(ctx context.Context, o *order.Order) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return nil
}

func (m *MockOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, id)
	return nil
}

func (m *MockOrderRepo) List(ctx context.Context) ([]*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*order.Order
	for _, o := range m.orders {
		result = append(result, o)
	}
	return result, nil
}

func (m *MockOrderRepo) ListByStatus(ctx context.Context, status string) ([]*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*order.Order
	for _, o := range m.orders {
		if o.Status == status {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *MockOrderRepo) ListByTable(ctx context.Context, tableID uuid.UUID) ([]*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*order.Order
	for _, o := range m.orders {
		if o.TableID != nil && *o.TableID == tableID {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *MockOrderRepo) ListVoided(ctx context.Context) ([]*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*order.Order
	for _, o := range m.orders {
		if o.IsVoided {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *MockOrderRepo) ListByCashierBetween(ctx context.Context, cashierID uuid.UUID, from, to time.Time) ([]*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	within := func(ts *time.Time) bool {
		return ts != nil && !ts.Before(from) && ts.Before(to)
	}
	var result []*order.Order
	for _, o := range m.orders {
		if o.CashierID == nil || *o.CashierID != cashierID {
			continue
		}
		if !within(&o.CreatedAt) && !within(o.CompletedAt) && !within(o.VoidedAt) {
			continue
		}
		result = append(result, o)
	}
	return result, nil
}

func (m *MockOrderRepo) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

// MockItemRepo is a map-backed order.ItemRepo for testing
type MockItemRepo struct {
	mu           sync.RWMutex
	items        map[uuid.UUID]*order.OrderItem
	CreateFunc   func(ctx context.Context, item *order.OrderItem) error
	ReassignFunc func(ctx context.Context, fromOrderID, toOrderID uuid.UUID) error
}

func NewMockItemRepo() *MockItemRepo {
	return &MockItemRepo{
		items: make(map[uuid.UUID]*order.OrderItem),
	}
}

func (m *MockItemRepo) Create(ctx context.Context, item *order.OrderItem) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, item)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
	return nil
}

func (m *MockItemRepo) Get(ctx context.Context, id uuid.UUID) (*order.OrderItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("order item not found")
	}
	return item, nil
}

func (m *MockItemRepo) Save(ctx context.Context, item *order.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
	return nil
}

func (m *MockItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *MockItemRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*order.OrderItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*order.OrderItem
	for _, item := range m.items {
		if item.OrderID == orderID {
			result = append(result, item)
		}
	}
	return result, nil
}

func (m *MockItemRepo) ReassignOrder(ctx context.Context, fromOrderID, toOrderID uuid.UUID) error {
	if m.ReassignFunc != nil {
		return m.ReassignFunc(ctx, fromOrderID, toOrderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.OrderID == fromOrderID {
			item.OrderID = toOrderID
		}
	}
	return nil
}

// MockTableRepo is a map-backed tables.Repo for testing
type MockTableRepo struct {
	mu       sync.RWMutex
	tables   map[uuid.UUID]*tables.Table
	SaveFunc func(ctx context.Context, table *tables.Table) error
}

func NewMockTableRepo() *MockTableRepo {
	return &MockTableRepo{
		tables: make(map[uuid.UUID]*tables.Table),
	}
}

func (m *MockTableRepo) Create(ctx context.Context, table *tables.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table.ID] = table
	return nil
}

func (m *MockTableRepo) Get(ctx context.Context, id uuid.UUID) (*tables.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	table, ok := m.tables[id]
	if !ok {
		return nil, fmt.Errorf("table not found")
	}
	return table, nil
}

func (m *MockTableRepo) Save(ctx context.Context, table *tables.Table) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, table)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table.ID] = table
	return nil
}

func (m *MockTableRepo) List(ctx context.Context) ([]*tables.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*tables.Table
	for _, t := range m.tables {
		result = append(result, t)
	}
	return result, nil
}

func (m *MockTableRepo) ListByStatus(ctx context.Context, status string) ([]*tables.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*tables.Table
	for _, t := range m.tables {
		if t.Status == status {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *MockTableRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, id)
	return nil
}

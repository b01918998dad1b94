package shift

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/appetiteclub/fulfillment/internal/order"
)

// MockRepo is a map-backed Repo for testing
type MockRepo struct {
	mu     sync.RWMutex
	shifts map[uuid.UUID]*Shift
}

func NewMockRepo() *MockRepo {
	return &MockRepo{
		shifts: make(map[uuid.UUID]*Shift),
	}
}

func (m *MockRepo) Create(ctx context.Context, s *Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts[s.ID] = s
	return nil
}

func (m *MockRepo) Get(ctx context.Context, id uuid.UUID) (*Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.shifts[id]
	if !ok {
		return nil, fmt.Errorf("shift not found")
	}
	return s, nil
}

func (m *MockRepo) Save(ctx context.Context, s *Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts[s.ID] = s
	return nil
}

func (m *MockRepo) List(ctx context.Context) ([]*Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Shift
	for _, s := range m.shifts {
		result = append(result, s)
	}
	return result, nil
}

func (m *MockRepo) ListByCashier(ctx context.Context, cashierID uuid.UUID) ([]*Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Shift
	for _, s := range m.shifts {
		if s.CashierID == cashierID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *MockRepo) GetOpenByCashier(ctx context.Context, cashierID uuid.UUID) (*Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.shifts {
		if s.CashierID == cashierID && s.Status == StatusOpen {
			return s, nil
		}
	}
	return nil, nil
}

// MockOrderRepo is a map-backed order.Repo for testing
type MockOrderRepo struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*order.Order
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{
		orders: make(map[uuid.UUID]*order.Order),
	}
}

func (m *MockOrderRepo) Create(ctx context.Context, o *order.Order) error {
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
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return nil
}

func (m *MockOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
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

// MockItemRepo is a map-backed order.ItemRepo for testing
type MockItemRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*order.OrderItem
}

func NewMockItemRepo() *MockItemRepo {
	return &MockItemRepo{
		items: make(map[uuid.UUID]*order.OrderItem),
	}
}

func (m *MockItemRepo) Create(ctx context.Context, item *order.OrderItem) error {
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
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.OrderID == fromOrderID {
			item.OrderID = toOrderID
		}
	}
	return nil
}

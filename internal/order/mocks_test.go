package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/appetiteclub/fulfillment/internal/catalog"
	"github.com/appetiteclub/fulfillment/internal/tables"
)

// MockPublisher is a mock implementation of events.Publisher for testing
type MockPublisher struct {
	mu          sync.Mutex
	Published   map[string][][]byte
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Published: make(map[string][][]byte),
	}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published[topic] = append(m.Published[topic], msg)
	return nil
}

// MockOrderRepo is a mock implementation of Repo for testing
type MockOrderRepo struct {
	mu         sync.RWMutex
	orders     map[uuid.UUID]*Order
	CreateFunc func(ctx context.Context, order *Order) error
	GetFunc    func(ctx context.Context, id uuid.UUID) (*Order, error)
	SaveFunc   func(ctx context.Context, order *Order) error
	DeleteFunc func(ctx context.Context, id uuid.UUID) error
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{
		orders: make(map[uuid.UUID]*Order),
	}
}

func (m *MockOrderRepo) Create(ctx context.Context, order *Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

// Count returns the number of stored orders.
func (m *MockOrderRepo) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

func (m *MockOrderRepo) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order not found")
	}
	return order, nil
}

func (m *MockOrderRepo) Save(ctx context.Context, order *Order) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
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

func (m *MockOrderRepo) List(ctx context.Context) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Order
	for _, o := range m.orders {
		result = append(result, o)
	}
	return result, nil
}

func (m *MockOrderRepo) ListByStatus(ctx context.Context, status string) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Order
	for _, o := range m.orders {
		if o.Status == status {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *MockOrderRepo) ListByTable(ctx context.Context, tableID uuid.UUID) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Order
	for _, o := range m.orders {
		if o.TableID != nil && *o.TableID == tableID {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *MockOrderRepo) ListVoided(ctx context.Context) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Order
	for _, o := range m.orders {
		if o.IsVoided {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *MockOrderRepo) ListByCashierBetween(ctx context.Context, cashierID uuid.UUID, from, to time.Time) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Order
	for _, o := range m.orders {
		if o.CashierID == nil || *o.CashierID != cashierID {
			continue
		}
		if o.CreatedAt.Before(from) || o.CreatedAt.After(to) {
			continue
		}
		result = append(result, o)
	}
	return result, nil
}

// MockItemRepo is a mock implementation of ItemRepo for testing
type MockItemRepo struct {
	mu         sync.RWMutex
	items      map[uuid.UUID]*OrderItem
	CreateFunc func(ctx context.Context, item *OrderItem) error
	SaveFunc   func(ctx context.Context, item *OrderItem) error
}

func NewMockItemRepo() *MockItemRepo {
	return &MockItemRepo{
		items: make(map[uuid.UUID]*OrderItem),
	}
}

func (m *MockItemRepo) Create(ctx context.Context, item *OrderItem) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, item)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
	return nil
}

func (m *MockItemRepo) Get(ctx context.Context, id uuid.UUID) (*OrderItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("order item not found")
	}
	return item, nil
}

func (m *MockItemRepo) Save(ctx context.Context, item *OrderItem) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, item)
	}
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

func (m *MockItemRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*OrderItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*OrderItem
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

// MockCatalog resolves products from a fixed map
type MockCatalog struct {
	Products map[uuid.UUID]mockProduct
}

type mockProduct struct {
	Name        string
	SKU         string
	Price       float64
	Station     string
	PrepMinutes int
	ProductType string
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		Products: make(map[uuid.UUID]mockProduct),
	}
}

func (m *MockCatalog) Add(id uuid.UUID, name string, price float64, station string, prepMinutes int) {
	productType := "menu_item"
	if station == "" {
		productType = "retail"
	}
	m.Products[id] = mockProduct{
		Name:        name,
		SKU:         "SKU-" + name,
		Price:       price,
		Station:     station,
		PrepMinutes: prepMinutes,
		ProductType: productType,
	}
}

func (m *MockCatalog) Resolve(ctx context.Context, id uuid.UUID, productType string) (catalog.ProductSnapshot, error) {
	p, ok := m.Products[id]
	if !ok {
		return catalog.ProductSnapshot{}, fmt.Errorf("product %s not found", id.String())
	}
	return catalog.ProductSnapshot{
		ProductID:    id,
		ProductType:  p.ProductType,
		Name:         p.Name,
		SKU:          p.SKU,
		SellingPrice: p.Price,
		Station:      p.Station,
		PrepMinutes:  p.PrepMinutes,
	}, nil
}

package kitchen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/fulfillment/internal/order"
)

// MockStreamConsumer is a test mock for events.StreamConsumer
type MockStreamConsumer struct {
	messages  []events.StreamMessage
	FetchFunc func(ctx context.Context, maxMessages int) ([]events.StreamMessage, error)
}

func NewMockStreamConsumer() *MockStreamConsumer {
	return &MockStreamConsumer{
		messages: make([]events.StreamMessage, 0),
	}
}

func (m *MockStreamConsumer) Fetch(ctx context.Context, maxMessages int) ([]events.StreamMessage, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, maxMessages)
	}
	return m.messages, nil
}

func (m *MockStreamConsumer) SubscribeStream(ctx context.Context, handler events.HandlerFunc) error {
	return nil
}

func (m *MockStreamConsumer) AddMessage(data []byte) {
	m.messages = append(m.messages, events.StreamMessage{Data: data})
}

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

// MockRepository is a map-backed Repository for testing
type MockRepository struct {
	mu         sync.RWMutex
	tickets    map[uuid.UUID]*Ticket
	CreateFunc func(ctx context.Context, ticket *Ticket) error
	SaveFunc   func(ctx context.Context, ticket *Ticket) error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		tickets: make(map[uuid.UUID]*Ticket),
	}
}

func (m *MockRepository) Create(ctx context.Context, ticket *Ticket) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, ticket)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[ticket.ID] = ticket
	return nil
}

func (m *MockRepository) Get(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket not found")
	}
	return ticket, nil
}

func (m *MockRepository) Save(ctx context.Context, ticket *Ticket) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, ticket)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[ticket.ID] = ticket
	return nil
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tickets, id)
	return nil
}

func (m *MockRepository) List(ctx context.Context, filter TicketFilter) ([]Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []Ticket
	for _, t := range m.tickets {
		if filter.Station != "" && t.Station != filter.Station {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.OrderID != nil && t.OrderID != *filter.OrderID {
			continue
		}
		result = append(result, *t)
	}
	return result, nil
}

func (m *MockRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Ticket
	for _, t := range m.tickets {
		if t.OrderID == orderID {
			result = append(result, t)
		}
	}
	return result, nil
}

// Count returns the number of stored tickets.
func (m *MockRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tickets)
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
	return nil, nil
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

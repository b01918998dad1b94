package event

import (
	"time"

	"github.com/google/uuid"
)

// Topics for kitchen ticket lifecycle events.
const (
	TopicKitchenTicketRouted    = "kitchen.ticket.routed"
	TopicKitchenTicketStarted   = "kitchen.ticket.started"
	TopicKitchenTicketReady     = "kitchen.ticket.ready"
	TopicKitchenTicketServed    = "kitchen.ticket.served"
	TopicKitchenTicketBumped    = "kitchen.ticket.bumped"
	TopicKitchenTicketRecalled  = "kitchen.ticket.recalled"
	TopicKitchenTicketCancelled = "kitchen.ticket.cancelled"
	TopicKitchenTicketPriority  = "kitchen.ticket.priority"
)

// KitchenTicketMetadata carries the fields common to every kitchen ticket
// event. EventType mirrors the topic so replayed stream messages can be
// dispatched without their subject.
type KitchenTicketMetadata struct {
	EventType  string    `json:"event_type"`
	TicketID   uuid.UUID `json:"ticket_id"`
	OrderID    uuid.UUID `json:"order_id"`
	Station    string    `json:"station"`
	Status     string    `json:"status"`
	Priority   int       `json:"priority"`
	OccurredAt time.Time `json:"occurred_at"`
}

// KitchenTicketRouted is emitted when an order item group is dispatched to a station.
type KitchenTicketRouted struct {
	KitchenTicketMetadata
	TableNumber   string `json:"table_number,omitempty"`
	ItemCount     int    `json:"item_count"`
	EstimatedTime int    `json:"estimated_time"`
}

// KitchenTicketStatusChanged is emitted for every ticket state transition.
// StartedAt and EstimatedTime ride along so a replayed stream can rebuild
// the delayed predicate without reading the store.
type KitchenTicketStatusChanged struct {
	KitchenTicketMetadata
	PreviousStatus string     `json:"previous_status"`
	ActualTime     *int       `json:"actual_time,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EstimatedTime  int        `json:"estimated_time,omitempty"`
}

// KitchenTicketPriorityChanged is emitted when a ticket priority is adjusted.
type KitchenTicketPriorityChanged struct {
	KitchenTicketMetadata
	PreviousPriority int `json:"previous_priority"`
}

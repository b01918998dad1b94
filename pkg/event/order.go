package event

import (
	"time"

	"github.com/google/uuid"
)

// Topics for order and table lifecycle events.
const (
	TopicOrderCreated   = "order.created"
	TopicOrderCompleted = "order.completed"
	TopicOrderVoided    = "order.voided"
	TopicOrderMerged    = "order.merged"
	TopicOrderSplit     = "order.split"
	TopicTableChanged   = "table.changed"
	TopicTableReleased  = "table.released"
)

// OrderCreated is emitted when a new order is opened.
type OrderCreated struct {
	OrderID     uuid.UUID  `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	TableID     *uuid.UUID `json:"table_id,omitempty"`
	Total       float64    `json:"total"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// OrderCompleted is emitted when every kitchen ticket of an order is served
// and the order flips to its completed state.
type OrderCompleted struct {
	OrderID    uuid.UUID `json:"order_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderVoided is emitted when a completed order is voided.
type OrderVoided struct {
	OrderID    uuid.UUID `json:"order_id"`
	VoidedBy   string    `json:"voided_by"`
	VoidReason string    `json:"void_reason"`
	Total      float64   `json:"total"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderMerged is emitted when one or more orders are absorbed into a target order.
type OrderMerged struct {
	TargetOrderID    uuid.UUID   `json:"target_order_id"`
	AbsorbedOrderIDs []uuid.UUID `json:"absorbed_order_ids"`
	TargetTableID    uuid.UUID   `json:"target_table_id"`
	OccurredAt       time.Time   `json:"occurred_at"`
}

// OrderSplit is emitted when an order is divided into split children.
type OrderSplit struct {
	ParentOrderID uuid.UUID   `json:"parent_order_id"`
	SplitOrderIDs []uuid.UUID `json:"split_order_ids"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

// TableChanged is emitted when an order moves from one table to another.
type TableChanged struct {
	OrderID    uuid.UUID `json:"order_id"`
	FromTable  uuid.UUID `json:"from_table"`
	ToTable    uuid.UUID `json:"to_table"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TableReleased is emitted when a table returns to the available pool.
type TableReleased struct {
	TableID    uuid.UUID `json:"table_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

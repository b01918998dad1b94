package kitchen

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/fulfillment/pkg/event"
)

// TicketStateCache maintains an in-memory cache of kitchen tickets, indexed
// by station and status for efficient display-board queries.
type TicketStateCache struct {
	mu sync.RWMutex
	// tickets indexed by ticket_id
	tickets map[uuid.UUID]*Ticket
	// index by station code -> ticket_id
	byStation map[string][]uuid.UUID
	// index by status code -> ticket_id
	byStatus map[string][]uuid.UUID

	stream events.StreamConsumer // For event replay on startup
	repo   Repository            // Fallback to MongoDB if stream unavailable
	logger aqm.Logger
}

// NewTicketStateCache creates a new ticket cache.
func NewTicketStateCache(stream events.StreamConsumer, repo Repository, logger aqm.Logger) *TicketStateCache {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &TicketStateCache{
		tickets:   make(map[uuid.UUID]*Ticket),
		byStation: make(map[string][]uuid.UUID),
		byStatus:  make(map[string][]uuid.UUID),
		stream:    stream,
		repo:      repo,
		logger:    logger,
	}
}

// Warm loads tickets into the cache using event replay from the stream.
// Falls back to loading from MongoDB if the stream is unavailable.
func (c *TicketStateCache) Warm(ctx context.Context) error {
	if c.stream != nil {
		if err := c.warmFromStream(ctx); err != nil {
			c.logger.Info("stream replay failed, falling back to MongoDB", "error", err)
		} else {
			c.removeTerminalTickets()
			return nil
		}
	}

	if c.repo == nil {
		c.logger.Info("neither stream nor repo configured, cache remains empty")
		return nil
	}

	return c.warmFromRepo(ctx)
}

// warmFromStream replays events from the persistent stream to rebuild cache state.
func (c *TicketStateCache) warmFromStream(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Info("stream panic recovered, falling back to MongoDB", "panic", r)
		}
	}()

	c.logger.Info("warming cache from event stream")

	messages, err := c.stream.Fetch(ctx, 10000)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, msg := range messages {
		c.applyEventLocked(msg.Data)
	}

	c.logger.Info("cache warmed from stream", "tickets", len(c.tickets))
	return nil
}

// warmFromRepo loads tickets from the repository (fallback).
func (c *TicketStateCache) warmFromRepo(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Info("repository panic recovered, cache will remain empty", "panic", r)
			err = nil
		}
	}()

	c.logger.Info("warming cache from MongoDB")

	tickets, dbErr := c.repo.List(ctx, TicketFilter{})
	if dbErr != nil {
		c.logger.Info("failed to warm ticket cache from MongoDB, cache will remain empty", "error", dbErr)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range tickets {
		c.setLocked(&tickets[i])
	}

	c.logger.Info("cache warmed from MongoDB", "count", len(tickets))
	return nil
}

// applyEventLocked processes a single replayed event. Must be called with
// c.mu held.
func (c *TicketStateCache) applyEventLocked(data []byte) {
	var meta event.KitchenTicketMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		c.logger.Error("failed to unmarshal ticket event", "error", err)
		return
	}

	switch meta.EventType {
	case event.TopicKitchenTicketRouted:
		var evt event.KitchenTicketRouted
		if err := json.Unmarshal(data, &evt); err != nil {
			c.logger.Error("failed to unmarshal ticket routed event", "error", err)
			return
		}
		c.setLocked(&Ticket{
			ID:            evt.TicketID,
			OrderID:       evt.OrderID,
			Station:       evt.Station,
			Status:        evt.Status,
			Priority:      evt.Priority,
			TableNumber:   evt.TableNumber,
			EstimatedTime: evt.EstimatedTime,
			CreatedAt:     evt.OccurredAt,
			UpdatedAt:     evt.OccurredAt,
		})
	case event.TopicKitchenTicketStarted,
		event.TopicKitchenTicketReady,
		event.TopicKitchenTicketServed,
		event.TopicKitchenTicketBumped,
		event.TopicKitchenTicketRecalled,
		event.TopicKitchenTicketCancelled,
		event.TopicKitchenTicketPriority:
		var evt event.KitchenTicketStatusChanged
		if err := json.Unmarshal(data, &evt); err != nil {
			c.logger.Error("failed to unmarshal ticket status event", "error", err)
			return
		}
		ticket := c.tickets[meta.TicketID]
		if ticket == nil {
			// Minimal entry; the item detail lives in the repository.
			ticket = &Ticket{
				ID:      meta.TicketID,
				OrderID: meta.OrderID,
				Station: meta.Station,
			}
		}
		ticket.Status = meta.Status
		ticket.Priority = meta.Priority
		ticket.UpdatedAt = meta.OccurredAt
		// Timing fields feed the delayed predicate after a replay.
		if evt.StartedAt != nil {
			ticket.StartedAt = evt.StartedAt
		}
		if evt.EstimatedTime > 0 {
			ticket.EstimatedTime = evt.EstimatedTime
		}
		c.setLocked(ticket)
	default:
		// Ignore unknown event types (forward compatibility)
	}
}

// removeTerminalTickets drops completed and cancelled tickets after a stream
// warm so only active work shows on the boards.
func (c *TicketStateCache) removeTerminalTickets() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int
	for id, ticket := range c.tickets {
		if ticket.Terminal() {
			c.removeFromIndex(c.byStation, ticket.Station, id)
			c.removeFromIndex(c.byStatus, ticket.Status, id)
			delete(c.tickets, id)
			removed++
		}
	}

	c.logger.Info("removed terminal tickets from cache", "count", removed)
}

// Set updates or adds a ticket to the cache.
func (c *TicketStateCache) Set(ticket *Ticket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(ticket)
}

func (c *TicketStateCache) setLocked(ticket *Ticket) {
	if ticket == nil {
		return
	}

	if old, exists := c.tickets[ticket.ID]; exists {
		c.removeFromIndex(c.byStation, old.Station, ticket.ID)
		c.removeFromIndex(c.byStatus, old.Status, ticket.ID)
	}

	c.tickets[ticket.ID] = ticket
	c.addToIndex(c.byStation, ticket.Station, ticket.ID)
	c.addToIndex(c.byStatus, ticket.Status, ticket.ID)
}

// Get retrieves a ticket by ID.
func (c *TicketStateCache) Get(ticketID uuid.UUID) *Ticket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tickets[ticketID]
}

// GetByStation returns all tickets for a given station code.
func (c *TicketStateCache) GetByStation(station string) []*Ticket {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ticketIDs := c.byStation[station]
	result := make([]*Ticket, 0, len(ticketIDs))
	for _, id := range ticketIDs {
		if ticket := c.tickets[id]; ticket != nil {
			result = append(result, ticket)
		}
	}
	return result
}

// GetByStatus returns all tickets for a given status code.
func (c *TicketStateCache) GetByStatus(status string) []*Ticket {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ticketIDs := c.byStatus[status]
	result := make([]*Ticket, 0, len(ticketIDs))
	for _, id := range ticketIDs {
		if ticket := c.tickets[id]; ticket != nil {
			result = append(result, ticket)
		}
	}
	return result
}

// GetByStationAndStatus returns tickets filtered by both station and status.
func (c *TicketStateCache) GetByStationAndStatus(station, status string) []*Ticket {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ticketIDs := c.byStation[station]
	result := make([]*Ticket, 0)
	for _, id := range ticketIDs {
		if ticket := c.tickets[id]; ticket != nil && ticket.Status == status {
			result = append(result, ticket)
		}
	}
	return result
}

// GetDelayed returns preparing tickets that have exceeded their estimate.
func (c *TicketStateCache) GetDelayed(now time.Time) []*Ticket {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*Ticket, 0)
	for _, ticket := range c.tickets {
		if ticket.Delayed(now) {
			result = append(result, ticket)
		}
	}
	return result
}

// GetAll returns all cached tickets.
func (c *TicketStateCache) GetAll() []*Ticket {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*Ticket, 0, len(c.tickets))
	for _, ticket := range c.tickets {
		result = append(result, ticket)
	}
	return result
}

// Remove deletes a ticket from the cache.
func (c *TicketStateCache) Remove(ticketID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ticket := c.tickets[ticketID]
	if ticket == nil {
		return
	}

	c.removeFromIndex(c.byStation, ticket.Station, ticketID)
	c.removeFromIndex(c.byStatus, ticket.Status, ticketID)
	delete(c.tickets, ticketID)
}

// Count returns the number of tickets in the cache
func (c *TicketStateCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tickets)
}

func (c *TicketStateCache) addToIndex(index map[string][]uuid.UUID, key string, ticketID uuid.UUID) {
	index[key] = append(index[key], ticketID)
}

func (c *TicketStateCache) removeFromIndex(index map[string][]uuid.UUID, key string, ticketID uuid.UUID) {
	ids := index[key]
	for i, id := range ids {
		if id == ticketID {
			index[key] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

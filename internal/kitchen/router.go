package kitchen

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"

	"github.com/appetiteclub/fulfillment/internal/fault"
	"github.com/appetiteclub/fulfillment/internal/order"
	"github.com/appetiteclub/fulfillment/pkg/enums/station"
	"github.com/appetiteclub/fulfillment/pkg/event"
)

// Router fans an order's prepared items out into per-station tickets.
type Router struct {
	repo      Repository
	publisher events.Publisher
	logger    aqm.Logger
}

func NewRouter(repo Repository, publisher events.Publisher, logger aqm.Logger) *Router {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Router{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Route partitions the order's items by station and creates one pending
// ticket per non-empty partition. Retail items never enter the kitchen.
// Creation is all-or-nothing: a failure rolls back tickets already written.
func (r *Router) Route(ctx context.Context, o *order.Order, items []*order.OrderItem) ([]*Ticket, error) {
	if o.Terminal() {
		return nil, fault.InvalidTransition("cannot route order %s in status %s", o.OrderNumber, o.Status)
	}

	byStation := make(map[string][]*order.OrderItem)
	for _, item := range items {
		if !item.Prepared() {
			continue
		}
		if station.ByName(item.Station) == nil {
			return nil, fault.Validation("item %s references unknown kitchen station %q", item.Name, item.Station)
		}
		byStation[item.Station] = append(byStation[item.Station], item)
	}
	if len(byStation) == 0 {
		return nil, nil
	}

	// Deterministic ticket order keeps rollback and event order stable.
	stations := make([]string, 0, len(byStation))
	for s := range byStation {
		stations = append(stations, s)
	}
	sort.Strings(stations)

	created := make([]*Ticket, 0, len(stations))
	for _, station := range stations {
		ticket := buildTicket(o, station, byStation[station])
		ticket.BeforeCreate()
		if err := r.repo.Create(ctx, ticket); err != nil {
			r.rollback(ctx, created)
			return nil, fmt.Errorf("cannot create ticket for station %s: %w", station, err)
		}
		created = append(created, ticket)
	}

	for _, ticket := range created {
		r.publishRouted(ctx, ticket)
	}

	r.logger.Info("order routed to kitchen", "order_id", o.ID.String(), "tickets", len(created))
	return created, nil
}

func buildTicket(o *order.Order, station string, items []*order.OrderItem) *Ticket {
	ticket := NewTicket()
	ticket.OrderID = o.ID
	ticket.OrderNumber = o.OrderNumber
	ticket.Station = station
	ticket.TableNumber = o.TableNumber

	estimated := 0
	for _, item := range items {
		if item.PrepMinutes > estimated {
			estimated = item.PrepMinutes
		}
		ticket.Items = append(ticket.Items, TicketItem{
			ID:                  aqm.GenerateNewID(),
			OrderItemID:         item.ID,
			Name:                item.Name,
			Quantity:            item.Quantity,
			Modifiers:           modifiersAsText(item.Modifiers),
			SpecialInstructions: item.SpecialInstructions,
		})
	}
	if estimated > 0 {
		ticket.EstimatedTime = estimated
	}
	return ticket
}

func modifiersAsText(mods []order.Modifier) string {
	if len(mods) == 0 {
		return ""
	}
	parts := make([]string, 0, len(mods))
	for _, m := range mods {
		parts = append(parts, m.Name)
	}
	return strings.Join(parts, ", ")
}

func (r *Router) rollback(ctx context.Context, created []*Ticket) {
	for _, ticket := range created {
		if err := r.repo.Delete(ctx, ticket.ID); err != nil {
			r.logger.Error("cannot roll back kitchen ticket", "error", err, "ticket_id", ticket.ID.String())
		}
	}
}

func (r *Router) publishRouted(ctx context.Context, ticket *Ticket) {
	if r.publisher == nil {
		return
	}
	evt := event.KitchenTicketRouted{
		KitchenTicketMetadata: event.KitchenTicketMetadata{
			EventType:  event.TopicKitchenTicketRouted,
			TicketID:   ticket.ID,
			OrderID:    ticket.OrderID,
			Station:    ticket.Station,
			Status:     ticket.Status,
			Priority:   ticket.Priority,
			OccurredAt: time.Now().UTC(),
		},
		TableNumber:   ticket.TableNumber,
		ItemCount:     len(ticket.Items),
		EstimatedTime: ticket.EstimatedTime,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		r.logger.Error("cannot marshal ticket routed event", "error", err)
		return
	}
	if err := r.publisher.Publish(ctx, event.TopicKitchenTicketRouted, payload); err != nil {
		r.logger.Error("cannot publish ticket routed event", "error", err, "ticket_id", ticket.ID.String())
	}
}

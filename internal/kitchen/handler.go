package kitchen

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/appetiteclub/fulfillment/internal/fault"
	"github.com/appetiteclub/fulfillment/internal/order"
	"github.com/appetiteclub/fulfillment/pkg/enums/kitchenstatus"
	"github.com/appetiteclub/fulfillment/pkg/event"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	logger    aqm.Logger
	config    *aqm.Config
	tlm       *telemetry.HTTP
	repo      Repository
	cache     *TicketStateCache
	router    *Router
	orderRepo order.Repo
	itemRepo  order.ItemRepo
	publisher events.Publisher
}

type HandlerDeps struct {
	Repo      Repository
	Cache     *TicketStateCache
	Router    *Router
	OrderRepo order.Repo
	ItemRepo  order.ItemRepo
	Publisher events.Publisher
}

func NewHandler(hd HandlerDeps, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		logger:    logger,
		config:    config,
		tlm:       telemetry.NewHTTP(),
		repo:      hd.Repo,
		cache:     hd.Cache,
		router:    hd.Router,
		orderRepo: hd.OrderRepo,
		itemRepo:  hd.ItemRepo,
		publisher: hd.Publisher,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/orders/{id}/route", h.RouteOrder)

	r.Route("/kitchen/tickets", func(r chi.Router) {
		r.Get("/", h.ListTickets)
		r.Get("/delayed", h.ListDelayedTickets)
		r.Get("/{id}", h.GetTicket)
		r.Patch("/{id}/start", h.StartTicket)
		r.Patch("/{id}/ready", h.ReadyTicket)
		r.Patch("/{id}/serve", h.ServeTicket)
		r.Patch("/{id}/bump", h.BumpTicket)
		r.Patch("/{id}/recall", h.RecallTicket)
		r.Patch("/{id}/cancel", h.CancelTicket)
		r.Patch("/{id}/priority", h.UpdatePriority)
	})
}

// RouteOrder fans the order's prepared items out into per-station tickets.
func (h *Handler) RouteOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RouteOrder")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	o, err := h.orderRepo.Get(ctx, id)
	if err != nil || o == nil {
		log.Error("order not found for routing", "error", err, "order_id", id.String())
		aqm.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	items, err := h.itemRepo.ListByOrder(ctx, id)
	if err != nil {
		log.Error("cannot list order items for routing", "error", err, "order_id", id.String())
		aqm.RespondError(w, http.StatusInternalServerError, "Could not retrieve order items")
		return
	}

	tickets, err := h.router.Route(ctx, o, items)
	if err != nil {
		log.Error("cannot route order to kitchen", "error", err, "order_id", id.String())
		aqm.RespondError(w, fault.HTTPStatus(err), err.Error())
		return
	}

	for _, ticket := range tickets {
		if h.cache != nil {
			h.cache.Set(ticket)
		}
	}

	log.Info("order routed", "order_id", id.String(), "tickets", len(tickets))
	aqm.Respond(w, http.StatusCreated, tickets, nil)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetTicket")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	ticket, err := h.repo.Get(ctx, id)
	if err != nil || ticket == nil {
		log.Error("ticket not found", "error", err, "ticket_id", id.String())
		aqm.RespondError(w, http.StatusNotFound, "Ticket not found")
		return
	}

	links := aqm.RESTfulLinksFor(ticket)
	aqm.RespondSuccess(w, ticket, links...)
}

// ListTickets serves the display boards from the in-memory cache, filtered
// by station and/or status.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTickets")
	defer finish()

	log := h.log(r)

	station := r.URL.Query().Get("station")
	status := r.URL.Query().Get("status")

	if h.cache == nil {
		tickets, err := h.repo.List(r.Context(), TicketFilter{Station: station, Status: status})
		if err != nil {
			log.Error("cannot list tickets", "error", err)
			aqm.RespondError(w, http.StatusInternalServerError, "Could not retrieve tickets")
			return
		}
		aqm.RespondCollection(w, tickets, "kitchen-ticket")
		return
	}

	var tickets []*Ticket
	switch {
	case station != "" && status != "":
		tickets = h.cache.GetByStationAndStatus(station, status)
	case station != "":
		tickets = h.cache.GetByStation(station)
	case status != "":
		tickets = h.cache.GetByStatus(status)
	default:
		tickets = h.cache.GetAll()
	}

	aqm.RespondCollection(w, tickets, "kitchen-ticket")
}

// ListDelayedTickets returns preparing tickets past their estimate.
func (h *Handler) ListDelayedTickets(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListDelayedTickets")
	defer finish()

	log := h.log(r)

	if h.cache != nil {
		aqm.RespondCollection(w, h.cache.GetDelayed(time.Now()), "kitchen-ticket")
		return
	}

	tickets, err := h.repo.List(r.Context(), TicketFilter{Status: kitchenstatus.Statuses.Preparing.Name})
	if err != nil {
		log.Error("cannot list preparing tickets", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not retrieve tickets")
		return
	}

	now := time.Now()
	delayed := make([]*Ticket, 0)
	for i := range tickets {
		if tickets[i].Delayed(now) {
			delayed = append(delayed, &tickets[i])
		}
	}
	aqm.RespondCollection(w, delayed, "kitchen-ticket")
}

// Ticket transitions

func (h *Handler) StartTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.StartTicket")
	defer finish()
	h.transition(w, r, event.TopicKitchenTicketStarted, func(t *Ticket) error { return t.Start() })
}

func (h *Handler) ReadyTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ReadyTicket")
	defer finish()
	h.transition(w, r, event.TopicKitchenTicketReady, func(t *Ticket) error { return t.MarkReady() })
}

func (h *Handler) ServeTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ServeTicket")
	defer finish()

	ticket := h.transition(w, r, event.TopicKitchenTicketServed, func(t *Ticket) error { return t.Serve() })
	if ticket == nil {
		return
	}

	// Serving the last open ticket completes the source order.
	h.checkAndCompleteOrder(r.Context(), ticket.OrderID)
}

func (h *Handler) BumpTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.BumpTicket")
	defer finish()
	h.transition(w, r, event.TopicKitchenTicketBumped, func(t *Ticket) error { return t.Bump() })
}

func (h *Handler) RecallTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RecallTicket")
	defer finish()
	h.transition(w, r, event.TopicKitchenTicketRecalled, func(t *Ticket) error { return t.Recall() })
}

func (h *Handler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CancelTicket")
	defer finish()
	h.transition(w, r, event.TopicKitchenTicketCancelled, func(t *Ticket) error { return t.Cancel() })
}

type PriorityUpdateRequest struct {
	Priority int `json:"priority"`
}

func (h *Handler) UpdatePriority(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdatePriority")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req PriorityUpdateRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	ticket, err := h.repo.Get(ctx, id)
	if err != nil || ticket == nil {
		log.Error("ticket not found", "error", err, "ticket_id", id.String())
		aqm.RespondError(w, http.StatusNotFound, "Ticket not found")
		return
	}

	previousPriority := ticket.Priority
	if err := ticket.SetPriority(req.Priority); err != nil {
		log.Info("priority change rejected", "ticket_id", id.String(), "priority", req.Priority, "error", err)
		aqm.RespondError(w, fault.HTTPStatus(err), err.Error())
		return
	}

	if err := h.repo.Save(ctx, ticket); err != nil {
		log.Error("cannot save ticket", "error", err, "ticket_id", id.String())
		aqm.RespondError(w, fault.HTTPStatus(err), "Could not update ticket")
		return
	}

	if h.cache != nil {
		h.cache.Set(ticket)
	}
	h.publishPriorityChanged(ctx, ticket, previousPriority)

	links := aqm.RESTfulLinksFor(ticket)
	aqm.RespondSuccess(w, ticket, links...)
}

// transition loads the ticket, applies the state change and saves it with a
// compare-and-set. A lost race surfaces as a conflict, not corrupted state.
// Returns the updated ticket, or nil if a response was already written.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, topic string, apply func(*Ticket) error) *Ticket {
	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return nil
	}

	ticket, err := h.repo.Get(ctx, id)
	if err != nil || ticket == nil {
		log.Error("ticket not found", "error", err, "ticket_id", id.String())
		aqm.RespondError(w, http.StatusNotFound, "Ticket not found")
		return nil
	}

	previousStatus := ticket.Status
	if err := apply(ticket); err != nil {
		log.Info("transition rejected", "ticket_id", id.String(), "status", previousStatus, "error", err)
		aqm.RespondError(w, fault.HTTPStatus(err), err.Error())
		return nil
	}

	if err := h.repo.Save(ctx, ticket); err != nil {
		log.Error("cannot save ticket transition", "error", err, "ticket_id", id.String())
		aqm.RespondError(w, fault.HTTPStatus(err), "Could not update ticket")
		return nil
	}

	if h.cache != nil {
		h.cache.Set(ticket)
	}
	h.publishStatusChanged(ctx, ticket, topic, previousStatus)

	log.Info("ticket transitioned", "ticket_id", id.String(), "from", previousStatus, "to", ticket.Status)
	links := aqm.RESTfulLinksFor(ticket)
	aqm.RespondSuccess(w, ticket, links...)
	return ticket
}

// checkAndCompleteOrder flips the source order to completed once every one
// of its tickets reached served or completed.
func (h *Handler) checkAndCompleteOrder(ctx context.Context, orderID uuid.UUID) {
	tickets, err := h.repo.ListByOrder(ctx, orderID)
	if err != nil {
		h.logger.Error("cannot list tickets for order completion check", "error", err, "order_id", orderID.String())
		return
	}

	for _, t := range tickets {
		switch t.Status {
		case kitchenstatus.Statuses.Served.Name, kitchenstatus.Statuses.Completed.Name:
		case kitchenstatus.Statuses.Cancelled.Name:
		default:
			return
		}
	}

	o, err := h.orderRepo.Get(ctx, orderID)
	if err != nil || o == nil {
		h.logger.Error("cannot load order for completion", "error", err, "order_id", orderID.String())
		return
	}
	if err := o.MarkCompleted(); err != nil {
		// Already completed by a concurrent serve; nothing to do.
		return
	}
	if err := h.orderRepo.Save(ctx, o); err != nil {
		h.logger.Error("cannot complete order", "error", err, "order_id", orderID.String())
		return
	}

	h.publishOrderCompleted(ctx, o.ID)
	h.logger.Info("order completed", "order_id", orderID.String())
}

// Event publishing

func (h *Handler) publishStatusChanged(ctx context.Context, ticket *Ticket, topic, previousStatus string) {
	if h.publisher == nil {
		return
	}
	evt := event.KitchenTicketStatusChanged{
		KitchenTicketMetadata: event.KitchenTicketMetadata{
			EventType:  topic,
			TicketID:   ticket.ID,
			OrderID:    ticket.OrderID,
			Station:    ticket.Station,
			Status:     ticket.Status,
			Priority:   ticket.Priority,
			OccurredAt: time.Now().UTC(),
		},
		PreviousStatus: previousStatus,
		ActualTime:     ticket.ActualTime,
		StartedAt:      ticket.StartedAt,
		EstimatedTime:  ticket.EstimatedTime,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("cannot marshal ticket status event", "error", err)
		return
	}
	if err := h.publisher.Publish(ctx, topic, payload); err != nil {
		h.logger.Error("cannot publish ticket status event", "error", err, "ticket_id", ticket.ID.String())
	}
}

func (h *Handler) publishPriorityChanged(ctx context.Context, ticket *Ticket, previousPriority int) {
	if h.publisher == nil {
		return
	}
	evt := event.KitchenTicketPriorityChanged{
		KitchenTicketMetadata: event.KitchenTicketMetadata{
			EventType:  event.TopicKitchenTicketPriority,
			TicketID:   ticket.ID,
			OrderID:    ticket.OrderID,
			Station:    ticket.Station,
			Status:     ticket.Status,
			Priority:   ticket.Priority,
			OccurredAt: time.Now().UTC(),
		},
		PreviousPriority: previousPriority,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("cannot marshal ticket priority event", "error", err)
		return
	}
	if err := h.publisher.Publish(ctx, event.TopicKitchenTicketPriority, payload); err != nil {
		h.logger.Error("cannot publish ticket priority event", "error", err, "ticket_id", ticket.ID.String())
	}
}

func (h *Handler) publishOrderCompleted(ctx context.Context, orderID uuid.UUID) {
	if h.publisher == nil {
		return
	}
	evt := event.OrderCompleted{OrderID: orderID, OccurredAt: time.Now().UTC()}
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("cannot marshal order completed event", "error", err)
		return
	}
	if err := h.publisher.Publish(ctx, event.TopicOrderCompleted, payload); err != nil {
		h.logger.Error("cannot publish order completed event", "error", err, "order_id", orderID.String())
	}
}

// Helpers

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log aqm.Logger) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		log.Debug("missing id parameter")
		aqm.RespondError(w, http.StatusBadRequest, "Missing id parameter")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "id", idStr)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request, log aqm.Logger, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, target); err != nil {
		log.Debug("failed to decode request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}

	return true
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

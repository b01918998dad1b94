package order

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/appetiteclub/fulfillment/internal/catalog"
	"github.com/appetiteclub/fulfillment/internal/fault"
	"github.com/appetiteclub/fulfillment/internal/tables"
	"github.com/appetiteclub/fulfillment/pkg/enums/paymenttype"
	"github.com/appetiteclub/fulfillment/pkg/event"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	logger    aqm.Logger
	config    *aqm.Config
	tlm       *telemetry.HTTP
	orderRepo Repo
	itemRepo  ItemRepo
	tableRepo tables.Repo
	catalog   catalog.Client
	publisher events.Publisher
}

type HandlerDeps struct {
	OrderRepo Repo
	ItemRepo  ItemRepo
	TableRepo tables.Repo
	Catalog   catalog.Client
	Publisher events.Publisher
}

func NewHandler(hd HandlerDeps, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if hd.Catalog == nil {
		hd.Catalog = catalog.NewNoopClient()
	}
	return &Handler{
		logger:    logger,
		config:    config,
		tlm:       telemetry.NewHTTP(),
		orderRepo: hd.OrderRepo,
		itemRepo:  hd.ItemRepo,
		tableRepo: hd.TableRepo,
		catalog:   hd.Catalog,
		publisher: hd.Publisher,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/voided", h.ListVoidedOrders)
		r.Get("/{id}", h.GetOrder)
		r.Get("/{id}/items", h.ListOrderItems)
		r.Post("/{id}/void", h.VoidOrder)
	})
}

// Payloads

type DiscountRequest struct {
	Type   string  `json:"type"`
	Value  float64 `json:"value"`
	Reason string  `json:"reason,omitempty"`
}

type ModifierRequest struct {
	Name            string  `json:"name"`
	AdditionalPrice float64 `json:"additional_price"`
}

type OrderItemRequest struct {
	ProductID           uuid.UUID         `json:"product_id"`
	ProductType         string            `json:"product_type"`
	Quantity            int               `json:"quantity"`
	SpecialInstructions string            `json:"special_instructions,omitempty"`
	Modifiers           []ModifierRequest `json:"modifiers,omitempty"`
	Discount            *DiscountRequest  `json:"discount,omitempty"`
}

type OrderCreateRequest struct {
	OrderType   string             `json:"order_type"`
	TableID     *uuid.UUID         `json:"table_id,omitempty"`
	CashierID   *uuid.UUID         `json:"cashier_id,omitempty"`
	BranchID    *uuid.UUID         `json:"branch_id,omitempty"`
	PaymentType string             `json:"payment_type,omitempty"`
	TaxAmount   float64            `json:"tax_amount,omitempty"`
	Discount    *DiscountRequest   `json:"discount,omitempty"`
	Items       []OrderItemRequest `json:"items"`
}

type VoidOrderRequest struct {
	Reason    string     `json:"reason"`
	Notes     string     `json:"notes"`
	ActorID   uuid.UUID  `json:"actor_id"`
	ManagerID *uuid.UUID `json:"manager_id,omitempty"`
}

// CreateOrder opens a new order: resolves every product reference into a
// snapshot, prices the lines, and seats the table for dine-in orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateOrder")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	var req OrderCreateRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	if len(req.Items) == 0 {
		log.Debug("create order request without items")
		aqm.RespondError(w, http.StatusBadRequest, "items are required")
		return
	}
	if req.OrderType == "" {
		req.OrderType = TypeDineIn
	}
	if req.OrderType == TypeDineIn && req.TableID == nil {
		aqm.RespondError(w, http.StatusBadRequest, "table_id is required for dine-in orders")
		return
	}
	if req.PaymentType != "" && paymenttype.ByName(req.PaymentType) == nil {
		aqm.RespondError(w, http.StatusBadRequest, "unknown payment_type "+req.PaymentType)
		return
	}

	o := NewOrder()
	o.OrderType = req.OrderType
	o.OrderNumber = nextOrderNumber()
	o.CashierID = req.CashierID
	o.BranchID = req.BranchID
	o.PaymentType = req.PaymentType
	o.TaxAmount = req.TaxAmount
	if req.Discount != nil {
		o.DiscountType = req.Discount.Type
		o.DiscountValue = req.Discount.Value
		o.DiscountReason = req.Discount.Reason
	}

	items, err := h.buildItems(ctx, o.ID, req.Items)
	if err != nil {
		log.Info("cannot resolve order items", "error", err)
		aqm.RespondError(w, fault.HTTPStatus(err), err.Error())
		return
	}
	o.Recalculate(items)

	var seated *tables.Table
	if req.TableID != nil {
		seated, err = h.seatTable(ctx, *req.TableID, o)
		if err != nil {
			log.Info("table cannot accept order", "table_id", req.TableID.String(), "error", err)
			aqm.RespondError(w, fault.HTTPStatus(err), err.Error())
			return
		}
	}

	o.BeforeCreate()
	if err := h.orderRepo.Create(ctx, o); err != nil {
		log.Error("cannot create order", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not create order")
		return
	}

	for _, item := range items {
		item.BeforeCreate()
		if err := h.itemRepo.Create(ctx, item); err != nil {
			log.Error("cannot create order item", "error", err, "order_id", o.ID.String())
			aqm.RespondError(w, http.StatusInternalServerError, "Could not create order items")
			return
		}
	}

	h.publishOrderCreated(ctx, o)

	if seated != nil {
		log.Info("order created", "order_id", o.ID.String(), "table", seated.Number)
	} else {
		log.Info("order created", "order_id", o.ID.String(), "order_type", o.OrderType)
	}

	links := aqm.RESTfulLinksFor(o)
	w.WriteHeader(http.StatusCreated)
	aqm.RespondSuccess(w, o, links...)
}

func (h *Handler) buildItems(ctx context.Context, orderID uuid.UUID, reqs []OrderItemRequest) ([]*OrderItem, error) {
	items := make([]*OrderItem, 0, len(reqs))
	for _, ir := range reqs {
		if ir.Quantity <= 0 {
			return nil, fault.Validation("quantity must be positive")
		}
		if ir.ProductID == uuid.Nil {
			return nil, fault.Validation("product_id is required")
		}
		if ir.ProductType == "" {
			ir.ProductType = catalog.ProductTypeMenuItem
		}

		snap, err := h.catalog.Resolve(ctx, ir.ProductID, ir.ProductType)
		if err != nil {
			return nil, fault.Wrap(fault.KindNotFound, err, "cannot resolve product %s", ir.ProductID.String())
		}

		item := NewOrderItem()
		item.OrderID = orderID
		item.Quantity = ir.Quantity
		item.SpecialInstructions = ir.SpecialInstructions
		item.ApplySnapshot(snap)
		for _, m := range ir.Modifiers {
			item.Modifiers = append(item.Modifiers, Modifier{Name: m.Name, AdditionalPrice: m.AdditionalPrice})
		}
		if ir.Discount != nil {
			item.DiscountType = ir.Discount.Type
			item.DiscountValue = ir.Discount.Value
			item.DiscountReason = ir.Discount.Reason
		}
		item.Recalculate()
		items = append(items, item)
	}
	return items, nil
}

func (h *Handler) seatTable(ctx context.Context, tableID uuid.UUID, o *Order) (*tables.Table, error) {
	table, err := h.tableRepo.Get(ctx, tableID)
	if err != nil || table == nil {
		return nil, fault.NotFound("table %s not found", tableID.String())
	}
	if err := table.Assign(o.ID); err != nil {
		return nil, err
	}
	if err := h.tableRepo.Save(ctx, table); err != nil {
		return nil, err
	}
	o.TableID = &table.ID
	o.TableNumber = table.Number
	return table, nil
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	o, err := h.orderRepo.Get(ctx, id)
	if err != nil || o == nil {
		log.Error("error loading order", "error", err, "id", id.String())
		aqm.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	links := aqm.RESTfulLinksFor(o)
	aqm.RespondSuccess(w, o, links...)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListOrders")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	tableIDStr := r.URL.Query().Get("table_id")
	status := r.URL.Query().Get("status")

	var orders []*Order
	var err error

	if tableIDStr != "" {
		tableID, parseErr := uuid.Parse(tableIDStr)
		if parseErr != nil {
			log.Debug("invalid table_id parameter", "table_id", tableIDStr)
			aqm.RespondError(w, http.StatusBadRequest, "Invalid table_id parameter")
			return
		}
		orders, err = h.orderRepo.ListByTable(ctx, tableID)
	} else if status != "" {
		orders, err = h.orderRepo.ListByStatus(ctx, status)
	} else {
		orders, err = h.orderRepo.List(ctx)
	}

	if err != nil {
		log.Error("error retrieving orders", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not retrieve orders")
		return
	}

	aqm.RespondCollection(w, orders, "order")
}

func (h *Handler) ListVoidedOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListVoidedOrders")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	orders, err := h.orderRepo.ListVoided(ctx)
	if err != nil {
		log.Error("error retrieving voided orders", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not retrieve voided orders")
		return
	}

	aqm.RespondCollection(w, orders, "order")
}

func (h *Handler) ListOrderItems(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListOrderItems")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	items, err := h.itemRepo.ListByOrder(ctx, id)
	if err != nil {
		log.Error("error retrieving order items", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not retrieve order items")
		return
	}

	aqm.RespondCollection(w, items, "order-item")
}

// VoidOrder cancels a completed order with a mandatory audit trail. Failures
// log the actor and attempted target so the attempt can be reconstructed.
func (h *Handler) VoidOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.VoidOrder")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req VoidOrderRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	o, err := h.orderRepo.Get(ctx, id)
	if err != nil || o == nil {
		log.Error("order not found for void", "error", err, "order_id", id.String(), "actor_id", req.ActorID.String())
		aqm.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	if err := o.Void(req.Reason, req.Notes, req.ActorID, req.ManagerID); err != nil {
		log.Info("void rejected",
			"order_id", id.String(),
			"actor_id", req.ActorID.String(),
			"reason", req.Reason,
			"status", o.Status,
			"error", err)
		aqm.RespondError(w, fault.HTTPStatus(err), err.Error())
		return
	}

	if err := h.orderRepo.Save(ctx, o); err != nil {
		log.Error("cannot void order", "error", err, "order_id", id.String(), "actor_id", req.ActorID.String())
		aqm.RespondError(w, fault.HTTPStatus(err), "Could not void order")
		return
	}

	h.publishOrderVoided(ctx, o)

	log.Info("order voided", "order_id", id.String(), "actor_id", req.ActorID.String(), "reason", req.Reason)
	links := aqm.RESTfulLinksFor(o)
	aqm.RespondSuccess(w, o, links...)
}

// Event publishing

func (h *Handler) publishOrderCreated(ctx context.Context, o *Order) {
	if h.publisher == nil {
		return
	}
	evt := event.OrderCreated{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		TableID:     o.TableID,
		Total:       o.Total,
		OccurredAt:  time.Now().UTC(),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("cannot marshal order created event", "error", err)
		return
	}
	if err := h.publisher.Publish(ctx, event.TopicOrderCreated, payload); err != nil {
		h.logger.Error("cannot publish order created event", "error", err, "order_id", o.ID.String())
	}
}

func (h *Handler) publishOrderVoided(ctx context.Context, o *Order) {
	if h.publisher == nil {
		return
	}
	voidedBy := ""
	if o.VoidedBy != nil {
		voidedBy = o.VoidedBy.String()
	}
	evt := event.OrderVoided{
		OrderID:    o.ID,
		VoidedBy:   voidedBy,
		VoidReason: o.VoidReason,
		Total:      o.Total,
		OccurredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("cannot marshal order voided event", "error", err)
		return
	}
	if err := h.publisher.Publish(ctx, event.TopicOrderVoided, payload); err != nil {
		h.logger.Error("cannot publish order voided event", "error", err, "order_id", o.ID.String())
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

func nextOrderNumber() string {
	return fmt.Sprintf("ORD-%s", time.Now().UTC().Format("20060102-150405.000"))
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

package ops

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/appetiteclub/fulfillment/internal/fault"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	logger      aqm.Logger
	config      *aqm.Config
	tlm         *telemetry.HTTP
	coordinator *Coordinator
}

func NewHandler(coordinator *Coordinator, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		logger:      logger,
		config:      config,
		tlm:         telemetry.NewHTTP(),
		coordinator: coordinator,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ops", func(r chi.Router) {
		r.Post("/change-table", h.ChangeTable)
		r.Post("/merge-tables", h.MergeTables)
		r.Post("/split-bill", h.SplitBill)
	})
}

// Payloads

type ChangeTableRequest struct {
	OrderID    uuid.UUID `json:"order_id"`
	NewTableID uuid.UUID `json:"new_table_id"`
}

type MergeTablesRequest struct {
	SourceOrderIDs []uuid.UUID `json:"source_order_ids"`
	TargetTableID  uuid.UUID   `json:"target_table_id"`
}

type SplitBillRequest struct {
	OrderID uuid.UUID    `json:"order_id"`
	Groups  []SplitGroup `json:"groups"`
}

func (h *Handler) ChangeTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ChangeTable")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	var req ChangeTableRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}
	if req.OrderID == uuid.Nil || req.NewTableID == uuid.Nil {
		aqm.RespondError(w, http.StatusBadRequest, "order_id and new_table_id are required")
		return
	}

	o, err := h.coordinator.ChangeTable(ctx, req.OrderID, req.NewTableID)
	if err != nil {
		log.Info("change table rejected",
			"order_id", req.OrderID.String(),
			"new_table_id", req.NewTableID.String(),
			"error", err)
		aqm.RespondError(w, fault.HTTPStatus(err), err.Error())
		return
	}

	links := aqm.RESTfulLinksFor(o)
	aqm.RespondSuccess(w, o, links...)
}

func (h *Handler) MergeTables(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.MergeTables")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	var req MergeTablesRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}
	if len(req.SourceOrderIDs) < 2 {
		aqm.RespondError(w, http.StatusBadRequest, "at least two source_order_ids are required")
		return
	}
	if req.TargetTableID == uuid.Nil {
		aqm.RespondError(w, http.StatusBadRequest, "target_table_id is required")
		return
	}

	survivor, err := h.coordinator.MergeTables(ctx, req.SourceOrderIDs, req.TargetTableID)
	if err != nil {
		log.Info("merge rejected",
			"target_table_id", req.TargetTableID.String(),
			"sources", len(req.SourceOrderIDs),
			"error", err)
		aqm.RespondError(w, fault.HTTPStatus(err), err.Error())
		return
	}

	links := aqm.RESTfulLinksFor(survivor)
	aqm.RespondSuccess(w, survivor, links...)
}

func (h *Handler) SplitBill(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SplitBill")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	var req SplitBillRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}
	if req.OrderID == uuid.Nil {
		aqm.RespondError(w, http.StatusBadRequest, "order_id is required")
		return
	}
	if len(req.Groups) < 2 {
		aqm.RespondError(w, http.StatusBadRequest, "at least two groups are required")
		return
	}

	children, err := h.coordinator.SplitBill(ctx, req.OrderID, req.Groups)
	if err != nil {
		log.Info("split rejected",
			"order_id", req.OrderID.String(),
			"groups", len(req.Groups),
			"error", err)
		aqm.RespondError(w, fault.HTTPStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusCreated)
	aqm.RespondSuccess(w, children)
}

// Helpers

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

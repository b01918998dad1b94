package shift

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
	logger     aqm.Logger
	config     *aqm.Config
	tlm        *telemetry.HTTP
	reconciler *Reconciler
	repo       Repo
}

func NewHandler(reconciler *Reconciler, repo Repo, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		logger:     logger,
		config:     config,
		tlm:        telemetry.NewHTTP(),
		reconciler: reconciler,
		repo:       repo,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/shifts", func(r chi.Router) {
		r.Post("/start", h.StartShift)
		r.Post("/end", h.EndShift)
		r.Get("/current", h.CurrentShift)
		r.Get("/{id}", h.GetShift)
	})
}

// Payloads

type StartShiftRequest struct {
	CashierID    uuid.UUID  `json:"cashier_id"`
	BranchID     *uuid.UUID `json:"branch_id,omitempty"`
	OpeningFloat float64    `json:"opening_float,omitempty"`
}

type EndShiftRequest struct {
	CashierID uuid.UUID `json:"cashier_id"`
	Notes     string    `json:"notes,omitempty"`
}

func (h *Handler) StartShift(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.StartShift")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	var req StartShiftRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	s, err := h.reconciler.Start(ctx, req.CashierID, req.BranchID, req.OpeningFloat)
	if err != nil {
		log.Info("start shift rejected", "cashier_id", req.CashierID.String(), "error", err)
		aqm.RespondError(w, fault.HTTPStatus(err), err.Error())
		return
	}

	links := aqm.RESTfulLinksFor(s)
	w.WriteHeader(http.StatusCreated)
	aqm.RespondSuccess(w, s, links...)
}

func (h *Handler) EndShift(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.EndShift")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	var req EndShiftRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}
	if req.CashierID == uuid.Nil {
		aqm.RespondError(w, http.StatusBadRequest, "cashier_id is required")
		return
	}

	s, err := h.reconciler.End(ctx, req.CashierID, req.Notes)
	if err != nil {
		log.Info("end shift rejected", "cashier_id", req.CashierID.String(), "error", err)
		aqm.RespondError(w, fault.HTTPStatus(err), err.Error())
		return
	}

	links := aqm.RESTfulLinksFor(s)
	aqm.RespondSuccess(w, s, links...)
}

// CurrentShift returns the cashier's open shift with a live report.
func (h *Handler) CurrentShift(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CurrentShift")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	cashierIDStr := r.URL.Query().Get("cashier_id")
	if cashierIDStr == "" {
		aqm.RespondError(w, http.StatusBadRequest, "cashier_id parameter is required")
		return
	}
	cashierID, err := uuid.Parse(cashierIDStr)
	if err != nil {
		log.Debug("invalid cashier_id parameter", "cashier_id", cashierIDStr)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid cashier_id parameter")
		return
	}

	s, err := h.reconciler.Progress(ctx, cashierID)
	if err != nil {
		log.Debug("no current shift", "cashier_id", cashierID.String(), "error", err)
		aqm.RespondError(w, fault.HTTPStatus(err), err.Error())
		return
	}

	links := aqm.RESTfulLinksFor(s)
	aqm.RespondSuccess(w, s, links...)
}

func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetShift")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "id", idStr)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	s, err := h.repo.Get(ctx, id)
	if err != nil || s == nil {
		log.Error("error loading shift", "error", err, "id", id.String())
		aqm.RespondError(w, http.StatusNotFound, "Shift not found")
		return
	}

	links := aqm.RESTfulLinksFor(s)
	aqm.RespondSuccess(w, s, links...)
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

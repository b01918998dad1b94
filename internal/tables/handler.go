package tables

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
	"github.com/appetiteclub/fulfillment/pkg/event"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	logger    aqm.Logger
	config    *aqm.Config
	tlm       *telemetry.HTTP
	repo      Repo
	publisher events.Publisher
}

func NewHandler(repo Repo, publisher events.Publisher, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		logger:    logger,
		config:    config,
		tlm:       telemetry.NewHTTP(),
		repo:      repo,
		publisher: publisher,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tables", func(r chi.Router) {
		r.Post("/", h.CreateTable)
		r.Get("/", h.ListTables)
		r.Get("/{id}", h.GetTable)
		r.Patch("/{id}/release", h.ReleaseTable)
		r.Patch("/{id}/ready", h.MarkTableReady)
		r.Delete("/{id}", h.DeleteTable)
	})
}

type TableCreateRequest struct {
	Number   string `json:"number"`
	Capacity int    `json:"capacity"`
	Location string `json:"location,omitempty"`
}

func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateTable")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	req, ok := h.decodeCreatePayload(w, r, log)
	if !ok {
		return
	}

	if req.Number == "" {
		log.Debug("missing table number in create request")
		aqm.RespondError(w, http.StatusBadRequest, "number is required")
		return
	}
	if req.Capacity <= 0 {
		aqm.RespondError(w, http.StatusBadRequest, "capacity must be positive")
		return
	}

	table := NewTable()
	table.Number = req.Number
	table.Capacity = req.Capacity
	table.Location = req.Location
	table.BeforeCreate()

	if err := h.repo.Create(ctx, table); err != nil {
		log.Error("cannot create table", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not create table")
		return
	}

	links := aqm.RESTfulLinksFor(table)
	w.WriteHeader(http.StatusCreated)
	aqm.RespondSuccess(w, table, links...)
}

func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetTable")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	table, err := h.repo.Get(ctx, id)
	if err != nil || table == nil {
		log.Error("error loading table", "error", err, "id", id.String())
		aqm.RespondError(w, http.StatusNotFound, "Table not found")
		return
	}

	links := aqm.RESTfulLinksFor(table)
	aqm.RespondSuccess(w, table, links...)
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTables")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	status := r.URL.Query().Get("status")

	var list []*Table
	var err error
	if status != "" {
		list, err = h.repo.ListByStatus(ctx, status)
	} else {
		list, err = h.repo.List(ctx)
	}
	if err != nil {
		log.Error("error retrieving tables", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not retrieve tables")
		return
	}

	aqm.RespondCollection(w, list, "table")
}

// MarkTableReady is the housekeeping acknowledgment: cleaning -> available.
// ReleaseTable clears a table's occupancy once the guests leave. The table
// parks in cleaning until housekeeping marks it ready again.
func (h *Handler) ReleaseTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ReleaseTable")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	table, err := h.repo.Get(ctx, id)
	if err != nil || table == nil {
		log.Error("table not found", "error", err, "id", id.String())
		aqm.RespondError(w, http.StatusNotFound, "Table not found")
		return
	}

	if err := table.Release(); err != nil {
		log.Info("table cannot be released", "table_id", id.String(), "status", table.Status)
		aqm.RespondError(w, fault.HTTPStatus(err), err.Error())
		return
	}

	if err := h.repo.Save(ctx, table); err != nil {
		log.Error("cannot update table", "error", err)
		aqm.RespondError(w, fault.HTTPStatus(err), "Could not update table")
		return
	}

	h.publishTableReleased(ctx, table)
	log.Info("table released", "table_id", id.String(), "number", table.Number)

	links := aqm.RESTfulLinksFor(table)
	aqm.RespondSuccess(w, table, links...)
}

func (h *Handler) publishTableReleased(ctx context.Context, table *Table) {
	if h.publisher == nil {
		return
	}
	evt := event.TableReleased{
		TableID:    table.ID,
		OccurredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("cannot marshal table released event", "error", err)
		return
	}
	if err := h.publisher.Publish(ctx, event.TopicTableReleased, payload); err != nil {
		h.logger.Error("cannot publish table released event", "error", err, "table_id", table.ID.String())
	}
}

func (h *Handler) MarkTableReady(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.MarkTableReady")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	table, err := h.repo.Get(ctx, id)
	if err != nil || table == nil {
		log.Error("table not found", "error", err, "id", id.String())
		aqm.RespondError(w, http.StatusNotFound, "Table not found")
		return
	}

	if err := table.MarkReady(); err != nil {
		log.Info("table not ready for use", "table_id", id.String(), "status", table.Status)
		aqm.RespondError(w, fault.HTTPStatus(err), err.Error())
		return
	}

	if err := h.repo.Save(ctx, table); err != nil {
		log.Error("cannot update table", "error", err)
		aqm.RespondError(w, fault.HTTPStatus(err), "Could not update table")
		return
	}

	links := aqm.RESTfulLinksFor(table)
	aqm.RespondSuccess(w, table, links...)
}

func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeleteTable")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	if err := h.repo.Delete(ctx, id); err != nil {
		log.Error("cannot delete table", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not delete table")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

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

func (h *Handler) decodeCreatePayload(w http.ResponseWriter, r *http.Request, log aqm.Logger) (TableCreateRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return TableCreateRequest{}, false
	}

	var req TableCreateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Debug("failed to decode request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return TableCreateRequest{}, false
	}

	return req, true
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

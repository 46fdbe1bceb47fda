package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ruaancorrea/helpdesk-backend/internal/service"
	"github.com/ruaancorrea/helpdesk-backend/internal/utils"
)

// TicketHTTP wires the ticket lifecycle endpoints.
type TicketHTTP struct {
	svc *service.TicketService
	log zerolog.Logger
}

func NewTicketHTTP(svc *service.TicketService, log zerolog.Logger) *TicketHTTP {
	return &TicketHTTP{svc: svc, log: log}
}

// GET /tickets
func (h *TicketHTTP) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := h.svc.List(r.Context())
		if err != nil {
			fail(w, h.log, err, "failed to list tickets")
			return
		}
		utils.JSON(w, http.StatusOK, rawList(docs))
	}
}

// GET /tickets/{id}
func (h *TicketHTTP) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			fail(w, h.log, err, "failed to load ticket")
			return
		}
		utils.Raw(w, http.StatusOK, doc.Data)
	}
}

// POST /tickets
func (h *TicketHTTP) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.TicketInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		doc, err := h.svc.Create(r.Context(), in)
		if err != nil {
			fail(w, h.log, err, "failed to create ticket")
			return
		}
		utils.Raw(w, http.StatusCreated, doc.Data)
	}
}

// PUT /tickets/{id}
// Echoes the applied patch, not the merged document.
func (h *TicketHTTP) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		applied, err := h.svc.Update(r.Context(), id, patch)
		if err != nil {
			fail(w, h.log, err, "failed to update ticket")
			return
		}
		resp := make(map[string]any, len(applied)+1)
		for k, v := range applied {
			resp[k] = v
		}
		resp["id"] = id
		utils.JSON(w, http.StatusOK, resp)
	}
}

// DELETE /tickets/{id}
func (h *TicketHTTP) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := h.svc.Delete(r.Context(), id); err != nil {
			fail(w, h.log, err, "failed to delete ticket")
			return
		}
		utils.Text(w, http.StatusOK, fmt.Sprintf("Ticket %s apagado com sucesso.", id))
	}
}

// POST /tickets/{id}/timeline
func (h *TicketHTTP) AddTimelineEntry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.EntryInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		entry, err := h.svc.AppendTimeline(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			fail(w, h.log, err, "failed to add timeline entry")
			return
		}
		utils.JSON(w, http.StatusCreated, entry)
	}
}

// POST /tickets/{id}/internal-comments
func (h *TicketHTTP) AddInternalComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.EntryInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		entry, err := h.svc.AppendInternalComment(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			fail(w, h.log, err, "failed to add internal comment")
			return
		}
		utils.JSON(w, http.StatusCreated, entry)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ruaancorrea/helpdesk-backend/internal/docstore"
	"github.com/ruaancorrea/helpdesk-backend/internal/utils"
)

const collCategories = "categories"

// CategoryHTTP is plain pass-through CRUD; isActive works as a soft-delete
// flag on reads.
type CategoryHTTP struct {
	store docstore.Store
	log   zerolog.Logger
}

func NewCategoryHTTP(store docstore.Store, log zerolog.Logger) *CategoryHTTP {
	return &CategoryHTTP{store: store, log: log}
}

// GET /categories
func (h *CategoryHTTP) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := h.store.Query(r.Context(), collCategories, map[string]any{"isActive": true})
		if err != nil {
			fail(w, h.log, err, "failed to list categories")
			return
		}
		utils.JSON(w, http.StatusOK, rawList(docs))
	}
}

// POST /categories
func (h *CategoryHTTP) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		if body == nil {
			body = map[string]any{}
		}
		body["createdAt"] = time.Now().UTC().Format(time.RFC3339)
		doc, err := h.store.Add(r.Context(), collCategories, body)
		if err != nil {
			fail(w, h.log, err, "failed to create category")
			return
		}
		utils.Raw(w, http.StatusCreated, doc.Data)
	}
}

// PUT /categories/{id}
func (h *CategoryHTTP) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		if patch == nil {
			patch = map[string]any{}
		}
		if err := h.store.Update(r.Context(), collCategories, id, patch); err != nil {
			fail(w, h.log, err, "failed to update category")
			return
		}
		patch["id"] = id
		utils.JSON(w, http.StatusOK, patch)
	}
}

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ruaancorrea/helpdesk-backend/internal/models"
	"github.com/ruaancorrea/helpdesk-backend/internal/service"
	"github.com/ruaancorrea/helpdesk-backend/internal/utils"
)

type UserHTTP struct {
	svc *service.UserService
	log zerolog.Logger
}

func NewUserHTTP(svc *service.UserService, log zerolog.Logger) *UserHTTP {
	return &UserHTTP{svc: svc, log: log}
}

// GET /users
func (h *UserHTTP) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := h.svc.List(r.Context())
		if err != nil {
			fail(w, h.log, err, "failed to list users")
			return
		}
		utils.JSON(w, http.StatusOK, users)
	}
}

// POST /users
func (h *UserHTTP) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.UserInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		u, err := h.svc.Create(r.Context(), in)
		if err != nil {
			fail(w, h.log, err, "failed to create user")
			return
		}
		utils.JSON(w, http.StatusCreated, u)
	}
}

// PUT /users/{id}
func (h *UserHTTP) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		applied, err := h.svc.Update(r.Context(), id, patch)
		if err != nil {
			fail(w, h.log, err, "failed to update user")
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

// DELETE /users/{id}
func (h *UserHTTP) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := h.svc.Delete(r.Context(), id); err != nil {
			fail(w, h.log, err, "failed to delete user")
			return
		}
		utils.Text(w, http.StatusOK, fmt.Sprintf("Usuário %s apagado com sucesso.", id))
	}
}

// POST /users/bulk
func (h *UserHTTP) BulkImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Users []models.BulkUserRow `json:"users"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		n, err := h.svc.BulkImport(r.Context(), in.Users)
		if err != nil {
			fail(w, h.log, err, "failed to import users")
			return
		}
		utils.Text(w, http.StatusCreated, fmt.Sprintf("%d usuários criados com sucesso!", n))
	}
}

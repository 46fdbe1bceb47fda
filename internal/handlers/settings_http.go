package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ruaancorrea/helpdesk-backend/internal/docstore"
	"github.com/ruaancorrea/helpdesk-backend/internal/notify"
	"github.com/ruaancorrea/helpdesk-backend/internal/utils"
)

const (
	collSLAConfig       = "slaConfig"
	collGeneralSettings = "generalSettings"
	collEmailSettings   = "emailSettings"

	// Singleton settings live under a fixed document id.
	settingsDocID = "main"
)

// SettingsHTTP serves SLA config and the singleton general/email settings
// documents. Writes are read-modify-merge: unspecified fields survive.
type SettingsHTTP struct {
	store  docstore.Store
	sender notify.Sender
	log    zerolog.Logger
}

func NewSettingsHTTP(store docstore.Store, sender notify.Sender, log zerolog.Logger) *SettingsHTTP {
	return &SettingsHTTP{store: store, sender: sender, log: log}
}

// GET /sla-config
func (h *SettingsHTTP) ListSLA() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := h.store.Query(r.Context(), collSLAConfig, nil)
		if err != nil {
			fail(w, h.log, err, "failed to list sla config")
			return
		}
		utils.JSON(w, http.StatusOK, rawList(docs))
	}
}

// PUT /sla-config/{id}
func (h *SettingsHTTP) UpdateSLA() http.HandlerFunc {
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
		if err := h.store.Update(r.Context(), collSLAConfig, id, patch); err != nil {
			fail(w, h.log, err, "failed to update sla config")
			return
		}
		patch["id"] = id
		utils.JSON(w, http.StatusOK, patch)
	}
}

// GET /settings/general
func (h *SettingsHTTP) GetGeneral() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := h.store.Get(r.Context(), collGeneralSettings, settingsDocID)
		if err != nil {
			fail(w, h.log, err, "failed to load general settings")
			return
		}
		utils.Raw(w, http.StatusOK, doc.Data)
	}
}

// POST /settings/general
func (h *SettingsHTTP) SaveGeneral() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := h.store.Merge(r.Context(), collGeneralSettings, settingsDocID, body); err != nil {
			fail(w, h.log, err, "failed to save general settings")
			return
		}
		utils.JSON(w, http.StatusOK, body)
	}
}

// GET /settings/email
func (h *SettingsHTTP) GetEmail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := h.store.Get(r.Context(), collEmailSettings, settingsDocID)
		if err != nil {
			fail(w, h.log, err, "failed to load email settings")
			return
		}
		utils.Raw(w, http.StatusOK, doc.Data)
	}
}

// POST /settings/email
// Delivery runs through the provider API key, so only the notification
// toggles are persisted here.
func (h *SettingsHTTP) SaveEmail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			NotifyOnNew    bool `json:"notifyOnNew"`
			NotifyOnUpdate bool `json:"notifyOnUpdate"`
			NotifyOnClose  bool `json:"notifyOnClose"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := h.store.Merge(r.Context(), collEmailSettings, settingsDocID, in); err != nil {
			fail(w, h.log, err, "failed to save email settings")
			return
		}
		utils.JSON(w, http.StatusOK, in)
	}
}

// POST /send-test-email
// Unlike ticket notifications this send is synchronous: the caller wants
// to know whether the provider works.
func (h *SettingsHTTP) SendTestEmail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			To string `json:"to"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.To == "" {
			utils.Error(w, http.StatusBadRequest, `o campo "to" é obrigatório`)
			return
		}
		err := h.sender.Send(r.Context(), in.To,
			"E-mail de Teste do Helpdesk",
			"<p>Este é um e-mail de teste enviado pelo sistema de Helpdesk.</p>")
		if err != nil {
			h.log.Error().Err(err).Str("to", in.To).Msg("test email failed")
			utils.Error(w, http.StatusInternalServerError, "failed to send test email")
			return
		}
		utils.Text(w, http.StatusOK, "E-mail de teste enviado com sucesso!")
	}
}

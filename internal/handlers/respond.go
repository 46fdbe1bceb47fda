package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ruaancorrea/helpdesk-backend/internal/docstore"
	"github.com/ruaancorrea/helpdesk-backend/internal/service"
	"github.com/ruaancorrea/helpdesk-backend/internal/utils"
)

// fail maps service errors onto HTTP statuses. Store and provider failures
// stay generic on the wire; the detail goes to the log only.
func fail(w http.ResponseWriter, log zerolog.Logger, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		utils.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, docstore.ErrNotFound):
		utils.Error(w, http.StatusNotFound, "not found")
	default:
		log.Error().Err(err).Msg(msg)
		utils.Error(w, http.StatusInternalServerError, msg)
	}
}

func rawList(docs []docstore.Document) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Data)
	}
	return out
}

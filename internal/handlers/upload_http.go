package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ruaancorrea/helpdesk-backend/internal/storage"
	"github.com/ruaancorrea/helpdesk-backend/internal/utils"
)

const maxUploadMemory = 32 << 20

type UploadHTTP struct {
	uploader storage.Uploader
	log      zerolog.Logger
}

func NewUploadHTTP(uploader storage.Uploader, log zerolog.Logger) *UploadHTTP {
	return &UploadHTTP{uploader: uploader, log: log}
}

// POST /upload
func (h *UploadHTTP) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			utils.Error(w, http.StatusBadRequest, "Nenhum ficheiro enviado.")
			return
		}
		defer func() { _ = file.Close() }()

		url, err := h.uploader.Upload(r.Context(), header.Filename, file)
		if err != nil {
			h.log.Error().Err(err).Str("file", header.Filename).Msg("upload failed")
			utils.Error(w, http.StatusInternalServerError, "failed to upload file")
			return
		}
		utils.JSON(w, http.StatusOK, map[string]string{
			"url":  url,
			"name": header.Filename,
		})
	}
}

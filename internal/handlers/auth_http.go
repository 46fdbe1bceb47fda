package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruaancorrea/helpdesk-backend/internal/service"
	"github.com/ruaancorrea/helpdesk-backend/internal/utils"
)

type AuthHTTP struct {
	svc *service.AuthService
	log zerolog.Logger
}

func NewAuthHTTP(svc *service.AuthService, log zerolog.Logger) *AuthHTTP {
	return &AuthHTTP{svc: svc, log: log}
}

// POST /login
func (h *AuthHTTP) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}

		token, u, err := h.svc.Login(r.Context(), in.Email, in.Password)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrValidation):
				utils.Error(w, http.StatusBadRequest, "email and password are required")
			case errors.Is(err, service.ErrInvalidCredentials):
				utils.JSON(w, http.StatusUnauthorized, map[string]any{
					"success": false,
					"message": "Email ou senha incorretos",
				})
			default:
				h.log.Error().Err(err).Msg("login failed")
				utils.Error(w, http.StatusInternalServerError, "login failed")
			}
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     "session",
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Expires:  time.Now().Add(24 * time.Hour),
		})
		utils.JSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
	}
}

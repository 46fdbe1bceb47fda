package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruaancorrea/helpdesk-backend/internal/utils"
)

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func RequestLogger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(sw, r)

			ev := l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.code).
				Dur("duration", time.Since(start))
			if uid, ok := utils.GetString(r.Context(), CtxUserID); ok && uid != "" {
				ev = ev.Str("uid", uid)
			}
			ev.Msg("request")
		})
	}
}

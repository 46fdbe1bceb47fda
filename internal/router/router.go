package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/ruaancorrea/helpdesk-backend/internal/config"
	"github.com/ruaancorrea/helpdesk-backend/internal/docstore"
	"github.com/ruaancorrea/helpdesk-backend/internal/handlers"
	"github.com/ruaancorrea/helpdesk-backend/internal/middleware"
	"github.com/ruaancorrea/helpdesk-backend/internal/notify"
	"github.com/ruaancorrea/helpdesk-backend/internal/obs"
	"github.com/ruaancorrea/helpdesk-backend/internal/service"
	"github.com/ruaancorrea/helpdesk-backend/internal/storage"
)

// Deps carries everything the routes need; main wires the real thing,
// tests swap in fakes.
type Deps struct {
	Log      zerolog.Logger
	Cfg      config.Config
	Store    docstore.Store
	Sender   notify.Sender
	Queue    notify.Queue
	Uploader storage.Uploader
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogger(d.Log))
	r.Use(middleware.Recoverer(d.Log))
	r.Use(middleware.WithSession(d.Cfg.SessionSecret))
	r.Use(obs.Instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{d.Cfg.Origin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(httprate.LimitByIP(200, time.Minute))

	r.Get("/healthz", handlers.Health())
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	ticketSvc := service.NewTicketService(d.Store, d.Sender, d.Queue, d.Log)
	userSvc := service.NewUserService(d.Store, d.Log)
	authSvc := service.NewAuthService(d.Store, d.Cfg.SessionSecret)

	ah := handlers.NewAuthHTTP(authSvc, d.Log)
	th := handlers.NewTicketHTTP(ticketSvc, d.Log)
	uh := handlers.NewUserHTTP(userSvc, d.Log)
	ch := handlers.NewCategoryHTTP(d.Store, d.Log)
	sh := handlers.NewSettingsHTTP(d.Store, d.Sender, d.Log)
	fh := handlers.NewUploadHTTP(d.Uploader, d.Log)

	r.Post("/login", ah.Login())

	r.Route("/users", func(r chi.Router) {
		r.Get("/", uh.List())
		r.Post("/", uh.Create())
		r.Post("/bulk", uh.BulkImport())
		r.Put("/{id}", uh.Update())
		r.Delete("/{id}", uh.Delete())
	})

	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", th.List())
		r.Post("/", th.Create())
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", th.Get())
			r.Put("/", th.Update())
			r.Delete("/", th.Delete())
			r.Post("/timeline", th.AddTimelineEntry())
			r.Post("/internal-comments", th.AddInternalComment())
		})
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", ch.List())
		r.Post("/", ch.Create())
		r.Put("/{id}", ch.Update())
	})

	r.Route("/sla-config", func(r chi.Router) {
		r.Get("/", sh.ListSLA())
		r.Put("/{id}", sh.UpdateSLA())
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/general", sh.GetGeneral())
		r.Post("/general", sh.SaveGeneral())
		r.Get("/email", sh.GetEmail())
		r.Post("/email", sh.SaveEmail())
	})

	r.Post("/send-test-email", sh.SendTestEmail())
	r.Post("/upload", fh.Upload())

	return r
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ruaancorrea/helpdesk-backend/internal/config"
	"github.com/ruaancorrea/helpdesk-backend/internal/database"
	"github.com/ruaancorrea/helpdesk-backend/internal/docstore"
	"github.com/ruaancorrea/helpdesk-backend/internal/notify"
	"github.com/ruaancorrea/helpdesk-backend/internal/obs"
	"github.com/ruaancorrea/helpdesk-backend/internal/router"
	"github.com/ruaancorrea/helpdesk-backend/internal/storage"
	"github.com/ruaancorrea/helpdesk-backend/pkg/logger"
)

func main() {
	// config + logger
	_ = godotenv.Load()
	cfg := config.Load()
	l := logger.New(cfg.Env)
	obs.Init()

	// db
	pool, err := database.Open(context.Background(), cfg)
	if err != nil {
		l.Fatal().Err(err).Msg("db connect failed")
	}
	defer pool.Close()

	// external providers
	sender := notify.NewResend(cfg.ResendAPIKey, cfg.EmailFrom, cfg.EmailReplyTo)
	var uploader storage.Uploader = storage.Disabled{}
	if cld, err := storage.NewCloudinary(cfg.CloudinaryURL); err != nil {
		l.Warn().Err(err).Msg("cloudinary not configured, uploads disabled")
	} else {
		uploader = cld
	}

	// background notification workers
	dispatcher := notify.NewDispatcher(l, 4, 256)

	// http
	r := router.New(router.Deps{
		Log:      l,
		Cfg:      cfg,
		Store:    docstore.NewPostgres(pool),
		Sender:   sender,
		Queue:    dispatcher,
		Uploader: uploader,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		l.Info().Str("addr", srv.Addr).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	// graceful shutdown: stop accepting requests, then drain notifications
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	dispatcher.Close()
	l.Info().Msg("shutdown complete")
}

package main

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tilematch/internal/best"
	"tilematch/internal/config"
	"tilematch/internal/game"
	"tilematch/internal/handlers"
	"tilematch/pkg/realtime"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	_ = mime.AddExtensionType(".js", "application/javascript")
	_ = mime.AddExtensionType(".css", "text/css")

	records, err := best.Open(best.Backend(cfg.BestStore), cfg.BestSQLitePath, cfg.BestFileDir)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.BestStore).Msg("open best store")
	}
	defer records.Close()

	store := game.NewStore(records, realtime.ClockScheduler{}, log.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handlers.RequestLogger(log.Logger))
	r.Use(middleware.Recoverer)

	staticFS, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		log.Fatal().Err(err).Msg("static assets")
	}
	r.Mount("/static", http.StripPrefix("/static", http.FileServer(http.FS(staticFS))))

	homeHandler := handlers.NewHomeHandler(store, records, log.Logger)
	gameHandler := handlers.NewGameHandler(store, records, log.Logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		homeHandler.RegisterRoutes(r)
		gameHandler.RegisterRoutes(r)
	})
	gameHandler.RegisterStreams(r)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// No WriteTimeout: the event stream and websocket stay open.
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.Addr()).Str("best_store", cfg.BestStore).Msg("listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("shut down")
}

func setupLogging(cfg config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

//go:embed static/*
var embeddedStatic embed.FS

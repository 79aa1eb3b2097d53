package server

import (
	"bugfind/internal/client"
	"bugfind/internal/config"
	"bugfind/internal/db"
	"bugfind/internal/logger"
	"bugfind/internal/metrics"
	"bugfind/internal/session"
	"bugfind/internal/store"
	"bugfind/internal/wshub"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run wires one participant's client from the environment and serves its
// local API until interrupted.
func Run() error {
	appCfg := config.Load()
	if err := logger.Setup(os.Stderr, appCfg.LogLevel, appCfg.LogFormat); err != nil {
		return err
	}
	log := logger.New("server")

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		st     store.Store
		health func(context.Context) error
	)
	if appCfg.DatabaseURL != "" {
		database, err := db.Open(ctx, appCfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer database.Close()
		st, health = database, database.Ping
		log.Info().Msg("using PostgreSQL store")
	} else {
		mem := store.NewMemory(store.SeedWords())
		defer mem.Close()
		st = mem
		log.Info().Msg("DATABASE_URL not set, using in-memory store")
	}

	hub := wshub.NewHub()
	c := client.New(st, session.New(appCfg.SessionFile), client.Options{
		Discussion: appCfg.Discussion,
		MaxPlayers: appCfg.MaxPlayers,
	}, hub.PublishView)
	defer c.Close()

	srv := New(c, hub)
	srv.Health = health
	srv.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	httpSrv := &http.Server{
		Addr:              "0.0.0.0:" + appCfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msgf("listening on http://localhost:%s", appCfg.Port)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// Routes builds the local API router.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/rooms", s.handleCreateRoom).Methods(http.MethodPost)
	r.HandleFunc("/rooms/join", s.handleJoinRoom).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{roomID}/resume", s.handleResume).Methods(http.MethodPost)
	r.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)
	r.HandleFunc("/room", s.handleRoom).Methods(http.MethodGet)
	r.HandleFunc("/room/start", s.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/room/vote", s.handleVote).Methods(http.MethodPost)
	r.HandleFunc("/room/restart", s.handleRestart).Methods(http.MethodPost)
	r.HandleFunc("/room/leave", s.handleLeave).Methods(http.MethodPost)
	r.HandleFunc("/room/ws", s.handleWS).Methods(http.MethodGet)
	r.HandleFunc("/room/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics).Methods(http.MethodGet)
	}
	return r
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"caro-arena/internal/arena"
	"caro-arena/internal/bot"
	"caro-arena/internal/config"
	"caro-arena/internal/logging"
	"caro-arena/internal/store"
	httptransport "caro-arena/internal/transport/http"
	"caro-arena/internal/ws"
)

func main() {
	app, err := config.LoadApp()
	logging.Init(app.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("load config failed")
	}
	cfg := app.Server

	st, err := store.New(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer st.Close()
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}

	hub := ws.NewHub()
	coord := arena.NewCoordinator(st, hub, bot.New(), clockwork.NewRealClock(), arena.Config{
		TurnTimeLimit:    time.Duration(cfg.TurnTimeLimitSec) * time.Second,
		HeartbeatTimeout: time.Duration(cfg.HeartbeatTimeoutSec) * time.Second,
		ReconnectGrace:   time.Duration(cfg.ReconnectGraceSec) * time.Second,
		BoardSize:        cfg.BoardSize,
	})
	signer := ws.NewHMACVerifier(cfg.AuthSecret)
	wsServer := ws.NewServer(coord, hub, signer)
	router := httptransport.NewRouter(st, signer, wsServer)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("game server listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}
}

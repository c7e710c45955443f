package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/factories"
	wstransport "github.com/Nonhuman-Nonsense/council-of-foods-sub001/transports/websocket"
)

func main() {
	logger := core.GetLogger()

	if err := godotenv.Load(".env.local"); err != nil {
		logger.With(map[string]interface{}{"error": err}).Warn("No .env.local file found or failed to load")
	}

	settings, err := factories.LoadSettings()
	if err != nil {
		logger.With(map[string]interface{}{"error": err}).Fatal("invalid settings")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := factories.BuildStore(ctx, settings, logger)
	if err != nil {
		logger.With(map[string]interface{}{"error": err}).Fatal("store initialization failed")
	}

	gen, llm := factories.BuildGenerator(settings, logger)
	if err := llm.Init(ctx); err != nil {
		logger.With(map[string]interface{}{"error": err}).Fatal("llm initialization failed")
	}
	defer func() { _ = llm.Cleanup() }()

	audioSys := factories.BuildAudioSystem(settings, st, logger)
	hub := factories.BuildHub(settings, st, gen, audioSys, logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", wstransport.NewServer(hub, logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:    ":" + settings.Port,
		Handler: mux,
	}

	go func() {
		logger.With(map[string]interface{}{"port": settings.Port}).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.With(map[string]interface{}{"error": err}).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// In-flight sockets get a grace period; meetings persist and clients
	// reconnect after the restart.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.With(map[string]interface{}{"error": err}).Error("shutdown did not complete cleanly")
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quillpad/quillpad/internal/auth"
	"github.com/quillpad/quillpad/internal/config"
	httpapp "github.com/quillpad/quillpad/internal/http"
	"github.com/quillpad/quillpad/internal/rate"
	"github.com/quillpad/quillpad/internal/store/sqlite"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := config.Load()
	if cfg.TokenSecret == "" {
		log.Error("QUILLPAD_TOKEN_SECRET is required")
		os.Exit(1)
	}

	st, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Error("open database", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer st.Close()

	authSvc := auth.NewService(st, []byte(cfg.TokenSecret), cfg.TokenTTL)
	limiter := rate.NewFixedWindow(cfg.LoginPerMinute, time.Minute)

	server, err := httpapp.NewServer(st, authSvc, limiter, cfg, log)
	if err != nil {
		log.Error("init server", "error", err)
		os.Exit(1)
	}

	handler := httpapp.WithRequestLog(log, httpapp.WithRecover(log, server))
	if err := runServer(cfg.Addr, handler, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// runServer serves until SIGINT or SIGTERM, then drains in-flight
// requests before returning.
func runServer(addr string, handler http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

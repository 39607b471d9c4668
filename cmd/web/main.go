package main

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"temudesign/internal/app"
	"temudesign/internal/config"
	"temudesign/internal/session"
	"temudesign/internal/web"
)

//go:embed static/*
var staticFS embed.FS

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := app.NewLogger(cfg, os.Stdout)
	st := app.NewStudio(cfg, logger)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	sessions := session.NewStore(session.Options{
		Idle: cfg.SessionIdle,
	})

	api := web.New(web.Options{
		Orchestrator:   st.Orchestrator,
		Gate:           st.Gate,
		Sessions:       sessions,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	})

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	router := api.Router()
	router.NoRoute(gin.WrapH(http.FileServer(http.FS(staticSub))))

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessions.Run(ctx, time.Minute, func(n int) {
		logger.Info("idle sessions evicted", "count", n, "remaining", sessions.Len())
	})

	go func() {
		<-ctx.Done()
		logger.Info("shutting down", "sessions", sessions.Len())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "err", err)
			_ = srv.Close()
		}
	}()

	logger.Info("web started", "addr", cfg.WebAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
	api.Close()
}

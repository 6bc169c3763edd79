package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/groceryadmin/internal/api"
	"github.com/jafarshop/groceryadmin/internal/api/handlers"
	"github.com/jafarshop/groceryadmin/internal/app"
	"github.com/jafarshop/groceryadmin/internal/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to start admin client", zap.Error(err))
	}
	defer a.Close()

	console := &handlers.Console{
		Services: a.Services,
		Screens:  a.Screens,
		Notes:    a.Notes,
	}
	if a.Audit != nil {
		console.Audit = a.Audit
	}

	server := &http.Server{
		Addr:              ":" + cfg.Console.Port,
		Handler:           api.NewRouter(cfg, console, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Console listening", zap.String("addr", server.Addr), zap.String("api", cfg.API.BaseURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Console server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down console")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Console shutdown failed", zap.Error(err))
	}
}

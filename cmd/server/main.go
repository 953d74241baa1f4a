package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	h "github.com/linshen005/youtube-downloader-backend/internal/api/http"
	cfgpkg "github.com/linshen005/youtube-downloader-backend/internal/config"
	"github.com/linshen005/youtube-downloader-backend/internal/media"
	"github.com/linshen005/youtube-downloader-backend/internal/registry"
	svc "github.com/linshen005/youtube-downloader-backend/internal/service"
	"github.com/linshen005/youtube-downloader-backend/internal/storage"
	"github.com/linshen005/youtube-downloader-backend/internal/sweeper"
)

func main() {

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg, err := cfgpkg.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	cfgpkg.SetupLogger(cfg)
	slog.Info("configuration loaded successfully", "environment", cfg.Environment)

	jobRegistry := registry.New()
	fileStorage := storage.NewFileStorage(cfg.DownloadDir)
	tool := media.NewTool(cfg.YTDLPPath, cfg.FFmpegPath, cfg.MetadataTimeout, cfg.DownloadTimeout)

	downloadService := svc.NewDownloadService(jobRegistry, fileStorage, tool, cfg)
	retentionSweeper := sweeper.New(cfg.DownloadDir, cfg.MaxFileAge, cfg.CleanupInterval, slog.Default())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go retentionSweeper.Run(ctx)

	if cfg.JobTTL > 0 {
		go jobRegistry.RunJanitor(ctx, cfg.JobTTL)
	}

	handler := h.NewDownloadHandler(downloadService, jobRegistry, fileStorage, retentionSweeper, slog.Default())
	router := h.NewRouter(handler, slog.Default())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  cfg.HTTPTimeout,
	}

	go func() {
		slog.Info("server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	} else {
		slog.Info("server stopped gracefully")
	}

	if err := downloadService.Shutdown(shutdownCtx); err != nil {
		slog.Error("download service shutdown failed", "error", err)
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Skufu/Health-Info-Assistant/internal/chat"
	"github.com/Skufu/Health-Info-Assistant/internal/config"
	"github.com/Skufu/Health-Info-Assistant/internal/handler"
	"github.com/Skufu/Health-Info-Assistant/internal/log"
	"github.com/Skufu/Health-Info-Assistant/internal/video"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	log.Init(log.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "healthinfo",
	})
	logger := log.L()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	chain, err := buildChain(cfg)
	if err != nil {
		return err
	}

	store, err := buildHistory(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	cache := buildVideoCache(cfg)
	defer cache.Close()

	if cfg.YouTube.APIKey == "" {
		logger.Warn().Msg("youtube api key not set, video endpoints will return 503")
	}
	videoService := video.NewService(
		video.NewYouTubeClient(cfg.YouTube.APIKey, cfg.YouTube.BaseURL, cfg.YouTube.Timeout),
		cache,
		cfg.Cache.Prefix,
		cfg.Cache.TTL,
	)

	router := handler.NewRouter(
		logger,
		handler.NewChatHandler(chat.NewService(chain, store)),
		handler.NewVideoHandler(videoService),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("history", cfg.History.Driver).Msg("healthinfo starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

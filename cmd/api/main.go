package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammadpnp/member-import/internal/bootstrap"
	"github.com/mohammadpnp/member-import/internal/config"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load(config.DefaultEnvFiles...)
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger := cfg.Logger()

	services, err := bootstrap.NewServices(context.Background(), cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to start services")
	}
	defer services.Close()

	server, err := bootstrap.NewHTTPServer(cfg, services, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build http server")
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("http server listening")
		if err := server.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

package main

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"hermannm.dev/devlog/log"

	"aasquery/backend/internal/auth"
	"aasquery/backend/internal/config"
	"aasquery/backend/internal/handler"
	"aasquery/backend/internal/history"
	"aasquery/backend/internal/observability"
	"aasquery/backend/internal/service"
)

func main() {
	cfg, err := config.ReadFromEnv()
	if err != nil {
		log.ErrorCause(err, "failed to read config from env")
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg.Log, os.Stdout)
	gin.SetMode(cfg.API.GinMode)

	httpClient := &http.Client{Timeout: cfg.AnalysisServices.Timeout}
	tokens := auth.NewClientCredentials(cfg.Identity, httpClient)
	engine := service.NewAnalysisServicesClient(cfg.AnalysisServices, service.WithHTTPClient(httpClient))

	var recorder history.Recorder
	var postgres *history.PostgresRecorder
	if cfg.History.Enabled() {
		postgres, err = history.Connect(context.Background(), cfg.History.DSN)
		if err != nil {
			log.ErrorCause(err, "failed to initialize query history")
			os.Exit(1)
		}
		recorder = postgres
	}

	r := gin.New()
	r.Use(gin.Recovery(), observability.Trace(), observability.RequestLogger(logger), observability.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.New(tokens, engine, recorder).Register(r)

	log.Infof("Serving %s on port %s", cfg.AnalysisServices.ConnectionString(), cfg.API.Port)
	err = r.Run(":" + cfg.API.Port)
	if postgres != nil {
		if closeErr := postgres.Close(); closeErr != nil {
			log.ErrorCause(closeErr, "failed to close query history database")
		}
	}
	if err != nil {
		log.ErrorCause(err, "server stopped")
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/sustainifly/go/internal/config"
	"github.com/mcdev12/sustainifly/go/internal/eventbus"
	"github.com/mcdev12/sustainifly/go/internal/gateway"
	"github.com/mcdev12/sustainifly/go/internal/platform/otel"
	"github.com/mcdev12/sustainifly/go/internal/region"
)

const serviceName = "sustainifly-gateway"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := config.SetupLogging(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("failed to configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, serviceName, cfg.OTELEndpoint, cfg.OTELEnabled)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}

	catalog, err := region.Load(cfg.RegionsFile)
	if err != nil {
		log.Fatal().Err(err).Str("regions_file", cfg.RegionsFile).Msg("failed to load region catalog")
	}

	publisher, closePublisher, err := newPublisher(ctx, cfg.NATS)
	if err != nil {
		log.Fatal().Err(err).Str("nats_url", cfg.NATS.URL).Msg("failed to connect event publisher")
	}
	counting := eventbus.NewCountingPublisher(publisher, nil)
	var broker eventbus.ConnectionReporter
	if js, ok := publisher.(*eventbus.JetStreamPublisher); ok {
		broker = js
	}

	log.Info().
		Str("port", cfg.Port).
		Str("nats_url", cfg.NATS.URL).
		Int("regions", len(catalog.Regions())).
		Msg("starting session gateway")

	gatewayService := gateway.NewService(gateway.Config{
		ConnectionConfig: gateway.DefaultConnectionConfig(),
		AllowedOrigins:   cfg.AllowedOrigins,
		EventsHealth:     eventbus.NewHealthChecker(counting, broker),
	}, catalog, counting)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           gatewayService.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serviceDone := make(chan struct{})
	go func() {
		defer close(serviceDone)
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down session gateway")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	<-serviceDone
	if err := closePublisher(); err != nil {
		log.Error().Err(err).Msg("failed to close event publisher")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to flush traces")
	}

	log.Info().Msg("session gateway stopped")
}

// newPublisher connects to JetStream when a NATS URL is configured and falls
// back to logging events otherwise.
func newPublisher(ctx context.Context, cfg config.NATSConfig) (eventbus.Publisher, func() error, error) {
	if cfg.URL == "" {
		log.Info().Msg("NATS_URL not set, session events are logged only")
		return eventbus.LogPublisher{}, func() error { return nil }, nil
	}

	jsCfg := eventbus.DefaultJetStreamConfig()
	jsCfg.URL = cfg.URL
	jsCfg.StreamName = cfg.StreamName
	jsCfg.SubjectPrefix = cfg.SubjectPrefix
	jsCfg.ReconnectWait = cfg.ReconnectWait

	p, err := eventbus.NewJetStreamPublisher(ctx, jsCfg)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}

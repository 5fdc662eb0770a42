package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agenciaspace/clinione-sub001/docs"
	"github.com/agenciaspace/clinione-sub001/internal/application"
	"github.com/agenciaspace/clinione-sub001/pkg/broker"
	"github.com/agenciaspace/clinione-sub001/pkg/config"
	"github.com/agenciaspace/clinione-sub001/pkg/db"
	"github.com/agenciaspace/clinione-sub001/pkg/httpserver"
	"github.com/agenciaspace/clinione-sub001/pkg/metrics"
	"github.com/agenciaspace/clinione-sub001/pkg/observability"
)

// @title           Webhook Delivery Service API
// @version         1.0
// @description     Outbound webhook delivery for clinic domain events

// @BasePath /webhooks/api

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conf, err := config.NewConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := observability.InitLoggerWithSentry(conf.LoggingLevel, conf.Sentry.DSN, conf.Sentry.Environment)
	defer observability.FlushSentry(2 * time.Second)

	logger.Infof("LOGGING_LEVEL = %s", conf.LoggingLevel)

	docs.SwaggerInfo.Host = conf.Server.SwaggerHost
	docs.SwaggerInfo.Schemes = []string{conf.Server.SwaggerSchema}

	m := metrics.New(prometheus.DefaultRegisterer)

	fiberServer := httpserver.NewFiber(conf, m)

	store, err := db.NewPostgres(ctx, conf.Postgres)
	if err != nil {
		logger.Fatal(err)
	}

	var kafka *broker.KafkaBroker
	if conf.Broker.Kafka.Enabled {
		if strings.ToLower(conf.LoggingLevel) == "debug" {
			broker.EnableSaramaZapLogs(logger)
		}
		kafka, err = broker.NewKafkaBroker(conf.Broker.Kafka, logger)
		if err != nil {
			logger.Fatal(err)
		}
	}

	server, err := application.NewApp(ctx, &conf, logger, store, fiberServer, kafka, m, prometheus.DefaultGatherer)
	if err != nil {
		logger.Fatal(err)
	}

	logger.Infof("webhooks service started, server config: %+v", conf.Server)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Fatalf("error listening for server: %v", err)
				return
			}

			logger.Infof("server %v closed", conf.Server.Port)
		}
	}()

	// graceful shutdown
	osSignal := <-interrupt
	logger.Infof("%v got %v, shutting down", conf.Server.Port, osSignal)

	cancel()

	if err := server.Shutdown(); err != nil {
		logger.Errorf("server %v forced to shutdown: %v", conf.Server.Port, err)
	}

	store.Close()
	logger.Infof("postgres db connection closed")

	logger.Infof("server shutdown %v done", conf.Server.Port)
}

package application

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/agenciaspace/clinione-sub001/internal/application/common"
	"github.com/agenciaspace/clinione-sub001/internal/application/repo"
	"github.com/agenciaspace/clinione-sub001/internal/application/service"
	"github.com/agenciaspace/clinione-sub001/internal/application/use-cases"
	"github.com/agenciaspace/clinione-sub001/internal/controllers/cron"
	"github.com/agenciaspace/clinione-sub001/internal/controllers/handler"
	"github.com/agenciaspace/clinione-sub001/internal/controllers/listener"
	"github.com/agenciaspace/clinione-sub001/internal/transport/producer"
	"github.com/agenciaspace/clinione-sub001/pkg/broker"
	"github.com/agenciaspace/clinione-sub001/pkg/config"
	"github.com/agenciaspace/clinione-sub001/pkg/db"
	"github.com/agenciaspace/clinione-sub001/pkg/httpclient"
	"github.com/agenciaspace/clinione-sub001/pkg/metrics"
	"github.com/agenciaspace/clinione-sub001/pkg/signer"
)

const (
	consumerRetryMin = time.Second
	consumerRetryMax = 30 * time.Second
)

type App struct {
	ctx            context.Context
	conf           *config.Config
	logger         *zap.SugaredLogger
	postgres       *db.Postgres
	httpServer     *fiber.App
	httpClient     *httpclient.Client
	kafka          *broker.KafkaBroker
	cronController *cron.Controller
	consumerDone   chan struct{}
}

// NewApp wires the service. kafkaBroker is nil when kafka is disabled: no change
// stream is consumed and dead letter notices are not published.
func NewApp(
	ctx context.Context,
	conf *config.Config,
	logger *zap.SugaredLogger,
	postgres *db.Postgres,
	httpServer *fiber.App,
	kafkaBroker *broker.KafkaBroker,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer) (*App, error) {
	logger.Infof("starting webhooks service version %s", common.Version)

	store := repo.NewRepo(postgres, logger)
	tx := repo.NewTransactions(store, logger)
	client := httpclient.NewClient(conf.HTTPClient)

	var kafkaProducer *producer.KafkaProducer
	if kafkaBroker != nil {
		kafkaProducer = producer.NewProducer(kafkaBroker.SyncProducer, kafkaBroker, kafkaBroker.ProducerTopic, logger, conf.Broker.Kafka.MaxAttempts, m)
	} else {
		kafkaProducer = producer.NewProducer(nil, nil, "", logger, 1, m)
	}

	srv := service.NewService(store, tx, client, signer.New(), kafkaProducer, logger, service.SettingsFromConfig(conf), m)
	uc := use_cases.NewUseCase(srv, logger)

	subscriptions, err := listener.NewSubscriptionManager(conf.Subscriptions, logger)
	if err != nil {
		return nil, err
	}

	h := handler.NewWebhookHandler(uc, subscriptions, logger)
	r := handler.NewRouter(h, httpServer, conf, gatherer, logger)

	cronController := cron.NewController(ctx, logger)
	if err := cronController.RegisterSweepJobs(uc, conf.Cron); err != nil {
		return nil, fmt.Errorf("register cron jobs: %w", err)
	}
	cronController.Start()

	r.RegisterRouter()

	app := &App{
		ctx:            ctx,
		conf:           conf,
		logger:         logger,
		postgres:       postgres,
		httpServer:     httpServer,
		httpClient:     client,
		kafka:          kafkaBroker,
		cronController: cronController,
		consumerDone:   make(chan struct{}),
	}

	if kafkaBroker != nil {
		consumer := listener.NewKafkaBrokerConsumer(uc, subscriptions, logger, m)
		go app.runConsumer(ctx, consumer)
	} else {
		close(app.consumerDone)
		logger.Info("kafka disabled, change stream consumer not started")
	}

	return app, nil
}

func (a *App) Run() error {
	return a.httpServer.Listen(fmt.Sprintf(":%s", a.conf.Server.Port))
}

// Shutdown stops intake first, then waits for the consumer loop before closing kafka.
func (a *App) Shutdown() error {
	if a.cronController != nil {
		a.cronController.Stop()
	}
	err := a.httpServer.Shutdown()

	<-a.consumerDone
	if a.kafka != nil {
		if cerr := a.kafka.Close(); cerr != nil {
			a.logger.Errorf("kafka close: %v", cerr)
		}
	}
	a.httpClient.CloseIdle()

	return err
}

func (a *App) runConsumer(ctx context.Context, consumer *listener.KafkaBrokerConsumer) {
	defer close(a.consumerDone)
	a.logger.Infof("starting consumer for topic: %s", a.kafka.ConsumerTopic)

	wait := consumerRetryMin
	for {
		err := a.kafka.ConsumerGroup.Consume(ctx, []string{a.kafka.ConsumerTopic}, consumer)
		if ctx.Err() != nil {
			a.logger.Info("consumer stopped")
			return
		}
		if err == nil {
			// rebalance, join again right away
			wait = consumerRetryMin
			continue
		}

		a.logger.Errorf("consumer error, retrying in %s: %v", wait, err)
		if common.SleepCtx(ctx, wait) != nil {
			return
		}
		wait = min(wait*2, consumerRetryMax)
	}
}

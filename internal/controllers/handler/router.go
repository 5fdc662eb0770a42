package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/agenciaspace/clinione-sub001/pkg/config"
)

type Router struct {
	handler  Handler
	app      *fiber.App
	conf     *config.Config
	gatherer prometheus.Gatherer
	logger   *zap.SugaredLogger
}

func NewRouter(handler Handler, app *fiber.App, conf *config.Config, gatherer prometheus.Gatherer, logger *zap.SugaredLogger) *Router {
	return &Router{
		logger:   logger,
		app:      app,
		conf:     conf,
		gatherer: gatherer,
		handler:  handler,
	}
}

func (r *Router) RegisterRouter() {
	r.app.Get("/health", r.handler.HealthCheck)
	if r.gatherer != nil {
		r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
	}

	r.app.Route("/webhooks", func(router fiber.Router) {

		router.Use("/swagger/*", swagger.New(swagger.Config{
			DeepLinking: false,
			URL:         "/webhooks/swagger/doc.json",
		}))

		api := router.Group("/api")

		v1 := api.Group("/v1")

		v1.Post("/events", r.handler.TriggerEvent)
		v1.Get("/events/:id", r.handler.GetEvent)
		v1.Get("/events/:id/deliveries", r.handler.ListDeliveries)
		v1.Post("/events/:id/process", r.handler.ProcessEvent)

		v1.Post("/process-pending", r.handler.ProcessPending)
		v1.Post("/process-retries", r.handler.ProcessRetries)

		v1.Get("/dead-letters", r.handler.ListDeadLetters)

		v1.Get("/subscriptions", r.handler.ListSubscriptions)
		v1.Put("/subscriptions/:clinic_id", r.handler.ActivateSubscription)
		v1.Delete("/subscriptions/:clinic_id", r.handler.DeactivateSubscription)
	})
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "webhooks"

type Metrics struct {
	Delivery DeliveryMetrics
	Sweep    SweepMetrics
	Kafka    KafkaMetrics
	API      APIMetrics
}

type DeliveryMetrics struct {
	EventsTriggeredTotal  *prometheus.CounterVec
	AttemptsTotal         *prometheus.CounterVec
	AttemptDuration       *prometheus.HistogramVec
	RetriesScheduledTotal prometheus.Counter
	DeadLettersTotal      prometheus.Counter
	SignatureErrorsTotal  prometheus.Counter
	ConfigErrorsTotal     prometheus.Counter
}

type SweepMetrics struct {
	ItemsTotal      *prometheus.CounterVec
	DurationSeconds *prometheus.HistogramVec
}

type KafkaMetrics struct {
	// Producer
	ProducerAttemptLatencySeconds *prometheus.HistogramVec
	ProducerOperationsTotal       *prometheus.CounterVec

	// Consumer
	ConsumerMessagesTotal   *prometheus.CounterVec
	ConsumerProcessDuration *prometheus.HistogramVec
	ConsumerRebalancesTotal *prometheus.CounterVec
	ConsumerInFlight        *prometheus.GaugeVec
}

type APIMetrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Delivery: DeliveryMetrics{
			EventsTriggeredTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "delivery",
				Name:      "events_triggered_total",
				Help:      "Events enqueued by event type and trigger source.",
			}, []string{"event_type", "source"}),

			AttemptsTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "delivery",
				Name:      "attempts_total",
				Help:      "Outbound POST attempts by result.",
			}, []string{"result"}), // delivered|http_error|transport_error

			AttemptDuration: f.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "delivery",
				Name:      "attempt_duration_seconds",
				Help:      "Latency of a single outbound POST.",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			}, []string{"result"}),

			RetriesScheduledTotal: f.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "delivery",
				Name:      "retries_scheduled_total",
				Help:      "Retry records created.",
			}),

			DeadLettersTotal: f.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "delivery",
				Name:      "dead_letters_total",
				Help:      "Events archived after the retry budget ran out.",
			}),

			SignatureErrorsTotal: f.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "delivery",
				Name:      "signature_errors_total",
				Help:      "Deliveries sent unsigned because signing failed.",
			}),

			ConfigErrorsTotal: f.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "delivery",
				Name:      "config_errors_total",
				Help:      "Events failed because the clinic has no endpoint configured.",
			}),
		},

		Sweep: SweepMetrics{
			ItemsTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sweep",
				Name:      "items_total",
				Help:      "Items handled by bulk processors by sweep and result.",
			}, []string{"sweep", "result"}), // pending|retries x delivered|failed

			DurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "sweep",
				Name:      "duration_seconds",
				Help:      "Duration of one bulk processing run.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"sweep"}),
		},

		Kafka: KafkaMetrics{
			ProducerAttemptLatencySeconds: f.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "kafka",
				Name:      "producer_attempt_latency_seconds",
				Help:      "Latency per single produce attempt.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"topic", "result"}), // ok|error

			ProducerOperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "kafka",
				Name:      "producer_operations_total",
				Help:      "Total produce operations (one call) by result.",
			}, []string{"topic", "result"}), // success|failed|permanent|canceled

			ConsumerMessagesTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "kafka",
				Name:      "consumer_messages_total",
				Help:      "Consumed change messages by topic and result.",
			}, []string{"topic", "result"}), // triggered|skipped|invalid|error

			ConsumerProcessDuration: f.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "kafka",
				Name:      "consumer_process_duration_seconds",
				Help:      "Kafka message processing duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"topic"}),

			ConsumerRebalancesTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "kafka",
				Name:      "consumer_rebalances_total",
				Help:      "Consumer rebalance lifecycle events.",
			}, []string{"event"}),

			ConsumerInFlight: f.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "kafka",
				Name:      "consumer_inflight_messages",
				Help:      "Messages currently being processed.",
			}, []string{"topic"}),
		},

		API: APIMetrics{
			HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by method, path and status.",
			}, []string{"method", "path", "status"}),

			HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			}, []string{"method", "path", "status"}),
		},
	}
}

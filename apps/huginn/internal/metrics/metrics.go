package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Monitor cycles
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huginn",
		Subsystem: "monitor",
		Name:      "cycles_total",
		Help:      "Total completed monitoring cycles",
	}, []string{"kind"})

	CycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "huginn",
		Subsystem: "monitor",
		Name:      "cycle_duration_seconds",
		Help:      "Monitoring cycle duration",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"kind"})

	EndpointDialFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huginn",
		Subsystem: "monitor",
		Name:      "endpoint_dial_failures_total",
		Help:      "RPC endpoints skipped because the connection could not be established",
	}, []string{"network"})

	AddressErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huginn",
		Subsystem: "monitor",
		Name:      "address_errors_total",
		Help:      "Per-address processing errors absorbed by a cycle",
	}, []string{"kind", "network"})

	StoreSaveErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "huginn",
		Subsystem: "store",
		Name:      "save_errors_total",
		Help:      "Failed subscription snapshot writes",
	})

	// Notifications
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huginn",
		Subsystem: "notifier",
		Name:      "sent_total",
		Help:      "Notifications handed to the notifier",
	}, []string{"kind", "network"})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huginn",
		Subsystem: "notifier",
		Name:      "failures_total",
		Help:      "Notification deliveries that returned an error",
	}, []string{"channel"})

	// Chain queries
	RESTErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huginn",
		Subsystem: "chain",
		Name:      "rest_errors_total",
		Help:      "Failed REST queries absorbed into default values",
	}, []string{"network", "method"})
)

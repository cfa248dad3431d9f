package z3y

import "github.com/prometheus/client_golang/prometheus"

var (
	componentsRegisteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "z3y",
		Subsystem: "registry",
		Name:      "components_registered_total",
		Help:      "Total number of components successfully registered.",
	})

	pluginsLoadedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "z3y",
		Subsystem: "loader",
		Name:      "plugins_loaded_total",
		Help:      "Total number of libraries whose init committed successfully.",
	})

	pluginsFailedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "z3y",
		Subsystem: "loader",
		Name:      "plugins_failed_total",
		Help:      "Total number of library loads that failed or were rolled back.",
	}, []string{"reason"})

	eventsFiredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "z3y",
		Subsystem: "eventbus",
		Name:      "events_fired_total",
		Help:      "Total number of events published, by delivery scope.",
	}, []string{"scope"})

	asyncExceptionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "z3y",
		Subsystem: "eventbus",
		Name:      "async_exceptions_total",
		Help:      "Total number of queued callbacks that panicked or failed on the worker goroutine.",
	})

	subscriptionsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "z3y",
		Subsystem: "eventbus",
		Name:      "subscriptions",
		Help:      "Current number of live subscriptions, by scope.",
	}, []string{"scope"})
)

func init() {
	prometheus.MustRegister(
		componentsRegisteredTotal,
		pluginsLoadedTotal,
		pluginsFailedTotal,
		eventsFiredTotal,
		asyncExceptionsTotal,
		subscriptionsGauge,
	)
}

// Package metrics exports the observer's Prometheus instrumentation.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics holds the observer gauges and counters. A nil *Metrics is a valid
// no-op receiver so the loops never branch on whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	price           *prometheus.GaugeVec
	accountErrors   *prometheus.GaugeVec
	publisherErrors *prometheus.GaugeVec

	cycles            prometheus.Counter
	transientFailures prometheus.Counter
	notificationsSent prometheus.Counter
	notificationsSnzd prometheus.Counter
	referenceAge      *prometheus.GaugeVec
}

// New constructs and registers the metric set on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		price: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pyth_crypto_price",
			Help: "Latest observed price per symbol and publisher",
		}, []string{"symbol", "publisher", "status"}),
		accountErrors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pyth_price_account_errors",
			Help: "Validation errors for price accounts",
		}, []string{"symbol", "error_code"}),
		publisherErrors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pyth_publisher_price_errors",
			Help: "Validation errors for publisher price components",
		}, []string{"symbol", "publisher", "error_code"}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pyth_observer_cycles_total",
			Help: "Completed polling cycles",
		}),
		transientFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pyth_observer_transient_failures_total",
			Help: "Transient fetch failures that triggered a cycle retry",
		}),
		notificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pyth_observer_notifications_sent_total",
			Help: "Alerts dispatched to notifiers",
		}),
		notificationsSnzd: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pyth_observer_notifications_snoozed_total",
			Help: "Alerts suppressed by the snooze window",
		}),
		referenceAge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pyth_observer_reference_price_age_seconds",
			Help: "Age of the reference price for tracked base assets",
		}, []string{"base"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		m.price,
		m.accountErrors,
		m.publisherErrors,
		m.cycles,
		m.transientFailures,
		m.notificationsSent,
		m.notificationsSnzd,
		m.referenceAge,
	)
	return m
}

// SetPrice records the latest observed price for one publisher.
func (m *Metrics) SetPrice(symbol, publisher, status string, price float64) {
	if m == nil {
		return
	}
	m.price.WithLabelValues(symbol, publisher, status).Set(price)
}

// SetAccountError marks an account-level validation error. Emitted only for
// symbols that actually have errors this cycle.
func (m *Metrics) SetAccountError(symbol, code string) {
	if m == nil {
		return
	}
	m.accountErrors.WithLabelValues(symbol, code).Set(1)
}

// SetPublisherError marks a publisher-level validation error.
func (m *Metrics) SetPublisherError(symbol, publisher, code string) {
	if m == nil {
		return
	}
	m.publisherErrors.WithLabelValues(symbol, publisher, code).Set(1)
}

// IncCycle counts one completed polling cycle.
func (m *Metrics) IncCycle() {
	if m == nil {
		return
	}
	m.cycles.Inc()
}

// IncTransientFailure counts one retried fetch failure.
func (m *Metrics) IncTransientFailure() {
	if m == nil {
		return
	}
	m.transientFailures.Inc()
}

// AddNotifications records dispatched and snoozed alert counts.
func (m *Metrics) AddNotifications(sent, snoozed int) {
	if m == nil {
		return
	}
	m.notificationsSent.Add(float64(sent))
	m.notificationsSnzd.Add(float64(snoozed))
}

// SetReferenceAge records how stale the reference price for a base asset is.
func (m *Metrics) SetReferenceAge(base string, age time.Duration) {
	if m == nil {
		return
	}
	m.referenceAge.WithLabelValues(base).Set(age.Seconds())
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs the exporter HTTP server until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{Addr: addr, Handler: mux}
	serveLogger := logger.With().Str("component", "metrics").Logger()

	errCh := make(chan error, 1)
	go func() {
		serveLogger.Info().Str("addr", addr).Msg("starting prometheus exporter")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

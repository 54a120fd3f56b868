//revive:disable:exported
package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus exposes widget metrics and can be injected into the store and
// the REST gateway. It implements both internal/store.Metrics and
// internal/transport/rest.Metrics through method set compatibility, without
// importing those packages.
type Prometheus struct {
	storeDispatchTotal     *prometheus.CounterVec
	storeResolveDuration   *prometheus.HistogramVec
	storeCollectionSize    prometheus.Gauge
	gatewayRequestDuration *prometheus.HistogramVec
	gatewayRequestTotal    *prometheus.CounterVec
}

func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Prometheus{
		storeDispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "commentwidget",
				Subsystem: "store",
				Name:      "dispatch_total",
				Help:      "Actions reaching the store commit stage by kind and outcome (applied, failed, dropped_pending).",
			},
			[]string{"kind", "outcome"},
		),
		storeResolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "commentwidget",
				Subsystem: "store",
				Name:      "resolve_duration_seconds",
				Help:      "Time spent awaiting a pending action payload in the resolve middleware.",
				Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"kind", "result"},
		),
		storeCollectionSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "commentwidget",
				Subsystem: "store",
				Name:      "comments",
				Help:      "Number of comments currently held in the store.",
			},
		),
		gatewayRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "commentwidget",
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Duration of REST gateway requests by operation.",
				Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"op"},
		),
		gatewayRequestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "commentwidget",
				Subsystem: "gateway",
				Name:      "request_total",
				Help:      "REST gateway requests by operation and HTTP status code (0 = transport error).",
			},
			[]string{"op", "code"},
		),
	}

	if err := m.register(reg); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Prometheus) register(reg prometheus.Registerer) error {
	if err := registerOrReuseCounterVec(reg, &m.storeDispatchTotal); err != nil {
		return fmt.Errorf("register store dispatch counter: %w", err)
	}
	if err := registerOrReuseHistogramVec(reg, &m.storeResolveDuration); err != nil {
		return fmt.Errorf("register store resolve histogram: %w", err)
	}
	if err := registerOrReuseGauge(reg, &m.storeCollectionSize); err != nil {
		return fmt.Errorf("register store collection gauge: %w", err)
	}
	if err := registerOrReuseHistogramVec(reg, &m.gatewayRequestDuration); err != nil {
		return fmt.Errorf("register gateway duration histogram: %w", err)
	}
	if err := registerOrReuseCounterVec(reg, &m.gatewayRequestTotal); err != nil {
		return fmt.Errorf("register gateway request counter: %w", err)
	}
	return nil
}

func registerOrReuseHistogramVec(reg prometheus.Registerer, c **prometheus.HistogramVec) error {
	if err := reg.Register(*c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return err
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return fmt.Errorf("collector type mismatch for %T", *c)
		}
		*c = existing
	}
	return nil
}

func registerOrReuseCounterVec(reg prometheus.Registerer, c **prometheus.CounterVec) error {
	if err := reg.Register(*c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return fmt.Errorf("collector type mismatch for %T", *c)
		}
		*c = existing
	}
	return nil
}

func registerOrReuseGauge(reg prometheus.Registerer, c *prometheus.Gauge) error {
	if err := reg.Register(*c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return err
		}
		existing, ok := already.ExistingCollector.(prometheus.Gauge)
		if !ok {
			return fmt.Errorf("collector type mismatch for %T", *c)
		}
		*c = existing
	}
	return nil
}

func (m *Prometheus) IncDispatch(kind, outcome string) {
	m.storeDispatchTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Prometheus) ObserveResolveDuration(kind string, d time.Duration, ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	m.storeResolveDuration.WithLabelValues(kind, result).Observe(d.Seconds())
}

func (m *Prometheus) SetCollectionSize(n int) {
	if n < 0 {
		n = 0
	}
	m.storeCollectionSize.Set(float64(n))
}

func (m *Prometheus) ObserveGatewayRequest(op string, code int, d time.Duration) {
	m.gatewayRequestDuration.WithLabelValues(op).Observe(d.Seconds())
	m.gatewayRequestTotal.WithLabelValues(op, strconv.Itoa(code)).Inc()
}

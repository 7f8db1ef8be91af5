// Package metrics holds the per-run Prometheus metrics.
//
// The program runs once per invocation, so nothing is scraped. When a
// Pushgateway is configured the registry is pushed at the end of a run:
//
//	smartbreakout_signals_total{side}            signals generated (BUY|NONE)
//	smartbreakout_orders_total{mode,result}      order submissions (ok|error)
//	smartbreakout_notifications_total{result}    telegram sends (sent|error|skipped)
//	smartbreakout_breakout_level                 last known breakout level
//	smartbreakout_last_run_timestamp_seconds     unix time of the last run
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/jwtly10/smartbreakout/internal/types"
)

const (
	Namespace = "smartbreakout"
	PushJob   = "smartbreakout"

	ResultOk      = "ok"
	ResultError   = "error"
	ResultSent    = "sent"
	ResultSkipped = "skipped"
)

type Metrics struct {
	reg *prometheus.Registry

	signals       *prometheus.CounterVec
	orders        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	breakoutLevel prometheus.Gauge
	lastRun       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "signals_total",
				Help:      "Signals generated",
			},
			[]string{"side"},
		),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "orders_total",
				Help:      "Order submissions",
			},
			[]string{"mode", "result"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "notifications_total",
				Help:      "Telegram notifications",
			},
			[]string{"result"},
		),
		breakoutLevel: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "breakout_level",
				Help:      "Highest high of the lookback window at the last run",
			},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the last completed run",
			},
		),
	}

	m.reg.MustRegister(m.signals, m.orders, m.notifications, m.breakoutLevel, m.lastRun)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// ObserveSignal counts the signal and records its breakout level when known.
func (m *Metrics) ObserveSignal(sig types.Signal) {
	m.signals.WithLabelValues(string(sig.Side)).Inc()
	if lvl, ok := sig.Meta["breakout_level"].(float64); ok {
		m.breakoutLevel.Set(lvl)
	}
}

func (m *Metrics) ObserveOrder(mode string, err error) {
	result := ResultOk
	if err != nil {
		result = ResultError
	}
	m.orders.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) ObserveNotification(result string) {
	m.notifications.WithLabelValues(result).Inc()
}

func (m *Metrics) MarkRun(t time.Time) {
	m.lastRun.Set(float64(t.Unix()))
}

// Push sends the registry to a Pushgateway, replacing the job's previous metrics.
func (m *Metrics) Push(ctx context.Context, url string) error {
	if err := push.New(url, PushJob).Gatherer(m.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

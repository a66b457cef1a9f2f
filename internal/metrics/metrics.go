// Package metrics exposes Prometheus instrumentation for the trading
// engine: candle throughput, order flow, trade outcomes, and risk state.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all engine metrics backed by a dedicated Prometheus
// registry, so tests can create isolated instances.
type Registry struct {
	registry *prometheus.Registry

	candlesTotal      *prometheus.CounterVec
	ordersTotal       *prometheus.CounterVec
	entriesDenied     *prometheus.CounterVec
	tradesClosedTotal *prometheus.CounterVec
	realizedPnL       prometheus.Gauge

	tickDuration prometheus.Histogram

	activeStrategies prometheus.Gauge
	openPositions    prometheus.Gauge
	walletBalance    prometheus.Gauge
	riskLocked       prometheus.Gauge
	streamClients    prometheus.Gauge
}

// NewRegistry creates a Registry with all collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		candlesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "papertrade",
			Name:      "candles_total",
			Help:      "Candles processed by the engine per symbol and source.",
		}, []string{"symbol", "source"}),

		ordersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "papertrade",
			Name:      "orders_total",
			Help:      "Orders placed per symbol, side, and status.",
		}, []string{"symbol", "side", "status"}),

		entriesDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "papertrade",
			Name:      "entries_denied_total",
			Help:      "Entry attempts denied before order placement, by reason.",
		}, []string{"reason"}),

		tradesClosedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "papertrade",
			Name:      "trades_closed_total",
			Help:      "Round-trip trades closed per symbol and exit reason.",
		}, []string{"symbol", "reason"}),

		realizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "papertrade",
			Name:      "realized_pnl_rupees",
			Help:      "Cumulative realized profit and loss since start.",
		}),

		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "papertrade",
			Name:      "tick_duration_seconds",
			Help:      "Time spent processing one market tick end to end.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),

		activeStrategies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "papertrade",
			Name:      "active_strategies",
			Help:      "Strategies currently in the ACTIVE state.",
		}),

		openPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "papertrade",
			Name:      "open_positions",
			Help:      "Positions currently open across all strategies.",
		}),

		walletBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "papertrade",
			Name:      "wallet_balance_rupees",
			Help:      "Available wallet balance.",
		}),

		riskLocked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "papertrade",
			Name:      "risk_locked",
			Help:      "1 when the risk guard has locked trading, 0 otherwise.",
		}),

		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "papertrade",
			Name:      "stream_clients",
			Help:      "Connected websocket stream clients.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.candlesTotal,
		r.ordersTotal,
		r.entriesDenied,
		r.tradesClosedTotal,
		r.realizedPnL,
		r.tickDuration,
		r.activeStrategies,
		r.openPositions,
		r.walletBalance,
		r.riskLocked,
		r.streamClients,
	)

	return r
}

// Handler returns the HTTP handler that serves this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Registry) RecordCandle(symbol, source string) {
	r.candlesTotal.WithLabelValues(symbol, source).Inc()
}

func (r *Registry) RecordOrder(symbol, side, status string) {
	r.ordersTotal.WithLabelValues(symbol, side, status).Inc()
}

func (r *Registry) RecordEntryDenied(reason string) {
	r.entriesDenied.WithLabelValues(reason).Inc()
}

func (r *Registry) RecordTradeClosed(symbol, reason string, pnl float64) {
	r.tradesClosedTotal.WithLabelValues(symbol, reason).Inc()
	r.realizedPnL.Add(pnl)
}

func (r *Registry) ObserveTick(d time.Duration) {
	r.tickDuration.Observe(d.Seconds())
}

func (r *Registry) SetActiveStrategies(n int) {
	r.activeStrategies.Set(float64(n))
}

func (r *Registry) SetOpenPositions(n int) {
	r.openPositions.Set(float64(n))
}

func (r *Registry) SetWalletBalance(v float64) {
	r.walletBalance.Set(v)
}

func (r *Registry) SetRiskLocked(locked bool) {
	if locked {
		r.riskLocked.Set(1)
	} else {
		r.riskLocked.Set(0)
	}
}

func (r *Registry) SetStreamClients(n int) {
	r.streamClients.Set(float64(n))
}

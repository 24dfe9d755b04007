/*
metrics.go - Prometheus instrumentation for wallet activity

PURPOSE:
  Counters and gauges fed by the engine event bus. Each engine the server
  opens gets its reward/spend/subscription events observed here, so the
  scrape endpoint reflects ledger activity without the engine knowing
  about Prometheus.

EXPOSED SERIES:
  token_engine_rewards_total{category}   Tokens credited, by category
  token_engine_spends_total              Tokens debited
  token_engine_operations_total{op,ok}   Operation outcomes incl. rejections
  token_engine_subscription_events_total{action}
  token_engine_achievements_unlocked_total
  token_engine_http_requests_total{method,path,status}

SEE ALSO:
  - wallet/events.go: The bus these observers subscribe to
  - server.go: Mounts /metrics via promhttp
*/
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/solace/token-engine/wallet"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	rewardsTotal      *prometheus.CounterVec
	spendsTotal       prometheus.Counter
	operationsTotal   *prometheus.CounterVec
	subscriptionTotal *prometheus.CounterVec
	achievementsTotal prometheus.Counter
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg (use prometheus.DefaultRegisterer
// in production, a fresh registry in tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		rewardsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "token_engine_rewards_total",
			Help: "Tokens credited to wallets, by earnings category.",
		}, []string{"category"}),
		spendsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "token_engine_spends_total",
			Help: "Tokens debited from wallets.",
		}),
		operationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "token_engine_operations_total",
			Help: "Wallet operation outcomes, including rejections.",
		}, []string{"op", "ok"}),
		subscriptionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "token_engine_subscription_events_total",
			Help: "Subscription lifecycle events by action.",
		}, []string{"action"}),
		achievementsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "token_engine_achievements_unlocked_total",
			Help: "Achievements unlocked across all wallets.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "token_engine_http_requests_total",
			Help: "HTTP requests by method, route pattern, and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "token_engine_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Observe subscribes the collectors to an engine's event bus. Called once
// per engine the server opens. Safe on a nil receiver.
func (m *Metrics) Observe(e *wallet.Engine) {
	if m == nil {
		return
	}
	e.Subscribe(wallet.EventReward, func(ev wallet.Event) {
		m.rewardsTotal.WithLabelValues(string(ev.Reward.Category)).Add(ev.Reward.Amount)
	})
	e.Subscribe(wallet.EventSpend, func(ev wallet.Event) {
		m.spendsTotal.Add(ev.Spend.Amount)
	})
	e.Subscribe(wallet.EventSubscription, func(ev wallet.Event) {
		m.subscriptionTotal.WithLabelValues(string(ev.Subscription.Action)).Inc()
	})
	e.Subscribe(wallet.EventAchievementUnlocked, func(ev wallet.Event) {
		m.achievementsTotal.Inc()
	})
}

// Operation records an operation outcome, rejected calls included. Safe on
// a nil receiver.
func (m *Metrics) Operation(op string, ok bool) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(op, strconv.FormatBool(ok)).Inc()
}

// Middleware counts requests and observes latency, labeled by the chi
// route pattern (resolved after routing so path params collapse).
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		m.httpRequests.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

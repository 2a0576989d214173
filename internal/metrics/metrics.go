// Package metrics exposes node-local Prometheus collectors for lottod. None of
// these values take part in consensus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lottod"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	txResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "abci",
			Name:      "tx_results_total",
			Help:      "Delivered transactions by type and result code.",
		},
		[]string{"type", "codespace", "code"},
	)

	blockDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "abci",
			Name:      "finalize_block_duration_seconds",
			Help:      "Time spent executing a block.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
	)

	height = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "abci",
			Name:      "height",
			Help:      "Last finalized block height.",
		},
	)

	pools = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lottery",
			Name:      "pools",
			Help:      "Pools by round state.",
		},
		[]string{"state"},
	)

	ticketsSold = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lottery",
			Name:      "tickets_sold_total",
			Help:      "Tickets bought across all pools.",
		},
	)

	roundsEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lottery",
			Name:      "rounds_ended_total",
			Help:      "Rounds closed by end_game, by outcome.",
		},
		[]string{"outcome"},
	)

	paidOut = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lottery",
			Name:      "paid_out_total",
			Help:      "Base units released from escrow to winners.",
		},
	)
)

func init() {
	Registry.MustRegister(
		txResults,
		blockDuration,
		height,
		pools,
		ticketsSold,
		roundsEnded,
		paidOut,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func RecordTx(txType, codespace string, code uint32) {
	if txType == "" {
		txType = "unknown"
	}
	txResults.WithLabelValues(txType, codespace, strconv.FormatUint(uint64(code), 10)).Inc()
}

func ObserveBlock(h int64, d time.Duration) {
	height.Set(float64(h))
	blockDuration.Observe(d.Seconds())
}

// SetPools replaces the per-state pool gauges.
func SetPools(byState map[string]int) {
	pools.Reset()
	for st, n := range byState {
		pools.WithLabelValues(st).Set(float64(n))
	}
}

func RecordTicket() {
	ticketsSold.Inc()
}

func RecordRoundEnded(empty bool) {
	outcome := "winner"
	if empty {
		outcome = "empty"
	}
	roundsEnded.WithLabelValues(outcome).Inc()
}

func RecordPayout(amount uint64) {
	paidOut.Add(float64(amount))
}

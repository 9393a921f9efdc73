package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ivar_client_gateway_requests_total",
			Help: "Total number of backend requests issued by the client.",
		},
		[]string{"op", "outcome"},
	)
	gatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ivar_client_gateway_request_duration_seconds",
			Help:    "Backend request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	wsFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ivar_client_ws_frames_total",
			Help: "Total number of real-time frames by direction.",
		},
		[]string{"direction"},
	)
	wsReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ivar_client_ws_reconnects_total",
			Help: "Total number of real-time reconnect attempts.",
		},
	)
	wsConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ivar_client_ws_connected",
			Help: "1 while the real-time channel is connected.",
		},
	)
	chatFramesDiscarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ivar_client_chat_frames_discarded_total",
			Help: "Inbound frames dropped by an open conversation.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		gatewayRequestsTotal,
		gatewayRequestDuration,
		wsFramesTotal,
		wsReconnectsTotal,
		wsConnected,
		chatFramesDiscarded,
	)
}

func ObserveGatewayRequest(op, outcome string, elapsed time.Duration) {
	gatewayRequestsTotal.WithLabelValues(op, outcome).Inc()
	gatewayRequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// IncFrame counts a frame; direction is "in", "out" or "malformed".
func IncFrame(direction string) {
	wsFramesTotal.WithLabelValues(direction).Inc()
}

func IncReconnect() {
	wsReconnectsTotal.Inc()
}

func SetConnected(up bool) {
	if up {
		wsConnected.Set(1)
		return
	}
	wsConnected.Set(0)
}

func IncFrameDiscarded(reason string) {
	chatFramesDiscarded.WithLabelValues(reason).Inc()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("metrics: listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

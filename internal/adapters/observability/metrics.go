package observability

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"bnbooking/internal/domain"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bnb", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bnb", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	BookingEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bnb", Name: "booking_events_total", Help: "Domain events by kind."},
		[]string{"kind"},
	)
	BookingOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bnb", Name: "booking_ops_total", Help: "Engine calls by operation and outcome."},
		[]string{"op", "outcome"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bnb", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
)

func Serve() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, BookingEvents, BookingOps, CacheEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveBookingEvent(kind string) {
	BookingEvents.WithLabelValues(kind).Inc()
}

func ObserveBookingOp(op string, err error) {
	BookingOps.WithLabelValues(op, outcomeLabel(err)).Inc()
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

// outcomeLabel keeps the outcome dimension bounded: one label per domain
// error, "error" for anything else.
func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	for sentinel, label := range map[error]string{
		domain.ErrNotOwner:             "not_owner",
		domain.ErrRoomNotCreated:       "room_not_created",
		domain.ErrRoomRemoved:          "room_removed",
		domain.ErrRoomNotAvailable:     "room_not_available",
		domain.ErrCannotBookOwnRoom:    "cannot_book_own_room",
		domain.ErrIntentAlreadyCreated: "intent_already_created",
		domain.ErrIntentNotFound:       "intent_not_found",
		domain.ErrMaxIntentsReached:    "max_intents_reached",
		domain.ErrPriceNotReached:      "price_not_reached",
		domain.ErrInvalidPrice:         "invalid_price",
		domain.ErrInsufficientFunds:    "insufficient_funds",
		domain.ErrInvalidDate:          "invalid_date",
		domain.ErrInvalidFeeRate:       "invalid_fee_rate",
	} {
		if errors.Is(err, sentinel) {
			return label
		}
	}
	return "error"
}

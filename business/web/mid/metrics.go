package mid

import (
	"context"
	"net/http"

	"github.com/ardanlabs/blockcache/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics holds the request collectors shared by every mux of a
// service.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	panics   prometheus.Counter
}

// NewHTTPMetrics constructs the request collectors and registers them with
// the registerer when one is provided.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	f := promauto.With(reg)

	return &HTTPMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blockcache_http_requests_total",
			Help: "HTTP requests handled by api.",
		}, []string{"api"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blockcache_http_errors_total",
			Help: "HTTP requests that returned an error by api.",
		}, []string{"api"}),
		panics: f.NewCounter(prometheus.CounterOpts{
			Name: "blockcache_http_panics_total",
			Help: "HTTP handlers that panicked.",
		}),
	}
}

// Metrics updates program counters for the named api.
func Metrics(hm *HTTPMetrics, api string) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			// Increment the request and errors counters.
			hm.requests.WithLabelValues(api).Inc()
			if err != nil {
				hm.errors.WithLabelValues(api).Inc()
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}

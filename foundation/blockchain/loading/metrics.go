package loading

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the collectors for a single manager. Collectors are only
// registered when the manager is given a registerer.
type metrics struct {
	hits             prometheus.Counter
	inFlightHits     prometheus.Counter
	misses           prometheus.Counter
	materializations prometheus.Counter
	notFound         prometheus.Counter
	faults           prometheus.Counter
	evictions        *prometheus.CounterVec
	sweepPanics      prometheus.Counter
	size             prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)

	return &metrics{
		hits: f.NewCounter(prometheus.CounterOpts{
			Name: "blockcache_hits_total",
			Help: "Lookups served from the record cache.",
		}),
		inFlightHits: f.NewCounter(prometheus.CounterOpts{
			Name: "blockcache_inflight_hits_total",
			Help: "Lookups served from the pending index of the saving manager.",
		}),
		misses: f.NewCounter(prometheus.CounterOpts{
			Name: "blockcache_misses_total",
			Help: "Lookups that required a materialization.",
		}),
		materializations: f.NewCounter(prometheus.CounterOpts{
			Name: "blockcache_materializations_total",
			Help: "Records built from storage.",
		}),
		notFound: f.NewCounter(prometheus.CounterOpts{
			Name: "blockcache_not_found_total",
			Help: "Materializations that found nothing stored for the height.",
		}),
		faults: f.NewCounter(prometheus.CounterOpts{
			Name: "blockcache_materialization_faults_total",
			Help: "Materializations that failed on storage or population errors.",
		}),
		evictions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blockcache_evictions_total",
			Help: "Records removed from the cache by reason.",
		}, []string{"reason"}),
		sweepPanics: f.NewCounter(prometheus.CounterOpts{
			Name: "blockcache_sweep_panics_total",
			Help: "Sweeps that were aborted by a recovered panic.",
		}),
		size: f.NewGauge(prometheus.GaugeOpts{
			Name: "blockcache_records",
			Help: "Records currently held in the cache.",
		}),
	}
}

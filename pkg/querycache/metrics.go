package querycache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "typix",
		Name:      "querycache_hits_total",
		Help:      "Fetches served from a fresh persisted entry.",
	})
	metricMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "typix",
		Name:      "querycache_misses_total",
		Help:      "Fetches that executed the query function.",
	})
	metricShared = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "typix",
		Name:      "querycache_singleflight_shared_total",
		Help:      "Fetches that joined an identical in-flight request.",
	})
)

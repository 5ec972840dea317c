package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricAnalysesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "typix",
		Name:      "analyses_started_total",
		Help:      "Full-document analyses issued to the correction backend.",
	})
	metricAnalysesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "typix",
		Name:      "analyses_applied_total",
		Help:      "Full-document analyses whose result replaced the issue list.",
	})
	metricStaleDiscards = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "typix",
		Name:      "analyses_discarded_stale_total",
		Help:      "Completed analyses discarded because a newer analysis or edit won.",
	})
	metricSentenceReanalyses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "typix",
		Name:      "sentence_reanalyses_total",
		Help:      "Sentence-scoped re-analyses issued after a fix.",
	})
	metricBackendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "typix",
		Name:      "backend_failures_total",
		Help:      "Correction requests that failed; recovered as no new issues.",
	})
	metricActiveIssues = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "typix",
		Name:      "issues_active",
		Help:      "Issues currently tracked for the surface.",
	})
)

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autoimport_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	ParseErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autoimport_parse_errors_total",
		Help: "Total number of files skipped because they failed to parse.",
	})

	IndexedFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "autoimport_indexed_files",
		Help: "Number of files contributing to the declaration index.",
	})

	IndexedDeclarations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "autoimport_indexed_declarations",
		Help: "Number of importable declarations in the index.",
	})

	IndexPassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autoimport_index_pass_seconds",
		Help:    "Time spent on a full build or an incremental reindex.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	IndexPassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoimport_index_passes_total",
		Help: "Total number of index passes by outcome.",
	}, []string{"kind", "result"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autoimport_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	ImportEditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoimport_import_edits_total",
		Help: "Total number of text edits produced by the import manager.",
	}, []string{"mode"})

	CommitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoimport_commits_total",
		Help: "Total number of import manager commits by outcome.",
	}, []string{"result"})

	ConfigReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autoimport_config_reloads_total",
		Help: "Total number of configuration reloads.",
	})
)

package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	assertionsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dbdelta",
		Name:      "assertions_total",
		Help:      "Number of evaluated assertions by kind and verdict.",
	}, []string{"kind", "verdict"})
	snapshotRowsMetric = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "dbdelta",
		Name:      "snapshot_rows",
		Help:      "Number of rows in the last snapshot of each data source.",
	}, []string{"source"})
	deltaRowsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dbdelta",
		Name:      "delta_rows_total",
		Help:      "Rows classified by computed deltas.",
	}, []string{"class"})
	queriesMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dbdelta",
		Name:      "queries_total",
		Help:      "Number of data source queries run.",
	})
)

func init() {
	for _, kind := range []string{"delta", "state"} {
		for _, verdict := range []string{"passed", "failed"} {
			assertionsMetric.WithLabelValues(kind, verdict)
		}
	}
	for _, c := range []string{"removed", "added", "unchanged"} {
		deltaRowsMetric.WithLabelValues(c)
	}
}

// MetricsReporter exports reports as prometheus metrics. It sees every
// report, so it should not sit behind a FilterReporter.
type MetricsReporter struct{}

var _ Reporter = MetricsReporter{}

func (MetricsReporter) Report(obj ReportableObject) {
	switch obj := obj.(type) {
	case AssertionReport:
		verdict := "passed"
		if !obj.Result.Passed() {
			verdict = "failed"
		}
		assertionsMetric.WithLabelValues(obj.Result.Kind.String(), verdict).Inc()
	case SnapshotReport:
		snapshotRowsMetric.WithLabelValues(obj.Data.Source().Name()).Set(float64(obj.Data.Len()))
	case DeltaReport:
		deltaRowsMetric.WithLabelValues("removed").Add(float64(obj.Delta.Removed.Len()))
		deltaRowsMetric.WithLabelValues("added").Add(float64(obj.Delta.Added.Len()))
		deltaRowsMetric.WithLabelValues("unchanged").Add(float64(obj.Delta.Unchanged.Len()))
	case QueryReport:
		queriesMetric.Inc()
	}
}

func (MetricsReporter) Close() {
}

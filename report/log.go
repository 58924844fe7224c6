package report

import (
	"fmt"

	"github.com/cockroachdb/dbdelta/assertion"
	"github.com/cockroachdb/dbdelta/dataset"
	"github.com/cockroachdb/dbdelta/datasource"
	"github.com/cockroachdb/dbdelta/rowval"
	"github.com/rs/zerolog"
)

// LogReporter reports to `zerolog`.
type LogReporter struct {
	zerolog.Logger
}

var _ Reporter = LogReporter{}

func (l LogReporter) Report(obj ReportableObject) {
	switch obj := obj.(type) {
	case StatusReport:
		if obj.Err != nil {
			l.Warn().Err(obj.Err).Msg(obj.Info)
		} else {
			l.Info().Msg(obj.Info)
		}
	case SnapshotReport:
		l.Info().
			Str("source", obj.Data.Source().Name()).
			Str("caller", obj.CallInfo.String()).
			Int("num_rows", obj.Data.Len()).
			Array("rows", dataSetRows(obj.Data)).
			Msgf("snapshot")
	case QueryReport:
		l.Info().
			Str("source", obj.Source.Name()).
			Str("caller", obj.CallInfo.String()).
			Str("sql", obj.SQL).
			Strs("args", argStrings(obj.Args)).
			Msgf("query")
	case DeltaReport:
		l.Info().
			Str("source", obj.Source.Name()).
			Str("caller", obj.CallInfo.String()).
			Int("num_removed", obj.Delta.Removed.Len()).
			Int("num_added", obj.Delta.Added.Len()).
			Int("num_unchanged", obj.Delta.Unchanged.Len()).
			Array("removed", dataSetRows(obj.Delta.Removed)).
			Array("added", dataSetRows(obj.Delta.Added)).
			Msgf("delta")
	case AssertionReport:
		l.logAssertion(obj)
	default:
		l.Error().
			Str("type", fmt.Sprintf("%T", obj)).
			Msgf("unknown object type")
	}
}

func (l LogReporter) logAssertion(obj AssertionReport) {
	res := obj.Result
	var ev *zerolog.Event
	if res.Passed() {
		ev = l.Info()
	} else {
		ev = l.Warn()
	}
	ev = ev.
		Str("source", res.Source.Name()).
		Str("caller", obj.CallInfo.String()).
		Str("kind", res.Kind.String()).
		Bool("passed", res.Passed())
	switch res.Kind {
	case assertion.KindDelta:
		ev = ev.
			Array("expected_deleted", dataSetRows(res.ExpectedOld)).
			Array("expected_inserted", dataSetRows(res.ExpectedNew)).
			Array("actual_deleted", dataSetRows(res.Delta.Removed)).
			Array("actual_inserted", dataSetRows(res.Delta.Added))
		if !res.Passed() {
			ev = ev.
				Dict("deleted_mismatch", mismatchDict(res.Old)).
				Dict("inserted_mismatch", mismatchDict(res.New))
		}
	case assertion.KindState:
		ev = ev.
			Array("expected", dataSetRows(res.ExpectedState)).
			Array("actual", dataSetRows(res.Actual))
		if !res.Passed() {
			ev = ev.Dict("mismatch", mismatchDict(res.State))
		}
	}
	ev.Msg(res.String())
}

func (l LogReporter) Close() {
}

func mismatchDict(m assertion.Mismatch) *zerolog.Event {
	return zerolog.Dict().
		Array("expected_only", dataSetRows(m.Expected)).
		Array("actual_only", dataSetRows(m.Actual))
}

// rowsMarshaler logs rows as objects keyed by column label.
type rowsMarshaler struct {
	labels []string
	rows   []rowval.Row
}

func dataSetRows(ds *dataset.DataSet) rowsMarshaler {
	if ds == nil {
		return rowsMarshaler{}
	}
	return rowsMarshaler{labels: datasource.Labels(ds.Source()), rows: ds.Rows()}
}

func (m rowsMarshaler) MarshalZerologArray(a *zerolog.Array) {
	for _, r := range m.rows {
		a.Object(rowMarshaler{labels: m.labels, row: r})
	}
}

type rowMarshaler struct {
	labels []string
	row    rowval.Row
}

func (m rowMarshaler) MarshalZerologObject(e *zerolog.Event) {
	for i := 0; i < m.row.Len(); i++ {
		label := fmt.Sprintf("col%d", i)
		if i < len(m.labels) {
			label = m.labels[i]
		}
		if v := m.row.At(i); v.IsNull() {
			e.Interface(label, nil)
		} else {
			e.Str(label, v.String())
		}
	}
}

func argStrings(args []any) []string {
	ret := make([]string, len(args))
	for i, a := range args {
		if v, err := rowval.Of(a); err == nil {
			ret[i] = v.String()
		} else {
			ret[i] = fmt.Sprintf("%v", a)
		}
	}
	return ret
}

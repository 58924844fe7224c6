package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cockroachdb/dbdelta/assertion"
	"github.com/cockroachdb/dbdelta/dataset"
	"github.com/cockroachdb/dbdelta/datasource"
	"github.com/cockroachdb/dbdelta/dbtable"
	"github.com/cockroachdb/dbdelta/delta"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var users = datasource.NewTable(dbtable.ParseName("users"), datasource.Cols("id", "login")...)

type recordingReporter struct {
	objs   []ReportableObject
	closed bool
}

func (r *recordingReporter) Report(obj ReportableObject) { r.objs = append(r.objs, obj) }
func (r *recordingReporter) Close()                      { r.closed = true }

func deltaAssertion(t *testing.T, passed bool) AssertionReport {
	old := dataset.New(users).MustAdd(1, "a").MustAdd(2, nil)
	new := dataset.New(users).MustAdd(2, nil).MustAdd(3, "c")
	d, err := delta.Classify(old, new)
	require.NoError(t, err)
	expOld := dataset.New(users).MustAdd(1, "a")
	if !passed {
		expOld = dataset.New(users)
	}
	res, err := assertion.EvaluateDelta(expOld, dataset.New(users).MustAdd(3, "c"), d)
	require.NoError(t, err)
	require.Equal(t, passed, res.Passed())
	return AssertionReport{CallInfo: CallInfo{File: "/src/users_test.go", Line: 42}, Result: res}
}

func TestOptions(t *testing.T) {
	o := DefaultOptions()
	require.True(t, o.Enabled(LogAssertionErrors))
	require.False(t, o.Enabled(LogAssertions))
	o = o.Enable(LogQueries, LogSnapshots).Disable(LogAssertionErrors)
	require.Equal(t, "{queries,snapshots}", o.String())
	require.Equal(t, "{assertions,assertion_errors,queries,snapshots}", FullLogging().String())
	require.Equal(t, "queries", LogQueries.String())
}

func TestFilterReporter(t *testing.T) {
	passed, failed := deltaAssertion(t, true), deltaAssertion(t, false)
	snap := SnapshotReport{Data: dataset.New(users)}
	query := QueryReport{Source: users}
	status := StatusReport{Info: "hi"}

	for _, tc := range []struct {
		desc     string
		opts     Options
		expected []ReportableObject
	}{
		{
			desc:     "default",
			opts:     DefaultOptions(),
			expected: []ReportableObject{failed, status},
		},
		{
			desc:     "all assertions",
			opts:     Options(0).Enable(LogAssertions),
			expected: []ReportableObject{passed, failed, status},
		},
		{
			desc:     "nothing",
			opts:     Options(0),
			expected: []ReportableObject{status},
		},
		{
			desc:     "full",
			opts:     FullLogging(),
			expected: []ReportableObject{passed, failed, snap, query, status},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			rec := &recordingReporter{}
			f := FilterReporter{Reporter: rec, Options: tc.opts}
			for _, obj := range []ReportableObject{passed, failed, snap, query, status} {
				f.Report(obj)
			}
			require.Len(t, rec.objs, len(tc.expected))
			f.Close()
			require.True(t, rec.closed)
		})
	}
}

func TestCombinedReporter(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{}
	c := CombinedReporter{Reporters: []Reporter{a, b}}
	c.Report(StatusReport{Info: "x"})
	c.Close()
	require.Len(t, a.objs, 1)
	require.Len(t, b.objs, 1)
	require.True(t, a.closed && b.closed)
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	var ret []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		m := make(map[string]any)
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		ret = append(ret, m)
	}
	return ret
}

func TestLogReporterAssertion(t *testing.T) {
	var buf bytes.Buffer
	l := LogReporter{Logger: zerolog.New(&buf)}

	l.Report(deltaAssertion(t, true))
	l.Report(deltaAssertion(t, false))
	lines := logLines(t, &buf)
	require.Len(t, lines, 2)

	require.Equal(t, "info", lines[0]["level"])
	require.Equal(t, "users", lines[0]["source"])
	require.Equal(t, "users_test.go:42", lines[0]["caller"])
	require.Equal(t, true, lines[0]["passed"])
	require.Equal(t, "delta assertion on users passed", lines[0]["message"])
	require.Equal(t,
		[]any{map[string]any{"id": "1", "login": "a"}},
		lines[0]["actual_deleted"],
	)
	require.NotContains(t, lines[0], "deleted_mismatch")

	require.Equal(t, "warn", lines[1]["level"])
	require.Equal(t, false, lines[1]["passed"])
	require.Equal(t,
		map[string]any{
			"expected_only": []any{},
			"actual_only":   []any{map[string]any{"id": "1", "login": "a"}},
		},
		lines[1]["deleted_mismatch"],
	)
}

func TestLogReporterSnapshot(t *testing.T) {
	var buf bytes.Buffer
	l := LogReporter{Logger: zerolog.New(&buf)}
	l.Report(SnapshotReport{Data: dataset.New(users).MustAdd(2, nil)})
	l.Report(QueryReport{Source: users, SQL: "SELECT id, login FROM users", Args: []any{1}})
	l.Report(42)

	lines := logLines(t, &buf)
	require.Len(t, lines, 3)
	require.Equal(t, "snapshot", lines[0]["message"])
	require.Equal(t, float64(1), lines[0]["num_rows"])
	require.Equal(t, []any{map[string]any{"id": "2", "login": nil}}, lines[0]["rows"])
	require.Equal(t, "SELECT id, login FROM users", lines[1]["sql"])
	require.Equal(t, []any{"1"}, lines[1]["args"])
	require.Equal(t, "error", lines[2]["level"])
	require.Equal(t, "int", lines[2]["type"])
}

func TestLogReporterStatus(t *testing.T) {
	var buf bytes.Buffer
	l := LogReporter{Logger: zerolog.New(&buf)}
	l.Report(StatusReport{Info: "running command"})
	l.Report(StatusReport{Info: "command failed", Err: errors.New("exit status 1")})

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	require.Equal(t, "info", lines[0]["level"])
	require.Equal(t, "running command", lines[0]["message"])
	require.NotContains(t, lines[0], "error")
	require.Equal(t, "warn", lines[1]["level"])
	require.Equal(t, "command failed", lines[1]["message"])
	require.Equal(t, "exit status 1", lines[1]["error"])
}

func TestMetricsReporter(t *testing.T) {
	m := MetricsReporter{}
	before := testutil.ToFloat64(assertionsMetric.WithLabelValues("delta", "failed"))
	m.Report(deltaAssertion(t, false))
	require.Equal(t, before+1, testutil.ToFloat64(assertionsMetric.WithLabelValues("delta", "failed")))

	m.Report(SnapshotReport{Data: dataset.New(users).MustAdd(1, "a").MustAdd(2, "b")})
	require.Equal(t, float64(2), testutil.ToFloat64(snapshotRowsMetric.WithLabelValues("users")))

	d, err := delta.Classify(dataset.New(users).MustAdd(1, "a"), dataset.New(users))
	require.NoError(t, err)
	removed := testutil.ToFloat64(deltaRowsMetric.WithLabelValues("removed"))
	m.Report(DeltaReport{Source: users, Delta: d})
	require.Equal(t, removed+1, testutil.ToFloat64(deltaRowsMetric.WithLabelValues("removed")))
}

package testutils

import (
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/dbdelta/assertion"
	"github.com/cockroachdb/dbdelta/dataset"
	"github.com/cockroachdb/dbdelta/datasource"
	"github.com/stretchr/testify/require"
)

// ParseValues splits a comma separated line into row values. NULL is a null
// value, integers become int64 and everything else is a string.
func ParseValues(line string) []any {
	parts := strings.Split(line, ",")
	ret := make([]any, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "NULL" {
			ret[i] = nil
			continue
		}
		if n, err := strconv.ParseInt(p, 10, 64); err == nil {
			ret[i] = n
			continue
		}
		ret[i] = p
	}
	return ret
}

// ParseDataSet builds a data set from one row per non-empty line.
func ParseDataSet(t *testing.T, src datasource.Source, input string) *dataset.DataSet {
	ds := dataset.New(src)
	for _, line := range strings.Split(input, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		require.NoError(t, ds.AddValues(ParseValues(line)...))
	}
	return ds
}

// FormatDataSet renders the rows of ds one per line, sorted so that the
// output does not depend on insertion order.
func FormatDataSet(ds *dataset.DataSet) []string {
	lines := make([]string, 0, ds.Len())
	for _, r := range ds.Rows() {
		lines = append(lines, strings.Join(r.Strings(), ","))
	}
	sort.Strings(lines)
	return lines
}

// WriteDataSet writes a labelled, indented rendering of ds to sb.
func WriteDataSet(sb *strings.Builder, label string, ds *dataset.DataSet) {
	sb.WriteString(label)
	sb.WriteString(":")
	lines := FormatDataSet(ds)
	if len(lines) == 0 {
		sb.WriteString(" <empty>\n")
		return
	}
	sb.WriteString("\n")
	for _, l := range lines {
		sb.WriteString("  ")
		sb.WriteString(l)
		sb.WriteString("\n")
	}
}

// ParseSections splits input into sections introduced by "name:" lines.
func ParseSections(t *testing.T, input string, names ...string) map[string]string {
	ret := make(map[string]string)
	cur := ""
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		isHeader := false
		for _, n := range names {
			if trimmed == n+":" {
				cur, isHeader = n, true
			}
		}
		if isHeader || trimmed == "" {
			continue
		}
		require.NotEmpty(t, cur, "row %q outside of a section", line)
		ret[cur] += line + "\n"
	}
	return ret
}

// WriteResult writes the verdict of res followed by its mismatching rows.
func WriteResult(sb *strings.Builder, res assertion.Result) {
	sb.WriteString(res.String())
	sb.WriteString("\n")
	writeMismatch := func(label string, m assertion.Mismatch) {
		WriteDataSet(sb, label+", expected only", m.Expected)
		WriteDataSet(sb, label+", actual only", m.Actual)
	}
	switch res.Kind {
	case assertion.KindDelta:
		writeMismatch("deleted", res.Old)
		writeMismatch("inserted", res.New)
	case assertion.KindState:
		writeMismatch("state", res.State)
	}
}

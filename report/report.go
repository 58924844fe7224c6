// Package report renders snapshots, queries and assertion outcomes for
// humans and monitoring.
package report

import (
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/dbdelta/assertion"
	"github.com/cockroachdb/dbdelta/dataset"
	"github.com/cockroachdb/dbdelta/datasource"
	"github.com/cockroachdb/dbdelta/delta"
)

type ReportableObject interface{}

// CallInfo identifies the call site an operation was made from.
type CallInfo struct {
	Func string
	File string
	Line int
}

func (c CallInfo) String() string {
	if c.File == "" {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(c.File), c.Line)
}

type SnapshotReport struct {
	CallInfo
	Data *dataset.DataSet
}

type QueryReport struct {
	CallInfo
	Source datasource.Source
	SQL    string
	Args   []any
}

type DeltaReport struct {
	CallInfo
	Source datasource.Source
	Delta  delta.Result
}

type AssertionReport struct {
	CallInfo
	Result assertion.Result
}

// StatusReport is a progress message from a tool driving the DB. A non-nil
// Err makes it a warning.
type StatusReport struct {
	Info string
	Err  error
}

type Reporter interface {
	Report(obj ReportableObject)
	Close()
}

type CombinedReporter struct {
	Reporters []Reporter
}

func (c CombinedReporter) Report(obj ReportableObject) {
	for _, r := range c.Reporters {
		r.Report(obj)
	}
}

func (c CombinedReporter) Close() {
	for _, r := range c.Reporters {
		r.Close()
	}
}

// FilterReporter forwards the reports its Options select.
type FilterReporter struct {
	Reporter
	Options Options
}

func (f FilterReporter) Report(obj ReportableObject) {
	if f.Selects(obj) {
		f.Reporter.Report(obj)
	}
}

// Selects reports whether obj passes the filter.
func (f FilterReporter) Selects(obj ReportableObject) bool {
	switch obj := obj.(type) {
	case AssertionReport:
		return f.Options.Enabled(LogAssertions) ||
			(!obj.Result.Passed() && f.Options.Enabled(LogAssertionErrors))
	case SnapshotReport, DeltaReport:
		return f.Options.Enabled(LogSnapshots)
	case QueryReport:
		return f.Options.Enabled(LogQueries)
	}
	return true
}

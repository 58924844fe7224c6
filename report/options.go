package report

import "strings"

// Option selects a kind of report to log.
type Option uint8

const (
	// LogAssertions logs every assertion, passed or failed.
	LogAssertions Option = 1 << iota
	// LogAssertionErrors logs failed assertions.
	LogAssertionErrors
	// LogQueries logs the queries run to capture snapshots.
	LogQueries
	// LogSnapshots logs captured snapshots and deltas.
	LogSnapshots
)

var optionNames = []struct {
	opt  Option
	name string
}{
	{LogAssertions, "assertions"},
	{LogAssertionErrors, "assertion_errors"},
	{LogQueries, "queries"},
	{LogSnapshots, "snapshots"},
}

func (o Option) String() string {
	for _, n := range optionNames {
		if n.opt == o {
			return n.name
		}
	}
	return "unknown"
}

// Options is a set of Option.
type Options uint8

// DefaultOptions only logs failed assertions.
func DefaultOptions() Options {
	return Options(LogAssertionErrors)
}

// FullLogging enables every option.
func FullLogging() Options {
	var o Options
	for _, n := range optionNames {
		o = o.Enable(n.opt)
	}
	return o
}

func (o Options) Enable(opts ...Option) Options {
	for _, opt := range opts {
		o |= Options(opt)
	}
	return o
}

func (o Options) Disable(opts ...Option) Options {
	for _, opt := range opts {
		o &^= Options(opt)
	}
	return o
}

func (o Options) Enabled(opt Option) bool {
	return o&Options(opt) != 0
}

func (o Options) String() string {
	var names []string
	for _, n := range optionNames {
		if o.Enabled(n.opt) {
			names = append(names, n.name)
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}

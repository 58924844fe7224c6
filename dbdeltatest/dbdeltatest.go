// Package dbdeltatest fails tests whose database assertions do not pass.
package dbdeltatest

import (
	"context"
	"strings"

	"github.com/cockroachdb/dbdelta"
	"github.com/cockroachdb/dbdelta/assertion"
	"github.com/cockroachdb/dbdelta/dataset"
	"github.com/cockroachdb/dbdelta/datasource"
	"github.com/stretchr/testify/require"
)

// Describe renders a failed result with its mismatching rows.
func Describe(res assertion.Result) string {
	var sb strings.Builder
	sb.WriteString(res.String())
	write := func(label string, ds *dataset.DataSet) {
		if ds.IsEmpty() {
			return
		}
		sb.WriteString("\n")
		sb.WriteString(label)
		sb.WriteString(":")
		for _, r := range ds.Rows() {
			sb.WriteString("\n  ")
			sb.WriteString(r.String())
		}
	}
	switch res.Kind {
	case assertion.KindDelta:
		write("expected deleted, still present", res.Old.Expected)
		write("deleted, not expected", res.Old.Actual)
		write("expected inserted, missing", res.New.Expected)
		write("inserted, not expected", res.New.Actual)
	case assertion.KindState:
		write("expected, missing", res.State.Expected)
		write("present, not expected", res.State.Actual)
	}
	return sb.String()
}

type tHelper interface {
	Helper()
}

func requirePassed(t require.TestingT, res assertion.Result, err error) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.NoError(t, err)
	require.True(t, res.Passed(), Describe(res))
}

func RequireSnapshot(t require.TestingT, db *dbdelta.DB, srcs ...datasource.Source) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.NoError(t, db.TakeSnapshots(context.Background(), srcs...))
}

func RequireDelta(t require.TestingT, db *dbdelta.DB, expOld, expNew *dataset.DataSet) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	res, err := db.AssertDelta(context.Background(), expOld, expNew)
	requirePassed(t, res, err)
}

func RequireNoChanges(t require.TestingT, db *dbdelta.DB, src datasource.Source) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	res, err := db.AssertNoChanges(context.Background(), src)
	requirePassed(t, res, err)
}

func RequireDeleted(t require.TestingT, db *dbdelta.DB, data *dataset.DataSet) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	res, err := db.AssertDeleted(context.Background(), data)
	requirePassed(t, res, err)
}

func RequireInserted(t require.TestingT, db *dbdelta.DB, data *dataset.DataSet) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	res, err := db.AssertInserted(context.Background(), data)
	requirePassed(t, res, err)
}

func RequireChanged(t require.TestingT, db *dbdelta.DB, pre, post *dataset.DataSet) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	res, err := db.AssertChanged(context.Background(), pre, post)
	requirePassed(t, res, err)
}

func RequireState(t require.TestingT, db *dbdelta.DB, data *dataset.DataSet) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	res, err := db.AssertState(context.Background(), data)
	requirePassed(t, res, err)
}

func RequireEmpty(t require.TestingT, db *dbdelta.DB, src datasource.Source) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	res, err := db.AssertEmpty(context.Background(), src)
	requirePassed(t, res, err)
}

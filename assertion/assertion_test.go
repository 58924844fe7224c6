package assertion_test

import (
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/dbdelta/assertion"
	"github.com/cockroachdb/dbdelta/dataset"
	"github.com/cockroachdb/dbdelta/datasource"
	"github.com/cockroachdb/dbdelta/dbtable"
	"github.com/cockroachdb/dbdelta/delta"
	"github.com/cockroachdb/dbdelta/testutils"
	"github.com/stretchr/testify/require"
)

var users = datasource.NewTable(dbtable.ParseName("users"), datasource.Cols("id", "login")...)

func TestDataDriven(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		var old, new *dataset.DataSet
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			switch d.Cmd {
			case "old":
				old = testutils.ParseDataSet(t, users, d.Input).Freeze()
				return "ok"
			case "new":
				new = testutils.ParseDataSet(t, users, d.Input).Freeze()
				return "ok"
			case "expect-delta":
				sections := testutils.ParseSections(t, d.Input, "deleted", "inserted")
				expOld := testutils.ParseDataSet(t, users, sections["deleted"])
				expNew := testutils.ParseDataSet(t, users, sections["inserted"])
				actual, err := delta.Classify(old, new)
				require.NoError(t, err)
				res, err := assertion.EvaluateDelta(expOld, expNew, actual)
				require.NoError(t, err)
				require.Equal(t, assertion.KindDelta, res.Kind)

				var sb strings.Builder
				testutils.WriteResult(&sb, res)
				return sb.String()
			case "expect-state":
				res, err := assertion.EvaluateState(testutils.ParseDataSet(t, users, d.Input), new)
				require.NoError(t, err)
				require.Equal(t, assertion.KindState, res.Kind)

				var sb strings.Builder
				testutils.WriteResult(&sb, res)
				return sb.String()
			}
			t.Fatalf("unknown command: %s", d.Cmd)
			return ""
		})
	})
}

func TestEvaluateDeltaNilExpectations(t *testing.T) {
	old := dataset.New(users).MustAdd(1, "a")
	new := dataset.New(users).MustAdd(1, "a")
	actual, err := delta.Classify(old, new)
	require.NoError(t, err)
	res, err := assertion.EvaluateDelta(nil, nil, actual)
	require.NoError(t, err)
	require.True(t, res.Passed())
	require.Equal(t, "delta assertion on users passed", res.String())
	require.True(t, res.ExpectedOld.IsEmpty())
}

func TestEvaluateDoesNotModifyInputs(t *testing.T) {
	old := dataset.New(users).MustAdd(1, "a").MustAdd(2, "b")
	new := dataset.New(users).MustAdd(2, "b")
	actual, err := delta.Classify(old, new)
	require.NoError(t, err)

	expOld := dataset.New(users).MustAdd(1, "a").MustAdd(1, "a")
	_, err = assertion.EvaluateDelta(expOld, nil, actual)
	require.NoError(t, err)
	require.Equal(t, 2, expOld.Len())
	require.False(t, expOld.IsFrozen())
	require.Equal(t, 1, actual.Removed.Len())

	expState := dataset.New(users).MustAdd(3, "c")
	_, err = assertion.EvaluateState(expState, new)
	require.NoError(t, err)
	require.Equal(t, 1, expState.Len())
	require.Equal(t, 1, new.Len())
}

func TestEvaluateSourceMismatch(t *testing.T) {
	orders := datasource.NewTable(dbtable.ParseName("orders"), datasource.Cols("id", "login")...)
	actual, err := delta.Classify(dataset.New(users), dataset.New(users))
	require.NoError(t, err)

	for _, tc := range []struct {
		desc string
		eval func() error
	}{
		{
			desc: "delta deleted",
			eval: func() error {
				_, err := assertion.EvaluateDelta(dataset.New(orders), nil, actual)
				return err
			},
		},
		{
			desc: "delta inserted",
			eval: func() error {
				_, err := assertion.EvaluateDelta(nil, dataset.New(orders), actual)
				return err
			},
		},
		{
			desc: "state",
			eval: func() error {
				_, err := assertion.EvaluateState(dataset.New(orders), dataset.New(users))
				return err
			},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			require.ErrorIs(t, tc.eval(), dataset.ErrSourceMismatch)
		})
	}
}

package cmdutil

import (
	"testing"

	"github.com/cockroachdb/dbdelta/dbtable"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestSource(t *testing.T) {
	for _, tc := range []struct {
		desc        string
		args        []string
		expectedSQL string
		large       []bool
		expectedErr string
	}{
		{
			desc:        "table",
			args:        []string{"--table", "public.users", "--columns", "id,login"},
			expectedSQL: "SELECT id, login FROM public.users",
			large:       []bool{false, false},
		},
		{
			desc:        "query with large column",
			args:        []string{"--query", "SELECT id, body FROM docs", "--columns", "id,body", "--large-columns", "body"},
			expectedSQL: "SELECT id, body FROM docs",
			large:       []bool{false, true},
		},
		{
			desc:        "neither",
			args:        []string{"--columns", "id"},
			expectedErr: "exactly one of --table and --query must be set",
		},
		{
			desc:        "both",
			args:        []string{"--table", "t", "--query", "SELECT 1", "--columns", "id"},
			expectedErr: "exactly one of --table and --query must be set",
		},
		{
			desc:        "no columns",
			args:        []string{"--table", "t"},
			expectedErr: "--columns must be set",
		},
		{
			desc:        "unknown large column",
			args:        []string{"--table", "t", "--columns", "id", "--large-columns", "body"},
			expectedErr: "large column body is not in --columns",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			sourceCfg = sourceConfig{}
			cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
			RegisterSourceFlags(cmd)
			cmd.SetArgs(tc.args)
			require.NoError(t, cmd.Execute())

			src, err := Source()
			if tc.expectedErr != "" {
				require.EqualError(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			sql, err := src.SQL(dbtable.DialectPostgres)
			require.NoError(t, err)
			require.Equal(t, tc.expectedSQL, sql)
			for i, col := range src.Columns() {
				require.Equal(t, tc.large[i], col.Large)
			}
		})
	}
}

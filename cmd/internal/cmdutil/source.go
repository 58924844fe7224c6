package cmdutil

import (
	"github.com/cockroachdb/dbdelta/datasource"
	"github.com/cockroachdb/dbdelta/dbtable"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

type sourceConfig struct {
	table        string
	query        string
	columns      []string
	largeColumns []string
}

var sourceCfg sourceConfig

func RegisterSourceFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&sourceCfg.table,
		"table",
		"",
		"table to read, as table or schema.table",
	)
	cmd.PersistentFlags().StringVar(
		&sourceCfg.query,
		"query",
		"",
		"query to read instead of a table; requires --columns",
	)
	cmd.PersistentFlags().StringSliceVar(
		&sourceCfg.columns,
		"columns",
		nil,
		"columns to read",
	)
	cmd.PersistentFlags().StringSliceVar(
		&sourceCfg.largeColumns,
		"large-columns",
		nil,
		"columns compared by digest rather than by value",
	)
}

// Source builds the data source given by the source flags.
func Source() (datasource.Source, error) {
	if (sourceCfg.table == "") == (sourceCfg.query == "") {
		return nil, errors.Newf("exactly one of --table and --query must be set")
	}
	if len(sourceCfg.columns) == 0 {
		return nil, errors.Newf("--columns must be set")
	}
	large := make(map[string]bool, len(sourceCfg.largeColumns))
	for _, c := range sourceCfg.largeColumns {
		large[c] = true
	}
	cols := make([]datasource.Column, len(sourceCfg.columns))
	for i, c := range sourceCfg.columns {
		cols[i] = datasource.Column{Name: c, Large: large[c]}
		delete(large, c)
	}
	for c := range large {
		return nil, errors.Newf("large column %s is not in --columns", c)
	}
	if sourceCfg.query != "" {
		return datasource.NewQuery("query", sourceCfg.query, cols), nil
	}
	return datasource.NewTable(dbtable.ParseName(sourceCfg.table), cols...), nil
}

// Package datasource defines the schema-bearing origins of rows: tables and
// parameterized queries.
package datasource

import (
	"strings"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/dbdelta/dbtable"
	"github.com/cockroachdb/errors"
)

// Column describes one column of a data source.
type Column struct {
	Name string
	// Large marks columns holding large binary or character content. Their
	// values are compared by digest.
	Large bool
}

// Cols builds ordinary columns from labels.
func Cols(names ...string) []Column {
	ret := make([]Column, len(names))
	for i, n := range names {
		ret[i] = Column{Name: n}
	}
	return ret
}

// LargeCol returns a large-content column.
func LargeCol(name string) Column {
	return Column{Name: name, Large: true}
}

// Source is a named origin of rows with a fixed column schema.
type Source interface {
	// Name identifies the source in reports and errors.
	Name() string
	Columns() []Column
	// SQL returns the query that produces the source's rows.
	SQL(d dbtable.Dialect) (string, error)
	// Args returns the query arguments.
	Args() []any
}

// Labels returns the column labels of src.
func Labels(src Source) []string {
	cols := src.Columns()
	ret := make([]string, len(cols))
	for i, c := range cols {
		ret[i] = c.Name
	}
	return ret
}

// Table is a data source reading the given columns of a whole table.
type Table struct {
	name    dbtable.Name
	columns []Column
}

var _ Source = (*Table)(nil)

func NewTable(name dbtable.Name, columns ...Column) *Table {
	return &Table{name: name, columns: append([]Column(nil), columns...)}
}

func (t *Table) TableName() dbtable.Name { return t.name }

func (t *Table) Name() string { return t.name.SafeString() }

func (t *Table) Columns() []Column { return append([]Column(nil), t.columns...) }

func (t *Table) SQL(d dbtable.Dialect) (string, error) {
	names := make([]tree.Name, len(t.columns))
	for i, c := range t.columns {
		names[i] = tree.Name(c.Name)
	}
	return dbtable.SelectSQL(d, t.name, names)
}

func (t *Table) Args() []any { return nil }

// Query is a data source defined by arbitrary SQL. The query must return
// exactly the declared columns.
type Query struct {
	name    string
	sql     string
	columns []Column
	args    []any
}

var _ Source = (*Query)(nil)

func NewQuery(name string, sql string, columns []Column, args ...any) *Query {
	return &Query{
		name:    name,
		sql:     sql,
		columns: append([]Column(nil), columns...),
		args:    append([]any(nil), args...),
	}
}

func (q *Query) Name() string { return q.name }

func (q *Query) Columns() []Column { return append([]Column(nil), q.columns...) }

func (q *Query) SQL(dbtable.Dialect) (string, error) {
	if strings.TrimSpace(q.sql) == "" {
		return "", errors.Newf("empty query for %s", q.name)
	}
	return q.sql, nil
}

func (q *Query) Args() []any { return append([]any(nil), q.args...) }

package dbconn

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/cockroachdb/dbdelta/datasource"
	"github.com/cockroachdb/dbdelta/dbtable"
	"github.com/cockroachdb/dbdelta/rowval"
	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

// SQLConn runs queries through database/sql. It backs MySQL and SQLite
// connections.
type SQLConn struct {
	id      ID
	connStr string
	dialect dbtable.Dialect
	*sql.DB
}

var _ Conn = (*SQLConn)(nil)

// NewSQLConn wraps an open database handle.
func NewSQLConn(id ID, db *sql.DB, dialect dbtable.Dialect, connStr string) *SQLConn {
	return &SQLConn{id: id, connStr: connStr, dialect: dialect, DB: db}
}

// ConnectSQLite opens the SQLite database file at path.
func ConnectSQLite(ctx context.Context, id ID, path string) (*SQLConn, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening sqlite database %s", path)
	}
	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "error connecting to sqlite database %s", path)
	}
	return NewSQLConn(id, db, dbtable.DialectPostgres, "sqlite://"+path), nil
}

func (c *SQLConn) ID() ID {
	return c.id
}

func (c *SQLConn) Close(ctx context.Context) error {
	return c.DB.Close()
}

func (c *SQLConn) ConnStr() string {
	return c.connStr
}

func (c *SQLConn) Dialect() dbtable.Dialect {
	return c.dialect
}

// ExecuteQuery implements snapshot.Querier.
func (c *SQLConn) ExecuteQuery(ctx context.Context, src datasource.Source) ([]rowval.Row, error) {
	q, err := src.SQL(c.dialect)
	if err != nil {
		return nil, err
	}
	rows, err := c.QueryContext(ctx, q, src.Args()...)
	if err != nil {
		return nil, queryError(err, src.Name(), "error running %q", q)
	}
	defer func() { _ = rows.Close() }()

	cols := src.Columns()
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, queryError(err, src.Name(), "error getting column types")
	}
	if err := checkColumnCount(src.Name(), len(cols), len(types)); err != nil {
		return nil, err
	}
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = strings.ToUpper(t.DatabaseTypeName())
	}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	var ret []rowval.Row
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, queryError(err, src.Name(), "error scanning row")
		}
		row := make([]rowval.Value, len(vals))
		for i, v := range vals {
			if row[i], err = sqlValue(cols[i], typeNames[i], v); err != nil {
				return nil, queryError(err, src.Name(), "error converting column %s", cols[i].Name)
			}
		}
		ret = append(ret, rowval.NewRow(row...))
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, src.Name(), "error reading rows")
	}
	return ret, nil
}

// sqlValue converts a scanned value. Drivers using a text protocol hand
// back most columns as bytes, so those are reinterpreted using the column's
// database type.
func sqlValue(col datasource.Column, typeName string, v any) (rowval.Value, error) {
	if col.Large {
		return rowval.LargeOf(v)
	}
	b, ok := v.([]byte)
	if !ok {
		return rowval.Of(v)
	}
	switch {
	case strings.Contains(typeName, "BLOB"), strings.Contains(typeName, "BINARY"),
		typeName == "BIT", typeName == "GEOMETRY":
		return rowval.Bytes(b), nil
	case strings.Contains(typeName, "INT"), typeName == "YEAR",
		typeName == "DECIMAL", typeName == "NUMERIC":
		return rowval.ParseDecimal(string(b))
	case typeName == "FLOAT", typeName == "DOUBLE", typeName == "REAL":
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return rowval.Value{}, errors.Wrapf(err, "error parsing %s value", typeName)
		}
		return rowval.Float(f), nil
	case typeName == "":
		return rowval.Bytes(b), nil
	}
	return rowval.String(string(b)), nil
}

package dbconn

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/dbdelta/datasource"
	"github.com/cockroachdb/dbdelta/dbtable"
	"github.com/cockroachdb/dbdelta/rowval"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq/oid"
)

// PGConn is a connection to PostgreSQL or CockroachDB. ExecuteQuery may be
// called concurrently; queries are serialized on the single connection.
type PGConn struct {
	id ID
	*pgx.Conn
	queryMu     sync.Mutex
	version     string
	connStr     string
	isCockroach bool
}

var _ Conn = (*PGConn)(nil)

func NewPGConn(id ID, conn *pgx.Conn, connStr string, version string) *PGConn {
	return &PGConn{
		id:          id,
		Conn:        conn,
		version:     version,
		connStr:     connStr,
		isCockroach: strings.Contains(version, "CockroachDB"),
	}
}

func ConnectPG(ctx context.Context, id ID, connStr string) (*PGConn, error) {
	cfg, err := pgx.ParseConfig(connStr)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing connection string for %s", id)
	}
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "error connecting to %s", id)
	}
	var version string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		_ = conn.Close(ctx)
		return nil, errors.Wrapf(err, "error getting version of %s", id)
	}
	return NewPGConn(id, conn, connStr, version), nil
}

func (c *PGConn) ID() ID {
	return c.id
}

// Version is the server's version() string.
func (c *PGConn) Version() string {
	return c.version
}

func (c *PGConn) IsCockroach() bool {
	return c.isCockroach
}

func (c *PGConn) ConnStr() string {
	return c.connStr
}

func (c *PGConn) Dialect() dbtable.Dialect {
	return dbtable.DialectPostgres
}

// ExecuteQuery implements snapshot.Querier.
func (c *PGConn) ExecuteQuery(ctx context.Context, src datasource.Source) ([]rowval.Row, error) {
	q, err := src.SQL(dbtable.DialectPostgres)
	if err != nil {
		return nil, err
	}
	c.queryMu.Lock()
	defer c.queryMu.Unlock()
	rows, err := c.Query(ctx, q, src.Args()...)
	if err != nil {
		return nil, queryError(err, src.Name(), "error running %q", q)
	}
	defer rows.Close()

	cols := src.Columns()
	fields := rows.FieldDescriptions()
	if err := checkColumnCount(src.Name(), len(cols), len(fields)); err != nil {
		return nil, err
	}
	var ret []rowval.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, queryError(err, src.Name(), "error decoding row")
		}
		row := make([]rowval.Value, len(vals))
		for i, v := range vals {
			if row[i], err = pgValue(cols[i], oid.Oid(fields[i].DataTypeOID), v); err != nil {
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

func pgValue(col datasource.Column, typOID oid.Oid, v any) (rowval.Value, error) {
	if v == nil {
		return rowval.Null(), nil
	}
	switch typOID {
	case oid.T_numeric:
		switch n := v.(type) {
		case pgtype.Numeric:
			return numericValue(n)
		case *pgtype.Numeric:
			return numericValue(*n)
		}
	case oid.T_json, oid.T_jsonb:
		// Decoded documents are re-encoded so that key order and spacing
		// do not matter.
		b, err := json.Marshal(v)
		if err != nil {
			return rowval.Value{}, errors.Wrap(err, "error encoding json")
		}
		v = string(b)
	case oid.T_uuid:
		if u, ok := v.([16]byte); ok {
			v = fmt.Sprintf("%x-%x-%x-%x-%x", u[0:4], u[4:6], u[6:8], u[8:10], u[10:16])
		}
	}
	if col.Large {
		return rowval.LargeOf(v)
	}
	return rowval.Of(v)
}

func numericValue(n pgtype.Numeric) (rowval.Value, error) {
	switch {
	case !n.Valid:
		return rowval.Null(), nil
	case n.NaN:
		return rowval.Decimal(&apd.Decimal{Form: apd.NaN}), nil
	case n.InfinityModifier == pgtype.Infinity:
		return rowval.Decimal(&apd.Decimal{Form: apd.Infinite}), nil
	case n.InfinityModifier == pgtype.NegativeInfinity:
		return rowval.Decimal(&apd.Decimal{Form: apd.Infinite, Negative: true}), nil
	case n.Int == nil:
		return rowval.Value{}, errors.AssertionFailedf("numeric without coefficient")
	}
	return rowval.Decimal(apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(n.Int), n.Exp)), nil
}

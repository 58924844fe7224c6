package dbconn

import (
	"context"
	"net/url"
	"strings"

	"github.com/cockroachdb/dbdelta/dbtable"
	"github.com/cockroachdb/dbdelta/snapshot"
	"github.com/cockroachdb/errors"
)

type ID string

// Conn runs data source queries against one database.
type Conn interface {
	snapshot.Querier

	ID() ID
	// Close closes the connection.
	Close(ctx context.Context) error
	// Dialect is the SQL dialect table sources are rendered in.
	Dialect() dbtable.Dialect
	ConnStr() string
}

// Connect opens a connection, picking the driver from the scheme of connStr:
// postgres:// or postgresql:// (also CockroachDB), mysql:// (or a
// go-sql-driver DSN with a mysql:// prefix) and sqlite://path.
func Connect(ctx context.Context, preferredID ID, connStr string) (Conn, error) {
	id := preferredID
	if len(connStr) == 0 {
		return nil, errors.Newf("empty connection string")
	}

	before := strings.SplitN(connStr, "://", 2)
	if len(before) != 2 {
		return nil, errors.Newf("connection string %s has no scheme", connStr)
	}

	switch {
	case strings.Contains(before[0], "postgres"):
		u, err := url.Parse(connStr)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to parse url: %s", connStr)
		}
		if id == "" {
			id = ID(u.Hostname() + ":" + u.Port())
		}
		return ConnectPG(ctx, id, connStr)
	case strings.Contains(before[0], "mysql"):
		if id == "" {
			id = "mysql"
		}
		return ConnectMySQL(ctx, id, connStr)
	case before[0] == "sqlite":
		if id == "" {
			id = ID(before[1])
		}
		return ConnectSQLite(ctx, id, before[1])
	}
	return nil, errors.Newf("unrecognised scheme %s from %s", before[0], connStr)
}

// queryError marks err as an execution failure of src.
func queryError(err error, src string, format string, args ...interface{}) error {
	return errors.Mark(
		errors.Wrapf(err, "%s: "+format, append([]interface{}{src}, args...)...),
		snapshot.ErrQueryExecution,
	)
}

func checkColumnCount(src string, expected, actual int) error {
	if expected != actual {
		return errors.Mark(
			errors.Newf("%s: query returned %d columns, expected %d", src, actual, expected),
			snapshot.ErrQueryExecution,
		)
	}
	return nil
}

package dbconn

import (
	"context"
	"sync"

	"github.com/cockroachdb/dbdelta/datasource"
	"github.com/cockroachdb/dbdelta/dbtable"
	"github.com/cockroachdb/dbdelta/rowval"
	"github.com/cockroachdb/errors"
)

// FakeConn serves rows from memory, keyed by data source name.
type FakeConn struct {
	id ID

	mu struct {
		sync.Mutex
		rows    map[string][]rowval.Row
		err     error
		queries int
	}
}

var _ Conn = (*FakeConn)(nil)

func NewFakeConn(id ID) *FakeConn {
	f := &FakeConn{id: id}
	f.mu.rows = make(map[string][]rowval.Row)
	return f
}

// SetRows replaces the rows served for the named source.
func (f *FakeConn) SetRows(name string, rows ...rowval.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mu.rows[name] = append([]rowval.Row(nil), rows...)
}

// SetValues replaces the rows served for the named source, converting each
// row with rowval.MakeRow.
func (f *FakeConn) SetValues(name string, rows ...[]any) error {
	converted := make([]rowval.Row, len(rows))
	for i, r := range rows {
		var err error
		if converted[i], err = rowval.MakeRow(r...); err != nil {
			return err
		}
	}
	f.SetRows(name, converted...)
	return nil
}

// SetError makes every following query fail with err until it is reset
// with nil.
func (f *FakeConn) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mu.err = err
}

// Queries returns how many queries were executed.
func (f *FakeConn) Queries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mu.queries
}

func (f *FakeConn) ExecuteQuery(ctx context.Context, src datasource.Source) ([]rowval.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mu.queries++
	if f.mu.err != nil {
		return nil, queryError(f.mu.err, src.Name(), "fake query failed")
	}
	if err := ctx.Err(); err != nil {
		return nil, queryError(err, src.Name(), "fake query canceled")
	}
	rows, ok := f.mu.rows[src.Name()]
	if !ok {
		return nil, queryError(errors.Newf("relation %q does not exist", src.Name()), src.Name(), "fake query failed")
	}
	return append([]rowval.Row(nil), rows...), nil
}

func (f *FakeConn) ID() ID {
	return f.id
}

func (f *FakeConn) Close(ctx context.Context) error {
	return nil
}

func (f *FakeConn) ConnStr() string {
	return "fake://"
}

func (f *FakeConn) Dialect() dbtable.Dialect {
	return dbtable.DialectPostgres
}

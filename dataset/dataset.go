// Package dataset implements data sets: multisets of rows tied to a single
// data source. Order of insertion is kept for reporting but never matters
// for comparison; duplicates and their counts do.
package dataset

import (
	"github.com/cockroachdb/dbdelta/datasource"
	"github.com/cockroachdb/dbdelta/rowval"
	"github.com/cockroachdb/errors"
)

var (
	ErrFrozen         = errors.New("data set is read-only")
	ErrColumnCount    = errors.New("row does not match the column count of the data source")
	ErrSourceMismatch = errors.New("data sets belong to different data sources")
)

// DataSet is a multiset of rows for one data source.
type DataSet struct {
	source datasource.Source
	rows   []rowval.Row
	frozen bool
}

// New returns an empty, mutable data set for src.
func New(src datasource.Source) *DataSet {
	return &DataSet{source: src}
}

// Empty returns an empty, read-only data set for src.
func Empty(src datasource.Source) *DataSet {
	return &DataSet{source: src, frozen: true}
}

// FromRows builds a data set holding the given rows.
func FromRows(src datasource.Source, rows ...rowval.Row) (*DataSet, error) {
	ds := &DataSet{source: src, rows: make([]rowval.Row, 0, len(rows))}
	for _, r := range rows {
		if err := ds.Add(r); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func (ds *DataSet) Source() datasource.Source { return ds.source }

// Len returns the number of rows, counting duplicates. A nil data set has
// no rows.
func (ds *DataSet) Len() int {
	if ds == nil {
		return 0
	}
	return len(ds.rows)
}

func (ds *DataSet) IsEmpty() bool { return ds.Len() == 0 }

// Row returns the i-th row in insertion order.
func (ds *DataSet) Row(i int) rowval.Row { return ds.rows[i] }

// Rows returns the rows in insertion order.
func (ds *DataSet) Rows() []rowval.Row { return append([]rowval.Row(nil), ds.rows...) }

func (ds *DataSet) IsFrozen() bool { return ds.frozen }

// Freeze makes the data set read-only. Freezing twice is a no-op.
func (ds *DataSet) Freeze() *DataSet {
	ds.frozen = true
	return ds
}

// Add appends a row.
func (ds *DataSet) Add(r rowval.Row) error {
	if ds.frozen {
		return errors.Wrapf(ErrFrozen, "cannot add row to %s", ds.source.Name())
	}
	if n := len(ds.source.Columns()); r.Len() != n {
		return errors.Wrapf(ErrColumnCount, "row has %d values, %s has %d columns", r.Len(), ds.source.Name(), n)
	}
	ds.rows = append(ds.rows, r)
	return nil
}

// AddValues converts vals according to the source's columns and appends the
// resulting row. Values of large columns are digested.
func (ds *DataSet) AddValues(vals ...any) error {
	cols := ds.source.Columns()
	if len(vals) != len(cols) {
		return errors.Wrapf(ErrColumnCount, "row has %d values, %s has %d columns", len(vals), ds.source.Name(), len(cols))
	}
	converted := make([]rowval.Value, len(vals))
	for i, v := range vals {
		var err error
		if cols[i].Large {
			converted[i], err = rowval.LargeOf(v)
		} else {
			converted[i], err = rowval.Of(v)
		}
		if err != nil {
			return errors.Wrapf(err, "error converting column %s of %s", cols[i].Name, ds.source.Name())
		}
	}
	return ds.Add(rowval.NewRow(converted...))
}

// MustAdd is AddValues for declaring expectations; it panics on error and
// returns ds for chaining.
func (ds *DataSet) MustAdd(vals ...any) *DataSet {
	if err := ds.AddValues(vals...); err != nil {
		panic(err)
	}
	return ds
}

// Subtract returns a new data set holding, for each distinct row, as many
// copies as it has in ds minus the copies in other (never fewer than zero).
// Neither input is modified.
func (ds *DataSet) Subtract(other *DataSet) (*DataSet, error) {
	if err := checkSameSource(ds, other); err != nil {
		return nil, err
	}
	ret := &DataSet{source: ds.source}
	if len(other.rows) == 0 {
		ret.rows = append(ret.rows, ds.rows...)
		return ret, nil
	}
	idx := newCountIndex(other.rows)
	for _, r := range ds.rows {
		if !idx.take(r) {
			ret.rows = append(ret.rows, r)
		}
	}
	return ret, nil
}

// EqualsAsMultiset reports whether both data sets hold the same rows with the
// same multiplicities.
func (ds *DataSet) EqualsAsMultiset(other *DataSet) (bool, error) {
	if err := checkSameSource(ds, other); err != nil {
		return false, err
	}
	if len(ds.rows) != len(other.rows) {
		return false, nil
	}
	a, err := ds.Subtract(other)
	if err != nil {
		return false, err
	}
	if !a.IsEmpty() {
		return false, nil
	}
	b, err := other.Subtract(ds)
	if err != nil {
		return false, err
	}
	return b.IsEmpty(), nil
}

// Union returns the multiset sum of ds and other.
func (ds *DataSet) Union(other *DataSet) (*DataSet, error) {
	if err := checkSameSource(ds, other); err != nil {
		return nil, err
	}
	ret := &DataSet{source: ds.source, rows: make([]rowval.Row, 0, len(ds.rows)+len(other.rows))}
	ret.rows = append(ret.rows, ds.rows...)
	ret.rows = append(ret.rows, other.rows...)
	return ret, nil
}

func checkSameSource(a, b *DataSet) error {
	if a.source != b.source {
		return errors.Wrapf(ErrSourceMismatch, "%s and %s", a.source.Name(), b.source.Name())
	}
	return nil
}

// Package delta classifies the difference between two snapshots of the same
// data source.
package delta

import (
	"github.com/cockroachdb/dbdelta/dataset"
	"github.com/cockroachdb/errors"
)

// Result partitions two snapshots. As multisets,
// old = Unchanged + Removed and new = Unchanged + Added.
type Result struct {
	Removed   *dataset.DataSet
	Added     *dataset.DataSet
	Unchanged *dataset.DataSet
}

// IsEmpty reports whether nothing was removed or added.
func (r Result) IsEmpty() bool {
	return r.Removed.IsEmpty() && r.Added.IsEmpty()
}

// Classify computes the multiset delta between old and new. The resulting
// data sets are read-only.
func Classify(old, new *dataset.DataSet) (Result, error) {
	removed, err := old.Subtract(new)
	if err != nil {
		return Result{}, errors.Wrap(err, "error computing removed rows")
	}
	added, err := new.Subtract(old)
	if err != nil {
		return Result{}, errors.Wrap(err, "error computing added rows")
	}
	unchanged, err := old.Subtract(removed)
	if err != nil {
		return Result{}, errors.Wrap(err, "error computing unchanged rows")
	}
	return Result{
		Removed:   removed.Freeze(),
		Added:     added.Freeze(),
		Unchanged: unchanged.Freeze(),
	}, nil
}

// Package snapshot tracks the last captured state of a data source so that
// later captures can be diffed against it.
package snapshot

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/dbdelta/dataset"
	"github.com/cockroachdb/dbdelta/datasource"
	"github.com/cockroachdb/dbdelta/delta"
	"github.com/cockroachdb/dbdelta/rowval"
	"github.com/cockroachdb/errors"
)

var (
	// ErrNoSnapshot is returned when a delta is requested before any
	// snapshot of the source was captured.
	ErrNoSnapshot = errors.New("no snapshot has been taken")
	// ErrQueryExecution marks failures of the query executing collaborator.
	ErrQueryExecution = errors.New("query execution failed")
)

// Querier executes the query of a data source, returning rows shaped like
// the source's columns.
type Querier interface {
	ExecuteQuery(ctx context.Context, src datasource.Source) ([]rowval.Row, error)
}

type State int

const (
	NoSnapshot State = iota
	HasSnapshot
)

func (s State) String() string {
	if s == HasSnapshot {
		return "HAS_SNAPSHOT"
	}
	return "NO_SNAPSHOT"
}

// Tracker holds the most recent snapshot of one data source. The stored
// data set is frozen and only ever replaced, so readers see either the old
// or the new snapshot in full.
type Tracker struct {
	src  datasource.Source
	last atomic.Pointer[dataset.DataSet]
}

func NewTracker(src datasource.Source) *Tracker {
	return &Tracker{src: src}
}

func (t *Tracker) Source() datasource.Source { return t.src }

func (t *Tracker) State() State {
	if t.last.Load() == nil {
		return NoSnapshot
	}
	return HasSnapshot
}

// Last returns the stored snapshot.
func (t *Tracker) Last() (*dataset.DataSet, error) {
	ds := t.last.Load()
	if ds == nil {
		return nil, errors.Wrapf(ErrNoSnapshot, "for %s", t.src.Name())
	}
	return ds, nil
}

// Capture queries the source, stores the result as the new snapshot and
// returns it. On error the stored snapshot is left untouched.
func (t *Tracker) Capture(ctx context.Context, q Querier) (*dataset.DataSet, error) {
	ds, err := Take(ctx, q, t.src)
	if err != nil {
		return nil, err
	}
	t.last.Store(ds)
	return ds, nil
}

// Delta captures a fresh snapshot and classifies it against the stored one,
// which it then replaces.
func (t *Tracker) Delta(ctx context.Context, q Querier) (delta.Result, error) {
	old, err := t.Last()
	if err != nil {
		return delta.Result{}, errors.Wrap(err, "cannot compute delta")
	}
	cur, err := Take(ctx, q, t.src)
	if err != nil {
		return delta.Result{}, err
	}
	res, err := delta.Classify(old, cur)
	if err != nil {
		return delta.Result{}, errors.Wrapf(err, "error computing delta of %s", t.src.Name())
	}
	t.last.Store(cur)
	return res, nil
}

// Take queries src and returns its rows as a frozen data set without
// storing it anywhere.
func Take(ctx context.Context, q Querier, src datasource.Source) (*dataset.DataSet, error) {
	rows, err := q.ExecuteQuery(ctx, src)
	if err != nil {
		if !errors.Is(err, ErrQueryExecution) {
			err = errors.Mark(err, ErrQueryExecution)
		}
		return nil, errors.Wrapf(err, "error querying %s", src.Name())
	}
	ds, err := dataset.FromRows(src, rows...)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "unexpected result shape from %s", src.Name()), ErrQueryExecution)
	}
	return ds.Freeze(), nil
}

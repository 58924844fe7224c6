// Package assertion evaluates expectations about data sets against what was
// observed in the database.
package assertion

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/dbdelta/dataset"
	"github.com/cockroachdb/dbdelta/datasource"
	"github.com/cockroachdb/dbdelta/delta"
	"github.com/cockroachdb/errors"
)

type Kind int

const (
	// KindDelta compares expected removed and added rows with a delta.
	KindDelta Kind = iota
	// KindState compares an expected data set with a fresh snapshot.
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindDelta:
		return "delta"
	case KindState:
		return "state"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Mismatch holds the rows on which an expectation and an observation
// disagree.
type Mismatch struct {
	// Expected holds rows that were expected but not observed.
	Expected *dataset.DataSet
	// Actual holds rows that were observed but not expected.
	Actual *dataset.DataSet
}

func (m Mismatch) Empty() bool {
	return m.Expected.IsEmpty() && m.Actual.IsEmpty()
}

// Result is the outcome of one assertion. A failed assertion is a Result
// whose Passed method returns false, never an error.
type Result struct {
	Kind   Kind
	Source datasource.Source

	// Delta mode.
	ExpectedOld *dataset.DataSet
	ExpectedNew *dataset.DataSet
	Delta       delta.Result
	Old         Mismatch
	New         Mismatch

	// State mode.
	ExpectedState *dataset.DataSet
	Actual        *dataset.DataSet
	State         Mismatch
}

func (r Result) Passed() bool {
	if r.Kind == KindState {
		return r.State.Empty()
	}
	return r.Old.Empty() && r.New.Empty()
}

// String summarizes the verdict.
func (r Result) String() string {
	name := "<nil>"
	if r.Source != nil {
		name = r.Source.Name()
	}
	if r.Passed() {
		return fmt.Sprintf("%s assertion on %s passed", r.Kind, name)
	}
	var parts []string
	add := func(n int, what string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, what))
		}
	}
	switch r.Kind {
	case KindDelta:
		add(r.Old.Expected.Len(), "expected deleted row(s) still present")
		add(r.Old.Actual.Len(), "unexpected deleted row(s)")
		add(r.New.Expected.Len(), "expected inserted row(s) missing")
		add(r.New.Actual.Len(), "unexpected inserted row(s)")
	case KindState:
		add(r.State.Expected.Len(), "expected row(s) missing")
		add(r.State.Actual.Len(), "unexpected row(s)")
	}
	return fmt.Sprintf("%s assertion on %s failed: %s", r.Kind, name, strings.Join(parts, ", "))
}

// EvaluateDelta checks that actual removed exactly expOld and added exactly
// expNew. A nil expectation is treated as empty. No input is modified.
func EvaluateDelta(expOld, expNew *dataset.DataSet, actual delta.Result) (Result, error) {
	src := actual.Removed.Source()
	if expOld == nil {
		expOld = dataset.Empty(src)
	}
	if expNew == nil {
		expNew = dataset.Empty(actual.Added.Source())
	}
	old, err := diff(expOld, actual.Removed)
	if err != nil {
		return Result{}, errors.Wrapf(err, "error evaluating deleted rows of %s", src.Name())
	}
	new, err := diff(expNew, actual.Added)
	if err != nil {
		return Result{}, errors.Wrapf(err, "error evaluating inserted rows of %s", src.Name())
	}
	return Result{
		Kind:        KindDelta,
		Source:      src,
		ExpectedOld: expOld,
		ExpectedNew: expNew,
		Delta:       actual,
		Old:         old,
		New:         new,
	}, nil
}

// EvaluateState checks that actual holds exactly the rows of expected, with
// the same multiplicities. No input is modified.
func EvaluateState(expected, actual *dataset.DataSet) (Result, error) {
	m, err := diff(expected, actual)
	if err != nil {
		return Result{}, errors.Wrapf(err, "error evaluating state of %s", actual.Source().Name())
	}
	return Result{
		Kind:          KindState,
		Source:        actual.Source(),
		ExpectedState: expected,
		Actual:        actual,
		State:         m,
	}, nil
}

func diff(expected, actual *dataset.DataSet) (Mismatch, error) {
	e, err := expected.Subtract(actual)
	if err != nil {
		return Mismatch{}, err
	}
	a, err := actual.Subtract(expected)
	if err != nil {
		return Mismatch{}, err
	}
	return Mismatch{Expected: e.Freeze(), Actual: a.Freeze()}, nil
}

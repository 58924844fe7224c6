package rowval

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Row is an immutable, ordered tuple of column values.
type Row struct {
	vals []Value
}

// NewRow returns a row holding a copy of vals.
func NewRow(vals ...Value) Row {
	return Row{vals: append([]Value(nil), vals...)}
}

// MakeRow converts Go values with Of and builds a row.
func MakeRow(vals ...any) (Row, error) {
	r := Row{vals: make([]Value, len(vals))}
	for i, v := range vals {
		var err error
		if r.vals[i], err = Of(v); err != nil {
			return Row{}, err
		}
	}
	return r, nil
}

// Len returns the number of columns in the row.
func (r Row) Len() int { return len(r.vals) }

// At returns the value at column i.
func (r Row) At(i int) Value { return r.vals[i] }

// Values returns a copy of the row's values.
func (r Row) Values() []Value { return append([]Value(nil), r.vals...) }

// Equal reports whether r and o hold equal values position-wise.
func (r Row) Equal(o Row) bool {
	if len(r.vals) != len(o.vals) {
		return false
	}
	for i := range r.vals {
		if !Equal(r.vals[i], o.vals[i]) {
			return false
		}
	}
	return true
}

// Hash returns a hash of the row that agrees with Equal: equal rows always
// hash equally.
func (r Row) Hash() uint64 {
	var buf [128]byte
	key := buf[:0]
	for _, v := range r.vals {
		key = v.AppendKey(key)
	}
	return xxhash.Sum64(key)
}

// Strings renders every value of the row.
func (r Row) Strings() []string {
	ret := make([]string, len(r.vals))
	for i, v := range r.vals {
		ret[i] = v.String()
	}
	return ret
}

func (r Row) String() string {
	return "(" + strings.Join(r.Strings(), ", ") + ")"
}

package dataset

import "github.com/cockroachdb/dbdelta/rowval"

type countEntry struct {
	row   rowval.Row
	count int
}

// countIndex groups rows by hash, keeping one entry per distinct row with its
// multiplicity. Rows sharing a hash are told apart with rowval.Row.Equal.
type countIndex map[uint64][]*countEntry

func newCountIndex(rows []rowval.Row) countIndex {
	idx := make(countIndex, len(rows))
	for _, r := range rows {
		h := r.Hash()
		found := false
		for _, e := range idx[h] {
			if e.row.Equal(r) {
				e.count++
				found = true
				break
			}
		}
		if !found {
			idx[h] = append(idx[h], &countEntry{row: r, count: 1})
		}
	}
	return idx
}

// take consumes one copy of r, reporting whether one was available.
func (idx countIndex) take(r rowval.Row) bool {
	for _, e := range idx[r.Hash()] {
		if e.row.Equal(r) {
			if e.count == 0 {
				return false
			}
			e.count--
			return true
		}
	}
	return false
}

// Multiplicities returns each distinct row of ds with its count, in order of
// first appearance.
func (ds *DataSet) Multiplicities() []Entry {
	idx := make(countIndex, len(ds.rows))
	var order []*countEntry
	for _, r := range ds.rows {
		h := r.Hash()
		var entry *countEntry
		for _, e := range idx[h] {
			if e.row.Equal(r) {
				entry = e
				break
			}
		}
		if entry == nil {
			entry = &countEntry{row: r}
			idx[h] = append(idx[h], entry)
			order = append(order, entry)
		}
		entry.count++
	}
	ret := make([]Entry, len(order))
	for i, e := range order {
		ret[i] = Entry{Row: e.row, Multiplicity: e.count}
	}
	return ret
}

// Entry is a distinct row with its multiplicity.
type Entry struct {
	Row          rowval.Row
	Multiplicity int
}

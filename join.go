package lake

import (
	"sync"

	"github.com/pkg/errors"
)

// JoinKey names the column from each side of an equi-join.
type JoinKey struct {
	Left  string
	Right string
}

// Index holds the build side of a hash join, mapping a key to every row
// added under it.
type Index interface {
	Add(key []byte, r Row) error
	// Lookup returns rows in the order they were added.
	Lookup(key []byte) ([]Row, error)
	Close() error
}

// Join returns the inner equi-join of left and right on the given columns.
// Right is loaded into idx, which should be empty. Null keys never match.
// Output rows are left columns followed by right columns, in left row order.
func Join(left, right *Table, on JoinKey, idx Index) (*Table, error) {
	li, err := left.Schema.mustIndex(on.Left)
	if err != nil {
		return nil, errors.Wrap(err, "left join key")
	}
	ri, err := right.Schema.mustIndex(on.Right)
	if err != nil {
		return nil, errors.Wrap(err, "right join key")
	}
	lt, rt := left.Schema[li].Type, right.Schema[ri].Type
	if lt != rt {
		return nil, errors.Errorf("join key types differ: %s is %v, %s is %v", on.Left, lt, on.Right, rt)
	}
	schema := make(Schema, 0, len(left.Schema)+len(right.Schema))
	schema = append(schema, left.Schema...)
	for _, c := range right.Schema {
		if schema.Index(c.Name) >= 0 {
			return nil, errors.Wrapf(ErrDuplicateColumn, "join %q", c.Name)
		}
		schema = append(schema, c)
	}

	var key []byte
	for n, r := range right.Rows {
		if r[ri] == nil {
			continue
		}
		key = AppendKey(key[:0], r[ri])
		if err := idx.Add(key, r); err != nil {
			return nil, errors.Wrapf(err, "indexing row %d of %s", n, right.Name)
		}
	}

	rows := make([]Row, 0)
	for _, l := range left.Rows {
		if l[li] == nil {
			continue
		}
		key = AppendKey(key[:0], l[li])
		matches, err := idx.Lookup(key)
		if err != nil {
			return nil, errors.Wrapf(err, "looking up %v", l[li])
		}
		for _, m := range matches {
			nr := make(Row, 0, len(schema))
			nr = append(nr, l...)
			rows = append(rows, append(nr, m...))
		}
	}
	return &Table{Name: left.Name, Schema: schema, Rows: rows}, nil
}

// MapIndex is an Index held entirely in memory.
type MapIndex struct {
	mu   sync.RWMutex
	rows map[string][]Row
}

// NewMapIndex returns an empty MapIndex.
func NewMapIndex() *MapIndex {
	return &MapIndex{
		rows: make(map[string][]Row),
	}
}

func (m *MapIndex) Add(key []byte, r Row) error {
	m.mu.Lock()
	m.rows[string(key)] = append(m.rows[string(key)], r)
	m.mu.Unlock()
	return nil
}

func (m *MapIndex) Lookup(key []byte) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rows[string(key)], nil
}

func (m *MapIndex) Close() error { return nil }

package lake

import (
	"encoding/binary"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Error is a constant error type.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrUnknownColumn is returned when an operation names a column which is
	// not in the table's schema.
	ErrUnknownColumn = Error("unknown column")

	// ErrDuplicateColumn is returned when an operation would produce a schema
	// with two columns of the same name.
	ErrDuplicateColumn = Error("duplicate column")
)

// Type is the type of a column. Every column is nullable.
type Type int

const (
	String Type = iota
	Int32
	Int64
	Float64
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	}
	return "unknown"
}

// Check returns an error if v can't be stored in a column of type t.
func (t Type) Check(v interface{}) error {
	if v == nil {
		return nil
	}
	ok := false
	switch v.(type) {
	case string:
		ok = t == String
	case int32:
		ok = t == Int32
	case int64:
		ok = t == Int64
	case float64:
		ok = t == Float64
	}
	if !ok {
		return errors.Errorf("value %v of type %T is not a %v", v, v, t)
	}
	return nil
}

// Column is a named, typed column.
type Column struct {
	Name string
	Type Type
}

// Schema is an ordered list of columns.
type Schema []Column

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

func (s Schema) mustIndex(name string) (int, error) {
	i := s.Index(name)
	if i < 0 {
		return -1, errors.Wrapf(ErrUnknownColumn, "%q not in [%s]", name, strings.Join(s.Names(), ", "))
	}
	return i, nil
}

// Row is one row of a Table. Values are nil, string, int32, int64 or float64
// according to the column types. Rows are never modified once they have been
// added to a Table, so tables derived from one another may share them.
type Row []interface{}

// Table is an in-memory dataset.
type Table struct {
	Name   string
	Schema Schema
	Rows   []Row
}

// NewTable returns an empty table.
func NewTable(name string, schema Schema) *Table {
	return &Table{
		Name:   name,
		Schema: schema,
		Rows:   make([]Row, 0),
	}
}

// Append adds a row after checking it against the schema.
func (t *Table) Append(r Row) error {
	if len(r) != len(t.Schema) {
		return errors.Errorf("row has %d values, table %s has %d columns", len(r), t.Name, len(t.Schema))
	}
	for i, v := range r {
		if err := t.Schema[i].Type.Check(v); err != nil {
			return errors.Wrapf(err, "column %s", t.Schema[i].Name)
		}
	}
	t.Rows = append(t.Rows, r)
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Value returns the value of the named column in r. r must belong to t.
func (t *Table) Value(r Row, name string) (interface{}, error) {
	i, err := t.Schema.mustIndex(name)
	if err != nil {
		return nil, err
	}
	return r[i], nil
}

func (t *Table) derive(name string, schema Schema, rows []Row) *Table {
	if name == "" {
		name = t.Name
	}
	return &Table{Name: name, Schema: schema, Rows: rows}
}

// Filter returns a table with only the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	rows := make([]Row, 0)
	for _, r := range t.Rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return t.derive("", t.Schema, rows)
}

// Where returns the rows whose column equals value. Null never equals
// anything.
func (t *Table) Where(column string, value interface{}) (*Table, error) {
	i, err := t.Schema.mustIndex(column)
	if err != nil {
		return nil, errors.Wrap(err, "where")
	}
	return t.Filter(func(r Row) bool {
		return r[i] != nil && r[i] == value
	}), nil
}

// Projection selects a column, optionally renaming it.
type Projection struct {
	name  string
	alias string
}

// Col projects the named column.
func Col(name string) Projection { return Projection{name: name, alias: name} }

// As renames the projected column.
func (p Projection) As(alias string) Projection {
	p.alias = alias
	return p
}

// Select returns a table with just the projected columns, in order.
func (t *Table) Select(ps ...Projection) (*Table, error) {
	idx := make([]int, len(ps))
	schema := make(Schema, len(ps))
	for j, p := range ps {
		i, err := t.Schema.mustIndex(p.name)
		if err != nil {
			return nil, errors.Wrap(err, "select")
		}
		if schema[:j].Index(p.alias) >= 0 {
			return nil, errors.Wrapf(ErrDuplicateColumn, "select %q", p.alias)
		}
		idx[j] = i
		schema[j] = Column{Name: p.alias, Type: t.Schema[i].Type}
	}
	rows := make([]Row, len(t.Rows))
	for n, r := range t.Rows {
		nr := make(Row, len(idx))
		for j, i := range idx {
			nr[j] = r[i]
		}
		rows[n] = nr
	}
	return t.derive("", schema, rows), nil
}

// WithColumn returns a table with a new column appended whose value in each
// row is computed by fn.
func (t *Table) WithColumn(name string, typ Type, fn func(Row) (interface{}, error)) (*Table, error) {
	if t.Schema.Index(name) >= 0 {
		return nil, errors.Wrapf(ErrDuplicateColumn, "with column %q", name)
	}
	schema := make(Schema, len(t.Schema), len(t.Schema)+1)
	copy(schema, t.Schema)
	schema = append(schema, Column{Name: name, Type: typ})
	rows := make([]Row, len(t.Rows))
	for n, r := range t.Rows {
		v, err := fn(r)
		if err != nil {
			return nil, errors.Wrapf(err, "computing %s for row %d", name, n)
		}
		if err := typ.Check(v); err != nil {
			return nil, errors.Wrapf(err, "column %s", name)
		}
		nr := make(Row, len(r), len(r)+1)
		copy(nr, r)
		rows[n] = append(nr, v)
	}
	return t.derive("", schema, rows), nil
}

// Distinct returns the table without duplicate rows. Two rows are
// duplicates when every column is equal, with null equal to null. The first
// occurrence of each row is kept, in the original order.
func (t *Table) Distinct() *Table {
	seen := make(map[string]struct{}, len(t.Rows))
	rows := make([]Row, 0)
	var buf []byte
	for _, r := range t.Rows {
		buf = buf[:0]
		for _, v := range r {
			buf = AppendKey(buf, v)
		}
		if _, ok := seen[string(buf)]; ok {
			continue
		}
		seen[string(buf)] = struct{}{}
		rows = append(rows, r)
	}
	return t.derive("", t.Schema, rows)
}

// Sort returns the table with its rows in a total order over every column,
// left to right, with nulls first. Equal rows keep their relative order.
func (t *Table) Sort() *Table {
	rows := make([]Row, len(t.Rows))
	copy(rows, t.Rows)
	sort.SliceStable(rows, func(i, j int) bool {
		return compareRows(rows[i], rows[j]) < 0
	})
	return t.derive("", t.Schema, rows)
}

func compareRows(a, b Row) int {
	for i := range a {
		if c := compareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func compareValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch av := a.(type) {
	case string:
		return strings.Compare(av, b.(string))
	case int32:
		bv := b.(int32)
		if av < bv {
			return -1
		} else if av > bv {
			return 1
		}
	case int64:
		bv := b.(int64)
		if av < bv {
			return -1
		} else if av > bv {
			return 1
		}
	case float64:
		bv := b.(float64)
		if av < bv {
			return -1
		} else if av > bv {
			return 1
		}
	}
	return 0
}

// AppendKey appends an unambiguous binary encoding of v to buf. Equal values
// of the same type always encode identically.
func AppendKey(buf []byte, v interface{}) []byte {
	var scratch [binary.MaxVarintLen64]byte
	switch tv := v.(type) {
	case nil:
		return append(buf, 'n')
	case string:
		buf = append(buf, 's')
		n := binary.PutUvarint(scratch[:], uint64(len(tv)))
		buf = append(buf, scratch[:n]...)
		return append(buf, tv...)
	case int32:
		buf = append(buf, 'i')
		n := binary.PutVarint(scratch[:], int64(tv))
		return append(buf, scratch[:n]...)
	case int64:
		buf = append(buf, 'l')
		n := binary.PutVarint(scratch[:], tv)
		return append(buf, scratch[:n]...)
	case float64:
		buf = append(buf, 'd')
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(tv))
		return append(buf, b[:]...)
	}
	panic(errors.Errorf("unsupported cell value %v of type %T", v, v))
}

package lake

import (
	"context"
	"fmt"
	"io"
)

// NamedReadCloser is an io.ReadCloser for one input object which also knows
// the name of that object.
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
}

// RawSource hands out readers for each matching input object in turn. Once
// all objects have been returned, NextReader returns io.EOF.
type RawSource interface {
	NextReader() (NamedReadCloser, error)
}

// Record is a single decoded input object.
type Record interface {
	// Validate checks for required fields after decoding.
	Validate() error
	// Row converts the record into a row laid out like the schema's Columns.
	Row() Row
}

// RecordSchema describes an input dataset: the Go type each JSON object is
// decoded into, and the columns of the Table built from those records.
type RecordSchema struct {
	Name    string
	Columns Schema
	New     func() Record
}

// SchemaError is returned when an input object does not match its
// RecordSchema.
type SchemaError struct {
	Schema string
	Source string
	Record int
	Field  string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s schema mismatch in %s, record %d, field %q: %v", e.Schema, e.Source, e.Record, e.Field, e.Err)
	}
	return fmt.Sprintf("%s schema mismatch in %s, record %d: %v", e.Schema, e.Source, e.Record, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Input names a set of objects to read: every object under Path matching
// Pattern, decoded with Schema.
type Input struct {
	Path    string
	Pattern string
	Schema  RecordSchema
}

// Output names a dataset destination and the columns it is partitioned by.
// Writing an Output always replaces any existing contents at Path.
type Output struct {
	Path        string
	PartitionBy []string
}

// Engine is the execution handle shared by the pipelines.
type Engine interface {
	Read(ctx context.Context, in Input) (*Table, error)
	Write(ctx context.Context, t *Table, out Output) error

	// Index returns a new, empty join index for rows laid out like schema.
	// The caller must Close it.
	Index(schema Schema) (Index, error)

	Log() Logger
	Stats() Statter
}

// Store publishes a finished dataset.
type Store interface {
	// Replace removes everything at dest and then copies the tree staged in
	// dir to dest.
	Replace(ctx context.Context, dest, dir string) error
}

// MissingFieldError is returned by Record.Validate when a required field is
// absent or null.
type MissingFieldError string

func (e MissingFieldError) Error() string {
	return fmt.Sprintf("required field %q is missing or null", string(e))
}

// NullString returns the value of p, or nil for a nil pointer.
func NullString(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// NullInt64 returns the value of p, or nil for a nil pointer.
func NullInt64(p *int64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// NullFloat64 returns the value of p, or nil for a nil pointer.
func NullFloat64(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// Package json decodes JSON input objects against an explicit
// lake.RecordSchema.
package json

import (
	"io"

	"github.com/goccy/go-json"
	"github.com/pilosa/lake"
	"github.com/pkg/errors"
)

// Source decodes a stream of concatenated (usually newline separated) JSON
// objects from one reader.
type Source struct {
	dec    *json.Decoder
	schema lake.RecordSchema
	name   string
	n      int
}

// NewSource returns a Source decoding r. name identifies r in errors.
func NewSource(r io.Reader, name string, schema lake.RecordSchema) *Source {
	return &Source{
		dec:    json.NewDecoder(r),
		schema: schema,
		name:   name,
	}
}

// Record decodes and validates the next object. It returns io.EOF after the
// last one. Any mismatch with the schema is returned as a *lake.SchemaError,
// after which the Source should not be used.
func (s *Source) Record() (lake.Record, error) {
	rec := s.schema.New()
	err := s.dec.Decode(rec)
	if err == io.EOF {
		return nil, io.EOF
	}
	n := s.n
	s.n++
	if err != nil {
		serr := &lake.SchemaError{Schema: s.schema.Name, Source: s.name, Record: n, Err: err}
		switch terr := err.(type) {
		case *json.UnmarshalTypeError:
			serr.Field = terr.Field
		case *json.SyntaxError:
		default:
			return nil, errors.Wrapf(err, "reading %s", s.name)
		}
		return nil, serr
	}
	if err := rec.Validate(); err != nil {
		serr := &lake.SchemaError{Schema: s.schema.Name, Source: s.name, Record: n, Err: err}
		if mf, ok := err.(lake.MissingFieldError); ok {
			serr.Field = string(mf)
		}
		return nil, serr
	}
	return rec, nil
}

// ReadTable decodes every object from every reader rs returns into a single
// table named after the schema.
func ReadTable(rs lake.RawSource, schema lake.RecordSchema) (*lake.Table, error) {
	tbl := lake.NewTable(schema.Name, schema.Columns)
	var err error
	var reader lake.NamedReadCloser
	for reader, err = rs.NextReader(); err == nil; reader, err = rs.NextReader() {
		err = readAll(tbl, NewSource(reader, reader.Name(), schema))
		reader.Close()
		if err != nil {
			return nil, err
		}
	}
	if err != io.EOF {
		return nil, errors.Wrap(err, "getting next reader")
	}
	return tbl, nil
}

func readAll(tbl *lake.Table, src *Source) error {
	for {
		rec, err := src.Record()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		if err := tbl.Append(rec.Row()); err != nil {
			return errors.Wrapf(err, "appending record %d of %s", src.n-1, src.name)
		}
	}
}

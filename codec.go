package lake

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/linkedin/goavro"
	"github.com/pkg/errors"
)

// RowCodec converts rows to and from Avro binary so that indexes which keep
// their rows outside the Go heap can store them. Every column becomes a
// ["null", T] union field.
type RowCodec struct {
	schema Schema
	names  []string
	codec  *goavro.Codec
}

func avroType(t Type) string {
	switch t {
	case String:
		return "string"
	case Int32:
		return "int"
	case Int64:
		return "long"
	case Float64:
		return "double"
	}
	panic(fmt.Sprintf("no avro type for %v", t))
}

// NewRowCodec returns a codec for rows laid out like schema.
func NewRowCodec(schema Schema) (*RowCodec, error) {
	rc := &RowCodec{
		schema: schema,
		names:  make([]string, len(schema)),
	}
	fields := make([]map[string]interface{}, len(schema))
	for i, c := range schema {
		// column names need not be valid avro names
		rc.names[i] = fmt.Sprintf("c%d", i)
		fields[i] = map[string]interface{}{
			"name": rc.names[i],
			"type": []string{"null", avroType(c.Type)},
		}
	}
	avsc, err := json.Marshal(map[string]interface{}{
		"type":   "record",
		"name":   "row",
		"fields": fields,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshaling avro schema")
	}
	rc.codec, err = goavro.NewCodec(string(avsc))
	if err != nil {
		return nil, errors.Wrap(err, "compiling avro schema")
	}
	return rc, nil
}

// Encode appends the binary encoding of r to buf.
func (rc *RowCodec) Encode(buf []byte, r Row) ([]byte, error) {
	if len(r) != len(rc.schema) {
		return nil, errors.Errorf("row has %d values, codec has %d columns", len(r), len(rc.schema))
	}
	native := make(map[string]interface{}, len(r))
	for i, v := range r {
		if v == nil {
			native[rc.names[i]] = nil
			continue
		}
		native[rc.names[i]] = map[string]interface{}{avroType(rc.schema[i].Type): v}
	}
	buf, err := rc.codec.BinaryFromNative(buf, native)
	if err != nil {
		return nil, errors.Wrap(err, "encoding row")
	}
	return buf, nil
}

// Decode reads a single row from buf.
func (rc *RowCodec) Decode(buf []byte) (Row, error) {
	native, _, err := rc.codec.NativeFromBinary(buf)
	if err != nil {
		return nil, errors.Wrap(err, "decoding row")
	}
	rec, ok := native.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("decoded row is %T, not a record", native)
	}
	r := make(Row, len(rc.schema))
	for i, name := range rc.names {
		switch v := rec[name].(type) {
		case nil:
		case map[string]interface{}:
			r[i] = v[avroType(rc.schema[i].Type)]
		default:
			return nil, errors.Errorf("field %s decoded as %T, expected a union", rc.schema[i].Name, v)
		}
	}
	return r, nil
}

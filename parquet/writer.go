// Package parquet writes lake tables as Hive-partitioned Parquet datasets.
package parquet

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pilosa/lake"
	"github.com/pkg/errors"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

const (
	// DefaultPartition is the directory value used for null or empty
	// partition values.
	DefaultPartition = "__HIVE_DEFAULT_PARTITION__"

	// PartFile is the name of the single data file in each partition.
	PartFile = "part-00000.snappy.parquet"

	// SuccessFile marks a completely written dataset.
	SuccessFile = "_SUCCESS"
)

// Partition is the set of rows which share values for every partition
// column.
type Partition struct {
	// Path is the partition directory relative to the dataset root, e.g.
	// "year=2017/month=7". It is empty for an unpartitioned table.
	Path string
	// Schema holds the table's columns minus the partition columns.
	Schema lake.Schema
	Rows   []lake.Row
}

// Split groups the rows of t by the values of the partitionBy columns, which
// are removed from the rows. Partitions are returned ordered by Path and rows
// keep their order within a partition. An empty table with partition columns
// has no partitions. An unpartitioned table always has exactly one.
func Split(t *lake.Table, partitionBy []string) ([]Partition, error) {
	if len(partitionBy) == 0 {
		return []Partition{{Schema: t.Schema, Rows: t.Rows}}, nil
	}
	isPart := make(map[int]bool, len(partitionBy))
	pidx := make([]int, len(partitionBy))
	for j, name := range partitionBy {
		i := t.Schema.Index(name)
		if i < 0 {
			return nil, errors.Wrapf(lake.ErrUnknownColumn, "partition column %q", name)
		}
		if isPart[i] {
			return nil, errors.Wrapf(lake.ErrDuplicateColumn, "partition column %q", name)
		}
		isPart[i] = true
		pidx[j] = i
	}
	if len(isPart) == len(t.Schema) {
		return nil, errors.New("cannot use all columns as partition columns")
	}
	schema := make(lake.Schema, 0, len(t.Schema)-len(isPart))
	for i, c := range t.Schema {
		if !isPart[i] {
			schema = append(schema, c)
		}
	}

	parts := make(map[string]*Partition)
	var sb strings.Builder
	for _, r := range t.Rows {
		sb.Reset()
		for j, i := range pidx {
			if j > 0 {
				sb.WriteByte('/')
			}
			sb.WriteString(EscapePathName(partitionBy[j]))
			sb.WriteByte('=')
			sb.WriteString(partitionValue(r[i]))
		}
		p, ok := parts[sb.String()]
		if !ok {
			p = &Partition{Path: sb.String(), Schema: schema, Rows: make([]lake.Row, 0)}
			parts[p.Path] = p
		}
		nr := make(lake.Row, 0, len(schema))
		for i, v := range r {
			if !isPart[i] {
				nr = append(nr, v)
			}
		}
		p.Rows = append(p.Rows, nr)
	}

	out := make([]Partition, 0, len(parts))
	for _, p := range parts {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func partitionValue(v interface{}) string {
	var s string
	switch tv := v.(type) {
	case nil:
		return DefaultPartition
	case string:
		s = tv
	case int32:
		s = strconv.FormatInt(int64(tv), 10)
	case int64:
		s = strconv.FormatInt(tv, 10)
	case float64:
		s = strconv.FormatFloat(tv, 'g', -1, 64)
	default:
		s = fmt.Sprint(tv)
	}
	if s == "" {
		return DefaultPartition
	}
	return EscapePathName(s)
}

// EscapePathName percent-encodes the characters Hive does not allow in a
// partition directory name.
func EscapePathName(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needsEscape(c) {
			fmt.Fprintf(&sb, "%%%02X", c)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func needsEscape(c byte) bool {
	if c < 0x20 || c == 0x7F {
		return true
	}
	switch c {
	case '"', '#', '%', '\'', '*', '/', ':', '=', '?', '\\', '{', '[', ']', '^':
		return true
	}
	return false
}

// Metadata returns the parquet-go CSV writer schema for columns. Every
// column is written as optional.
func Metadata(schema lake.Schema) ([]string, error) {
	md := make([]string, len(schema))
	for i, c := range schema {
		var typ string
		switch c.Type {
		case lake.String:
			typ = "type=BYTE_ARRAY, convertedtype=UTF8"
		case lake.Int32:
			typ = "type=INT32"
		case lake.Int64:
			typ = "type=INT64"
		case lake.Float64:
			typ = "type=DOUBLE"
		default:
			return nil, errors.Errorf("column %s has unsupported type %v", c.Name, c.Type)
		}
		md[i] = "name=" + c.Name + ", " + typ + ", repetitiontype=OPTIONAL"
	}
	return md, nil
}

// Writer stages tables as Parquet datasets on the local filesystem.
type Writer struct {
	// Parallel is the number of goroutines parquet-go uses to encode.
	Parallel int64
	Log      lake.Logger
}

// NewWriter returns a Writer with default settings.
func NewWriter(log lake.Logger) *Writer {
	if log == nil {
		log = lake.NopLogger{}
	}
	return &Writer{Parallel: 4, Log: log}
}

// Write writes t under dir, which is created if needed, and returns the
// number of partition files written.
func (w *Writer) Write(t *lake.Table, dir string, partitionBy []string) (int, error) {
	parts, err := Split(t, partitionBy)
	if err != nil {
		return 0, errors.Wrapf(err, "partitioning %s", t.Name)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, errors.Wrap(err, "making dataset directory")
	}
	for _, p := range parts {
		pdir := filepath.Join(dir, filepath.FromSlash(p.Path))
		if err := os.MkdirAll(pdir, 0755); err != nil {
			return 0, errors.Wrapf(err, "making partition %s", p.Path)
		}
		if err := w.writeFile(filepath.Join(pdir, PartFile), p.Schema, p.Rows); err != nil {
			return 0, errors.Wrapf(err, "writing %s partition %q", t.Name, p.Path)
		}
		w.Log.Debugf("wrote %d rows to %s/%s", len(p.Rows), t.Name, p.Path)
	}
	f, err := os.Create(filepath.Join(dir, SuccessFile))
	if err != nil {
		return 0, errors.Wrap(err, "writing success marker")
	}
	if err := f.Close(); err != nil {
		return 0, errors.Wrap(err, "closing success marker")
	}
	return len(parts), nil
}

func (w *Writer) writeFile(name string, schema lake.Schema, rows []lake.Row) (err error) {
	md, err := Metadata(schema)
	if err != nil {
		return err
	}
	fw, err := local.NewLocalFileWriter(name)
	if err != nil {
		return errors.Wrap(err, "creating file")
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing file")
		}
	}()
	np := w.Parallel
	if np < 1 {
		np = 1
	}
	pw, err := writer.NewCSVWriter(md, fw, np)
	if err != nil {
		return errors.Wrap(err, "creating parquet writer")
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for n, r := range rows {
		if err := pw.Write([]interface{}(r)); err != nil {
			return errors.Wrapf(err, "writing row %d", n)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return errors.Wrap(err, "finishing parquet file")
	}
	return nil
}

package mock

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"strings"
	"sync"

	"github.com/pilosa/lake"
	"github.com/pilosa/lake/json"
	"github.com/pkg/errors"
)

// RawSource is a lake.RawSource over in-memory objects.
type RawSource struct {
	names   []string
	objects []string
}

// NewRawSource returns a source yielding each object in turn, named by its
// position.
func NewRawSource(objects ...string) *RawSource {
	rs := &RawSource{objects: objects}
	for i := range objects {
		rs.names = append(rs.names, fmt.Sprintf("object-%d", i))
	}
	return rs
}

type namedReader struct {
	io.ReadCloser
	name string
}

func (n namedReader) Name() string { return n.name }

// NextReader implements lake.RawSource.
func (rs *RawSource) NextReader() (lake.NamedReadCloser, error) {
	if len(rs.objects) == 0 {
		return nil, io.EOF
	}
	r := namedReader{ReadCloser: ioutil.NopCloser(strings.NewReader(rs.objects[0])), name: rs.names[0]}
	rs.objects, rs.names = rs.objects[1:], rs.names[1:]
	return r, nil
}

// Engine is an in-memory lake.Engine. Inputs are JSON objects keyed by
// record schema name; written tables are kept keyed by output path.
type Engine struct {
	mu      sync.Mutex
	Inputs  map[string][]string
	Reads   []lake.Input
	Written map[string]*lake.Table
	Outputs map[string]lake.Output

	Logger  *RecordingLogger
	Statter *RecordingStatter
}

var _ lake.Engine = &Engine{}

// NewEngine returns an Engine with nothing to read.
func NewEngine() *Engine {
	return &Engine{
		Inputs:  make(map[string][]string),
		Written: make(map[string]*lake.Table),
		Outputs: make(map[string]lake.Output),
		Logger:  &RecordingLogger{},
		Statter: &RecordingStatter{},
	}
}

// Add queues JSON objects to be read with the named record schema.
func (e *Engine) Add(schema string, objects ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Inputs[schema] = append(e.Inputs[schema], objects...)
}

// Read implements lake.Engine.
func (e *Engine) Read(ctx context.Context, in lake.Input) (*lake.Table, error) {
	e.mu.Lock()
	e.Reads = append(e.Reads, in)
	objects := e.Inputs[in.Schema.Name]
	e.mu.Unlock()
	tbl, err := json.ReadTable(NewRawSource(objects...), in.Schema)
	return tbl, errors.Wrap(err, "reading mock input")
}

// Write implements lake.Engine by replacing whatever was written at
// out.Path.
func (e *Engine) Write(ctx context.Context, t *lake.Table, out lake.Output) error {
	for _, p := range out.PartitionBy {
		if t.Schema.Index(p) < 0 {
			return errors.Wrapf(lake.ErrUnknownColumn, "partition column %q", p)
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Written[out.Path] = t
	e.Outputs[out.Path] = out
	return nil
}

// Index implements lake.Engine.
func (e *Engine) Index(schema lake.Schema) (lake.Index, error) {
	return lake.NewMapIndex(), nil
}

// Log implements lake.Engine.
func (e *Engine) Log() lake.Logger { return e.Logger }

// Stats implements lake.Engine.
func (e *Engine) Stats() lake.Statter { return e.Statter }

package termstat

import (
	"bytes"
	"testing"
	"time"
)

func TestCollector(t *testing.T) {
	buf := &bytes.Buffer{}
	c := NewCollector(buf)
	c.Count("rows_read", 10, "dataset:songs")
	c.Timing("stage", 1500*time.Millisecond, "stage:catalog")
	c.Count("rows_read", 5, "dataset:songs")
	c.Gauge("join_matches", 3)
	c.Count("objects_read", 2)

	if err := c.Write(); err != nil {
		t.Fatalf("writing: %v", err)
	}
	exp := `rows_read{dataset:songs}: 15
stage{stage:catalog}: 1.5s
join_matches: 3
objects_read: 2
`
	if buf.String() != exp {
		t.Fatalf("unexpected summary:\n%s", buf.String())
	}
}

package lake

import (
	"fmt"
	"strings"
	"sync/atomic"
)

const (
	bbyte    = 1.0
	kilobyte = 1024 * bbyte
	megabyte = 1024 * kilobyte
	gigabyte = 1024 * megabyte
	terabyte = 1024 * gigabyte
)

// Bytes is a byte count which prints in human readable units.
type Bytes uint64

func (b Bytes) String() string {
	unit := ""
	value := float32(b)

	switch {
	case b >= terabyte:
		unit = "T"
		value = value / terabyte
	case b >= gigabyte:
		unit = "G"
		value = value / gigabyte
	case b >= megabyte:
		unit = "M"
		value = value / megabyte
	case b >= kilobyte:
		unit = "K"
		value = value / kilobyte
	case b >= bbyte:
		unit = "B"
	case b == 0:
		return "0"
	}

	stringValue := fmt.Sprintf("%.1f", value)
	stringValue = strings.TrimSuffix(stringValue, ".0")
	return fmt.Sprintf("%s%s", stringValue, unit)
}

// CountingRawSource wraps a RawSource and counts the objects and bytes read
// through it.
type CountingRawSource struct {
	RawSource

	objects uint64
	bytes   uint64
}

// NextReader returns the next reader of the underlying source, wrapped so
// that bytes read from it are counted.
func (c *CountingRawSource) NextReader() (NamedReadCloser, error) {
	r, err := c.RawSource.NextReader()
	if err != nil {
		return nil, err
	}
	atomic.AddUint64(&c.objects, 1)
	return &countingReader{NamedReadCloser: r, n: &c.bytes}, nil
}

// Objects returns the number of readers handed out so far.
func (c *CountingRawSource) Objects() uint64 { return atomic.LoadUint64(&c.objects) }

// Bytes returns the number of bytes read so far.
func (c *CountingRawSource) Bytes() Bytes { return Bytes(atomic.LoadUint64(&c.bytes)) }

type countingReader struct {
	NamedReadCloser
	n *uint64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.NamedReadCloser.Read(p)
	atomic.AddUint64(c.n, uint64(n))
	return n, err
}

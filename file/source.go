package file

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/pilosa/lake"
	"github.com/pkg/errors"
)

// RawSource is a lake.RawSource which reads every file under a root
// directory that matches a glob pattern.
type RawSource struct {
	files   []string
	fileIdx *uint64
}

// NewRawSource lists the files matching pattern (filepath.Match syntax,
// relative to root). An empty pattern means root itself, which may be a single
// file or a directory whose regular files are all read. A pattern which
// matches nothing is not an error.
func NewRawSource(root, pattern string) (*RawSource, error) {
	fileIdx := uint64(0)
	s := &RawSource{
		fileIdx: &fileIdx,
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, "statting root")
	}
	switch {
	case pattern != "":
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, errors.Wrapf(err, "matching %s", pattern)
		}
		s.files = make([]string, 0, len(matches))
		for _, m := range matches {
			mi, err := os.Stat(m)
			if err != nil {
				return nil, errors.Wrapf(err, "statting %s", m)
			}
			if mi.Mode().IsRegular() {
				s.files = append(s.files, m)
			}
		}
	case info.IsDir():
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, errors.Wrap(err, "reading directory")
		}
		s.files = make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Type().IsRegular() {
				s.files = append(s.files, filepath.Join(root, e.Name()))
			}
		}
	default:
		s.files = []string{root}
	}
	sort.Strings(s.files)
	return s, nil
}

// Files returns the paths the source will read, in order.
func (s *RawSource) Files() []string { return s.files }

type metaFile struct {
	*os.File
	name string
}

func (m *metaFile) Name() string { return m.name }

// NextReader opens the next file. Readers are named by their path.
func (s *RawSource) NextReader() (lake.NamedReadCloser, error) {
	idx := atomic.AddUint64(s.fileIdx, 1) - 1
	if int(idx) >= len(s.files) {
		return nil, io.EOF
	}

	file, err := os.Open(s.files[idx])
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", s.files[idx])
	}

	return &metaFile{File: file, name: s.files[idx]}, nil
}

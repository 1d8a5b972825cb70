// Package fake writes synthetic song catalog and event log files in the
// layout the etl job reads, for local runs and tests.
package fake

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/pilosa/lake/usecase/catalog"
	"github.com/pkg/errors"
)

// Main generates a sample input tree.
type Main struct {
	Dir      string `help:"Directory song_data and log_data are written under."`
	Seed     int64  `help:"Random seed. The same seed and sizes give the same files."`
	Songs    int    `help:"Number of catalog records."`
	Creators int    `help:"Number of distinct creators."`
	Users    int    `help:"Number of distinct users."`
	Events   int    `help:"Number of event log records."`
	Start    string `help:"RFC3339 time of the first event."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Dir:      "lake-sample",
		Songs:    1000,
		Creators: 200,
		Users:    100,
		Events:   10000,
		Start:    "2018-11-01T00:00:00Z",
	}
}

// Run writes the catalog files and then the event log files.
func (m *Main) Run() error {
	if m.Songs < 1 || m.Creators < 1 || m.Users < 1 || m.Events < 0 {
		return errors.New("songs, creators and users must be positive and events not negative")
	}
	start, err := time.Parse(time.RFC3339, m.Start)
	if err != nil {
		return errors.Wrap(err, "parsing start")
	}

	cg := NewCatalogGenerator(m.Seed, m.Creators)
	songs := make([]*catalog.Record, m.Songs)
	for i := range songs {
		songs[i] = cg.Record()
		id := *songs[i].SongID
		name := filepath.Join(m.Dir, "song_data", id[2:3], id[3:4], id[4:5], "TR"+id[2:]+".json")
		if err := writeJSON(name, songs[i]); err != nil {
			return err
		}
	}

	eg := NewEventGenerator(m.Seed+1, songs, m.Users, start)
	days := make(map[string]*bytes.Buffer)
	var order []string
	for i := 0; i < m.Events; i++ {
		rec := eg.Record()
		day := time.Unix(0, *rec.TS*int64(time.Millisecond)).UTC().Format("2006/01/2006-01-02")
		buf, ok := days[day]
		if !ok {
			buf = &bytes.Buffer{}
			days[day] = buf
			order = append(order, day)
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrap(err, "encoding event")
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	for _, day := range order {
		name := filepath.Join(m.Dir, "log_data", filepath.FromSlash(day)+"-events.json")
		if err := writeFile(name, days[day].Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(name string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", name)
	}
	return writeFile(name, b)
}

func writeFile(name string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return errors.Wrapf(err, "making directory for %s", name)
	}
	return errors.Wrapf(ioutil.WriteFile(name, b, 0644), "writing %s", name)
}

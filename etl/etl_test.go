package etl_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pilosa/lake/engine"
	"github.com/pilosa/lake/etl"
	"github.com/pilosa/lake/fake"
	"github.com/pilosa/lake/parquet"
	"github.com/pilosa/lake/test"
	"github.com/pkg/errors"
)

func TestLoadCredentials(t *testing.T) {
	d := test.MustTempDir(t, "testcreds")
	tests := []struct {
		name     string
		contents string
		exp      engine.Credentials
		err      error
	}{
		{
			name:     "flat",
			contents: "AWS_ACCESS_KEY_ID=AKID\nAWS_SECRET_ACCESS_KEY=SECRET\n",
			exp:      engine.Credentials{AccessKeyID: "AKID", SecretAccessKey: "SECRET"},
		},
		{
			name:     "section",
			contents: "[AWS]\nAWS_ACCESS_KEY_ID = AKID2\nAWS_SECRET_ACCESS_KEY = SECRET2\n",
			exp:      engine.Credentials{AccessKeyID: "AKID2", SecretAccessKey: "SECRET2"},
		},
		{
			name:     "top level before sections",
			contents: "AWS_ACCESS_KEY_ID=TOP\nAWS_SECRET_ACCESS_KEY=TOPSECRET\n[AWS]\nAWS_ACCESS_KEY_ID=SEC\nAWS_SECRET_ACCESS_KEY=SECSECRET\n",
			exp:      engine.Credentials{AccessKeyID: "TOP", SecretAccessKey: "TOPSECRET"},
		},
		{
			name:     "aws section before others",
			contents: "[zeta]\nAWS_ACCESS_KEY_ID=Z\nAWS_SECRET_ACCESS_KEY=ZS\n[AWS]\nAWS_ACCESS_KEY_ID=A\nAWS_SECRET_ACCESS_KEY=AS\n[alpha]\nAWS_ACCESS_KEY_ID=B\nAWS_SECRET_ACCESS_KEY=BS\n",
			exp:      engine.Credentials{AccessKeyID: "A", SecretAccessKey: "AS"},
		},
		{
			name:     "other sections by name",
			contents: "[zeta]\nAWS_ACCESS_KEY_ID=Z\nAWS_SECRET_ACCESS_KEY=ZS\n[alpha]\nAWS_ACCESS_KEY_ID=B\nAWS_SECRET_ACCESS_KEY=BS\n",
			exp:      engine.Credentials{AccessKeyID: "B", SecretAccessKey: "BS"},
		},
		{
			name:     "keys split across sections",
			contents: "[alpha]\nAWS_ACCESS_KEY_ID=B\n[zeta]\nAWS_SECRET_ACCESS_KEY=ZS\n",
			err:      etl.ErrNoCredentials,
		},
		{
			name:     "missing secret",
			contents: "[AWS]\nAWS_ACCESS_KEY_ID = AKID\n",
			err:      etl.ErrNoCredentials,
		},
		{
			name:     "empty values",
			contents: "AWS_ACCESS_KEY_ID=\nAWS_SECRET_ACCESS_KEY=\n",
			err:      etl.ErrNoCredentials,
		},
	}
	for i, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			path := test.MustWriteFile(t, d, filepath.Join("cfg", string(rune('a'+i))+".cfg"), tst.contents)
			// repeated so that map ordering cannot pick the winner
			for n := 0; n < 20; n++ {
				creds, err := etl.LoadCredentials(path)
				if tst.err != nil {
					test.MustBe(t, errors.Cause(err), tst.err)
					continue
				}
				test.ErrNil(t, err, "LoadCredentials")
				test.MustBe(t, creds, tst.exp)
			}
		})
	}

	if _, err := etl.LoadCredentials(filepath.Join(d, "nope.cfg")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

const (
	song  = `{"num_songs": 1, "artist_id": "C1", "artist_latitude": 40.7, "artist_longitude": -73.9, "artist_location": "Queens, NY", "artist_name": "Artist X", "song_id": "S1", "title": "T", "duration": 200.0, "year": 2000}`
	play  = `{"artist": "Artist X", "auth": "Logged In", "firstName": "Ann", "gender": "F", "itemInSession": 0, "lastName": "Lee", "length": 200.0, "level": "free", "location": "Tampa, FL", "method": "PUT", "page": "NextSong", "registration": 1540835983796.0, "sessionId": 139, "song": "T", "status": 200, "ts": 1500000000000, "userAgent": "Mozilla", "userId": "U1"}`
	visit = `{"artist": null, "auth": "Logged In", "firstName": "Bob", "gender": "M", "itemInSession": 1, "lastName": "Ray", "length": null, "level": "paid", "location": "Tampa, FL", "method": "GET", "page": "Home", "registration": 1540835983796.0, "sessionId": 140, "song": null, "status": 200, "ts": 1500000100000, "userAgent": "Mozilla", "userId": "U2"}`
)

func newMain(t *testing.T) (*etl.Main, string) {
	t.Helper()
	d := test.MustTempDir(t, "testetl")
	test.MustWriteFile(t, d, "in/song_data/A/B/C/TRABC.json", song)
	test.MustWriteFile(t, d, "in/log_data/2017/07/2017-07-14-events.json", play+"\n"+visit)
	m := etl.NewMain()
	m.Input = filepath.Join(d, "in")
	m.Output = filepath.Join(d, "out")
	m.Credentials = test.MustWriteFile(t, d, "dl.cfg", "[AWS]\nAWS_ACCESS_KEY_ID=AKID\nAWS_SECRET_ACCESS_KEY=SECRET\n")
	m.StagingDir = filepath.Join(d, "staging")
	m.TimeZone = "UTC"
	return m, d
}

func TestRunLocal(t *testing.T) {
	m, d := newMain(t)
	m.GeohashPrecision = 4
	var summary bytes.Buffer
	m.SetOutput(&summary)

	test.ErrNil(t, m.Run(), "Run")

	for _, p := range []string{
		"items.parquet/year=2000/creator_id=C1",
		"creators.parquet",
		"actors.parquet",
		"time_breakdown.parquet/year=2017/month=7",
		"activity_facts.parquet/year=2017/month=7",
	} {
		if _, err := os.Stat(filepath.Join(d, "out", p, parquet.PartFile)); err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
	}
	for _, ds := range []string{"items", "creators", "actors", "time_breakdown", "activity_facts"} {
		if _, err := os.Stat(filepath.Join(d, "out", ds+".parquet", parquet.SuccessFile)); err != nil {
			t.Fatalf("missing success marker for %s: %v", ds, err)
		}
	}
	// songs are read once per pipeline
	for _, line := range []string{"rows_read{dataset:songs}: 2", "rows_read{dataset:events}: 2", "rows_written{table:activity_facts}: 1", "join_matches: 1"} {
		if !strings.Contains(summary.String(), line) {
			t.Fatalf("summary lacks %q:\n%s", line, summary.String())
		}
	}

	// a second run replaces the first
	test.ErrNil(t, m.Run(), "second Run")
	entries, err := os.ReadDir(filepath.Join(d, "out", "activity_facts.parquet"))
	test.ErrNil(t, err, "listing facts")
	test.MustBe(t, len(entries), 2)
}

func TestRunErrors(t *testing.T) {
	m, d := newMain(t)
	m.Summary = false
	m.Credentials = filepath.Join(d, "missing.cfg")
	if err := m.Run(); err == nil {
		t.Fatal("expected error for missing credentials file")
	}

	m, _ = newMain(t)
	m.Summary = false
	m.TimeZone = "Mars/Olympus_Mons"
	if err := m.Run(); err == nil {
		t.Fatal("expected error for unknown time zone")
	}

	m, d = newMain(t)
	m.Summary = false
	test.MustWriteFile(t, d, "in/song_data/A/B/C/bad.json", `{"song_id": "S2"`)
	if err := m.Run(); err == nil {
		t.Fatal("expected error for malformed catalog")
	}
	if _, err := os.Stat(filepath.Join(d, "out")); !os.IsNotExist(err) {
		t.Fatalf("nothing should be written after a read failure: %v", err)
	}
}

func TestRunPush(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m, _ := newMain(t)
	m.Summary = false
	m.PushGateway = srv.URL
	test.ErrNil(t, m.Run(), "Run")
	test.MustBe(t, paths, []string{"PUT /metrics/job/lake_etl"})
}

func TestRunGenerated(t *testing.T) {
	m, d := newMain(t)
	m.JoinIndex = engine.IndexBolt
	var summary bytes.Buffer
	m.SetOutput(&summary)

	g := fake.NewMain()
	g.Dir = filepath.Join(d, "generated")
	g.Songs, g.Creators, g.Users, g.Events = 60, 12, 6, 800
	test.ErrNil(t, g.Run(), "generating input")
	m.Input = g.Dir

	test.ErrNil(t, m.Run(), "Run")
	for _, line := range []string{"rows_written{table:items}: 60", "rows_read{dataset:events}: 800"} {
		if !strings.Contains(summary.String(), line) {
			t.Fatalf("summary lacks %q:\n%s", line, summary.String())
		}
	}
	if strings.Contains(summary.String(), "join_matches: 0\n") {
		t.Fatalf("no plays matched the generated catalog:\n%s", summary.String())
	}
	if _, err := os.Stat(filepath.Join(d, "out", "activity_facts.parquet", "year=2018", "month=11", parquet.PartFile)); err != nil {
		t.Fatalf("missing fact partition: %v", err)
	}
}

package s3

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"testing"

	"github.com/pilosa/lake/mock"
	"github.com/pilosa/lake/test"
)

func TestLiteralPrefix(t *testing.T) {
	tests := []struct {
		pattern string
		exp     string
	}{
		{pattern: "song_data/*/*/*/*.json", exp: "song_data/"},
		{pattern: "log_data/2018/11/*.json", exp: "log_data/2018/11/"},
		{pattern: "a/b?c", exp: "a/b"},
		{pattern: "a/[bc]/d", exp: "a/"},
		{pattern: "plain/key.json", exp: "plain/key.json"},
	}
	for _, tst := range tests {
		t.Run(tst.pattern, func(t *testing.T) {
			test.MustBe(t, literalPrefix(tst.pattern), tst.exp)
		})
	}
}

func TestRawSource(t *testing.T) {
	fake := mock.NewS3()
	fake.PageSize = 2
	fake.Put("udacity-dend", "song_data/A/B/C/TRABC1.json", []byte(`{"song_id": "S1"}`))
	fake.Put("udacity-dend", "song_data/A/A/B/TRAAB1.json", []byte(`{"song_id": "S2"}`))
	fake.Put("udacity-dend", "song_data/A/A/B/", nil)
	fake.Put("udacity-dend", "song_data/A/TRA.json", []byte(`x`))
	fake.Put("udacity-dend", "song_data/A/A/B/C/TRAABC.json", []byte(`x`))
	fake.Put("udacity-dend", "log_data/2018/11/2018-11-01-events.json", []byte(`x`))
	fake.Put("other", "song_data/A/B/C/TRABC2.json", []byte(`x`))

	rs, err := NewRawSource(fake, "udacity-dend", "", OptSrcPattern("song_data/*/*/*/*.json"))
	test.ErrNil(t, err, "NewRawSource")
	test.MustBe(t, rs.Keys(), []string{"song_data/A/A/B/TRAAB1.json", "song_data/A/B/C/TRABC1.json"})

	names := make([]string, 0)
	bodies := make([]string, 0)
	for r, err := rs.NextReader(); err != io.EOF; r, err = rs.NextReader() {
		test.ErrNil(t, err, "NextReader")
		b, err := ioutil.ReadAll(r)
		test.ErrNil(t, err, "reading object")
		r.Close()
		names = append(names, r.Name())
		bodies = append(bodies, string(b))
	}
	test.MustBe(t, names, []string{"s3://udacity-dend/song_data/A/A/B/TRAAB1.json", "s3://udacity-dend/song_data/A/B/C/TRABC1.json"})
	test.MustBe(t, bodies, []string{`{"song_id": "S2"}`, `{"song_id": "S1"}`})
}

func TestRawSourcePrefix(t *testing.T) {
	fake := mock.NewS3()
	fake.Put("b", "root/log_data/2018/11/a.json", []byte(`x`))
	fake.Put("b", "root/log_data/2018/11/b.json", []byte(`x`))
	fake.Put("b", "rootless/log_data/2018/11/c.json", []byte(`x`))

	rs, err := NewRawSource(fake, "b", "/root/", OptSrcPattern("log_data/*/*/*.json"))
	test.ErrNil(t, err, "pattern under prefix")
	test.MustBe(t, rs.Keys(), []string{"root/log_data/2018/11/a.json", "root/log_data/2018/11/b.json"})

	rs, err = NewRawSource(fake, "b", "root")
	test.ErrNil(t, err, "no pattern")
	test.MustBe(t, len(rs.Keys()), 2)

	if _, err := NewRawSource(fake, "b", "root", OptSrcPattern("[")); err == nil {
		t.Fatal("expected error for malformed pattern")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRawSource(fake, "b", "root", OptSrcContext(ctx)); err == nil {
		t.Fatal("expected error listing with a cancelled context")
	}
}

func TestStoreReplace(t *testing.T) {
	fake := mock.NewS3()
	for i := 0; i < 2345; i++ {
		fake.Put("out", fmt.Sprintf("items.parquet/year=1999/creator_id=C%d/part-00000.snappy.parquet", i), []byte("stale"))
	}
	fake.Put("out", "items.parquet.bak/keep", []byte("keep"))

	staged := test.MustTempDir(t, "teststaged")
	test.MustWriteFile(t, staged, "year=2000/creator_id=C1/part-00000.snappy.parquet", "fresh")
	test.MustWriteFile(t, staged, "_SUCCESS", "")

	s := NewStore(fake, fake, nil)
	err := s.Replace(context.Background(), "s3a://out/items.parquet", staged)
	test.ErrNil(t, err, "Replace")

	test.MustBe(t, fake.DeleteCalls, 3)
	test.MustBe(t, fake.Keys("out", ""), []string{
		"items.parquet.bak/keep",
		"items.parquet/_SUCCESS",
		"items.parquet/year=2000/creator_id=C1/part-00000.snappy.parquet",
	})
	b, _ := fake.Object("out", "items.parquet/year=2000/creator_id=C1/part-00000.snappy.parquet")
	test.MustBe(t, string(b), "fresh")

	if err := s.Replace(context.Background(), "s3://out", staged); err == nil {
		t.Fatal("expected error replacing a whole bucket")
	}
	if err := s.Replace(context.Background(), "/tmp/local", staged); err == nil {
		t.Fatal("expected error for a local destination")
	}
}

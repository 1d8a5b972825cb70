package lake_test

import (
	"path/filepath"
	"testing"

	"github.com/pilosa/lake"
	"github.com/pilosa/lake/test"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		uri    string
		exp    lake.Location
		s3     bool
		expErr bool
	}{
		{uri: "s3a://udacity-dend/", exp: lake.Location{Scheme: "s3a", Bucket: "udacity-dend"}, s3: true},
		{uri: "s3://bucket/a/b/", exp: lake.Location{Scheme: "s3", Bucket: "bucket", Key: "a/b"}, s3: true},
		{uri: "S3N://bucket", exp: lake.Location{Scheme: "s3n", Bucket: "bucket"}, s3: true},
		{uri: "/tmp/out", exp: lake.Location{Key: "/tmp/out"}},
		{uri: "gs://bucket/x", expErr: true},
		{uri: "s3:///x", expErr: true},
		{uri: "", expErr: true},
	}
	for _, tst := range tests {
		t.Run(tst.uri, func(t *testing.T) {
			got, err := lake.ParseLocation(tst.uri)
			if tst.expErr {
				if err == nil {
					t.Fatalf("expected error, got %#v", got)
				}
				return
			}
			test.ErrNil(t, err, "parsing")
			test.MustBe(t, got, tst.exp)
			test.MustBe(t, got.IsS3(), tst.s3)
		})
	}
}

func TestJoinPath(t *testing.T) {
	test.MustBe(t, lake.JoinPath("s3a://udacity-dend/", "song_data"), "s3a://udacity-dend/song_data")
	test.MustBe(t, lake.JoinPath("s3a://out", "items.parquet"), "s3a://out/items.parquet")
	test.MustBe(t, lake.JoinPath("data", "out", "items.parquet"), filepath.Join("data", "out", "items.parquet"))
}

package leveldb_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pilosa/lake"
	"github.com/pilosa/lake/leveldb"
	"github.com/pilosa/lake/test"
)

var schema = lake.Schema{
	{Name: "name", Type: lake.String},
	{Name: "year", Type: lake.Int64},
	{Name: "lat", Type: lake.Float64},
	{Name: "hour", Type: lake.Int32},
}

func TestIndex(t *testing.T) {
	dirname := filepath.Join(test.MustTempDir(t, "testlevelindex"), "join")
	idx, err := leveldb.NewIndex(dirname, schema)
	if err != nil {
		t.Fatalf("couldn't get level index: %v", err)
	}

	k1 := lake.AppendKey(nil, "Casual")
	k2 := lake.AppendKey(nil, "Casual ")
	rows := []lake.Row{
		{"Casual", int64(2004), 35.1, int32(3)},
		{"Casual ", nil, nil, nil},
		{"Casual", int64(0), -12.5, int32(23)},
	}
	test.ErrNil(t, idx.Add(k1, rows[0]), "add 0")
	test.ErrNil(t, idx.Add(k2, rows[1]), "add 1")
	test.ErrNil(t, idx.Add(k1, rows[2]), "add 2")

	got, err := idx.Lookup(k1)
	test.ErrNil(t, err, "lookup k1")
	test.MustBe(t, got, []lake.Row{rows[0], rows[2]})

	got, err = idx.Lookup(k2)
	test.ErrNil(t, err, "lookup k2")
	test.MustBe(t, got, []lake.Row{rows[1]})

	got, err = idx.Lookup(lake.AppendKey(nil, "missing"))
	test.ErrNil(t, err, "lookup missing")
	test.MustBe(t, len(got), 0)

	test.ErrNil(t, idx.Close(), "close")
	if _, err := os.Stat(dirname); !os.IsNotExist(err) {
		t.Fatalf("index directory should be removed on close: %v", err)
	}
}

func TestIndexJoin(t *testing.T) {
	left := lake.NewTable("events", lake.Schema{{Name: "artist", Type: lake.String}, {Name: "ts", Type: lake.Int64}})
	test.ErrNil(t, left.Append(lake.Row{"Casual", int64(1)}), "append")
	test.ErrNil(t, left.Append(lake.Row{"Nobody", int64(2)}), "append")
	right := lake.NewTable("songs", schema)
	test.ErrNil(t, right.Append(lake.Row{"Casual", int64(2004), 35.1, int32(3)}), "append")

	idx, err := leveldb.NewIndex(filepath.Join(test.MustTempDir(t, "testlevelindex"), "join"), right.Schema)
	test.ErrNil(t, err, "NewIndex")
	defer idx.Close()

	joined, err := lake.Join(left, right, lake.JoinKey{Left: "artist", Right: "name"}, idx)
	test.ErrNil(t, err, "Join")
	test.MustBe(t, joined.Rows, []lake.Row{{"Casual", int64(1), "Casual", int64(2004), 35.1, int32(3)}})
}

func TestIndexKeyPrefixes(t *testing.T) {
	idx, err := leveldb.NewIndex(filepath.Join(test.MustTempDir(t, "testlevelindex"), "join"), schema)
	test.ErrNil(t, err, "NewIndex")
	defer idx.Close()

	// "ab" must not see rows stored under "abc"
	for _, name := range []string{"abc", "ab", "abc"} {
		test.ErrNil(t, idx.Add(lake.AppendKey(nil, name), lake.Row{name, nil, nil, nil}), "add "+name)
	}
	got, err := idx.Lookup(lake.AppendKey(nil, "ab"))
	test.ErrNil(t, err, "lookup")
	test.MustBe(t, got, []lake.Row{{"ab", nil, nil, nil}})
	got, err = idx.Lookup(lake.AppendKey(nil, "abc"))
	test.ErrNil(t, err, "lookup")
	test.MustBe(t, len(got), 2)
}

package lake_test

import (
	"testing"

	"github.com/pilosa/lake"
	"github.com/pilosa/lake/test"
	"github.com/pkg/errors"
)

var songSchema = lake.Schema{
	{Name: "song_id", Type: lake.String},
	{Name: "artist_name", Type: lake.String},
	{Name: "year", Type: lake.Int64},
	{Name: "duration", Type: lake.Float64},
}

func mustTable(t *testing.T, name string, schema lake.Schema, rows ...lake.Row) *lake.Table {
	t.Helper()
	tbl := lake.NewTable(name, schema)
	for i, r := range rows {
		if err := tbl.Append(r); err != nil {
			t.Fatalf("appending row %d: %v", i, err)
		}
	}
	return tbl
}

func TestAppendChecksTypes(t *testing.T) {
	tbl := lake.NewTable("songs", songSchema)
	tests := []struct {
		name string
		row  lake.Row
		ok   bool
	}{
		{name: "good", row: lake.Row{"S1", "A", int64(2000), 200.0}, ok: true},
		{name: "nulls", row: lake.Row{"S1", nil, nil, nil}, ok: true},
		{name: "short", row: lake.Row{"S1", "A", int64(2000)}},
		{name: "int for long", row: lake.Row{"S1", "A", 2000, 200.0}},
		{name: "float for string", row: lake.Row{1.5, "A", int64(2000), 200.0}},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			err := tbl.Append(tst.row)
			if tst.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tst.ok && err == nil {
				t.Fatalf("expected error appending %#v", tst.row)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	tbl := mustTable(t, "songs", songSchema,
		lake.Row{"S1", "A", int64(2000), 200.0},
		lake.Row{"S2", nil, int64(0), 10.5},
	)
	sel, err := tbl.Select(lake.Col("song_id").As("item_id"), lake.Col("year"))
	test.ErrNil(t, err, "select")
	test.MustBe(t, sel.Schema, lake.Schema{{Name: "item_id", Type: lake.String}, {Name: "year", Type: lake.Int64}})
	test.MustBe(t, sel.Rows, []lake.Row{{"S1", int64(2000)}, {"S2", int64(0)}})
	test.MustBe(t, tbl.Len(), 2, "source table untouched")

	_, err = tbl.Select(lake.Col("nope"))
	if errors.Cause(err) != lake.ErrUnknownColumn {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
	_, err = tbl.Select(lake.Col("song_id"), lake.Col("year").As("song_id"))
	if errors.Cause(err) != lake.ErrDuplicateColumn {
		t.Fatalf("expected ErrDuplicateColumn, got %v", err)
	}
}

func TestWhere(t *testing.T) {
	schema := lake.Schema{{Name: "page", Type: lake.String}, {Name: "n", Type: lake.Int64}}
	tbl := mustTable(t, "events", schema,
		lake.Row{"NextSong", int64(1)},
		lake.Row{"Home", int64(2)},
		lake.Row{nil, int64(3)},
		lake.Row{"NextSong", int64(4)},
	)
	plays, err := tbl.Where("page", "NextSong")
	test.ErrNil(t, err, "where")
	test.MustBe(t, plays.Rows, []lake.Row{{"NextSong", int64(1)}, {"NextSong", int64(4)}})

	if _, err := tbl.Where("action", "NextSong"); errors.Cause(err) != lake.ErrUnknownColumn {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestWithColumn(t *testing.T) {
	tbl := mustTable(t, "songs", songSchema, lake.Row{"S1", "A", int64(2000), 200.0})
	got, err := tbl.WithColumn("decade", lake.Int32, func(r lake.Row) (interface{}, error) {
		return int32(r[2].(int64) / 10 * 10), nil
	})
	test.ErrNil(t, err, "with column")
	test.MustBe(t, got.Schema.Index("decade"), 4)
	test.MustBe(t, got.Rows[0][4], int32(2000))
	test.MustBe(t, len(tbl.Rows[0]), 4, "source row untouched")

	_, err = tbl.WithColumn("bad", lake.Int32, func(r lake.Row) (interface{}, error) { return "x", nil })
	if err == nil {
		t.Fatal("expected type error")
	}
	_, err = tbl.WithColumn("year", lake.Int32, func(r lake.Row) (interface{}, error) { return nil, nil })
	if errors.Cause(err) != lake.ErrDuplicateColumn {
		t.Fatalf("expected ErrDuplicateColumn, got %v", err)
	}
}

func TestDistinct(t *testing.T) {
	tbl := mustTable(t, "songs", songSchema,
		lake.Row{"S1", "A", int64(2000), 200.0},
		lake.Row{"S1", "A", int64(2000), 200.0},
		lake.Row{"S1", nil, int64(2000), 200.0},
		lake.Row{"S1", nil, int64(2000), 200.0},
		lake.Row{"S1", "A", int64(2001), 200.0},
		lake.Row{"S2", "A", int64(2000), 200.0},
	)
	got := tbl.Distinct()
	test.MustBe(t, got.Rows, []lake.Row{
		{"S1", "A", int64(2000), 200.0},
		{"S1", nil, int64(2000), 200.0},
		{"S1", "A", int64(2001), 200.0},
		{"S2", "A", int64(2000), 200.0},
	})
}

func TestDistinctKeysAreUnambiguous(t *testing.T) {
	schema := lake.Schema{{Name: "a", Type: lake.String}, {Name: "b", Type: lake.String}}
	tbl := mustTable(t, "pairs", schema,
		lake.Row{"ab", "c"},
		lake.Row{"a", "bc"},
		lake.Row{"", nil},
		lake.Row{nil, ""},
	)
	test.MustBe(t, tbl.Distinct().Len(), 4)
}

func TestSort(t *testing.T) {
	schema := lake.Schema{{Name: "s", Type: lake.String}, {Name: "n", Type: lake.Int64}}
	tbl := mustTable(t, "t", schema,
		lake.Row{"b", int64(1)},
		lake.Row{"a", int64(2)},
		lake.Row{nil, int64(9)},
		lake.Row{"a", nil},
		lake.Row{"a", int64(1)},
	)
	test.MustBe(t, tbl.Sort().Rows, []lake.Row{
		{nil, int64(9)},
		{"a", nil},
		{"a", int64(1)},
		{"a", int64(2)},
		{"b", int64(1)},
	})
	test.MustBe(t, tbl.Rows[0], lake.Row{"b", int64(1)}, "source order untouched")
}

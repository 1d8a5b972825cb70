package lake_test

import (
	"testing"

	"github.com/pilosa/lake"
	"github.com/pilosa/lake/test"
	"github.com/pkg/errors"
)

var eventSchema = lake.Schema{
	{Name: "userId", Type: lake.String},
	{Name: "artist", Type: lake.String},
}

func TestJoin(t *testing.T) {
	events := mustTable(t, "events", eventSchema,
		lake.Row{"U1", "Artist X"},
		lake.Row{"U2", "Nobody"},
		lake.Row{"U3", nil},
		lake.Row{"U4", "Artist Y"},
	)
	songs := mustTable(t, "songs", songSchema,
		lake.Row{"S1", "Artist X", int64(2000), 200.0},
		lake.Row{"S2", "Artist Y", int64(2001), 100.0},
		lake.Row{"S3", "Artist X", int64(2002), 300.0},
		lake.Row{"S4", nil, int64(2003), 1.0},
	)
	idx := lake.NewMapIndex()
	defer idx.Close()
	got, err := lake.Join(events, songs, lake.JoinKey{Left: "artist", Right: "artist_name"}, idx)
	test.ErrNil(t, err, "join")

	test.MustBe(t, got.Schema.Names(), []string{"userId", "artist", "song_id", "artist_name", "year", "duration"})
	test.MustBe(t, got.Rows, []lake.Row{
		{"U1", "Artist X", "S1", "Artist X", int64(2000), 200.0},
		{"U1", "Artist X", "S3", "Artist X", int64(2002), 300.0},
		{"U4", "Artist Y", "S2", "Artist Y", int64(2001), 100.0},
	})
}

func TestJoinNoMatches(t *testing.T) {
	events := mustTable(t, "events", eventSchema, lake.Row{"U1", "Nobody"})
	songs := mustTable(t, "songs", songSchema, lake.Row{"S1", "Artist X", int64(2000), 200.0})
	got, err := lake.Join(events, songs, lake.JoinKey{Left: "artist", Right: "artist_name"}, lake.NewMapIndex())
	test.ErrNil(t, err, "join")
	test.MustBe(t, got.Len(), 0)
	test.MustBe(t, len(got.Schema), 6)
}

func TestJoinErrors(t *testing.T) {
	events := mustTable(t, "events", eventSchema)
	songs := mustTable(t, "songs", songSchema)

	_, err := lake.Join(events, songs, lake.JoinKey{Left: "nope", Right: "artist_name"}, lake.NewMapIndex())
	if errors.Cause(err) != lake.ErrUnknownColumn {
		t.Fatalf("expected unknown left column, got %v", err)
	}
	_, err = lake.Join(events, songs, lake.JoinKey{Left: "artist", Right: "year"}, lake.NewMapIndex())
	if err == nil {
		t.Fatal("expected error joining string to int64")
	}
	_, err = lake.Join(songs, songs, lake.JoinKey{Left: "song_id", Right: "song_id"}, lake.NewMapIndex())
	if errors.Cause(err) != lake.ErrDuplicateColumn {
		t.Fatalf("expected duplicate column, got %v", err)
	}
}

package geohash_test

import (
	"testing"

	"github.com/pilosa/lake"
	"github.com/pilosa/lake/geohash"
	"github.com/pkg/errors"
)

var creators = lake.Schema{
	{Name: "creator_id", Type: lake.String},
	{Name: "creator_longitude", Type: lake.Float64},
	{Name: "creator_latitude", Type: lake.Float64},
}

func TestTransform(t *testing.T) {
	tests := []struct {
		name        string
		transformer *geohash.Transformer
		row         lake.Row
		exp         interface{}
		expErr      error
	}{
		{
			name: "simple",
			transformer: &geohash.Transformer{
				Precision: 6,
				LatColumn: "creator_latitude",
				LonColumn: "creator_longitude",
				Result:    "creator_geohash",
			},
			row: lake.Row{"AR1", -0.1257, 51.5085},
			exp: "gcpvj0",
		},
		{
			name: "null coordinate",
			transformer: &geohash.Transformer{
				Precision: 5,
				LatColumn: "creator_latitude",
				LonColumn: "creator_longitude",
				Result:    "creator_geohash",
			},
			row: lake.Row{"AR2", nil, 51.5},
			exp: nil,
		},
		{
			name: "unknown column",
			transformer: &geohash.Transformer{
				Precision: 5,
				LatColumn: "lat",
				LonColumn: "creator_longitude",
				Result:    "creator_geohash",
			},
			row:    lake.Row{"AR3", 1.0, 1.0},
			expErr: lake.ErrUnknownColumn,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tbl := lake.NewTable("creators", creators)
			if err := tbl.Append(test.row); err != nil {
				t.Fatal(err)
			}
			out, err := test.transformer.Transform(tbl)
			if errors.Cause(err) != test.expErr {
				t.Fatalf("got %v, expected %v", err, test.expErr)
			}
			if err != nil {
				return
			}
			hash, err := out.Value(out.Rows[0], test.transformer.Result)
			if err != nil {
				t.Fatalf("should be a value at Result, but: %v", err)
			}
			if hash != test.exp {
				t.Fatalf("unexpected hash %v, expected %v", hash, test.exp)
			}
		})
	}

	if _, err := (&geohash.Transformer{Precision: 0}).Transform(lake.NewTable("x", creators)); err == nil {
		t.Fatal("expected error for zero precision")
	}
}

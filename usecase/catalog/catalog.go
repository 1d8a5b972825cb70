// Package catalog builds the items and creators tables from song catalog
// metadata.
package catalog

import (
	"context"
	"time"

	"github.com/pilosa/lake"
	"github.com/pilosa/lake/geohash"
	"github.com/pkg/errors"
)

// Output dataset names under the output root.
const (
	ItemsDataset    = "items.parquet"
	CreatorsDataset = "creators.parquet"
)

// DefaultPattern matches every catalog file under the input root.
const DefaultPattern = "song_data/*/*/*/*.json"

// Record is one catalog object.
type Record struct {
	SongID          *string  `json:"song_id"`
	Title           *string  `json:"title"`
	ArtistID        *string  `json:"artist_id"`
	ArtistName      *string  `json:"artist_name"`
	ArtistLocation  *string  `json:"artist_location"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
	Year            *int64   `json:"year"`
	Duration        *float64 `json:"duration"`
	NumSongs        *int64   `json:"num_songs"`
}

// Validate implements lake.Record.
func (r *Record) Validate() error {
	if r.SongID == nil {
		return lake.MissingFieldError("song_id")
	}
	if r.ArtistID == nil {
		return lake.MissingFieldError("artist_id")
	}
	return nil
}

// Row implements lake.Record.
func (r *Record) Row() lake.Row {
	return lake.Row{
		lake.NullString(r.SongID),
		lake.NullString(r.Title),
		lake.NullString(r.ArtistID),
		lake.NullString(r.ArtistName),
		lake.NullString(r.ArtistLocation),
		lake.NullFloat64(r.ArtistLatitude),
		lake.NullFloat64(r.ArtistLongitude),
		lake.NullInt64(r.Year),
		lake.NullFloat64(r.Duration),
		lake.NullInt64(r.NumSongs),
	}
}

// Schema describes catalog input.
var Schema = lake.RecordSchema{
	Name: "songs",
	Columns: lake.Schema{
		{Name: "song_id", Type: lake.String},
		{Name: "title", Type: lake.String},
		{Name: "artist_id", Type: lake.String},
		{Name: "artist_name", Type: lake.String},
		{Name: "artist_location", Type: lake.String},
		{Name: "artist_latitude", Type: lake.Float64},
		{Name: "artist_longitude", Type: lake.Float64},
		{Name: "year", Type: lake.Int64},
		{Name: "duration", Type: lake.Float64},
		{Name: "num_songs", Type: lake.Int64},
	},
	New: func() lake.Record { return &Record{} },
}

// Config says where to read catalog files and where to write the tables.
type Config struct {
	Input   string
	Pattern string
	Output  string

	// GeohashPrecision adds a creator_geohash column of that many
	// characters to creators when it is greater than zero.
	GeohashPrecision int
}

// In returns the lake.Input for the catalog files.
func (c Config) In() lake.Input {
	pattern := c.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	return lake.Input{Path: c.Input, Pattern: pattern, Schema: Schema}
}

// Items projects the items table from catalog rows.
func Items(songs *lake.Table) (*lake.Table, error) {
	items, err := songs.Select(
		lake.Col("song_id").As("item_id"),
		lake.Col("title"),
		lake.Col("artist_id").As("creator_id"),
		lake.Col("year"),
		lake.Col("duration"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "projecting items")
	}
	items = items.Distinct()
	items.Name = "items"
	return items, nil
}

// Creators projects the creators table from catalog rows. A non-nil gh adds
// a geohash of each creator's coordinates.
func Creators(songs *lake.Table, gh *geohash.Transformer) (*lake.Table, error) {
	creators, err := songs.Select(
		lake.Col("artist_id").As("creator_id"),
		lake.Col("artist_name").As("creator_name"),
		lake.Col("artist_location").As("creator_location"),
		lake.Col("artist_longitude").As("creator_longitude"),
		lake.Col("artist_latitude").As("creator_latitude"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "projecting creators")
	}
	if gh != nil {
		if creators, err = gh.Transform(creators); err != nil {
			return nil, err
		}
	}
	creators = creators.Distinct()
	creators.Name = "creators"
	return creators, nil
}

// Process reads the catalog and writes the items and creators datasets,
// replacing any previous contents.
func Process(ctx context.Context, eng lake.Engine, cfg Config) error {
	start := time.Now()
	defer func() { eng.Stats().Timing("stage", time.Since(start), "stage:catalog") }()

	songs, err := eng.Read(ctx, cfg.In())
	if err != nil {
		return errors.Wrap(err, "reading catalog")
	}

	items, err := Items(songs)
	if err != nil {
		return err
	}
	err = eng.Write(ctx, items, lake.Output{
		Path:        lake.JoinPath(cfg.Output, ItemsDataset),
		PartitionBy: []string{"year", "creator_id"},
	})
	if err != nil {
		return errors.Wrap(err, "writing items")
	}

	var gh *geohash.Transformer
	if cfg.GeohashPrecision > 0 {
		gh = &geohash.Transformer{
			Precision: cfg.GeohashPrecision,
			LatColumn: "creator_latitude",
			LonColumn: "creator_longitude",
			Result:    "creator_geohash",
		}
	}
	creators, err := Creators(songs, gh)
	if err != nil {
		return err
	}
	err = eng.Write(ctx, creators, lake.Output{Path: lake.JoinPath(cfg.Output, CreatorsDataset)})
	return errors.Wrap(err, "writing creators")
}

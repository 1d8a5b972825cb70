// Package eventlog builds the actors, time_breakdown and activity_facts
// tables from user event logs joined to the song catalog.
package eventlog

import (
	"context"
	"time"

	"github.com/pilosa/lake"
	"github.com/pilosa/lake/usecase/catalog"
	"github.com/pkg/errors"
)

// Output dataset names under the output root.
const (
	ActorsDataset        = "actors.parquet"
	TimeBreakdownDataset = "time_breakdown.parquet"
	ActivityFactsDataset = "activity_facts.parquet"
)

const (
	// DefaultPattern matches every event log file under the input root.
	DefaultPattern = "log_data/*/*/*.json"
	// DefaultPlayAction is the page value of a play event.
	DefaultPlayAction = "NextSong"
)

// DefaultJoinOn matches events to catalog records by artist name.
var DefaultJoinOn = lake.JoinKey{Left: "artist", Right: "artist_name"}

// Record is one event log object.
type Record struct {
	Artist        *string  `json:"artist"`
	Auth          *string  `json:"auth"`
	FirstName     *string  `json:"firstName"`
	Gender        *string  `json:"gender"`
	ItemInSession *int64   `json:"itemInSession"`
	LastName      *string  `json:"lastName"`
	Length        *float64 `json:"length"`
	Level         *string  `json:"level"`
	Location      *string  `json:"location"`
	Method        *string  `json:"method"`
	Page          *string  `json:"page"`
	Registration  *float64 `json:"registration"`
	SessionID     *int64   `json:"sessionId"`
	Song          *string  `json:"song"`
	Status        *int64   `json:"status"`
	TS            *int64   `json:"ts"`
	UserAgent     *string  `json:"userAgent"`
	UserID        *string  `json:"userId"`
}

// Validate implements lake.Record.
func (r *Record) Validate() error {
	if r.TS == nil {
		return lake.MissingFieldError("ts")
	}
	if r.Page == nil {
		return lake.MissingFieldError("page")
	}
	return nil
}

// Row implements lake.Record.
func (r *Record) Row() lake.Row {
	return lake.Row{
		lake.NullString(r.Artist),
		lake.NullString(r.Auth),
		lake.NullString(r.FirstName),
		lake.NullString(r.Gender),
		lake.NullInt64(r.ItemInSession),
		lake.NullString(r.LastName),
		lake.NullFloat64(r.Length),
		lake.NullString(r.Level),
		lake.NullString(r.Location),
		lake.NullString(r.Method),
		lake.NullString(r.Page),
		lake.NullFloat64(r.Registration),
		lake.NullInt64(r.SessionID),
		lake.NullString(r.Song),
		lake.NullInt64(r.Status),
		lake.NullInt64(r.TS),
		lake.NullString(r.UserAgent),
		lake.NullString(r.UserID),
	}
}

// Schema describes event log input.
var Schema = lake.RecordSchema{
	Name: "events",
	Columns: lake.Schema{
		{Name: "artist", Type: lake.String},
		{Name: "auth", Type: lake.String},
		{Name: "firstName", Type: lake.String},
		{Name: "gender", Type: lake.String},
		{Name: "itemInSession", Type: lake.Int64},
		{Name: "lastName", Type: lake.String},
		{Name: "length", Type: lake.Float64},
		{Name: "level", Type: lake.String},
		{Name: "location", Type: lake.String},
		{Name: "method", Type: lake.String},
		{Name: "page", Type: lake.String},
		{Name: "registration", Type: lake.Float64},
		{Name: "sessionId", Type: lake.Int64},
		{Name: "song", Type: lake.String},
		{Name: "status", Type: lake.Int64},
		{Name: "ts", Type: lake.Int64},
		{Name: "userAgent", Type: lake.String},
		{Name: "userId", Type: lake.String},
	},
	New: func() lake.Record { return &Record{} },
}

// Config says where to read events and the catalog, how to interpret them,
// and where to write the tables.
type Config struct {
	Input   string
	Pattern string
	Output  string

	// Catalog is re-read for the join.
	Catalog catalog.Config

	// PlayAction is the page value of the events kept. Defaults to
	// DefaultPlayAction.
	PlayAction string
	// Location is the time zone event times are reported in. Defaults to
	// time.Local.
	Location *time.Location
	// JoinOn pairs an event column with a catalog column. Defaults to
	// DefaultJoinOn.
	JoinOn lake.JoinKey
}

func (c Config) withDefaults() Config {
	if c.Pattern == "" {
		c.Pattern = DefaultPattern
	}
	if c.PlayAction == "" {
		c.PlayAction = DefaultPlayAction
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.JoinOn.Left == "" {
		c.JoinOn.Left = DefaultJoinOn.Left
	}
	if c.JoinOn.Right == "" {
		c.JoinOn.Right = DefaultJoinOn.Right
	}
	return c
}

// Plays returns only the events whose page is playAction.
func Plays(events *lake.Table, playAction string) (*lake.Table, error) {
	plays, err := events.Where("page", playAction)
	return plays, errors.Wrap(err, "filtering plays")
}

// Actors projects the actors table from play events.
func Actors(plays *lake.Table) (*lake.Table, error) {
	actors, err := plays.Select(
		lake.Col("userId").As("actor_id"),
		lake.Col("firstName").As("first_name"),
		lake.Col("lastName").As("last_name"),
		lake.Col("gender"),
		lake.Col("level"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "projecting actors")
	}
	actors = actors.Distinct()
	actors.Name = "actors"
	return actors, nil
}

// WithTimes appends time_of_day and calendar_date columns computed from the
// ts column in loc.
func WithTimes(plays *lake.Table, loc *time.Location) (*lake.Table, error) {
	ts := plays.Schema.Index("ts")
	if ts < 0 {
		return nil, errors.Wrap(lake.ErrUnknownColumn, "ts")
	}
	out, err := plays.WithColumn("time_of_day", lake.String, func(r lake.Row) (interface{}, error) {
		if r[ts] == nil {
			return nil, nil
		}
		return lake.TimeOfDay(lake.Instant(r[ts].(int64), loc)), nil
	})
	if err != nil {
		return nil, err
	}
	return out.WithColumn("calendar_date", lake.String, func(r lake.Row) (interface{}, error) {
		if r[ts] == nil {
			return nil, nil
		}
		return lake.CalendarDate(lake.Instant(r[ts].(int64), loc)), nil
	})
}

// TimeBreakdownSchema is the layout of the time_breakdown table.
var TimeBreakdownSchema = lake.Schema{
	{Name: "time_of_day", Type: lake.String},
	{Name: "calendar_date", Type: lake.String},
	{Name: "hour", Type: lake.Int32},
	{Name: "day", Type: lake.Int32},
	{Name: "week", Type: lake.Int32},
	{Name: "month", Type: lake.Int32},
	{Name: "year", Type: lake.Int32},
	{Name: "weekday", Type: lake.Int32},
}

// TimeBreakdown splits each distinct time_of_day and calendar_date pair into
// calendar parts.
func TimeBreakdown(timed *lake.Table) (*lake.Table, error) {
	times, err := timed.Select(lake.Col("time_of_day"), lake.Col("calendar_date"))
	if err != nil {
		return nil, errors.Wrap(err, "projecting times")
	}
	times = times.Distinct()
	out := lake.NewTable("time_breakdown", TimeBreakdownSchema)
	for _, r := range times.Rows {
		if r[0] == nil || r[1] == nil {
			continue
		}
		p, err := lake.ParseCalendarParts(r[0].(string), r[1].(string))
		if err != nil {
			return nil, err
		}
		if err := out.Append(lake.Row{r[0], r[1], p.Hour, p.Day, p.Week, p.Month, p.Year, p.Weekday}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ActivityFacts joins play events to catalog rows and assigns each result a
// fact_id. The catalog side of the join is loaded into an index from
// newIndex. Ids are assigned after sorting, so identical input gives
// identical ids within a process; they are not meant to be stable across
// runs with different input.
func ActivityFacts(timed, songs *lake.Table, on lake.JoinKey, newIndex func(lake.Schema) (lake.Index, error)) (*lake.Table, error) {
	left, err := timed.Select(withKey(on.Left,
		"time_of_day", "calendar_date", "userId", "level", "sessionId", "userAgent")...)
	if err != nil {
		return nil, errors.Wrap(err, "projecting events for join")
	}
	right, err := songs.Select(withKey(on.Right,
		"song_id", "artist_id", "artist_location")...)
	if err != nil {
		return nil, errors.Wrap(err, "projecting catalog for join")
	}
	idx, err := newIndex(right.Schema)
	if err != nil {
		return nil, errors.Wrap(err, "getting join index")
	}
	defer idx.Close()
	joined, err := lake.Join(left, right, on, idx)
	if err != nil {
		return nil, errors.Wrap(err, "joining events to catalog")
	}
	facts, err := joined.Select(
		lake.Col("time_of_day"),
		lake.Col("userId").As("actor_id"),
		lake.Col("level"),
		lake.Col("song_id").As("item_id"),
		lake.Col("artist_id").As("creator_id"),
		lake.Col("sessionId").As("session_id"),
		lake.Col("artist_location").As("creator_location"),
		lake.Col("userAgent").As("user_agent"),
		lake.Col("calendar_date"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "projecting facts")
	}
	date := len(facts.Schema) - 1
	datePart := func(part func(lake.CalendarParts) int32) func(lake.Row) (interface{}, error) {
		return func(r lake.Row) (interface{}, error) {
			if r[date] == nil {
				return nil, nil
			}
			p, err := lake.ParseCalendarParts("00:00:00", r[date].(string))
			if err != nil {
				return nil, err
			}
			return part(p), nil
		}
	}
	if facts, err = facts.WithColumn("year", lake.Int32, datePart(func(p lake.CalendarParts) int32 { return p.Year })); err != nil {
		return nil, err
	}
	if facts, err = facts.WithColumn("month", lake.Int32, datePart(func(p lake.CalendarParts) int32 { return p.Month })); err != nil {
		return nil, err
	}
	names := facts.Schema.Names()
	cols := make([]lake.Projection, 0, len(names)-1)
	for _, n := range names {
		if n != "calendar_date" {
			cols = append(cols, lake.Col(n))
		}
	}
	if facts, err = facts.Select(cols...); err != nil {
		return nil, err
	}

	ids := lake.NewNexter()
	facts, err = facts.Sort().WithColumn("fact_id", lake.Int64, func(lake.Row) (interface{}, error) {
		return int64(ids.Next()), nil
	})
	if err != nil {
		return nil, err
	}
	facts.Name = "activity_facts"
	return facts, nil
}

// withKey projects cols plus key if it is not already among them.
func withKey(key string, cols ...string) []lake.Projection {
	ps := make([]lake.Projection, 0, len(cols)+1)
	found := false
	for _, c := range cols {
		ps = append(ps, lake.Col(c))
		found = found || c == key
	}
	if !found {
		ps = append(ps, lake.Col(key))
	}
	return ps
}

// Process reads the event log and writes the actors, time_breakdown and
// activity_facts datasets, replacing any previous contents.
func Process(ctx context.Context, eng lake.Engine, cfg Config) error {
	cfg = cfg.withDefaults()
	start := time.Now()
	defer func() { eng.Stats().Timing("stage", time.Since(start), "stage:eventlog") }()

	events, err := eng.Read(ctx, lake.Input{Path: cfg.Input, Pattern: cfg.Pattern, Schema: Schema})
	if err != nil {
		return errors.Wrap(err, "reading event log")
	}
	plays, err := Plays(events, cfg.PlayAction)
	if err != nil {
		return err
	}
	eng.Log().Printf("kept %d of %d events with page %s", plays.Len(), events.Len(), cfg.PlayAction)

	actors, err := Actors(plays)
	if err != nil {
		return err
	}
	if err := eng.Write(ctx, actors, lake.Output{Path: lake.JoinPath(cfg.Output, ActorsDataset)}); err != nil {
		return errors.Wrap(err, "writing actors")
	}

	timed, err := WithTimes(plays, cfg.Location)
	if err != nil {
		return errors.Wrap(err, "deriving times")
	}
	breakdown, err := TimeBreakdown(timed)
	if err != nil {
		return errors.Wrap(err, "breaking down times")
	}
	err = eng.Write(ctx, breakdown, lake.Output{
		Path:        lake.JoinPath(cfg.Output, TimeBreakdownDataset),
		PartitionBy: []string{"year", "month"},
	})
	if err != nil {
		return errors.Wrap(err, "writing time breakdown")
	}

	songs, err := eng.Read(ctx, cfg.Catalog.In())
	if err != nil {
		return errors.Wrap(err, "re-reading catalog")
	}
	facts, err := ActivityFacts(timed, songs, cfg.JoinOn, eng.Index)
	if err != nil {
		return err
	}
	eng.Stats().Gauge("join_matches", float64(facts.Len()))
	if facts.Len() == 0 && plays.Len() > 0 {
		eng.Log().Printf("warning: no play events matched the catalog on %s = %s", cfg.JoinOn.Left, cfg.JoinOn.Right)
	}
	err = eng.Write(ctx, facts, lake.Output{
		Path:        lake.JoinPath(cfg.Output, ActivityFactsDataset),
		PartitionBy: []string{"year", "month"},
	})
	return errors.Wrap(err, "writing activity facts")
}

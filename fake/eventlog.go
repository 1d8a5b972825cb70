package fake

import (
	"time"

	"github.com/pilosa/lake/fake/gen"
	"github.com/pilosa/lake/usecase/catalog"
	"github.com/pilosa/lake/usecase/eventlog"
)

type user struct {
	id, first, last, gender, level, location, agent string
	registration                                      float64
}

type session struct {
	id   int64
	user *user
	item int64
}

// EventGenerator generates event log records in increasing time order.
// Plays refer to catalog songs, apart from a small share of unknown artists.
type EventGenerator struct {
	g       *gen.Generator
	songs   []*catalog.Record
	users   []user
	start   time.Time
	nextSID int64
	cur     *session
}

// NewEventGenerator gets an EventGenerator for the given users, playing
// songs and starting at start.
func NewEventGenerator(seed int64, songs []*catalog.Record, users int, start time.Time) *EventGenerator {
	e := &EventGenerator{
		g:       gen.NewGenerator(seed),
		songs:   songs,
		start:   start,
		nextSID: 1,
	}
	for i := 0; i < users; i++ {
		u := user{
			id:           e.g.Key("", uint64(i), 6),
			first:        e.g.Pick(firstNames),
			last:         e.g.Pick(lastNames),
			gender:       []string{"F", "M"}[e.g.Intn(2)],
			level:        "free",
			location:     e.g.Pick(locations),
			agent:        e.g.Pick(userAgents),
			registration: float64(start.Add(-time.Duration(e.g.Intn(365*24)) * time.Hour).UnixNano() / int64(time.Millisecond)),
		}
		if e.g.Chance(0.3) {
			u.level = "paid"
		}
		e.users = append(e.users, u)
	}
	return e
}

// Record returns the next event.
func (e *EventGenerator) Record() *eventlog.Record {
	if e.cur == nil || e.g.Chance(0.05) {
		e.cur = &session{id: e.nextSID, user: &e.users[e.g.Uint64(len(e.users))]}
		e.nextSID++
	}
	s := e.cur
	ts := e.g.Time(e.start, 90*time.Second).UnixNano() / int64(time.Millisecond)
	page := e.g.Pick(pages)
	method, status := "GET", int64(200)
	if page == eventlog.DefaultPlayAction {
		method = "PUT"
	}
	rec := &eventlog.Record{
		Auth:          str("Logged In"),
		FirstName:     str(s.user.first),
		Gender:        str(s.user.gender),
		LastName:      str(s.user.last),
		Level:         str(s.user.level),
		Location:      str(s.user.location),
		Method:        &method,
		Page:          &page,
		Registration:  &s.user.registration,
		SessionID:     &s.id,
		Status:        &status,
		TS:            &ts,
		UserAgent:     str(s.user.agent),
		UserID:        str(s.user.id),
	}
	item := s.item
	rec.ItemInSession = &item
	s.item++
	if page == eventlog.DefaultPlayAction && len(e.songs) > 0 {
		if e.g.Chance(0.1) {
			length := e.g.Float64(30, 600)
			rec.Artist, rec.Song, rec.Length = str("Unknown "+e.g.String(6, 100)), str(e.g.Pick(titleWords)), &length
		} else {
			song := e.songs[e.g.Uint64(len(e.songs))]
			rec.Artist, rec.Song, rec.Length = song.ArtistName, song.Title, song.Duration
		}
	}
	if page == "Logout" {
		e.cur = nil
	}
	return rec
}

var pages = []string{eventlog.DefaultPlayAction, "Home", "Logout", "Settings", "Help", "About", "Upgrade"}

var firstNames = []string{"Ann", "Lily", "Jacob", "Chloe", "Kate", "Aleena", "Ryan", "Tegan", "Jayden", "Mohammad", "Ava", "Cienna"}

var lastNames = []string{"Lee", "Koch", "Klein", "Cuevas", "Harrell", "Kirby", "Smith", "Levine", "Graves", "Rodriguez", "Freeman", "Johnson"}

var userAgents = []string{
	`"Mozilla/5.0 (Windows NT 6.1; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/36.0.1985.143 Safari/537.36"`,
	`"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_9_4) AppleWebKit/537.77.4 (KHTML, like Gecko) Version/7.0.5 Safari/537.77.4"`,
	"Mozilla/5.0 (Windows NT 6.1; rv:31.0) Gecko/20100101 Firefox/31.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:31.0) Gecko/20100101 Firefox/31.0",
}

package fake

import (
	"strings"

	"github.com/pilosa/lake/fake/gen"
	"github.com/pilosa/lake/usecase/catalog"
)

type creator struct {
	id       string
	name     string
	location string
	lat, lon *float64
}

// CatalogGenerator generates song catalog records. A few creators account
// for most songs.
type CatalogGenerator struct {
	g        *gen.Generator
	creators []creator
	n        uint64
}

// NewCatalogGenerator gets a CatalogGenerator drawing from the given number
// of creators.
func NewCatalogGenerator(seed int64, creators int) *CatalogGenerator {
	c := &CatalogGenerator{g: gen.NewGenerator(seed)}
	for i := 0; i < creators; i++ {
		cr := creator{
			id:   c.g.Key("AR", uint64(i), 16),
			name: c.words(nameWords, 1+c.g.Intn(3)),
		}
		if c.g.Chance(0.7) {
			cr.location = c.g.Pick(locations)
		}
		if c.g.Chance(0.6) {
			lat, lon := c.g.Float64(-60, 70), c.g.Float64(-180, 180)
			cr.lat, cr.lon = &lat, &lon
		}
		c.creators = append(c.creators, cr)
	}
	return c
}

func (c *CatalogGenerator) words(list []string, n int) string {
	ws := make([]string, n)
	for i := range ws {
		ws[i] = c.g.Pick(list)
	}
	return strings.Join(ws, " ")
}

// Record returns the next catalog record. Every record has a new song id.
func (c *CatalogGenerator) Record() *catalog.Record {
	cr := c.creators[c.g.Uint64(len(c.creators))]
	id := c.g.Key("SO", c.n, 16)
	c.n++
	title := c.words(titleWords, 1+c.g.Intn(4))
	var year int64
	if c.g.Chance(0.8) {
		year = 1955 + int64(c.g.Intn(64))
	}
	duration := c.g.Float64(30, 600)
	one := int64(1)
	return &catalog.Record{
		SongID:          &id,
		Title:           &title,
		ArtistID:        str(cr.id),
		ArtistName:      str(cr.name),
		ArtistLocation:  str(cr.location),
		ArtistLatitude:  cr.lat,
		ArtistLongitude: cr.lon,
		Year:            &year,
		Duration:        &duration,
		NumSongs:        &one,
	}
}

func str(s string) *string { return &s }

var nameWords = []string{"The", "Black", "Lonely", "Electric", "Kings", "Casual", "River", "Velvet", "Young", "Stone", "Orchestra", "Brothers", "Sisters", "Echo", "Parade", "Union", "Wolves", "Mercury", "Radio", "Harbor"}

var titleWords = []string{"Love", "Night", "Blue", "Home", "Again", "Fire", "Dream", "Road", "Heart", "Tonight", "Summer", "Rain", "Gold", "Forever", "Dance", "Light", "City", "Lost", "Down", "Sky"}

var locations = []string{"New York, NY", "Los Angeles, CA", "London, England", "Chicago, IL", "Nashville, TN", "Memphis, TN", "Austin, TX", "Seattle, WA", "Berlin, Germany", "Kingston, Jamaica", "Detroit, MI", "Atlanta, GA"}

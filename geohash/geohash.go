// Package geohash adds a geohash column computed from latitude and longitude
// columns.
package geohash

import (
	"github.com/mmcloughlin/geohash"
	"github.com/pilosa/lake"
	"github.com/pkg/errors"
)

// Transformer computes Precision character geohashes.
type Transformer struct {
	Precision int
	LatColumn string
	LonColumn string
	Result    string
}

// Transform returns t with a Result string column appended. Rows missing
// either coordinate get a null hash.
func (tr *Transformer) Transform(t *lake.Table) (*lake.Table, error) {
	if tr.Precision < 1 || tr.Precision > 12 {
		return nil, errors.Errorf("geohash precision %d out of range 1-12", tr.Precision)
	}
	lat := t.Schema.Index(tr.LatColumn)
	if lat < 0 {
		return nil, errors.Wrapf(lake.ErrUnknownColumn, "latitude %q", tr.LatColumn)
	}
	lon := t.Schema.Index(tr.LonColumn)
	if lon < 0 {
		return nil, errors.Wrapf(lake.ErrUnknownColumn, "longitude %q", tr.LonColumn)
	}
	if t.Schema[lat].Type != lake.Float64 || t.Schema[lon].Type != lake.Float64 {
		return nil, errors.New("latitude and longitude must be float64 columns")
	}
	out, err := t.WithColumn(tr.Result, lake.String, func(r lake.Row) (interface{}, error) {
		if r[lat] == nil || r[lon] == nil {
			return nil, nil
		}
		return geoHash(r[lat].(float64), r[lon].(float64), tr.Precision), nil
	})
	return out, errors.Wrap(err, "adding geohash")
}

func geoHash(lat, lon float64, precision int) string {
	return geohash.EncodeWithPrecision(lat, lon, uint(precision))
}

package geo

import (
	"math"
	"sort"

	"github.com/pfrederiksen/theatre-alerts/internal/production"
)

// EarthRadiusMiles is the mean Earth radius used for great-circle distance
const EarthRadiusMiles = 3958.8

// DistanceMiles returns the great-circle (haversine) distance between a and b
func DistanceMiles(a, b production.Coordinates) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(h)))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// distanceFrom returns the distance from ref, or +Inf for records without
// coordinates so they sort last.
func distanceFrom(ref production.Coordinates, rec *production.Record) float64 {
	if rec.Coordinates == nil {
		return math.Inf(1)
	}
	return DistanceMiles(ref, *rec.Coordinates)
}

// SortByDistance orders records nearest-first from ref, in place. Records
// without coordinates go last; ties keep their input order.
func SortByDistance(records []*production.Record, ref production.Coordinates) {
	sort.SliceStable(records, func(i, j int) bool {
		return distanceFrom(ref, records[i]) < distanceFrom(ref, records[j])
	})
}

// SortByStart orders records by start date ascending, in place. Records
// without a start date go last.
func SortByStart(records []*production.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].StartDate, records[j].StartDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

package geo

import (
	"context"
	"sort"

	"github.com/pfrederiksen/theatre-alerts/internal/logger"
	"github.com/pfrederiksen/theatre-alerts/internal/production"
)

// FilterAndSort keeps the records within radiusMiles of userLocation,
// annotated with their distance and ordered nearest first.
//
// If userLocation cannot be geocoded the input is returned unchanged, since
// there is nothing to measure from. Records that carry coordinates use them;
// the rest are geocoded by their Location, and any record that cannot be
// placed is left out.
func FilterAndSort(ctx context.Context, g Geocoder, records []*production.Record, userLocation string, radiusMiles float64) []*production.Record {
	origin, err := g.Geocode(ctx, userLocation)
	if err != nil {
		logger.Warn("User location not resolved, skipping distance filter", logger.Fields{
			"location": userLocation,
			"error":    err.Error(),
		})
		out := make([]*production.Record, len(records))
		copy(out, records)
		return out
	}

	kept := make([]*production.Record, 0, len(records))
	for _, rec := range records {
		coords := rec.Coordinates
		if coords == nil {
			if !rec.HasLocation() {
				logger.Debug("Record has no location, excluded from distance ranking", logger.Fields{
					"title": rec.Title,
					"venue": rec.VenueName,
				})
				continue
			}
			coords, err = g.Geocode(ctx, rec.Location)
			if err != nil {
				logger.Debug("Record location not resolved", logger.Fields{
					"title":    rec.Title,
					"location": rec.Location,
					"error":    err.Error(),
				})
				continue
			}
		}

		d := DistanceMiles(*origin, *coords)
		if d > radiusMiles {
			continue
		}
		placed := rec.WithDistance(d)
		placed.Coordinates = coords
		kept = append(kept, placed)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return *kept[i].DistanceMiles < *kept[j].DistanceMiles
	})
	return kept
}

package export

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/pjpmarques/Castelos/internal/fortification"
)

// GeoJSONContentType is the media type of EncodeGeoJSON output.
const GeoJSONContentType = "application/geo+json"

// EncodeGeoJSON renders rows as a FeatureCollection of WGS84 points. Rows
// whose coordinates are not numeric are left out and returned as skipped.
func EncodeGeoJSON(rows []fortification.Row) ([]byte, []fortification.Row, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(rows))}
	var skipped []fortification.Row

	for _, r := range rows {
		point, err := pointOf(r)
		if err != nil {
			skipped = append(skipped, r)
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       r.Reference,
			Geometry: point,
			Properties: map[string]any{
				"name":             r.Name,
				"google_maps_link": r.MapLink,
				"wikipedia_link":   r.Reference,
			},
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, skipped, fmt.Errorf("export: encode GeoJSON: %w", err)
	}
	return data, skipped, nil
}

// pointOf builds a [lon, lat] point, the GeoJSON axis order.
func pointOf(r fortification.Row) (*geom.Point, error) {
	lat, err := strconv.ParseFloat(r.Latitude, 64)
	if err != nil {
		return nil, fmt.Errorf("latitude %q: %w", r.Latitude, err)
	}
	lon, err := strconv.ParseFloat(r.Longitude, 64)
	if err != nil {
		return nil, fmt.Errorf("longitude %q: %w", r.Longitude, err)
	}
	return geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(4326), nil
}

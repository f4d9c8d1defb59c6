package topology

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// decodeGeoJSON handles the resolved-polygon path: a FeatureCollection whose
// geometries already carry absolute ring coordinates.
func decodeGeoJSON(raw []byte) ([]record, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, &ErrMalformedRecord{Record: "payload", Reason: fmt.Sprintf("invalid GeoJSON: %v", err)}
	}

	records := make([]record, 0, len(fc.Features))
	for i, f := range fc.Features {
		label := fmt.Sprintf("features[%d]", i)
		if f == nil {
			return nil, &ErrMalformedRecord{Record: label, Reason: "null feature"}
		}

		var geom orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			geom = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			geom = g
		case nil:
			return nil, &ErrMalformedRecord{Record: label, Reason: "missing geometry"}
		default:
			return nil, &ErrMalformedRecord{
				Record: label,
				Reason: fmt.Sprintf("unsupported geometry type %q", g.GeoJSONType()),
			}
		}

		id, hasID, err := parseDeclaredID(label, f.ID)
		if err != nil {
			return nil, err
		}

		records = append(records, record{
			label: label,
			id:    id,
			hasID: hasID,
			name:  propertyName(f.Properties),
			geom:  geom,
		})
	}
	return records, nil
}

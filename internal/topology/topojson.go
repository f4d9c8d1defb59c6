package topology

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
)

// topoDocument mirrors the top level of a TopoJSON payload.
//
// When a transform is present, arc positions are quantized integers with
// every position after the first delta-encoded against its predecessor.
// Without a transform, positions are absolute coordinates.
type topoDocument struct {
	Type      string                 `json:"type"`
	Transform *topoTransform         `json:"transform"`
	Arcs      [][][]float64          `json:"arcs"`
	Objects   map[string]*topoObject `json:"objects"`
}

type topoTransform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

// topoObject is one geometry object. Arcs is left raw because its shape
// depends on the geometry type: [][]int for Polygon, [][][]int for
// MultiPolygon.
type topoObject struct {
	Type       string                 `json:"type"`
	Geometries []*topoObject          `json:"geometries"`
	Arcs       json.RawMessage        `json:"arcs"`
	ID         interface{}            `json:"id"`
	Properties map[string]interface{} `json:"properties"`
}

func decodeTopoJSON(raw []byte) ([]record, error) {
	var doc topoDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ErrMalformedRecord{Record: "payload", Reason: fmt.Sprintf("invalid TopoJSON: %v", err)}
	}
	if len(doc.Objects) == 0 {
		return nil, &ErrMalformedRecord{Record: "objects", Reason: "no geometry objects"}
	}

	arcs, err := decodeArcs(&doc)
	if err != nil {
		return nil, err
	}

	// Object map order is not defined by encoding/json, so object keys are
	// visited in sorted order to keep id assignment deterministic across
	// loads of the same payload.
	keys := make([]string, 0, len(doc.Objects))
	for key := range doc.Objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var records []record
	for _, key := range keys {
		obj := doc.Objects[key]
		if obj == nil {
			return nil, &ErrMalformedRecord{Record: "objects." + key, Reason: "null geometry object"}
		}
		var err error
		records, err = appendTopoObject(records, "objects."+key, obj, arcs)
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

// decodeArcs resolves every arc into absolute positions, applying the
// quantization transform when present.
func decodeArcs(doc *topoDocument) ([][]orb.Point, error) {
	arcs := make([][]orb.Point, len(doc.Arcs))
	for i, raw := range doc.Arcs {
		points := make([]orb.Point, 0, len(raw))
		var x, y float64
		for j, pos := range raw {
			if len(pos) < 2 {
				return nil, &ErrMalformedRecord{
					Record: fmt.Sprintf("arcs[%d]", i),
					Reason: fmt.Sprintf("position %d has %d coordinates", j, len(pos)),
				}
			}
			px, py := pos[0], pos[1]
			if doc.Transform != nil {
				// Delta-encoded quantized positions.
				if j == 0 {
					x, y = px, py
				} else {
					x += px
					y += py
				}
				points = append(points, orb.Point{
					x*doc.Transform.Scale[0] + doc.Transform.Translate[0],
					y*doc.Transform.Scale[1] + doc.Transform.Translate[1],
				})
			} else {
				points = append(points, orb.Point{px, py})
			}
		}
		arcs[i] = points
	}
	return arcs, nil
}

// appendTopoObject flattens one geometry object into records. Collections
// recurse; each Polygon or MultiPolygon leaf becomes exactly one record.
func appendTopoObject(records []record, label string, obj *topoObject, arcs [][]orb.Point) ([]record, error) {
	switch obj.Type {
	case "GeometryCollection":
		for i, child := range obj.Geometries {
			childLabel := fmt.Sprintf("%s.geometries[%d]", label, i)
			if child == nil {
				return nil, &ErrMalformedRecord{Record: childLabel, Reason: "null geometry"}
			}
			var err error
			records, err = appendTopoObject(records, childLabel, child, arcs)
			if err != nil {
				return nil, err
			}
		}
		return records, nil

	case "Polygon":
		var ringArcs [][]int
		if err := json.Unmarshal(obj.Arcs, &ringArcs); err != nil {
			return nil, &ErrMalformedRecord{Record: label, Reason: fmt.Sprintf("invalid polygon arcs: %v", err)}
		}
		poly, err := resolvePolygon(label, ringArcs, arcs)
		if err != nil {
			return nil, err
		}
		return appendTopoRecord(records, label, obj, orb.MultiPolygon{poly})

	case "MultiPolygon":
		var polyArcs [][][]int
		if err := json.Unmarshal(obj.Arcs, &polyArcs); err != nil {
			return nil, &ErrMalformedRecord{Record: label, Reason: fmt.Sprintf("invalid multipolygon arcs: %v", err)}
		}
		geom := make(orb.MultiPolygon, 0, len(polyArcs))
		for _, ringArcs := range polyArcs {
			poly, err := resolvePolygon(label, ringArcs, arcs)
			if err != nil {
				return nil, err
			}
			geom = append(geom, poly)
		}
		return appendTopoRecord(records, label, obj, geom)

	default:
		return nil, &ErrMalformedRecord{
			Record: label,
			Reason: fmt.Sprintf("unsupported geometry type %q", obj.Type),
		}
	}
}

func appendTopoRecord(records []record, label string, obj *topoObject, geom orb.MultiPolygon) ([]record, error) {
	id, hasID, err := parseDeclaredID(label, obj.ID)
	if err != nil {
		return nil, err
	}
	return append(records, record{
		label: label,
		id:    id,
		hasID: hasID,
		name:  propertyName(obj.Properties),
		geom:  geom,
	}), nil
}

// resolvePolygon stitches arc references into rings. A negative index ~i
// references arc i traversed in reverse. Consecutive arcs share their
// junction point, which is emitted once.
func resolvePolygon(label string, ringArcs [][]int, arcs [][]orb.Point) (orb.Polygon, error) {
	if len(ringArcs) == 0 {
		return nil, &ErrMalformedRecord{Record: label, Reason: "polygon with no rings"}
	}
	poly := make(orb.Polygon, 0, len(ringArcs))
	for _, indexes := range ringArcs {
		ring := make(orb.Ring, 0)
		for n, index := range indexes {
			reversed := false
			if index < 0 {
				index = ^index // -1-index
				reversed = true
			}
			if index >= len(arcs) {
				return nil, &ErrMalformedRecord{
					Record: label,
					Reason: fmt.Sprintf("arc index %d out of range (%d arcs)", index, len(arcs)),
				}
			}
			arc := arcs[index]
			if len(arc) < 2 {
				return nil, &ErrMalformedRecord{
					Record: label,
					Reason: fmt.Sprintf("arc %d has fewer than 2 positions", index),
				}
			}
			if reversed {
				for k := len(arc) - 1; k >= 0; k-- {
					if n > 0 && k == len(arc)-1 {
						continue // junction point already emitted
					}
					ring = append(ring, arc[k])
				}
			} else {
				for k, pt := range arc {
					if n > 0 && k == 0 {
						continue
					}
					ring = append(ring, pt)
				}
			}
		}
		poly = append(poly, ring)
	}
	return poly, nil
}

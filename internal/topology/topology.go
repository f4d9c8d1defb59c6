// Package topology decodes raw boundary payloads into a flat list of named
// polygon features with stable integer identifiers.
//
// Three payload encodings are supported and sniffed automatically:
//
//   - TopoJSON: the topology-delta format where boundary arcs shared between
//     adjacent regions are stored once and referenced by signed index.
//   - GeoJSON: a FeatureCollection with already-resolved polygon coordinates.
//   - FlatGeobuf: the flatbuffer-encoded binary equivalent of GeoJSON.
//
// All three paths produce identical features and obey the same contract:
// every input record becomes exactly one feature, decoding is all-or-nothing,
// and any malformed record fails the whole payload with a typed error naming
// the record.
package topology

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
)

// MaxID is the largest assignable feature id. Ids are packed into a 24-bit
// RGB color by the picking raster: 0 is the "no feature" sentinel and
// 2^24-1 is unused so that the full-white pixel never decodes to a feature.
const MaxID = 1<<24 - 2

// RawFeature is one decoded boundary record, before geometric analysis.
// Simple polygons are represented as a one-element MultiPolygon. Within each
// polygon, ring 0 is the outer boundary and any further rings are holes.
// Ring winding order is preserved exactly as given in the payload.
type RawFeature struct {
	ID       int
	Name     string
	Geometry orb.MultiPolygon
}

// record is a decoded input record prior to id and name assignment.
type record struct {
	label string // payload location, used in error messages
	id    int
	hasID bool
	name  string
	geom  orb.MultiPolygon
}

var fgbMagic = []byte{'f', 'g', 'b'}

// Decode sniffs the payload encoding and decodes it into features.
//
// The returned slice preserves input record order. On any decoding error no
// features are returned; a partially decoded payload is never published.
func Decode(raw []byte) ([]RawFeature, error) {
	if len(raw) == 0 {
		return nil, &ErrMalformedRecord{Record: "payload", Reason: "empty payload"}
	}

	var records []record
	var err error

	switch {
	case bytes.HasPrefix(raw, fgbMagic):
		records, err = decodeFlatGeobuf(raw)
	default:
		records, err = decodeJSON(raw)
	}
	if err != nil {
		return nil, err
	}

	return finalize(records)
}

// decodeJSON dispatches between TopoJSON and GeoJSON payloads by the
// top-level "type" member.
func decodeJSON(raw []byte) ([]record, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &ErrMalformedRecord{Record: "payload", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	switch probe.Type {
	case "Topology":
		return decodeTopoJSON(raw)
	case "FeatureCollection":
		return decodeGeoJSON(raw)
	default:
		return nil, &ErrMalformedRecord{
			Record: "payload",
			Reason: fmt.Sprintf("unsupported payload type %q", probe.Type),
		}
	}
}

// finalize applies the id and name contract to decoded records:
//
//   - a record's declared id is used when present; it must be unique and
//     within [1, MaxID]
//   - records without a declared id receive sequential ids in input order,
//     starting at 1 (0 is the sentinel and is never assigned)
//   - records without a declared name receive "Unnamed region N" where N is
//     the assigned id, so every feature is always addressable by name
func finalize(records []record) ([]RawFeature, error) {
	features := make([]RawFeature, 0, len(records))
	seen := make(map[int]string, len(records))

	next := 1
	for _, rec := range records {
		id := rec.id
		if rec.hasID {
			if id < 1 || id > MaxID {
				return nil, &ErrIDOutOfRange{Record: rec.label, ID: id}
			}
		} else {
			id = next
		}
		if _, dup := seen[id]; dup {
			return nil, &ErrDuplicateID{Record: rec.label, ID: id}
		}
		seen[id] = rec.label
		if id >= next {
			next = id + 1
		}

		name := rec.name
		if name == "" {
			name = fmt.Sprintf("Unnamed region %d", id)
		}

		features = append(features, RawFeature{
			ID:       id,
			Name:     name,
			Geometry: rec.geom,
		})
	}

	return features, nil
}

// parseDeclaredID interprets a payload id value. Integral numbers and
// numeric strings are declared ids; non-numeric strings (ISO codes and the
// like) are treated as absent so the sequential fallback applies.
func parseDeclaredID(label string, value interface{}) (int, bool, error) {
	switch v := value.(type) {
	case nil:
		return 0, false, nil
	case float64:
		if v != float64(int(v)) {
			return 0, false, &ErrMalformedRecord{Record: label, Reason: fmt.Sprintf("non-integer id %v", v)}
		}
		return int(v), true, nil
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, false, &ErrMalformedRecord{Record: label, Reason: fmt.Sprintf("non-integer id %q", v.String())}
		}
		return int(i), true, nil
	case string:
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, false, nil
		}
		return i, true, nil
	default:
		return 0, false, nil
	}
}

// nameKeys are the property keys consulted for a feature's display name, in
// order. The upper-case variants cover Natural Earth exports.
var nameKeys = []string{"name", "NAME", "admin", "ADMIN"}

func propertyName(props map[string]interface{}) string {
	for _, key := range nameKeys {
		if s, ok := props[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

package topology

import (
	"fmt"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
)

// decodeFlatGeobuf handles binary resolved-polygon payloads. FlatGeobuf
// stores each ring as a run of XY pairs delimited by the Ends array; the
// packed spatial index is used to enumerate features, so payloads written
// without an index are rejected.
func decodeFlatGeobuf(raw []byte) ([]record, error) {
	fgb, err := flatgeobuf.NewWithData(raw)
	if err != nil {
		return nil, &ErrMalformedRecord{Record: "payload", Reason: fmt.Sprintf("invalid FlatGeobuf: %v", err)}
	}

	header := fgb.Header()
	if header == nil {
		return nil, &ErrMalformedRecord{Record: "payload", Reason: "missing FlatGeobuf header"}
	}
	if header.FeaturesCount() == 0 {
		return nil, nil
	}
	if header.IndexNodeSize() == 0 || header.EnvelopeLength() < 4 {
		return nil, &ErrMalformedRecord{
			Record: "payload",
			Reason: "FlatGeobuf payload has no spatial index; features cannot be enumerated",
		}
	}

	features, err := fgb.Search(header.Envelope(0), header.Envelope(1), header.Envelope(2), header.Envelope(3))
	if err != nil {
		return nil, &ErrMalformedRecord{Record: "payload", Reason: fmt.Sprintf("FlatGeobuf index search: %v", err)}
	}

	nameColumn := findNameColumn(header)

	records := make([]record, 0, len(features))
	for i, f := range features {
		label := fmt.Sprintf("feature[%d]", i)
		if f == nil {
			return nil, &ErrMalformedRecord{Record: label, Reason: "null feature"}
		}

		var geomObj flattypes.Geometry
		geom := f.Geometry(&geomObj)
		if geom == nil {
			return nil, &ErrMalformedRecord{Record: label, Reason: "missing geometry"}
		}

		var mp orb.MultiPolygon
		switch geom.Type() {
		case flattypes.GeometryTypePolygon:
			mp = orb.MultiPolygon{fgbPolygon(geom)}
		case flattypes.GeometryTypeMultiPolygon:
			mp = fgbMultiPolygon(geom)
		default:
			return nil, &ErrMalformedRecord{
				Record: label,
				Reason: fmt.Sprintf("unsupported geometry type %s", flattypes.EnumNamesGeometryType[geom.Type()]),
			}
		}

		records = append(records, record{
			label: label,
			name:  fgbName(f, header, nameColumn),
			geom:  mp,
		})
	}
	return records, nil
}

// fgbPolygon splits the flat XY array into rings at the Ends offsets.
// Without an Ends array the points form a single ring.
func fgbPolygon(geom *flattypes.Geometry) orb.Polygon {
	xyLen := geom.XyLength()
	endsLen := geom.EndsLength()

	if endsLen == 0 {
		ring := make(orb.Ring, 0, xyLen/2)
		for i := 0; i+1 < xyLen; i += 2 {
			ring = append(ring, orb.Point{geom.Xy(i), geom.Xy(i + 1)})
		}
		return orb.Polygon{ring}
	}

	poly := make(orb.Polygon, 0, endsLen)
	start := uint32(0)
	for i := 0; i < endsLen; i++ {
		end := geom.Ends(i)
		ring := make(orb.Ring, 0, end-start)
		for j := start; j < end; j++ {
			idx := int(j) * 2
			if idx+1 < xyLen {
				ring = append(ring, orb.Point{geom.Xy(idx), geom.Xy(idx + 1)})
			}
		}
		poly = append(poly, ring)
		start = end
	}
	return poly
}

func fgbMultiPolygon(geom *flattypes.Geometry) orb.MultiPolygon {
	partsLen := geom.PartsLength()
	if partsLen == 0 {
		return orb.MultiPolygon{fgbPolygon(geom)}
	}

	mp := make(orb.MultiPolygon, 0, partsLen)
	for i := 0; i < partsLen; i++ {
		var part flattypes.Geometry
		if geom.Parts(&part, i) {
			mp = append(mp, fgbPolygon(&part))
		}
	}
	return mp
}

// findNameColumn returns the schema index of the first string column whose
// name matches a known display-name key, or -1.
func findNameColumn(header *flattypes.Header) int {
	for i := 0; i < header.ColumnsLength(); i++ {
		var col flattypes.Column
		if !header.Columns(&col, i) {
			continue
		}
		if col.Type() != flattypes.ColumnTypeString {
			continue
		}
		name := string(col.Name())
		for _, key := range nameKeys {
			if name == key {
				return i
			}
		}
	}
	return -1
}

// fgbName extracts the display name from a feature's property block.
// Properties are encoded as repeated [uint16 column index][typed value];
// values of other columns are skipped by their column type's width.
func fgbName(f *flattypes.Feature, header *flattypes.Header, nameColumn int) string {
	if nameColumn < 0 {
		return ""
	}

	propsLen := f.PropertiesLength()
	if propsLen == 0 {
		return ""
	}
	data := make([]byte, propsLen)
	for i := 0; i < propsLen; i++ {
		data[i] = byte(f.Properties(i))
	}

	offset := 0
	for offset+2 <= len(data) {
		colIndex := int(uint16(data[offset]) | uint16(data[offset+1])<<8)
		offset += 2
		if colIndex >= header.ColumnsLength() {
			return ""
		}
		var col flattypes.Column
		if !header.Columns(&col, colIndex) {
			return ""
		}

		value, read := fgbPropertyValue(data[offset:], col.Type())
		if read == 0 {
			return ""
		}
		offset += read

		if colIndex == nameColumn {
			return value
		}
	}
	return ""
}

// fgbPropertyValue returns the string form of a value (only meaningful for
// string columns) and the number of bytes it occupies.
func fgbPropertyValue(data []byte, colType flattypes.ColumnType) (string, int) {
	switch colType {
	case flattypes.ColumnTypeBool, flattypes.ColumnTypeByte, flattypes.ColumnTypeUByte:
		if len(data) < 1 {
			return "", 0
		}
		return "", 1
	case flattypes.ColumnTypeShort, flattypes.ColumnTypeUShort:
		if len(data) < 2 {
			return "", 0
		}
		return "", 2
	case flattypes.ColumnTypeInt, flattypes.ColumnTypeUInt, flattypes.ColumnTypeFloat:
		if len(data) < 4 {
			return "", 0
		}
		return "", 4
	case flattypes.ColumnTypeLong, flattypes.ColumnTypeULong, flattypes.ColumnTypeDouble:
		if len(data) < 8 {
			return "", 0
		}
		return "", 8
	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime, flattypes.ColumnTypeJson:
		// Null-terminated text.
		for i, b := range data {
			if b == 0 {
				return string(data[:i]), i + 1
			}
		}
		return string(data), len(data)
	case flattypes.ColumnTypeBinary:
		if len(data) < 4 {
			return "", 0
		}
		length := int(uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24)
		if len(data) < 4+length {
			return "", 0
		}
		return "", 4 + length
	default:
		return "", 0
	}
}

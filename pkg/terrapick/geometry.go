package terrapick

import (
	"math"
)

const degToRad = math.Pi / 180

// Vec3 is a point on or above the unit sphere in renderer coordinates.
type Vec3 struct {
	X, Y, Z float64
}

// Project converts geographic coordinates to a Cartesian point on a sphere
// of the given radius.
//
// The mapping is the usual renderer convention: phi = (90-lat) degrees from
// the north pole, theta = (lon+180) degrees around the Y axis. One sign
// convention is used everywhere in this package; Unproject is its exact
// inverse (see TestProjectUnprojectRoundTrip).
func Project(lat, lon, radius float64) Vec3 {
	phi := (90 - lat) * degToRad
	theta := (lon + 180) * degToRad
	sinPhi := math.Sin(phi)
	return Vec3{
		X: -radius * sinPhi * math.Cos(theta),
		Y: radius * math.Cos(phi),
		Z: radius * sinPhi * math.Sin(theta),
	}
}

// Unproject recovers geographic coordinates from a sphere-surface point.
// The point's distance from the origin is taken as the radius.
func Unproject(v Vec3) (lat, lon float64) {
	radius := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	if radius == 0 {
		return 0, 0
	}
	phi := math.Acos(clamp(v.Y/radius, -1, 1))
	theta := math.Atan2(v.Z, -v.X)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	lat = 90 - phi/degToRad
	lon = theta/degToRad - 180
	return lat, lon
}

// EquirectangularUV maps geographic coordinates onto the unit square used
// by the picking raster: u grows eastward from lon -180, v grows southward
// from lat 90 (matching row order, not texture order).
func EquirectangularUV(lat, lon float64) (u, v float64) {
	return (lon + 180) / 360, (90 - lat) / 180
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Bounds is a geographic bounding box.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// emptyBounds is the inverted box produced for features with no vertices.
// Any accumulation of real vertices immediately repairs the ordering.
func emptyBounds() Bounds {
	return Bounds{MinLat: 90, MaxLat: -90, MinLon: 180, MaxLon: -180}
}

// Empty reports whether the bounds contain no usable geometry. Callers must
// check this before navigating to a feature.
func (b Bounds) Empty() bool {
	return b.MinLat > b.MaxLat || b.MinLon > b.MaxLon
}

// Intersects reports whether two bounding boxes overlap.
func (b Bounds) Intersects(o Bounds) bool {
	if b.Empty() || o.Empty() {
		return false
	}
	return b.MinLon <= o.MaxLon && o.MinLon <= b.MaxLon &&
		b.MinLat <= o.MaxLat && o.MinLat <= b.MaxLat
}

// extend grows the bounds to include a vertex.
func (b Bounds) extend(lat, lon float64) Bounds {
	if lat < b.MinLat {
		b.MinLat = lat
	}
	if lat > b.MaxLat {
		b.MaxLat = lat
	}
	if lon < b.MinLon {
		b.MinLon = lon
	}
	if lon > b.MaxLon {
		b.MaxLon = lon
	}
	return b
}

// union merges two bounding boxes, ignoring empty ones.
func (b Bounds) union(o Bounds) Bounds {
	if o.Empty() {
		return b
	}
	if b.Empty() {
		return o
	}
	b = b.extend(o.MinLat, o.MinLon)
	return b.extend(o.MaxLat, o.MaxLon)
}

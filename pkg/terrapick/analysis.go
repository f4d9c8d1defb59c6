package terrapick

import (
	"github.com/paulmach/orb"
)

// analyze computes a feature's centroid and bounding box in one pass over
// every vertex of every ring, including hole rings. A ring's explicit
// closing vertex (first == last) is not counted twice.
//
// The centroid is the unweighted mean of the vertices, not an area-weighted
// centroid. That is accurate enough to aim a camera, but both it and the
// min/max bounds misbehave for geometry straddling the antimeridian: a
// feature with vertices near +179 and -179 averages out near lon 0. Such
// features keep the documented vertex-average result.
func analyze(geom orb.MultiPolygon) (centroid orb.Point, bounds Bounds) {
	bounds = emptyBounds()

	var sumLon, sumLat float64
	count := 0
	for _, poly := range geom {
		for _, ring := range poly {
			n := len(ring)
			if n > 1 && ring[0] == ring[n-1] {
				n--
			}
			for i := 0; i < n; i++ {
				lon, lat := ring[i].Lon(), ring[i].Lat()
				sumLon += lon
				sumLat += lat
				count++
				bounds = bounds.extend(lat, lon)
			}
		}
	}

	if count == 0 {
		// Degenerate input: centroid (0,0) and inverted bounds, not an error.
		return orb.Point{}, bounds
	}
	return orb.Point{sumLon / float64(count), sumLat / float64(count)}, bounds
}

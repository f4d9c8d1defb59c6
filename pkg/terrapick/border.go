package terrapick

import (
	"github.com/paulmach/orb"
)

// Polyline is one boundary ring projected onto the sphere, tagged with its
// owning feature. It exists for outline rendering only; picking never reads
// polylines.
type Polyline struct {
	FeatureID int
	Points    []Vec3
}

// buildBorders projects every ring of every feature (holes included, so
// enclave outlines still draw) at radius*(1+offset). The small radial offset
// keeps outlines from z-fighting with the globe surface. Rings are emitted
// explicitly closed.
func buildBorders(features []*Feature, radius, offset float64) []Polyline {
	r := radius * (1 + offset)

	total := 0
	for _, f := range features {
		for _, poly := range f.geometry {
			total += len(poly)
		}
	}

	lines := make([]Polyline, 0, total)
	for _, f := range features {
		for _, poly := range f.geometry {
			for _, ring := range poly {
				if len(ring) < 2 {
					continue
				}
				lines = append(lines, Polyline{
					FeatureID: f.id,
					Points:    projectRing(ring, r),
				})
			}
		}
	}
	return lines
}

func projectRing(ring orb.Ring, radius float64) []Vec3 {
	closed := ring[0] == ring[len(ring)-1]
	n := len(ring)
	if !closed {
		n++
	}

	points := make([]Vec3, 0, n)
	for _, pt := range ring {
		points = append(points, Project(pt.Lat(), pt.Lon(), radius))
	}
	if !closed {
		points = append(points, points[0])
	}
	return points
}

package terrapick

import (
	"strings"

	"github.com/dhconnelly/rtreego"

	"github.com/terrapick/terrapick/internal/topology"
)

// featureIndex provides direct id and name lookups plus R-tree backed
// bounding-box queries. Built once per load, immutable afterward.
type featureIndex struct {
	byID   map[int]*Feature
	byName map[string]*Feature
	rtree  *rtreego.Rtree
}

// indexedFeature wraps a feature for R-tree storage.
type indexedFeature struct {
	feature *Feature
}

// Bounds implements rtreego.Spatial. The R-tree requires non-zero extents,
// so degenerate boxes are padded by ~11 meters at the equator.
func (f *indexedFeature) Bounds() rtreego.Rect {
	b := f.feature.bounds
	point := rtreego.Point{b.MinLon, b.MinLat}

	const epsilon = 0.0001
	lonLength := b.MaxLon - b.MinLon
	latLength := b.MaxLat - b.MinLat
	if lonLength < epsilon {
		lonLength = epsilon
	}
	if latLength < epsilon {
		latLength = epsilon
	}

	rect, _ := rtreego.NewRect(point, []float64{lonLength, latLength})
	return rect
}

// buildIndex verifies id uniqueness and builds the lookup maps and R-tree.
// Ingestion already rejects duplicate ids, but the invariant is re-checked
// here because every later read path assumes it.
//
// Name keys are lowercased; when two features normalize to the same name the
// later one in input order wins in byName while byID stays exact for both.
func buildIndex(features []*Feature) (*featureIndex, error) {
	idx := &featureIndex{
		byID:   make(map[int]*Feature, len(features)),
		byName: make(map[string]*Feature, len(features)),
	}
	if len(features) > 0 {
		idx.rtree = rtreego.NewTree(2, 25, 50)
	}

	for _, f := range features {
		if _, dup := idx.byID[f.id]; dup {
			return nil, &topology.ErrDuplicateID{Record: f.name, ID: f.id}
		}
		idx.byID[f.id] = f
		idx.byName[strings.ToLower(f.name)] = f
		if !f.bounds.Empty() {
			idx.rtree.Insert(&indexedFeature{feature: f})
		}
	}
	return idx, nil
}

func (idx *featureIndex) lookupName(name string) *Feature {
	return idx.byName[strings.ToLower(name)]
}

// featuresInBounds returns features whose bounding boxes intersect the query
// box, via the R-tree when present.
func (idx *featureIndex) featuresInBounds(bounds Bounds) []*Feature {
	if bounds.Empty() {
		return nil
	}
	if idx.rtree == nil {
		return idx.featuresInBoundsLinear(bounds)
	}

	point := rtreego.Point{bounds.MinLon, bounds.MinLat}
	lengths := []float64{bounds.MaxLon - bounds.MinLon, bounds.MaxLat - bounds.MinLat}
	queryRect, err := rtreego.NewRect(point, lengths)
	if err != nil {
		return idx.featuresInBoundsLinear(bounds)
	}

	spatials := idx.rtree.SearchIntersect(queryRect)
	result := make([]*Feature, 0, len(spatials))
	for _, spatial := range spatials {
		result = append(result, spatial.(*indexedFeature).feature)
	}
	return result
}

func (idx *featureIndex) featuresInBoundsLinear(bounds Bounds) []*Feature {
	var result []*Feature
	for _, f := range idx.byID {
		if bounds.Intersects(f.bounds) {
			result = append(result, f)
		}
	}
	return result
}

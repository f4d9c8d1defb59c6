// Package terrapick turns raw country boundary payloads into a fast
// point-in-country lookup and the derived geometry a globe renderer needs.
package terrapick

import (
	"context"
	"fmt"
	"sync"

	"github.com/paulmach/orb"

	"github.com/terrapick/terrapick/internal/topology"
)

// Feature is one country or territory: its boundary geometry plus the
// centroid and bounding box derived at load time.
//
// All fields are private; features are immutable after load and safe for
// concurrent use.
type Feature struct {
	id       int
	name     string
	geometry orb.MultiPolygon
	centroid orb.Point
	bounds   Bounds
}

// ID returns the stable feature identifier. Ids are assigned once at
// ingestion, are never reused, and fit the raster's 24-bit color encoding.
func (f *Feature) ID() int { return f.id }

// Name returns the display name.
func (f *Feature) Name() string { return f.name }

// Geometry returns the boundary rings. Coordinates follow the GeoJSON
// convention: [longitude, latitude] in WGS-84 decimal degrees. Callers must
// not modify the returned slices.
func (f *Feature) Geometry() orb.MultiPolygon { return f.geometry }

// Centroid returns the unweighted vertex-average position, suitable for
// aiming a camera. Features straddling the antimeridian average to the
// wrong side of the globe; see analyze.
func (f *Feature) Centroid() (lat, lon float64) {
	return f.centroid.Lat(), f.centroid.Lon()
}

// Bounds returns the feature's bounding box. An Empty box means the feature
// had no usable geometry.
func (f *Feature) Bounds() Bounds { return f.bounds }

// Atlas is the immutable result of one load: the feature list and every
// derived structure, sharing one lifetime. Dropping the Atlas releases all
// of it together. All methods are side-effect-free reads and may be called
// concurrently.
type Atlas struct {
	features []*Feature
	raster   *PickRaster
	index    *featureIndex
	borders  []Polyline
	bounds   Bounds
}

// Load ingests a boundary payload (TopoJSON, GeoJSON, or FlatGeobuf) with
// default options.
func Load(raw []byte) (*Atlas, error) {
	return LoadWithOptions(raw, DefaultLoadOptions())
}

// LoadWithOptions ingests a boundary payload with custom options.
func LoadWithOptions(raw []byte, opts LoadOptions) (*Atlas, error) {
	return LoadContext(context.Background(), raw, opts)
}

// LoadContext runs the full load pipeline: decode, per-feature analysis,
// then the raster, index, and border builds. The derived builds only read
// the ingested feature list, so they run concurrently across workers; all
// complete before LoadContext returns.
//
// On any error, including context cancellation between stages, nothing is
// published: there is no partially loaded Atlas.
func LoadContext(ctx context.Context, raw []byte, opts LoadOptions) (*Atlas, error) {
	opts = opts.withDefaults()

	opts.progress("decode")
	rawFeatures, err := topology.Decode(raw)
	if err != nil {
		if opts.ErrorLog != nil {
			fmt.Fprintf(opts.ErrorLog, "terrapick: payload rejected: %v\n", err)
		}
		return nil, fmt.Errorf("terrapick: load: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("terrapick: load abandoned: %w", err)
	}

	opts.progress("analyze")
	features := analyzeFeatures(rawFeatures, opts.Workers)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("terrapick: load abandoned: %w", err)
	}

	opts.progress("derive")
	atlas := &Atlas{features: features, bounds: emptyBounds()}
	for _, f := range features {
		atlas.bounds = atlas.bounds.union(f.bounds)
	}

	var indexErr error
	if opts.Workers > 1 {
		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			atlas.raster = buildRaster(features, opts.RasterSize)
		}()
		go func() {
			defer wg.Done()
			atlas.index, indexErr = buildIndex(features)
		}()
		go func() {
			defer wg.Done()
			atlas.borders = buildBorders(features, opts.Radius, opts.BorderOffset)
		}()
		wg.Wait()
	} else {
		atlas.raster = buildRaster(features, opts.RasterSize)
		atlas.index, indexErr = buildIndex(features)
		atlas.borders = buildBorders(features, opts.Radius, opts.BorderOffset)
	}
	if indexErr != nil {
		if opts.ErrorLog != nil {
			fmt.Fprintf(opts.ErrorLog, "terrapick: index build failed: %v\n", indexErr)
		}
		return nil, fmt.Errorf("terrapick: load: %w", indexErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("terrapick: load abandoned: %w", err)
	}

	return atlas, nil
}

// analyzeFeatures derives centroid and bounds for each feature. Features
// are independent, so the work fans out over a worker pool; each worker
// writes only its own slice indexes.
func analyzeFeatures(rawFeatures []topology.RawFeature, workers int) []*Feature {
	features := make([]*Feature, len(rawFeatures))

	if workers > len(rawFeatures) {
		workers = len(rawFeatures)
	}
	if workers <= 1 {
		for i := range rawFeatures {
			features[i] = analyzeFeature(rawFeatures[i])
		}
		return features
	}

	jobs := make(chan int, len(rawFeatures))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				features[i] = analyzeFeature(rawFeatures[i])
			}
		}()
	}
	for i := range rawFeatures {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return features
}

func analyzeFeature(raw topology.RawFeature) *Feature {
	centroid, bounds := analyze(raw.Geometry)
	return &Feature{
		id:       raw.ID,
		name:     raw.Name,
		geometry: raw.Geometry,
		centroid: centroid,
		bounds:   bounds,
	}
}

// Features returns all features in ingestion order.
func (a *Atlas) Features() []*Feature { return a.features }

// FeatureCount returns the number of loaded features.
func (a *Atlas) FeatureCount() int { return len(a.features) }

// Bounds returns the union of all feature bounding boxes.
func (a *Atlas) Bounds() Bounds { return a.bounds }

// Raster returns the picking raster.
func (a *Atlas) Raster() *PickRaster { return a.raster }

// Borders returns the projected boundary polylines for outline rendering.
// Whether and when outlines are shown is the renderer's business.
func (a *Atlas) Borders() []Polyline { return a.borders }

// Pick returns the feature under a texture-space (u, v) surface coordinate,
// as produced by a ray/globe intersection test. A miss (ocean, unclaimed
// pixel) returns (0, false); it is a normal result, not an error.
func (a *Atlas) Pick(u, v float64) (int, bool) {
	return a.raster.Pick(u, v)
}

// ByID returns the feature with the given id, or nil.
func (a *Atlas) ByID(id int) *Feature { return a.index.byID[id] }

// ByName returns the feature with the given name, matched
// case-insensitively, or nil.
func (a *Atlas) ByName(name string) *Feature {
	return a.index.lookupName(name)
}

// Centroid returns the centroid of the feature with the given id. The
// second result is false for unknown ids.
func (a *Atlas) Centroid(id int) (lat, lon float64, ok bool) {
	f := a.index.byID[id]
	if f == nil {
		return 0, 0, false
	}
	lat, lon = f.Centroid()
	return lat, lon, true
}

// BoundsOf returns the bounding box of the feature with the given id. The
// second result is false for unknown ids.
func (a *Atlas) BoundsOf(id int) (Bounds, bool) {
	f := a.index.byID[id]
	if f == nil {
		return Bounds{}, false
	}
	return f.bounds, true
}

// FeaturesInBounds returns the features whose bounding boxes intersect the
// given box, for viewport-driven collaborators.
func (a *Atlas) FeaturesInBounds(bounds Bounds) []*Feature {
	return a.index.featuresInBounds(bounds)
}

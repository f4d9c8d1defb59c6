package terrapick

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/terrapick/terrapick/internal/topology"
)

// testlandPayload is the single-square fixture: feature 7, "Testland",
// covering lon 0..10, lat 0..10.
const testlandPayload = `{
	"type": "FeatureCollection",
	"features": [{"type": "Feature", "id": 7, "properties": {"name": "Testland"},
		"geometry": {"type": "Polygon", "coordinates": [[[0,0],[0,10],[10,10],[10,0],[0,0]]]}}]
}`

// adjacentPayload is two squares sharing the lon=10 edge.
const adjacentPayload = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature", "id": 1, "properties": {"name": "Alandia"},
		 "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}},
		{"type": "Feature", "id": 2, "properties": {"name": "Borduria"},
		 "geometry": {"type": "Polygon", "coordinates": [[[10,0],[20,0],[20,10],[10,10],[10,0]]]}}
	]
}`

// pickUV converts geographic coordinates to the texture-space (u, v) a
// ray/globe intersection would hand to Pick: v grows northward.
func pickUV(lat, lon float64) (u, v float64) {
	return (lon + 180) / 360, (lat + 90) / 180
}

func TestScenarioSingleSquare(t *testing.T) {
	atlas, err := Load([]byte(testlandPayload))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if atlas.FeatureCount() != 1 {
		t.Fatalf("Expected 1 feature, got %d", atlas.FeatureCount())
	}

	f := atlas.ByID(7)
	if f == nil {
		t.Fatal("ByID(7) returned nil")
	}
	if f.Name() != "Testland" {
		t.Errorf("Expected name Testland, got %q", f.Name())
	}

	lat, lon := f.Centroid()
	if math.Abs(lat-5) > 1e-9 || math.Abs(lon-5) > 1e-9 {
		t.Errorf("Centroid: got (%v, %v), want (5, 5)", lat, lon)
	}

	b := f.Bounds()
	if b.MinLat != 0 || b.MaxLat != 10 || b.MinLon != 0 || b.MaxLon != 10 {
		t.Errorf("Bounds: got %+v, want (0,10,0,10)", b)
	}

	if id, ok := atlas.Pick(pickUV(5, 5)); !ok || id != 7 {
		t.Errorf("Pick inside Testland: got (%d, %v), want (7, true)", id, ok)
	}
	if id, ok := atlas.Pick(pickUV(50, 50)); ok {
		t.Errorf("Pick at (50, 50) claimed feature %d", id)
	}
}

func TestScenarioAdjacentFeatures(t *testing.T) {
	atlas, err := Load([]byte(adjacentPayload))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if id, ok := atlas.Pick(pickUV(5, 5)); !ok || id != 1 {
		t.Errorf("Pick inside Alandia: got (%d, %v), want (1, true)", id, ok)
	}
	if id, ok := atlas.Pick(pickUV(5, 15)); !ok || id != 2 {
		t.Errorf("Pick inside Borduria: got (%d, %v), want (2, true)", id, ok)
	}

	// Exactly on the shared edge one of the two features wins. Which one is
	// a rasterization detail; a third value would be a real defect.
	id, ok := atlas.Pick(pickUV(5, 10))
	if !ok || (id != 1 && id != 2) {
		t.Errorf("Pick on shared edge: got (%d, %v), want one of 1 or 2", id, ok)
	}
}

func TestScenarioIDOutOfRangeFailsLoad(t *testing.T) {
	payload := `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "id": 1, "properties": {"name": "Fine"},
			 "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}},
			{"type": "Feature", "id": 16777216, "properties": {"name": "TooBig"},
			 "geometry": {"type": "Polygon", "coordinates": [[[2,2],[3,2],[3,3],[2,2]]]}}
		]
	}`

	var log bytes.Buffer
	atlas, err := LoadWithOptions([]byte(payload), LoadOptions{ErrorLog: &log})
	if err == nil {
		t.Fatal("Load must fail for id 2^24")
	}
	var rangeErr *topology.ErrIDOutOfRange
	if !errors.As(err, &rangeErr) {
		t.Fatalf("Expected ErrIDOutOfRange, got %v", err)
	}
	if atlas != nil {
		t.Fatal("No atlas may be published from a failed load")
	}
	if !strings.Contains(log.String(), "payload rejected") {
		t.Errorf("ErrorLog did not record the failure: %q", log.String())
	}
}

func TestIDStability(t *testing.T) {
	first, err := Load([]byte(adjacentPayload))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := Load([]byte(adjacentPayload))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if first.FeatureCount() != second.FeatureCount() {
		t.Fatalf("Feature counts differ: %d vs %d", first.FeatureCount(), second.FeatureCount())
	}
	for i, f := range first.Features() {
		g := second.Features()[i]
		if f.ID() != g.ID() || f.Name() != g.Name() {
			t.Errorf("Feature %d: (%d, %q) vs (%d, %q)", i, f.ID(), f.Name(), g.ID(), g.Name())
		}
	}
}

func TestIndexTotality(t *testing.T) {
	atlas, err := Load([]byte(adjacentPayload))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, f := range atlas.Features() {
		if atlas.ByID(f.ID()) != f {
			t.Errorf("Feature %d not resolvable via ByID", f.ID())
		}
		for _, variant := range []string{
			f.Name(),
			strings.ToLower(f.Name()),
			strings.ToUpper(f.Name()),
		} {
			if atlas.ByName(variant) != f {
				t.Errorf("Feature %d not resolvable via ByName(%q)", f.ID(), variant)
			}
		}

		b := f.Bounds()
		if b.MinLat > b.MaxLat || b.MinLon > b.MaxLon {
			t.Errorf("Feature %d: inverted bounds %+v for real geometry", f.ID(), b)
		}
	}

	if atlas.ByID(999) != nil {
		t.Error("ByID(999) must return nil")
	}
	if atlas.ByName("atlantis") != nil {
		t.Error("ByName(atlantis) must return nil")
	}
}

func TestCentroidAndBoundsAccessors(t *testing.T) {
	atlas, err := Load([]byte(testlandPayload))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	lat, lon, ok := atlas.Centroid(7)
	if !ok || math.Abs(lat-5) > 1e-9 || math.Abs(lon-5) > 1e-9 {
		t.Errorf("Centroid(7): got (%v, %v, %v)", lat, lon, ok)
	}
	if _, _, ok := atlas.Centroid(999); ok {
		t.Error("Centroid(999) must miss")
	}

	b, ok := atlas.BoundsOf(7)
	if !ok || b.Empty() {
		t.Errorf("BoundsOf(7): got (%+v, %v)", b, ok)
	}
	if _, ok := atlas.BoundsOf(999); ok {
		t.Error("BoundsOf(999) must miss")
	}
}

func TestFeaturesInBounds(t *testing.T) {
	atlas, err := Load([]byte(adjacentPayload))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	viewport := Bounds{MinLat: 2, MaxLat: 8, MinLon: 2, MaxLon: 8}
	got := atlas.FeaturesInBounds(viewport)
	if len(got) != 1 || got[0].ID() != 1 {
		t.Errorf("Viewport over Alandia: got %d features", len(got))
	}

	wide := Bounds{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
	if got := atlas.FeaturesInBounds(wide); len(got) != 2 {
		t.Errorf("Full-globe viewport: got %d features, want 2", len(got))
	}

	elsewhere := Bounds{MinLat: 40, MaxLat: 50, MinLon: 40, MaxLon: 50}
	if got := atlas.FeaturesInBounds(elsewhere); len(got) != 0 {
		t.Errorf("Disjoint viewport: got %d features, want 0", len(got))
	}
}

func TestDegenerateFeature(t *testing.T) {
	// A polygon whose rings have no vertices loads without error but has no
	// usable geometry: centroid (0,0), inverted bounds, nothing rasterized.
	payload := `{
		"type": "FeatureCollection",
		"features": [{"type": "Feature", "id": 9, "properties": {"name": "Nowhere"},
			"geometry": {"type": "Polygon", "coordinates": [[]]}}]
	}`

	atlas, err := Load([]byte(payload))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	f := atlas.ByID(9)
	if f == nil {
		t.Fatal("Degenerate feature must still be indexed")
	}
	lat, lon := f.Centroid()
	if lat != 0 || lon != 0 {
		t.Errorf("Degenerate centroid: got (%v, %v)", lat, lon)
	}
	if !f.Bounds().Empty() {
		t.Errorf("Degenerate bounds must be Empty, got %+v", f.Bounds())
	}
}

func TestLoadContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	atlas, err := LoadContext(ctx, []byte(testlandPayload), DefaultLoadOptions())
	if err == nil {
		t.Fatal("Cancelled load must fail")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if atlas != nil {
		t.Fatal("Cancelled load must not publish an atlas")
	}
}

func TestLoadProgressStages(t *testing.T) {
	var stages []string
	_, err := LoadWithOptions([]byte(testlandPayload), LoadOptions{
		Progress: func(stage string) { stages = append(stages, stage) },
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []string{"decode", "analyze", "derive"}
	if len(stages) != len(want) {
		t.Fatalf("Stages: got %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("Stages: got %v, want %v", stages, want)
		}
	}
}

func TestSerialLoadMatchesParallel(t *testing.T) {
	serial, err := LoadWithOptions([]byte(adjacentPayload), LoadOptions{Workers: 1, RasterSize: 256})
	if err != nil {
		t.Fatalf("Serial load failed: %v", err)
	}
	parallel, err := LoadWithOptions([]byte(adjacentPayload), LoadOptions{Workers: 4, RasterSize: 256})
	if err != nil {
		t.Fatalf("Parallel load failed: %v", err)
	}

	if !bytes.Equal(serial.Raster().Pix(), parallel.Raster().Pix()) {
		t.Error("Serial and parallel loads produced different rasters")
	}
	if len(serial.Borders()) != len(parallel.Borders()) {
		t.Error("Serial and parallel loads produced different border sets")
	}
}

func TestTopoJSONLoadEndToEnd(t *testing.T) {
	payload := `{
		"type": "Topology",
		"objects": {
			"countries": {
				"type": "GeometryCollection",
				"geometries": [
					{"type": "Polygon", "arcs": [[0, 1]], "id": 1, "properties": {"name": "Alandia"}},
					{"type": "Polygon", "arcs": [[2, -1]], "id": 2, "properties": {"name": "Borduria"}}
				]
			}
		},
		"arcs": [
			[[10, 0], [10, 10]],
			[[10, 10], [0, 10], [0, 0], [10, 0]],
			[[10, 0], [20, 0], [20, 10], [10, 10]]
		]
	}`

	atlas, err := Load([]byte(payload))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if id, ok := atlas.Pick(pickUV(5, 5)); !ok || id != 1 {
		t.Errorf("Pick inside Alandia: got (%d, %v), want (1, true)", id, ok)
	}
	if id, ok := atlas.Pick(pickUV(5, 15)); !ok || id != 2 {
		t.Errorf("Pick inside Borduria: got (%d, %v), want (2, true)", id, ok)
	}
	if atlas.ByName("borduria") == nil {
		t.Error("ByName lookup failed after TopoJSON load")
	}
}

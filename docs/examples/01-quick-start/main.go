package main

import (
	"fmt"
	"log"
	"os"

	"github.com/terrapick/terrapick/pkg/terrapick"
)

func main() {
	// Load a boundary payload (TopoJSON, GeoJSON, or FlatGeobuf).
	raw, err := os.ReadFile("countries.json")
	if err != nil {
		log.Fatal(err)
	}

	atlas, err := terrapick.Load(raw)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Features: %d\n", atlas.FeatureCount())

	bounds := atlas.Bounds()
	fmt.Printf("Bounds: [%.4f,%.4f] to [%.4f,%.4f]\n",
		bounds.MinLon, bounds.MinLat,
		bounds.MaxLon, bounds.MaxLat)

	for _, f := range atlas.Features() {
		lat, lon := f.Centroid()
		fmt.Printf("%6d  %-30s centroid (%.2f, %.2f)\n", f.ID(), f.Name(), lat, lon)
	}
}

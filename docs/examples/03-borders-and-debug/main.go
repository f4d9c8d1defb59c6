package main

import (
	"fmt"
	"log"
	"os"

	"github.com/terrapick/terrapick/pkg/terrapick"
)

func main() {
	raw, err := os.ReadFile("countries.json")
	if err != nil {
		log.Fatal(err)
	}

	opts := terrapick.DefaultLoadOptions()
	opts.Radius = 100 // match the renderer's globe radius
	opts.BorderOffset = 0.002
	opts.Progress = func(stage string) {
		fmt.Printf("load: %s\n", stage)
	}

	atlas, err := terrapick.LoadWithOptions(raw, opts)
	if err != nil {
		log.Fatal(err)
	}

	// Border polylines feed the outline renderer: one polyline per ring,
	// tagged with the owning feature.
	total := 0
	for _, line := range atlas.Borders() {
		total += len(line.Points)
	}
	fmt.Printf("Borders: %d polylines, %d vertices\n", len(atlas.Borders()), total)

	// Dump the picking raster for visual inspection: every feature shows as
	// one flat color, the ocean stays black.
	out, err := os.Create("picking.png")
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()
	if err := atlas.Raster().WritePNG(out); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Wrote picking.png")
}

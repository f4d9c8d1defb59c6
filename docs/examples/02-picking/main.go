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

	atlas, err := terrapick.Load(raw)
	if err != nil {
		log.Fatal(err)
	}

	// A pointer-intersection collaborator supplies texture-space (u, v)
	// from a ray/globe hit test. Here the surface coordinate is derived
	// from geographic coordinates directly.
	lat, lon := 48.85, 2.35 // Paris
	u := (lon + 180) / 360
	v := (lat + 90) / 180

	id, ok := atlas.Pick(u, v)
	if !ok {
		fmt.Println("Nothing under the pointer (ocean)")
		return
	}

	f := atlas.ByID(id)
	fmt.Printf("Picked: %s (id %d)\n", f.Name(), f.ID())

	// The centroid and bounds accessors drive camera navigation.
	cLat, cLon, _ := atlas.Centroid(id)
	fmt.Printf("Fly to: (%.2f, %.2f)\n", cLat, cLon)
}

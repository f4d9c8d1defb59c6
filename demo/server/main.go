// A small HTTP front end over a loaded atlas, standing in for the
// renderer-side collaborators: /pick resolves a surface coordinate the way a
// pointer handler would, /feature resolves ids and names for navigation.
package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/terrapick/terrapick/pkg/terrapick"
)

func main() {
	payload := flag.String("payload", "countries.json", "boundary payload (TopoJSON, GeoJSON, or FlatGeobuf)")
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logger := newLogger()

	raw, err := os.ReadFile(*payload)
	if err != nil {
		logger.Error("read payload", "err", err)
		os.Exit(1)
	}

	opts := terrapick.DefaultLoadOptions()
	opts.ErrorLog = os.Stderr
	atlas, err := terrapick.LoadWithOptions(raw, opts)
	if err != nil {
		logger.Error("load payload", "err", err)
		os.Exit(1)
	}
	logger.Info("atlas loaded", "features", atlas.FeatureCount(),
		"raster", atlas.Raster().Width(), "borders", len(atlas.Borders()))

	mux := http.NewServeMux()
	mux.HandleFunc("/pick", handlePick(atlas))
	mux.HandleFunc("/feature", handleFeature(atlas))

	logger.Info("listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		logger.Error("serve", "err", err)
		os.Exit(1)
	}
}

// newLogger configures slog from LOG_LEVEL, defaulting to info.
func newLogger() *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

type featureResponse struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Centroid [2]float64 `json:"centroid"` // lat, lon
	Bounds   [4]float64 `json:"bounds"`   // minLat, maxLat, minLon, maxLon
}

func respond(w http.ResponseWriter, f *terrapick.Feature) {
	lat, lon := f.Centroid()
	b := f.Bounds()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(featureResponse{
		ID:       f.ID(),
		Name:     f.Name(),
		Centroid: [2]float64{lat, lon},
		Bounds:   [4]float64{b.MinLat, b.MaxLat, b.MinLon, b.MaxLon},
	})
}

func handlePick(atlas *terrapick.Atlas) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, errU := strconv.ParseFloat(r.URL.Query().Get("u"), 64)
		v, errV := strconv.ParseFloat(r.URL.Query().Get("v"), 64)
		if errU != nil || errV != nil {
			http.Error(w, "u and v query parameters required", http.StatusBadRequest)
			return
		}

		id, ok := atlas.Pick(u, v)
		if !ok {
			// A miss is a normal result, not a server error.
			http.Error(w, "no feature", http.StatusNotFound)
			return
		}
		respond(w, atlas.ByID(id))
	}
}

func handleFeature(atlas *terrapick.Atlas) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f *terrapick.Feature
		if idParam := r.URL.Query().Get("id"); idParam != "" {
			id, err := strconv.Atoi(idParam)
			if err != nil {
				http.Error(w, "invalid id", http.StatusBadRequest)
				return
			}
			f = atlas.ByID(id)
		} else if name := r.URL.Query().Get("name"); name != "" {
			f = atlas.ByName(name)
		} else {
			http.Error(w, "id or name query parameter required", http.StatusBadRequest)
			return
		}

		if f == nil {
			http.Error(w, "no feature", http.StatusNotFound)
			return
		}
		respond(w, f)
	}
}

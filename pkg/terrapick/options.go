package terrapick

import (
	"io"
	"runtime"
)

// LoadOptions controls the load pipeline. The zero value of any field means
// "use the default".
type LoadOptions struct {
	// RasterSize is the width and height of the picking raster in pixels.
	// Defaults to 2048, about 16 MiB of RGBA: small enough for a texture
	// upload, large enough that one-pixel islands survive rasterization.
	RasterSize int

	// Workers is the number of goroutines used for per-feature analysis and
	// the derived-structure builds. Defaults to runtime.NumCPU(); 1 forces a
	// fully serial load.
	Workers int

	// Radius is the sphere radius border polylines are projected onto.
	// Defaults to 1.
	Radius float64

	// BorderOffset is the fractional radial lift applied to border
	// polylines to avoid z-fighting with the globe surface. Defaults to
	// 0.001.
	BorderOffset float64

	// Progress is an optional callback invoked as each pipeline stage
	// starts: "decode", "analyze", "derive".
	Progress func(stage string)

	// ErrorLog is an optional writer for detailed failure reporting during
	// load. Errors are still returned; this only adds context.
	ErrorLog io.Writer
}

// DefaultLoadOptions returns load options with sensible defaults.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		RasterSize:   2048,
		Workers:      runtime.NumCPU(),
		Radius:       1,
		BorderOffset: 0.001,
	}
}

func (o LoadOptions) withDefaults() LoadOptions {
	def := DefaultLoadOptions()
	if o.RasterSize <= 0 {
		o.RasterSize = def.RasterSize
	}
	if o.Workers <= 0 {
		o.Workers = def.Workers
	}
	if o.Radius <= 0 {
		o.Radius = def.Radius
	}
	if o.BorderOffset <= 0 {
		o.BorderOffset = def.BorderOffset
	}
	return o
}

func (o LoadOptions) progress(stage string) {
	if o.Progress != nil {
		o.Progress(stage)
	}
}

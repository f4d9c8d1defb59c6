package terrapick

import (
	"image"
	"image/png"
	"io"
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// PickRaster answers "which feature contains this surface point" in O(1) by
// sampling a pre-rendered equirectangular bitmap in which every feature
// occupies a unique solid 24-bit color. Built once per load, immutable
// afterward; concurrent reads need no synchronization.
//
// The buffer is row-major RGBA, 4 bytes per pixel in R,G,B,A order, row 0 at
// lat 90 (raster v=0). Alpha is always 255 and carries no information. The
// read path depends only on this byte slice, never on a drawing surface.
type PickRaster struct {
	width  int
	height int
	pix    []uint8
}

// EncodeID packs a feature id into its raster color.
func EncodeID(id int) (r, g, b uint8) {
	return uint8(id >> 16), uint8(id >> 8), uint8(id)
}

// DecodeID unpacks a raster color back into a feature id. Black, the
// "no feature" sentinel, decodes to 0, which is never a valid id.
func DecodeID(r, g, b uint8) int {
	return int(r)<<16 | int(g)<<8 | int(b)
}

// buildRaster renders every feature into a size x size bitmap in ingestion
// order, so where filled regions overlap along shared borders the
// later-rasterized feature wins. Only the outer ring of each sub-polygon is
// filled; hole rings are not subtracted (enclaves pick as their surrounding
// feature).
func buildRaster(features []*Feature, size int) *PickRaster {
	p := &PickRaster{
		width:  size,
		height: size,
		pix:    make([]uint8, size*size*4),
	}
	// Sentinel black, opaque.
	for i := 3; i < len(p.pix); i += 4 {
		p.pix[i] = 0xFF
	}

	for _, f := range features {
		r, g, b := EncodeID(f.id)
		for _, poly := range f.geometry {
			if len(poly) == 0 {
				continue
			}
			p.fillRing(poly[0], r, g, b)
		}
	}
	return p
}

// fillRing runs an even-odd scanline fill over one ring. For each pixel row
// the crossings of the row center line with the ring's edges are collected,
// sorted, and paired into filled spans. A pixel is inside when its center
// falls between a pair of crossings.
func (p *PickRaster) fillRing(ring orb.Ring, r, g, b uint8) {
	n := len(ring)
	if n > 1 && ring[0] == ring[n-1] {
		n-- // closing vertex; the wrap-around edge below covers it
	}
	if n < 3 {
		return
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i := 0; i < n; i++ {
		u, v := EquirectangularUV(ring[i].Lat(), ring[i].Lon())
		xs[i] = u * float64(p.width)
		ys[i] = v * float64(p.height)
		minY = math.Min(minY, ys[i])
		maxY = math.Max(maxY, ys[i])
	}

	y0 := int(math.Floor(minY))
	y1 := int(math.Ceil(maxY))
	if y0 < 0 {
		y0 = 0
	}
	if y1 > p.height-1 {
		y1 = p.height - 1
	}

	var crossings []float64
	for py := y0; py <= y1; py++ {
		yc := float64(py) + 0.5
		crossings = crossings[:0]
		for i := 0; i < n; i++ {
			j := i + 1
			if j == n {
				j = 0
			}
			ya, yb := ys[i], ys[j]
			if ya == yb {
				continue
			}
			// Half-open test counts a crossing exactly once per edge.
			if (yc >= ya) != (yc >= yb) {
				t := (yc - ya) / (yb - ya)
				crossings = append(crossings, xs[i]+t*(xs[j]-xs[i]))
			}
		}
		sort.Float64s(crossings)

		for k := 0; k+1 < len(crossings); k += 2 {
			x0 := int(math.Ceil(crossings[k] - 0.5))
			x1 := int(math.Ceil(crossings[k+1] - 0.5))
			if x0 < 0 {
				x0 = 0
			}
			if x1 > p.width {
				x1 = p.width
			}
			row := (py*p.width + x0) * 4
			for px := x0; px < x1; px++ {
				p.pix[row] = r
				p.pix[row+1] = g
				p.pix[row+2] = b
				row += 4
			}
		}
	}
}

// Pick returns the feature id under a texture-space coordinate, where v
// increases northward (opposite to row order, hence the flip). The second
// result is false over unclaimed pixels.
func (p *PickRaster) Pick(u, v float64) (int, bool) {
	x := int(math.Floor(u * float64(p.width)))
	y := int(math.Floor((1 - v) * float64(p.height)))
	if x < 0 {
		x = 0
	}
	if x > p.width-1 {
		x = p.width - 1
	}
	if y < 0 {
		y = 0
	}
	if y > p.height-1 {
		y = p.height - 1
	}

	i := (y*p.width + x) * 4
	r, g, b := p.pix[i], p.pix[i+1], p.pix[i+2]
	if r == 0 && g == 0 && b == 0 {
		return 0, false
	}
	return DecodeID(r, g, b), true
}

// Width returns the raster width in pixels.
func (p *PickRaster) Width() int { return p.width }

// Height returns the raster height in pixels.
func (p *PickRaster) Height() int { return p.height }

// Pix returns the backing RGBA buffer. Callers must treat it as read-only.
func (p *PickRaster) Pix() []uint8 { return p.pix }

// WritePNG writes the raster as a PNG, which makes fill bugs visible at a
// glance during development.
func (p *PickRaster) WritePNG(w io.Writer) error {
	img := &image.RGBA{
		Pix:    p.pix,
		Stride: p.width * 4,
		Rect:   image.Rect(0, 0, p.width, p.height),
	}
	return png.Encode(w, img)
}

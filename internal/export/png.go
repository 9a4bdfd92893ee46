package export

import (
	"image/color"
	"math"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/piwi3910/polynest/internal/geometry"
	"github.com/piwi3910/polynest/internal/model"
)

// ExportPNG rasterizes the nesting layout to a PNG preview. The sheet is
// scaled to the requested pixel width, keeping aspect ratio; placements are
// filled with the shared palette. The image is flipped so the solver's
// bottom-left origin ends up at the bottom-left of the picture.
func ExportPNG(path string, result model.NestResult, sheet model.Sheet, widthPx int) error {
	if widthPx <= 0 {
		widthPx = 1200
	}
	bounds := sheet.Outline.Bounds()
	scale := float64(widthPx) / bounds.Width()
	heightPx := int(math.Ceil(bounds.Height() * scale))
	if heightPx < 1 {
		heightPx = 1
	}

	img := imaging.New(widthPx, heightPx, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	toPixel := func(pt geometry.Point) (float64, float64) {
		return (pt.X - bounds.MinX) * scale, (bounds.MaxY - pt.Y) * scale
	}

	fillPolygon(img.Pix, widthPx, heightPx, sheet.Outline, toPixel, color.NRGBA{R: 245, G: 240, B: 230, A: 255})

	for i, p := range result.Placements {
		col := colorForInstance(i)
		fillPolygon(img.Pix, widthPx, heightPx, p.Outline, toPixel,
			color.NRGBA{R: uint8(col.R), G: uint8(col.G), B: uint8(col.B), A: 255})
	}

	return imaging.Save(img, path)
}

// fillPolygon scanline-fills the polygon into an NRGBA pixel buffer.
func fillPolygon(pix []uint8, w, h int, poly geometry.Polygon, toPixel func(geometry.Point) (float64, float64), c color.NRGBA) {
	n := len(poly)
	if n < 3 {
		return
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i, pt := range poly {
		xs[i], ys[i] = toPixel(pt)
		minY = math.Min(minY, ys[i])
		maxY = math.Max(maxY, ys[i])
	}

	yStart := int(math.Max(0, math.Floor(minY)))
	yEnd := int(math.Min(float64(h-1), math.Ceil(maxY)))

	var crossings []float64
	for y := yStart; y <= yEnd; y++ {
		cy := float64(y) + 0.5
		crossings = crossings[:0]
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			y1, y2 := ys[i], ys[j]
			if (y1 <= cy && y2 > cy) || (y2 <= cy && y1 > cy) {
				t := (cy - y1) / (y2 - y1)
				crossings = append(crossings, xs[i]+t*(xs[j]-xs[i]))
			}
		}
		sort.Float64s(crossings)

		for k := 0; k+1 < len(crossings); k += 2 {
			x1 := int(math.Max(0, math.Ceil(crossings[k]-0.5)))
			x2 := int(math.Min(float64(w-1), math.Floor(crossings[k+1]-0.5)))
			for x := x1; x <= x2; x++ {
				off := (y*w + x) * 4
				pix[off] = c.R
				pix[off+1] = c.G
				pix[off+2] = c.B
				pix[off+3] = c.A
			}
		}
	}
}

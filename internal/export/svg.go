// Package export writes nesting results to SVG, PNG, PDF, JSON, and
// QR-coded part label formats.
package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/piwi3910/polynest/internal/geometry"
	"github.com/piwi3910/polynest/internal/model"
)

// partColor represents an RGB color for a placed part.
type partColor struct {
	R, G, B int
}

// partColors is the shared palette for SVG, PNG, and PDF rendering. Parts
// cycle through it in placement order.
var partColors = []partColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

func (c partColor) hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// colorForInstance picks a stable palette color for a placement index.
func colorForInstance(i int) partColor {
	return partColors[i%len(partColors)]
}

const svgGridStep = 50.0

// ExportSVG writes the nesting layout as a standalone SVG document. The
// viewBox matches the sheet bounds, so the drawing keeps real-world
// coordinates; a light grid every 50 units helps reading positions off the
// image. The Y axis is flipped so the origin sits at the bottom left, like
// the solver's coordinate system.
func ExportSVG(path string, result model.NestResult, sheet model.Sheet) error {
	var b strings.Builder

	w := sheet.Width()
	h := sheet.Height()
	bounds := sheet.Outline.Bounds()

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%g %g %g %g">`+"\n",
		bounds.MinX, bounds.MinY, w, h)

	// Flip Y once for the whole drawing
	fmt.Fprintf(&b, `<g transform="translate(0,%g) scale(1,-1)">`+"\n", bounds.MinY+bounds.MaxY)

	// Sheet background
	fmt.Fprintf(&b, `<polygon points="%s" fill="#f5f0e6" stroke="#646464" stroke-width="%g"/>`+"\n",
		svgPoints(sheet.Outline), w/600)

	// Grid
	strokeW := w / 1500
	for x := bounds.MinX + svgGridStep; x < bounds.MaxX; x += svgGridStep {
		fmt.Fprintf(&b, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#ddd" stroke-width="%g"/>`+"\n",
			x, bounds.MinY, x, bounds.MaxY, strokeW)
	}
	for y := bounds.MinY + svgGridStep; y < bounds.MaxY; y += svgGridStep {
		fmt.Fprintf(&b, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#ddd" stroke-width="%g"/>`+"\n",
			bounds.MinX, y, bounds.MaxX, y, strokeW)
	}

	// Placed parts
	for i, p := range result.Placements {
		col := colorForInstance(i)
		fmt.Fprintf(&b, `<polygon points="%s" fill="%s" fill-opacity="0.8" stroke="#1e1e1e" stroke-width="%g"/>`+"\n",
			svgPoints(p.Outline), col.hex(), w/1000)

		// Label at the outline centroid, un-flipped so text reads upright
		c := centroid(p.Outline)
		fmt.Fprintf(&b, `<text x="%g" y="%g" font-size="%g" text-anchor="middle" transform="scale(1,-1)">%s</text>`+"\n",
			c.X, -c.Y, w/60, escapeXML(p.Label))
	}

	fmt.Fprintf(&b, "</g>\n")

	// Stats footer
	fmt.Fprintf(&b, `<text x="%g" y="%g" font-size="%g" fill="#505050">%d parts placed, %d unplaced, %.1f%% utilization</text>`+"\n",
		bounds.MinX+w/100, bounds.MaxY-h/100, w/70,
		result.PlacedCount(), len(result.Unplaced), result.UtilizationPercent())

	fmt.Fprintf(&b, "</svg>\n")

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func svgPoints(p geometry.Polygon) string {
	parts := make([]string, len(p))
	for i, pt := range p {
		parts[i] = fmt.Sprintf("%g,%g", pt.X, pt.Y)
	}
	return strings.Join(parts, " ")
}

func centroid(p geometry.Polygon) geometry.Point {
	var c geometry.Point
	if len(p) == 0 {
		return c
	}
	for _, pt := range p {
		c.X += pt.X
		c.Y += pt.Y
	}
	c.X /= float64(len(p))
	c.Y /= float64(len(p))
	return c
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

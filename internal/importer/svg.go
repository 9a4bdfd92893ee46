package importer

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/piwi3910/polynest/internal/geometry"
	"github.com/piwi3910/polynest/internal/model"
)

// svgCurveTolerance is the maximum deviation between a circle or ellipse and
// its polygonal approximation, in document units.
const svgCurveTolerance = 2.0

// svgNode mirrors the SVG element subset the importer understands. Nested
// groups are walked recursively through Children.
type svgNode struct {
	XMLName  xml.Name
	X        string    `xml:"x,attr"`
	Y        string    `xml:"y,attr"`
	Width    string    `xml:"width,attr"`
	Height   string    `xml:"height,attr"`
	CX       string    `xml:"cx,attr"`
	CY       string    `xml:"cy,attr"`
	R        string    `xml:"r,attr"`
	RX       string    `xml:"rx,attr"`
	RY       string    `xml:"ry,attr"`
	Points   string    `xml:"points,attr"`
	D        string    `xml:"d,attr"`
	Children []svgNode `xml:",any"`
}

// ImportSVG imports parts from an SVG file. Supported elements are rect,
// circle, ellipse, polygon, polyline, and path (move/line/close commands
// only); each becomes a separate Part normalized to the origin. Curves in
// paths are not interpolated and produce a warning.
func ImportSVG(path string) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open SVG file: %v", err))
		return result
	}

	var root svgNode
	if err := xml.Unmarshal(data, &root); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid SVG: %v", err))
		return result
	}

	var outlines []geometry.Polygon
	collectSVGShapes(root, &outlines, &result.Warnings)

	if len(outlines) == 0 {
		result.Errors = append(result.Errors, "No closed shapes found in SVG file")
		return result
	}

	partNum := 0
	for _, outline := range outlines {
		partNum++
		b := outline.Bounds()
		normalized := outline.Translate(-b.MinX, -b.MinY)

		if err := normalized.Validate(); err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Skipped degenerate shape (%.2f x %.2f)", b.Width(), b.Height()))
			continue
		}

		part := model.NewPart(fmt.Sprintf("SVG Part %d", partNum), normalized.CCW(), 1)
		result.Parts = append(result.Parts, part)
	}

	return result
}

// collectSVGShapes walks the element tree depth first, converting every
// recognized shape to a polygon.
func collectSVGShapes(node svgNode, outlines *[]geometry.Polygon, warnings *[]string) {
	switch node.XMLName.Local {
	case "rect":
		if p, ok := rectToPolygon(node); ok {
			*outlines = append(*outlines, p)
		}
	case "circle":
		if p, ok := circleNodeToPolygon(node); ok {
			*outlines = append(*outlines, p)
		}
	case "ellipse":
		if p, ok := ellipseToPolygon(node); ok {
			*outlines = append(*outlines, p)
		}
	case "polygon", "polyline":
		if p, ok := parsePointsAttr(node.Points); ok {
			*outlines = append(*outlines, p)
		}
	case "path":
		p, hasCurves := pathToPolygon(node.D)
		if hasCurves {
			*warnings = append(*warnings, "Path contains curve commands, using straight segments between anchors")
		}
		if len(p) >= 3 {
			*outlines = append(*outlines, p)
		}
	}

	for _, child := range node.Children {
		collectSVGShapes(child, outlines, warnings)
	}
}

func svgFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "mm")), 64)
	if err != nil {
		return 0
	}
	return v
}

func rectToPolygon(n svgNode) (geometry.Polygon, bool) {
	x, y := svgFloat(n.X), svgFloat(n.Y)
	w, h := svgFloat(n.Width), svgFloat(n.Height)
	if w <= 0 || h <= 0 {
		return nil, false
	}
	return geometry.Polygon{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y + h},
		{X: x, Y: y + h},
	}, true
}

// arcSegments picks the polygon resolution so the chord error stays under
// the curve tolerance.
func arcSegments(r float64) int {
	if r <= svgCurveTolerance {
		return 8
	}
	n := int(math.Ceil(2 * math.Pi / math.Acos(1-svgCurveTolerance/r)))
	if n < 8 {
		n = 8
	}
	return n
}

func circleNodeToPolygon(n svgNode) (geometry.Polygon, bool) {
	cx, cy, r := svgFloat(n.CX), svgFloat(n.CY), svgFloat(n.R)
	if r <= 0 {
		return nil, false
	}
	segments := arcSegments(r)
	p := make(geometry.Polygon, segments)
	for i := 0; i < segments; i++ {
		angle := 2 * math.Pi * float64(i) / float64(segments)
		p[i] = geometry.Point{X: cx + r*math.Cos(angle), Y: cy + r*math.Sin(angle)}
	}
	return p, true
}

func ellipseToPolygon(n svgNode) (geometry.Polygon, bool) {
	cx, cy := svgFloat(n.CX), svgFloat(n.CY)
	rx, ry := svgFloat(n.RX), svgFloat(n.RY)
	if rx <= 0 || ry <= 0 {
		return nil, false
	}
	segments := arcSegments(math.Max(rx, ry))
	p := make(geometry.Polygon, segments)
	for i := 0; i < segments; i++ {
		angle := 2 * math.Pi * float64(i) / float64(segments)
		p[i] = geometry.Point{X: cx + rx*math.Cos(angle), Y: cy + ry*math.Sin(angle)}
	}
	return p, true
}

// parsePointsAttr parses the points attribute of polygon and polyline
// elements: coordinate pairs separated by commas or whitespace.
func parsePointsAttr(s string) (geometry.Polygon, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) < 6 || len(fields)%2 != 0 {
		return nil, false
	}
	p := make(geometry.Polygon, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		x, errX := strconv.ParseFloat(fields[i], 64)
		y, errY := strconv.ParseFloat(fields[i+1], 64)
		if errX != nil || errY != nil {
			return nil, false
		}
		p = append(p, geometry.Point{X: x, Y: y})
	}
	return p, true
}

var pathCommandRe = regexp.MustCompile(`[MmLlHhVvZzCcSsQqTtAa][^MmLlHhVvZzCcSsQqTtAa]*`)
var pathNumberRe = regexp.MustCompile(`-?\d*\.?\d+(?:[eE][-+]?\d+)?`)

// pathToPolygon converts a path's move, line, horizontal, vertical, and
// close commands to a polygon. Curve commands contribute only their final
// anchor point; hasCurves reports whether any were encountered.
func pathToPolygon(d string) (geometry.Polygon, bool) {
	var p geometry.Polygon
	hasCurves := false
	var cur geometry.Point

	for _, command := range pathCommandRe.FindAllString(d, -1) {
		cmd := command[0]
		params := pathNumberRe.FindAllString(command[1:], -1)
		nums := make([]float64, len(params))
		for i, s := range params {
			nums[i], _ = strconv.ParseFloat(s, 64)
		}

		switch cmd {
		case 'M', 'L':
			for i := 0; i+1 < len(nums); i += 2 {
				cur = geometry.Point{X: nums[i], Y: nums[i+1]}
				p = append(p, cur)
			}
		case 'm', 'l':
			for i := 0; i+1 < len(nums); i += 2 {
				cur = geometry.Point{X: cur.X + nums[i], Y: cur.Y + nums[i+1]}
				p = append(p, cur)
			}
		case 'H':
			for _, v := range nums {
				cur.X = v
				p = append(p, cur)
			}
		case 'h':
			for _, v := range nums {
				cur.X += v
				p = append(p, cur)
			}
		case 'V':
			for _, v := range nums {
				cur.Y = v
				p = append(p, cur)
			}
		case 'v':
			for _, v := range nums {
				cur.Y += v
				p = append(p, cur)
			}
		case 'Z', 'z':
			// The polygon closes implicitly; nothing to add.
		case 'C', 'S', 'Q', 'T', 'A':
			hasCurves = true
			if len(nums) >= 2 {
				cur = geometry.Point{X: nums[len(nums)-2], Y: nums[len(nums)-1]}
				p = append(p, cur)
			}
		case 'c', 's', 'q', 't', 'a':
			hasCurves = true
			if len(nums) >= 2 {
				cur = geometry.Point{X: cur.X + nums[len(nums)-2], Y: cur.Y + nums[len(nums)-1]}
				p = append(p, cur)
			}
		}
	}
	return p, hasCurves
}

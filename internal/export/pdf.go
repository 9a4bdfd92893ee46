package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/polynest/internal/geometry"
	"github.com/piwi3910/polynest/internal/model"
)

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	statsHeight  = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// ExportPDF generates a PDF report of the nesting result: a layout page
// with the placed outlines drawn to scale, followed by a summary page.
func ExportPDF(path string, result model.NestResult, sheet model.Sheet) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	pdf.AddPage()
	renderLayoutPage(pdf, result, sheet)

	pdf.AddPage()
	renderSummaryPage(pdf, result, sheet)

	return pdf.OutputFileAndClose(path)
}

// renderLayoutPage draws the sheet and every placed outline on the current
// PDF page. Sheet coordinates have Y growing upward, the page has Y growing
// downward, so the drawing is flipped around the sheet's vertical center.
func renderLayoutPage(pdf *fpdf.Fpdf, result model.NestResult, sheet model.Sheet) {
	bounds := sheet.Outline.Bounds()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Sheet: %s (%.0f x %.0f %s)", sheet.Label, sheet.Width(), sheet.Height(), sheet.Units)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Parts placed: %d | Unplaced: %d | Utilization: %.1f%%",
		result.PlacedCount(), len(result.Unplaced), result.UtilizationPercent())
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - statsHeight

	scale := math.Min(drawWidth/sheet.Width(), drawHeight/sheet.Height())
	canvasW := sheet.Width() * scale
	canvasH := sheet.Height() * scale
	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	toPage := func(pt geometry.Point) fpdf.PointType {
		return fpdf.PointType{
			X: offsetX + (pt.X-bounds.MinX)*scale,
			Y: offsetY + (bounds.MaxY-pt.Y)*scale,
		}
	}

	// Sheet outline
	pdf.SetFillColor(245, 240, 230)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Polygon(toPagePoints(sheet.Outline, toPage), "FD")

	// Placed parts
	for i, p := range result.Placements {
		col := colorForInstance(i)
		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.3)
		pdf.Polygon(toPagePoints(p.Outline, toPage), "FD")

		pb := p.Outline.Bounds()
		pw := pb.Width() * scale
		ph := pb.Height() * scale
		if pw > 12 && ph > 6 {
			pdf.SetFont("Helvetica", "", labelFontSize(pw, ph))
			pdf.SetTextColor(0, 0, 0)
			label := p.Label
			if labelW := pdf.GetStringWidth(label); labelW < pw-2 {
				center := toPage(centroid(p.Outline))
				pdf.SetXY(center.X-labelW/2, center.Y-2)
				pdf.CellFormat(labelW, 4, label, "", 0, "C", false, 0, "")
			}
		}
	}

	drawDimensionAnnotations(pdf, sheet, offsetX, offsetY, canvasW, canvasH)
	drawPartsLegend(pdf, result, offsetY+canvasH+5)
}

func toPagePoints(p geometry.Polygon, toPage func(geometry.Point) fpdf.PointType) []fpdf.PointType {
	out := make([]fpdf.PointType, len(p))
	for i, pt := range p {
		out[i] = toPage(pt)
	}
	return out
}

// drawDimensionAnnotations adds width and height labels outside the sheet.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, sheet model.Sheet, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	widthLabel := fmt.Sprintf("%.0f %s", sheet.Width(), sheet.Units)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(offsetX+(canvasW-wLabelW)/2, offsetY+canvasH+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	heightLabel := fmt.Sprintf("%.0f %s", sheet.Height(), sheet.Units)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	hLabelW := pdf.GetStringWidth(heightLabel)
	pdf.SetXY(offsetX-3-hLabelW/2, offsetY+canvasH/2-2)
	pdf.CellFormat(hLabelW, 4, heightLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawPartsLegend renders a compact legend of placed parts at the bottom of
// the layout page.
func drawPartsLegend(pdf *fpdf.Fpdf, result model.NestResult, startY float64) {
	if len(result.Placements) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Parts placed:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for i, p := range result.Placements {
		col := colorForInstance(i)
		label := fmt.Sprintf("%s #%d", p.Label, p.Instance+1)
		if p.Rotation != 0 {
			label += fmt.Sprintf(" @%.0f\xb0", p.Rotation)
		}
		labelW := pdf.GetStringWidth(label) + 6

		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")

		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
}

// renderSummaryPage draws the final page with overall statistics and the
// unplaced part list.
func renderSummaryPage(pdf *fpdf.Fpdf, result model.NestResult, sheet model.Sheet) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Nesting Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	placedBounds := result.PlacedBounds()
	summaryItems := []struct {
		label string
		value string
	}{
		{"Sheet", fmt.Sprintf("%s (%.0f x %.0f %s)", sheet.Label, sheet.Width(), sheet.Height(), sheet.Units)},
		{"Parts Placed", fmt.Sprintf("%d", result.PlacedCount())},
		{"Unplaced Parts", fmt.Sprintf("%d", len(result.Unplaced))},
		{"Utilization", fmt.Sprintf("%.1f%%", result.UtilizationPercent())},
		{"Used Envelope", fmt.Sprintf("%.0f x %.0f %s", placedBounds.Width(), placedBounds.Height(), sheet.Units)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(100, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	if len(result.Unplaced) > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Unplaced Parts", "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, part := range result.Unplaced {
			pdf.SetXY(marginLeft+5, y)
			text := fmt.Sprintf("- %s (copy %d)", part.Label, part.Instance+1)
			pdf.CellFormat(200, 5, text, "", 0, "L", false, 0, "")
			y += 5
		}
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by PolyNest - Polygon Nesting Optimizer", "", 0, "C", false, 0, "")
}

// labelFontSize returns an appropriate font size based on the rectangle
// dimensions in page units.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}

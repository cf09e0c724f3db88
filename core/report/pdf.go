package report

import (
	"io"

	"github.com/jung-kurt/gofpdf"
)

var pdfColWidths = []float64{62, 17, 17, 17, 17, 30, 30, 30, 30}

func renderPDF(w io.Writer, t Table) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("") // cp1252
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr(t.Title))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	for _, line := range t.Header {
		pdf.Cell(0, 6, tr(line))
		pdf.Ln(6)
	}

	for _, s := range t.Sections {
		pdf.Ln(4)
		if s.Title != "" {
			pdf.SetFont("Arial", "B", 12)
			pdf.Cell(0, 8, tr(s.Title))
			pdf.Ln(8)
		}

		// header
		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(40, 145, 108)
		pdf.SetTextColor(255, 255, 255)
		for i, col := range Columns {
			pdf.CellFormat(pdfColWidths[i], 8, col, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)

		pdf.SetFont("Arial", "", 9)
		pdf.SetFillColor(245, 245, 245)
		for n, row := range s.Rows {
			fill := n%2 == 0
			for i, cell := range Cells(row) {
				align := "C"
				if i == 0 {
					align = "L"
				}
				pdf.CellFormat(pdfColWidths[i], 7, tr(cell), "1", 0, align, fill, 0, "")
			}
			pdf.Ln(-1)
		}

		pdf.SetFont("Arial", "B", 9)
		for i, cell := range s.TotalCells() {
			pdf.CellFormat(pdfColWidths[i], 7, cell, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}

package importer

import (
	"bytes"
	"fmt"

	"voteflow-backend/internal/models"
	"voteflow-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

// Report renders an import's results as a one-page PDF.
func Report(fileName string, res models.ImportResult) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "VoteFlow - Member Import Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.Now().Format(timeutil.DisplayLayout)), "", 1, "C", false, 0, "")
	if fileName != "" {
		pdf.CellFormat(190, 6, fmt.Sprintf("File: %s", fileName), "", 1, "C", false, 0, "")
	}
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(190, 8, "Summary", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.SetFillColor(200, 255, 200)
	pdf.CellFormat(95, 8, fmt.Sprintf("Imported: %d", res.Success), "1", 0, "C", true, 0, "")
	pdf.SetFillColor(255, 200, 200)
	pdf.CellFormat(95, 8, fmt.Sprintf("Failed: %d", res.Failed), "1", 1, "C", true, 0, "")
	pdf.Ln(5)

	if len(res.Errors) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(190, 8, "Errors", "1", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, e := range res.Errors {
			pdf.CellFormat(190, 6, e, "1", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

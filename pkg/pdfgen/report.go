package pdfgen

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ReportData carries everything the service report PDF renders.
type ReportData struct {
	ReportID          string
	CreatedAt         time.Time
	ServiceTypeName   string
	CustomerName      string
	CustomerAddress   string
	CustomerContact   string
	CustomerEmail     string
	ModelNo           string
	SerialNo          string
	Problem           string
	Solution          string
	ServicePersonName string
}

var serviceTypes = []string{"Paid", "Health Check", "Warranty", "AMC"}

// Render produces the service report PDF following the company template:
// letterhead, reference line, customer block, nature-of-service boxes,
// product details, complaint and action sections.
func Render(data ReportData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	// Letterhead
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(130, 5, "BRAND Scientific Equipment Pvt. Ltd.", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 5, "BRAND", "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, line := range []string{
		"304, 3rd Floor - G - Wing",
		"Dolphin, Himmatinagar Business Park",
		"Powai, Mumbai - 400076 (INDIA)",
		"Tel: +91 22 42957730",
	} {
		pdf.CellFormat(0, 4.5, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	// Title
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 8, "SERVICE REPORT", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Reference line
	ref := strings.ToUpper(data.ReportID)
	if len(ref) > 8 {
		ref = ref[:8]
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(85, 6, fmt.Sprintf("Ref No: %s", ref), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Date: %s", data.CreatedAt.Format("02/01/2006")), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	// Customer block
	writeHeading(pdf, "Customer Name:")
	writeValue(pdf, data.CustomerName)
	writeHeading(pdf, "Address:")
	writeValue(pdf, data.CustomerAddress)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(35, 6, "Contact No.:", "", 0, "L", false, 0, "")
	pdf.CellFormat(50, 6, orNA(data.CustomerContact), "", 0, "L", false, 0, "")
	pdf.CellFormat(20, 6, "Email:", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, orNA(data.CustomerEmail), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	// Nature of service with a checked box for the report's type
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(45, 6, "Nature of Service:", "", 0, "L", false, 0, "")
	for _, st := range serviceTypes {
		mark := "[ ]"
		if strings.Contains(strings.ToLower(data.ServiceTypeName), strings.ToLower(strings.Fields(st)[0])) {
			mark = "[X]"
		}
		pdf.CellFormat(32, 6, fmt.Sprintf("%s %s", st, mark), "", 0, "L", false, 0, "")
	}
	pdf.Ln(12)

	// Product details
	writeHeading(pdf, "Product Details")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(30, 6, "Model No:", "", 0, "L", false, 0, "")
	pdf.CellFormat(55, 6, orNA(data.ModelNo), "", 0, "L", false, 0, "")
	pdf.CellFormat(35, 6, "Sr. No. / Mfg:", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, orNA(data.SerialNo), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	// Complaint
	writeHeading(pdf, "Complaint:")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, orDefault(data.Problem, "No complaint specified"), "", "L", false)
	pdf.Ln(20)

	// Observation / action
	writeHeading(pdf, "Observation / Action:")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, orDefault(data.Solution, "No action specified"), "", "L", false)
	pdf.Ln(20)

	if data.ServicePersonName != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Service Engineer: %s", data.ServicePersonName), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render service report PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeading(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, text, "", 1, "L", false, 0, "")
}

func writeValue(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, orNA(text), "", "L", false)
	pdf.Ln(3)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

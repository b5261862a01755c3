// Package export renders stored reports as downloadable text and PDF files.
package export

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypePDF  = "application/pdf"

	pdfFont       = "Helvetica"
	pdfFontSize   = 10.0
	pdfLeft       = 40.0
	pdfFirstLine  = 50.0
	pdfLinePitch  = 12.0
	pdfPageHeight = 841.89
)

// Text returns the report exactly as stored.
func Text(report string) []byte {
	return []byte(report)
}

// PDF writes each line of the report onto a single A4 page, top to bottom.
// Lines are not wrapped or styled; lines past the bottom edge are dropped.
func PDF(report string) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(pdfLeft, pdfFirstLine, pdfLeft)
	pdf.AddPage()
	pdf.SetFont(pdfFont, "", pdfFontSize)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	y := pdfFirstLine
	for _, line := range Lines(report) {
		if y > pdfPageHeight {
			break
		}
		if line != "" {
			pdf.Text(pdfLeft, y, tr(line))
		}
		y += pdfLinePitch
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Lines splits a report on newlines. A trailing carriage return is kept out of the rendered text.
func Lines(report string) []string {
	if report == "" {
		return nil
	}
	lines := strings.Split(report, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// MaxPDFLines is how many lines fit on the exported page.
func MaxPDFLines() int {
	usable := (pdfPageHeight - pdfFirstLine) / pdfLinePitch
	return int(math.Floor(usable)) + 1
}

// TextFileName is the download name of the plain-text export.
func TextFileName(fileName string) string {
	return fileName + "_report.txt"
}

// PDFFileName is the download name of the PDF export.
func PDFFileName(fileName string) string {
	return fileName + "_report.pdf"
}

package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// A4 portrait geometry in millimetres.
const (
	PageWidth  = 210.0
	PageHeight = 297.0
	Margin     = 10.0
)

// PageOffsets returns the vertical position of an image of imgHeight on each
// physical page it spans. The first page places it at the top margin; each
// following page shifts it up by one printable page height until the whole
// image has been shown.
func PageOffsets(imgHeight, pageHeight, margin float64) []float64 {
	printable := pageHeight - 2*margin
	if printable <= 0 {
		return []float64{margin}
	}
	offsets := []float64{margin}
	left := imgHeight - printable
	for left > 0 {
		offsets = append(offsets, margin-(imgHeight-left))
		left -= printable
	}
	return offsets
}

func compose(images []Image) (*fpdf.Fpdf, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(Margin, Margin, Margin)
	pdf.SetAutoPageBreak(false, Margin)

	width := PageWidth - 2*Margin
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	for i, img := range images {
		if img.Width <= 0 || img.Height <= 0 {
			return nil, fmt.Errorf("page %d: empty raster", i+1)
		}
		name := fmt.Sprintf("page-%d", i+1)
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.PNG))
		height := float64(img.Height) * width / float64(img.Width)

		for _, y := range PageOffsets(height, PageHeight, Margin) {
			pdf.AddPage()
			pdf.ImageOptions(name, Margin, y, width, height, false, opts, 0, "")
		}
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("compose pdf: %w", err)
	}
	return pdf, nil
}

// WritePDF places each image on its own run of A4 pages and writes the document.
func WritePDF(w io.Writer, images []Image) error {
	pdf, err := compose(images)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// Package export renders a read-only submission to an image-based PDF: each
// logical page is rasterized in a headless browser and placed on A4 pages,
// spilling onto further pages when taller than one.
package export

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"intakedesk/internal/intake/models"
)

// Image is one rasterized logical page.
type Image struct {
	PNG    []byte
	Width  int
	Height int
}

// Rasterizer turns a standalone HTML document into a PNG.
type Rasterizer interface {
	Rasterize(ctx context.Context, html []byte) (Image, error)
}

// PageRenderer renders the logical pages of a submission as HTML documents.
type PageRenderer interface {
	ExportPages(v models.SubmissionView) ([][]byte, error)
}

// Exporter composes the PDF for one submission.
type Exporter struct {
	pages  PageRenderer
	raster Rasterizer
}

func New(pages PageRenderer, raster Rasterizer) *Exporter {
	return &Exporter{pages: pages, raster: raster}
}

// Export renders, rasterizes and paginates v.
func (e *Exporter) Export(ctx context.Context, v models.SubmissionView) ([]byte, error) {
	docs, err := e.pages.ExportPages(v)
	if err != nil {
		return nil, err
	}

	images := make([]Image, 0, len(docs))
	for i, doc := range docs {
		img, err := e.raster.Rasterize(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("rasterize page %d: %w", i+1, err)
		}
		images = append(images, img)
	}

	var buf bytes.Buffer
	if err := WritePDF(&buf, images); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var (
	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_. ]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// Filename is the download name: submission_<name>_<id>.pdf, with the name
// reduced to letters, digits, "-", "_", "." and spaces folded to "_".
func Filename(v models.SubmissionView) string {
	name := v.FullName
	if name == "" {
		name = "submission"
	}
	name = strings.TrimSpace(name)
	name = unsafeNameChars.ReplaceAllString(name, "")
	name = whitespaceRun.ReplaceAllString(name, "_")
	return fmt.Sprintf("submission_%s_%s.pdf", name, v.ID)
}

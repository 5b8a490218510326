package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intakedesk/internal/intake/models"
)

func pngOf(t *testing.T, w, h int) Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, 0, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	decoded, err := DecodeImage(buf.Bytes())
	require.NoError(t, err)
	return decoded
}

func TestPageOffsets(t *testing.T) {
	printable := PageHeight - 2*Margin

	assert.Equal(t, []float64{Margin}, PageOffsets(100, PageHeight, Margin), "fits on one page")
	assert.Equal(t, []float64{Margin}, PageOffsets(printable, PageHeight, Margin), "exactly one page")

	got := PageOffsets(printable*2.5, PageHeight, Margin)
	require.Len(t, got, 3)
	assert.InDelta(t, Margin, got[0], 1e-9)
	assert.InDelta(t, Margin-printable, got[1], 1e-9)
	assert.InDelta(t, Margin-2*printable, got[2], 1e-9)
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name     string
		fullName string
		want     string
	}{
		{name: "spaces fold", fullName: "  Lauris   Bawar ", want: "submission_Lauris_Bawar_abc.pdf"},
		{name: "unsafe characters dropped", fullName: "José/O'Neil <x>", want: "submission_JosONeil_x_abc.pdf"},
		{name: "missing name", fullName: "", want: "submission_submission_abc.pdf"},
		{name: "keeps dots and dashes", fullName: "A.B-C_d", want: "submission_A.B-C_d_abc.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(models.SubmissionView{ID: "abc", FullName: tt.fullName}))
		})
	}
}

func TestComposePaginatesTallPages(t *testing.T) {
	short := pngOf(t, 380, 200) // 190mm wide -> 100mm tall
	tall := pngOf(t, 380, 1200) // -> 600mm tall, three pages

	pdf, err := compose([]Image{short, tall})
	require.NoError(t, err)
	assert.Equal(t, 4, pdf.PageCount())

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, []Image{short}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestComposeRejectsEmptyRaster(t *testing.T) {
	_, err := compose([]Image{{}})
	assert.Error(t, err)
}

type fakePages struct {
	pages [][]byte
	err   error
}

func (f fakePages) ExportPages(models.SubmissionView) ([][]byte, error) { return f.pages, f.err }

type fakeRaster struct {
	img  Image
	err  error
	seen [][]byte
}

func (f *fakeRaster) Rasterize(_ context.Context, html []byte) (Image, error) {
	f.seen = append(f.seen, html)
	return f.img, f.err
}

func TestExporter(t *testing.T) {
	t.Run("rasterizes each page in order", func(t *testing.T) {
		raster := &fakeRaster{img: pngOf(t, 100, 50)}
		e := New(fakePages{pages: [][]byte{[]byte("one"), []byte("two")}}, raster)

		out, err := e.Export(context.Background(), models.SubmissionView{ID: "x"})

		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
		assert.Equal(t, [][]byte{[]byte("one"), []byte("two")}, raster.seen)
	})

	t.Run("raster failure surfaces", func(t *testing.T) {
		e := New(fakePages{pages: [][]byte{[]byte("one")}}, &fakeRaster{err: errors.New("chrome gone")})
		_, err := e.Export(context.Background(), models.SubmissionView{})
		assert.ErrorContains(t, err, "chrome gone")
	})

	t.Run("render failure surfaces", func(t *testing.T) {
		e := New(fakePages{err: errors.New("bad template")}, &fakeRaster{})
		_, err := e.Export(context.Background(), models.SubmissionView{})
		assert.ErrorContains(t, err, "bad template")
	})
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, err := DecodeImage([]byte("not a png"))
	assert.Error(t, err)
}

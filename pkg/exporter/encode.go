package exporter

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Format selects the encoding of the exported file.
type Format string

const (
	// FormatPNG writes a lossless PNG (default)
	FormatPNG Format = "png"

	// FormatPDF embeds the PNG into a single-page PDF
	FormatPDF Format = "pdf"
)

// ParseFormat validates a user supplied format name. Empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (must be 'png' or 'pdf')", s)
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	if f == FormatPDF {
		return "pdf"
	}
	return "png"
}

// MIMEType returns the media type of the encoded payload.
func (f Format) MIMEType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "image/png"
}

// Encode serializes img in the given format.
func Encode(img image.Image, format Format) ([]byte, error) {
	switch format {
	case "", FormatPNG:
		return encodePNG(img)
	case FormatPDF:
		return encodePDF(img)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func encodePDF(img image.Image) ([]byte, error) {
	pngData, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	imp := pdfcpu.DefaultImportConfig()
	conf := model.NewDefaultConfiguration()
	if err := api.ImportImages(nil, &out, []io.Reader{bytes.NewReader(pngData)}, imp, conf); err != nil {
		return nil, fmt.Errorf("failed to build pdf: %w", err)
	}
	return out.Bytes(), nil
}

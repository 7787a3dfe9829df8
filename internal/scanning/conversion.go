package scanning

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// pdfRenderDPI keeps small receipt print legible after rasterizing
const pdfRenderDPI = 300

// uploadKind is the decoder an upload needs
type uploadKind int

const (
	kindRaster uploadKind = iota
	kindPNG
	kindPDF
	kindHEIC
)

// classifyUpload trusts magic bytes over the declared content type
func classifyUpload(data []byte, contentType string) uploadKind {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")) || mimeType == "application/pdf":
		return kindPDF
	case isHEICFormat(data) || isHEICMimeType(mimeType):
		return kindHEIC
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return kindPNG
	default:
		return kindRaster
	}
}

// decodeUpload turns any supported upload into an image. Only the first page
// of a PDF is rendered.
func decodeUpload(data []byte, kind uploadKind) (image.Image, error) {
	switch kind {
	case kindPDF:
		doc, err := fitz.NewFromMemory(data)
		if err != nil {
			return nil, fmt.Errorf("opening PDF: %w", err)
		}
		defer doc.Close()

		img, err := doc.ImageDPI(0, pdfRenderDPI)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page: %w", err)
		}
		return img, nil
	case kindHEIC:
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	default:
		// Phone photos carry their rotation in EXIF
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("unsupported image (JPEG, PNG, GIF, HEIC, HEIF and PDF are accepted): %w", err)
		}
		return img, nil
	}
}

// isHEICFormat looks for an ftyp box with a HEIC/HEIF brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// enhanceForOCR boosts contrast and sharpness so printed receipt text
// separates from thermal-paper noise
func enhanceForOCR(src image.Image) image.Image {
	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustBrightness(img, 10)
	return imaging.AdjustGamma(img, 1.2)
}

// preparePNG converts the upload to PNG and optionally enhances it for OCR.
// A PNG that needs no enhancement is passed through untouched.
func preparePNG(data []byte, contentType string, enhance bool) ([]byte, error) {
	kind := classifyUpload(data, contentType)
	if kind == kindPNG && !enhance {
		return data, nil
	}

	img, err := decodeUpload(data, kind)
	if err != nil {
		return nil, err
	}
	if enhance {
		img = enhanceForOCR(img)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

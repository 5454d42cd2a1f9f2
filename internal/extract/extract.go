package extract

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"labreport-backend/internal/ocr"
)

// FileKind identifies the accepted input document families.
type FileKind string

const (
	KindPDF   FileKind = "pdf"
	KindImage FileKind = "image"
)

const (
	mimePDF         = "application/pdf"
	imageMimePrefix = "image/"

	// DefaultMinTextLen is the floor on normalized text length below
	// which extraction is treated as failed.
	DefaultMinTextLen = 10
)

// Extractor converts PDF and raster-image payloads into normalized plain text.
// Image inputs are delegated to the configured OCR client.
type Extractor struct {
	OCR        ocr.Client
	MinTextLen int
}

// New constructs an Extractor with the given OCR client and threshold.
// A non-positive minTextLen falls back to DefaultMinTextLen.
func New(ocrClient ocr.Client, minTextLen int) *Extractor {
	if minTextLen <= 0 {
		minTextLen = DefaultMinTextLen
	}
	if ocrClient == nil {
		ocrClient = ocr.Placeholder{}
	}
	return &Extractor{OCR: ocrClient, MinTextLen: minTextLen}
}

// Extract pulls text from an in-memory payload. The returned text is
// normalized; an error of type *Error reports unsupported MIME types
// and too-little-text failures.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType string) (string, FileKind, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	kind, ok := kindForMime(mimeType)
	if !ok {
		return "", "", &Error{
			Kind:   KindUnsupportedType,
			Reason: "unsupported file type: " + normalizeMime(mimeType) + " (only PDF and image files are accepted)",
		}
	}

	var raw string
	var err error
	switch kind {
	case KindPDF:
		raw, err = extractPDF(data)
		if err != nil {
			return "", kind, &Error{Kind: KindNoText, Reason: "could not read PDF text: " + err.Error(), Err: err}
		}
	case KindImage:
		raw, err = e.OCR.RecognizeText(ctx, data, normalizeMime(mimeType))
		if err != nil {
			return "", kind, &Error{Kind: KindNoText, Reason: "image text recognition failed: " + err.Error(), Err: err}
		}
	}

	text := Normalize(raw)
	if len(text) < e.MinTextLen {
		return "", kind, &Error{Kind: KindNoText, Reason: tooLittleTextReason(kind)}
	}
	return text, kind, nil
}

func tooLittleTextReason(kind FileKind) string {
	if kind == KindPDF {
		return "no selectable text found in PDF; the document is likely scanned or image-based"
	}
	return "no readable text detected in image"
}

var (
	disallowedChars = regexp.MustCompile(`[^\w\s.,;:%'"()<>/=+-]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// Normalize collapses whitespace runs to single spaces, strips characters
// outside the allow-list, and trims the result.
func Normalize(raw string) string {
	cleaned := disallowedChars.ReplaceAllString(raw, " ")
	collapsed := whitespaceRuns.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(collapsed)
}

func kindForMime(mimeType string) (FileKind, bool) {
	clean := normalizeMime(mimeType)
	switch {
	case clean == mimePDF:
		return KindPDF, true
	case strings.HasPrefix(clean, imageMimePrefix):
		return KindImage, true
	default:
		return "", false
	}
}

func normalizeMime(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

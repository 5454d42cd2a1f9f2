package ocr

import (
	"context"
	"errors"
)

// Client extracts text from raster images.
type Client interface {
	RecognizeText(ctx context.Context, image []byte, mimeType string) (string, error)
	Close() error
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("OCR not configured")

// Placeholder is a stub implementation used when no OCR provider is wired.
type Placeholder struct{}

// RecognizeText returns ErrNotConfigured.
func (Placeholder) RecognizeText(ctx context.Context, image []byte, mimeType string) (string, error) {
	_ = ctx
	_ = image
	_ = mimeType
	return "", ErrNotConfigured
}

// Close is a no-op.
func (Placeholder) Close() error { return nil }

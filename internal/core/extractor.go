package core

import (
	"context"
)

// TextExtractor turns a stored document into plain text. The HTTP OCR client
// and the local docconv extractor both satisfy it.
type TextExtractor interface {
	// ExtractText receives the original filename so backends can pick a parser
	// from its extension.
	ExtractText(ctx context.Context, filename string, data []byte) (string, error)
}

package aiclient

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/markdave123-py/Lumen/internal/core"
)

type ocrResponse struct {
	Success       *bool  `json:"success"`
	Message       string `json:"message"`
	ExtractedText string `json:"extracted_text"`
}

// ExtractText uploads the document to the OCR service as a multipart "file".
func (c *Client) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	const op = "ocr"

	var out ocrResponse
	err := c.exec.Execute(ctx, op, func(ctx context.Context) error {
		return postMultipart(ctx, c.httpClient, c.ocrURL, "file", filepath.Base(filename), data, &out, op)
	}, countsAgainstBreaker)
	if err != nil {
		return "", wrapUpstream(op, err)
	}

	if out.Success != nil && !*out.Success {
		msg := strings.TrimSpace(out.Message)
		if msg == "" {
			msg = "ocr service reported failure"
		}
		return "", core.NewError(core.ErrUpstreamUnavailable, op, msg)
	}
	if strings.TrimSpace(out.ExtractedText) == "" {
		return "", core.NewError(core.ErrUpstreamMalformed, op, "no text extracted")
	}
	return out.ExtractedText, nil
}

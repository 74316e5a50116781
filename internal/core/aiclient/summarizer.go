package aiclient

import (
	"context"
	"strings"

	"github.com/markdave123-py/Lumen/internal/core"
)

type summarizeRequest struct {
	VideoURL string `json:"video_url"`
}

type summarizeResponse struct {
	Summary  string `json:"summary"`
	Analysis string `json:"analysis"`
}

// Summarize asks the summarization service for a summary of videoURL.
func (c *Client) Summarize(ctx context.Context, videoURL string) (string, error) {
	const op = "summarize"

	var out summarizeResponse
	err := c.exec.Execute(ctx, op, func(ctx context.Context) error {
		return postJSON(ctx, c.httpClient, c.summarizerURL, summarizeRequest{VideoURL: videoURL}, &out, op)
	}, countsAgainstBreaker)
	if err != nil {
		return "", wrapUpstream(op, err)
	}

	summary := out.Summary
	if strings.TrimSpace(summary) == "" {
		summary = out.Analysis
	}
	if strings.TrimSpace(summary) == "" {
		return "", core.NewError(core.ErrUpstreamMalformed, op, "response carries no summary")
	}
	return summary, nil
}

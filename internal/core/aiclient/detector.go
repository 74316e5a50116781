package aiclient

import (
	"context"
	"net/url"
	"strings"

	"github.com/markdave123-py/Lumen/internal/core"
)

type detectionStartRequest struct {
	VideoURL  string `json:"video_url"`
	SessionID string `json:"session_id"`
}

type detectionStartResponse struct {
	Success   *bool  `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// StartDetection submits a detection job. The detector keys its results by
// jobKey, which is the video id.
func (c *Client) StartDetection(ctx context.Context, videoURL, jobKey string) error {
	const op = "detector.start"

	var out detectionStartResponse
	err := c.exec.Execute(ctx, op, func(ctx context.Context) error {
		return postJSON(ctx, c.httpClient, c.detectorURL+"/process_video",
			detectionStartRequest{VideoURL: videoURL, SessionID: jobKey}, &out, op)
	}, countsAgainstBreaker)
	if err != nil {
		return wrapUpstream(op, err)
	}

	if out.Success != nil && !*out.Success {
		msg := strings.TrimSpace(out.Message)
		if msg == "" {
			msg = "detector rejected the job"
		}
		return core.NewError(core.ErrUpstreamUnavailable, op, msg)
	}
	return nil
}

// FetchDetection returns the raw result document for jobKey. The call is
// bounded by the poll timeout.
func (c *Client) FetchDetection(ctx context.Context, jobKey string) ([]byte, error) {
	const op = "detector.poll"

	var body []byte
	err := c.exec.Execute(ctx, op, func(ctx context.Context) error {
		var err error
		body, err = getRaw(ctx, c.pollClient, c.detectorURL+"/get_results/"+url.PathEscape(jobKey), op)
		return err
	}, countsAgainstBreaker)
	if err != nil {
		return nil, wrapUpstream(op, err)
	}
	return body, nil
}

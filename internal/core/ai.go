package core

import "context"

type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// Summarizer produces a textual summary for a video source.
type Summarizer interface {
	Summarize(ctx context.Context, videoURL string) (string, error)
}

// DiagramDetector starts a detection job keyed by jobKey and later returns
// the raw result document for that job. Decoding is left to the caller.
type DiagramDetector interface {
	StartDetection(ctx context.Context, videoURL, jobKey string) error
	FetchDetection(ctx context.Context, jobKey string) ([]byte, error)
}

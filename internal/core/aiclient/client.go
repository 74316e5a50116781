package aiclient

import (
	"net/http"
	"strings"
	"time"

	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/core/resilience"
	"github.com/markdave123-py/Lumen/internal/pkg/logger"
)

var (
	_ core.Summarizer      = (*Client)(nil)
	_ core.DiagramDetector = (*Client)(nil)
	_ core.TextExtractor   = (*Client)(nil)
)

type Options struct {
	SummarizerURL string
	DetectorURL   string
	OCRURL        string
	// PollTimeout bounds result polling only. Ingestion calls have no
	// client-side timeout and finish when the upstream answers.
	PollTimeout time.Duration

	HTTPClient *http.Client
	Executor   *resilience.Executor
	Logger     *logger.Logger
}

// Client talks to the summarization, detection and OCR services.
type Client struct {
	summarizerURL string
	detectorURL   string
	ocrURL        string

	httpClient *http.Client
	pollClient *http.Client
	exec       *resilience.Executor
	log        *logger.Logger
}

func New(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	exec := opts.Executor
	if exec == nil {
		exec = resilience.NewExecutor(resilience.DefaultConfig(), log)
	}

	return &Client{
		summarizerURL: opts.SummarizerURL,
		detectorURL:   strings.TrimRight(opts.DetectorURL, "/"),
		ocrURL:        opts.OCRURL,
		httpClient:    httpClient,
		pollClient:    &http.Client{Transport: httpClient.Transport, Timeout: pollTimeout},
		exec:          exec,
		log:           log.With("component", "aiclient"),
	}
}

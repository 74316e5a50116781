package ingestion_engine

import (
	"context"
	"sync"
	"time"

	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/models"
	"github.com/markdave123-py/Lumen/internal/observability/metrics"
	"github.com/markdave123-py/Lumen/internal/pkg/logger"
)

// Stage names used in logs and metrics.
const (
	stageDiagramDetection = "diagram_detection"
	stageSummarization    = "summarization"
	stageOCR              = "ocr"
)

// IngestConfig tunes the worker pool.
//
// Workers:   goroutines draining the job queue.
// QueueSize: buffered jobs before Enqueue falls back to a detached goroutine.
type IngestConfig struct {
	Workers   int
	QueueSize int
}

// Job identifies one artifact awaiting background processing.
type Job struct {
	Kind        models.ArtifactKind
	ArtifactID  string
	SubmittedAt time.Time
}

// Deps are the collaborators of the pipeline. Store hands out a fresh
// handle per unit of work; the request's handle is never reused.
type Deps struct {
	Store      core.StoreProvider
	Objects    core.ObjectClient
	Bucket     string
	Summarizer core.Summarizer
	Detector   core.DiagramDetector
	Extractor  core.TextExtractor
	Metrics    *metrics.PipelineMetrics
	Logger     *logger.Logger
}

// ArtifactIngestor runs the detached background pipeline:
//
// videos:    diagram detection start and summarization, concurrently.
// documents: text extraction.
//
// Every stage records its own outcome on its own status field. Nothing is
// retried and no failure escapes to the caller or the host process.
type ArtifactIngestor struct {
	store      core.StoreProvider
	obj        core.ObjectClient
	bucket     string
	summarizer core.Summarizer
	detector   core.DiagramDetector
	extractor  core.TextExtractor
	metrics    *metrics.PipelineMetrics
	log        *logger.Logger
	cfg        IngestConfig

	jobs chan Job
	wg   sync.WaitGroup

	mu      sync.RWMutex
	baseCtx context.Context
	closed  bool
}

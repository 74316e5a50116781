package ingestion_engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/models"
	"github.com/markdave123-py/Lumen/internal/pkg/logger"
)

// NewArtifactIngestor constructs the ingestor with a bounded job queue.
func NewArtifactIngestor(deps Deps, cfg IngestConfig) *ArtifactIngestor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &ArtifactIngestor{
		store:      deps.Store,
		obj:        deps.Objects,
		bucket:     deps.Bucket,
		summarizer: deps.Summarizer,
		detector:   deps.Detector,
		extractor:  deps.Extractor,
		metrics:    deps.Metrics,
		log:        log.With("component", "ingestor"),
		cfg:        cfg,
		jobs:       make(chan Job, cfg.QueueSize),
		baseCtx:    context.Background(),
	}
}

// Start launches numWorkers goroutines reading from the jobs channel. Jobs
// keep ctx's values but not its cancellation, so a stage already talking to
// an upstream service is allowed to finish. Workers exit only once Shutdown
// has closed the queue and every queued job has run.
func (i *ArtifactIngestor) Start(ctx context.Context, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = i.cfg.Workers
	}

	i.mu.Lock()
	i.baseCtx = context.WithoutCancel(ctx)
	i.mu.Unlock()

	for w := 1; w <= numWorkers; w++ {
		i.wg.Add(1)
		go func(w int) {
			defer i.wg.Done()
			for job := range i.jobs {
				i.run(job)
			}
			i.log.Debug("worker shutting down", "worker", w)
		}(w)
	}
	i.log.Info("ingestor started", "workers", numWorkers, "queue_size", i.cfg.QueueSize)
}

// Enqueue schedules background work and never blocks the caller. When the
// queue is full the job runs on its own goroutine.
func (i *ArtifactIngestor) Enqueue(job Job) {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		i.log.Error("ingestor closed, job dropped", "artifact_id", job.ArtifactID, "kind", job.Kind)
		return
	}

	select {
	case i.jobs <- job:
	default:
		i.metrics.JobDetached()
		i.log.Warn("job queue full, running detached", "artifact_id", job.ArtifactID, "kind", job.Kind)
		i.wg.Add(1)
		go func() {
			defer i.wg.Done()
			i.run(job)
		}()
	}
}

// Shutdown stops intake and waits for queued and in-flight jobs until ctx
// expires.
func (i *ArtifactIngestor) Shutdown(ctx context.Context) error {
	i.mu.Lock()
	if !i.closed {
		i.closed = true
		close(i.jobs)
	}
	i.mu.Unlock()

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		i.log.Error("ingestor shutdown timed out", "queued", len(i.jobs), "error", ctx.Err())
		return fmt.Errorf("ingestor shutdown: %w", ctx.Err())
	}
}

// run processes a single job. A panic is logged and contained here.
func (i *ArtifactIngestor) run(job Job) {
	log := i.log.With("artifact_id", job.ArtifactID, "kind", string(job.Kind))

	i.metrics.StartJob(time.Since(job.SubmittedAt))
	defer i.metrics.FinishJob()

	defer func() {
		if r := recover(); r != nil {
			log.Error("background job panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	i.mu.RLock()
	ctx := i.baseCtx
	i.mu.RUnlock()

	switch job.Kind {
	case models.KindVideo:
		i.processVideo(ctx, job.ArtifactID, log)
	case models.KindDocument:
		i.processDocument(ctx, job.ArtifactID, log)
	default:
		log.Error("unknown artifact kind")
	}
}

// withStore runs fn on a freshly acquired store handle and releases it.
func (i *ArtifactIngestor) withStore(ctx context.Context, fn func(store core.DbClient) error) error {
	store, err := i.store.Acquire(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// recordOutcome persists a stage result. Storage failures are logged only.
func (i *ArtifactIngestor) recordOutcome(ctx context.Context, log *logger.Logger, stage string, write func(store core.DbClient) (bool, error)) {
	var applied bool
	err := i.withStore(ctx, func(store core.DbClient) error {
		var err error
		applied, err = write(store)
		return err
	})
	switch {
	case err != nil:
		log.Error("failed to record stage outcome", "stage", stage, "error", core.WrapError(core.ErrStorageFailure, stage, err))
	case !applied:
		log.Warn("stage already left Processing, outcome ignored", "stage", stage)
	}
}

// guardStage contains a panic inside one stage and marks that stage Error.
func (i *ArtifactIngestor) guardStage(ctx context.Context, log *logger.Logger, stage string, markError func(store core.DbClient, msg string) (bool, error)) {
	if r := recover(); r != nil {
		log.Error("stage panicked", "stage", stage, "panic", r, "stack", string(debug.Stack()))
		i.recordOutcome(ctx, log, stage, func(store core.DbClient) (bool, error) {
			return markError(store, "internal error")
		})
	}
}

func statusMessage(err error) string {
	return models.ClipStatusMessage(err.Error())
}

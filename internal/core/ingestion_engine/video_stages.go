package ingestion_engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/models"
	"github.com/markdave123-py/Lumen/internal/pkg/logger"
)

// processVideo runs detection start and summarization concurrently. The
// stages share nothing but the video row, and each writes only its own
// columns, so one stage failing never cancels or overwrites the other.
func (i *ArtifactIngestor) processVideo(ctx context.Context, videoID string, log *logger.Logger) {
	var video *models.Video
	err := i.withStore(ctx, func(store core.DbClient) error {
		var err error
		video, err = store.GetVideoByID(ctx, videoID)
		return err
	})
	if err != nil {
		log.Error("load video failed", "error", core.WrapError(core.ErrStorageFailure, "load video", err))
		return
	}
	if video == nil {
		log.Warn("video vanished before processing")
		return
	}

	var g errgroup.Group
	g.Go(func() error {
		i.startDetection(ctx, video, log)
		return nil
	})
	g.Go(func() error {
		i.summarize(ctx, video, log)
		return nil
	})
	_ = g.Wait()
}

// startDetection asks the detector to begin. On success the diagram status
// stays Processing until the result poller sees a terminal response.
func (i *ArtifactIngestor) startDetection(ctx context.Context, video *models.Video, log *logger.Logger) {
	log = log.With("stage", stageDiagramDetection)
	defer i.guardStage(ctx, log, stageDiagramDetection, func(store core.DbClient, msg string) (bool, error) {
		return store.TransitionVideoDiagrams(ctx, video.ID, models.StatusError, msg)
	})

	start := time.Now()
	if err := i.detector.StartDetection(ctx, video.SourceURL, video.ID); err != nil {
		i.metrics.ObserveStage(stageDiagramDetection, string(models.StatusError), time.Since(start))
		log.Error("detection start failed", "error", err)
		i.recordOutcome(ctx, log, stageDiagramDetection, func(store core.DbClient) (bool, error) {
			return store.TransitionVideoDiagrams(ctx, video.ID, models.StatusError, statusMessage(err))
		})
		return
	}

	i.metrics.ObserveStage(stageDiagramDetection, "Started", time.Since(start))
	log.Info("detection job started")
}

func (i *ArtifactIngestor) summarize(ctx context.Context, video *models.Video, log *logger.Logger) {
	log = log.With("stage", stageSummarization)
	defer i.guardStage(ctx, log, stageSummarization, func(store core.DbClient, msg string) (bool, error) {
		return store.TransitionVideoSummarization(ctx, video.ID, models.StatusError, "", msg)
	})

	start := time.Now()
	summary, err := i.summarizer.Summarize(ctx, video.SourceURL)
	if err != nil {
		i.metrics.ObserveStage(stageSummarization, string(models.StatusError), time.Since(start))
		log.Error("summarization failed", "error", err)
		i.recordOutcome(ctx, log, stageSummarization, func(store core.DbClient) (bool, error) {
			return store.TransitionVideoSummarization(ctx, video.ID, models.StatusError, "", statusMessage(err))
		})
		return
	}

	i.metrics.ObserveStage(stageSummarization, string(models.StatusCompleted), time.Since(start))
	i.recordOutcome(ctx, log, stageSummarization, func(store core.DbClient) (bool, error) {
		return store.TransitionVideoSummarization(ctx, video.ID, models.StatusCompleted, summary, "")
	})
	log.Info("summarization completed", "summary_len", len(summary))
}

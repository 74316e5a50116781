package ingestion_engine

import (
	"context"
	"path"
	"time"

	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/models"
	"github.com/markdave123-py/Lumen/internal/pkg/logger"
)

// processDocument fetches the stored file and extracts its text.
func (i *ArtifactIngestor) processDocument(ctx context.Context, docID string, log *logger.Logger) {
	log = log.With("stage", stageOCR)

	var doc *models.Document
	err := i.withStore(ctx, func(store core.DbClient) error {
		var err error
		doc, err = store.GetDocumentByID(ctx, docID)
		return err
	})
	if err != nil {
		log.Error("load document failed", "error", core.WrapError(core.ErrStorageFailure, "load document", err))
		return
	}
	if doc == nil {
		log.Warn("document vanished before processing")
		return
	}

	defer i.guardStage(ctx, log, stageOCR, func(store core.DbClient, msg string) (bool, error) {
		return store.TransitionDocument(ctx, doc.ID, models.StatusError, "", msg)
	})

	start := time.Now()
	fail := func(err error) {
		i.metrics.ObserveStage(stageOCR, string(models.StatusError), time.Since(start))
		log.Error("text extraction failed", "error", err)
		i.recordOutcome(ctx, log, stageOCR, func(store core.DbClient) (bool, error) {
			return store.TransitionDocument(ctx, doc.ID, models.StatusError, "", statusMessage(err))
		})
	}

	data, err := i.obj.GetFile(ctx, i.bucket, doc.FilePath)
	if err != nil {
		fail(core.WrapError(core.ErrStorageFailure, "read document file", err))
		return
	}

	text, err := i.extractor.ExtractText(ctx, path.Base(doc.FilePath), data)
	if err != nil {
		fail(err)
		return
	}

	i.metrics.ObserveStage(stageOCR, string(models.StatusCompleted), time.Since(start))
	i.recordOutcome(ctx, log, stageOCR, func(store core.DbClient) (bool, error) {
		return store.TransitionDocument(ctx, doc.ID, models.StatusCompleted, text, "")
	})
	log.Info("text extraction completed", "text_len", len(text))
}

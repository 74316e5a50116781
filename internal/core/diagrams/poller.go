// Package diagrams pulls diagram-detection results on demand and persists
// one Diagram row per detected object.
package diagrams

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/models"
	"github.com/markdave123-py/Lumen/internal/observability/metrics"
	"github.com/markdave123-py/Lumen/internal/pkg/logger"
)

// Poll outcomes reported to metrics.
const (
	outcomeNotFound    = "not_found"
	outcomeStored      = "stored"
	outcomeProcessing  = "processing"
	outcomeEmpty       = "empty"
	outcomeMalformed   = "malformed"
	outcomeUnavailable = "unavailable"
	outcomeStorage     = "storage_error"
	outcomeCached      = "cached"
)

type Poller struct {
	store    core.DbClient
	detector core.DiagramDetector
	metrics  *metrics.PipelineMetrics
	log      *logger.Logger
}

func NewPoller(store core.DbClient, detector core.DiagramDetector, m *metrics.PipelineMetrics, log *logger.Logger) *Poller {
	if log == nil {
		log = logger.NewNop()
	}
	return &Poller{store: store, detector: detector, metrics: m, log: log.With("component", "diagram_poller")}
}

// FetchDiagramStatus makes at most one detector call and always returns a
// well-formed response. Store writes happen only on a terminal result.
func (p *Poller) FetchDiagramStatus(ctx context.Context, videoID string) models.DiagramStatusResponse {
	log := p.log.With("video_id", videoID)

	video, err := p.store.GetVideoByID(ctx, videoID)
	if err != nil {
		log.Error("load video failed", "error", err)
		p.metrics.ObservePoll(outcomeStorage)
		return errorResponse(videoID, "could not load video")
	}
	if video == nil {
		p.metrics.ObservePoll(outcomeNotFound)
		return models.DiagramStatusResponse{
			VideoID:         videoID,
			Status:          models.DiagramStatusNotFound,
			Message:         "no such video",
			DetectedObjects: []models.DetectedObject{},
		}
	}

	if video.DiagramExtractionStatus.IsTerminal() {
		p.metrics.ObservePoll(outcomeCached)
		return p.storedResponse(ctx, video, log)
	}

	body, err := p.detector.FetchDetection(ctx, videoID)
	if err != nil {
		// Transient: the job may still finish, so the status is left alone.
		log.Warn("detector poll failed", "error", err)
		p.metrics.ObservePoll(outcomeUnavailable)
		return errorResponse(videoID, models.ClipStatusMessage(fmt.Sprintf("detector unavailable: %v", err)))
	}

	decoded := Decode(body)
	if decoded.Tier == TierMalformed {
		msg := models.ClipStatusMessage(core.WrapError(core.ErrUpstreamMalformed, "decode detector response", decoded.Err).Error())
		log.Error("detector response undecodable", "error", decoded.Err)
		p.metrics.ObservePoll(outcomeMalformed)
		if _, err := p.store.TransitionVideoDiagrams(ctx, videoID, models.StatusError, msg); err != nil {
			log.Error("mark diagrams error failed", "error", err)
		}
		return errorResponse(videoID, msg)
	}
	if decoded.Tier == TierTolerant {
		log.Debug("detector response decoded tolerantly")
	}

	res := decoded.Result
	if res.Running() {
		p.metrics.ObservePoll(outcomeProcessing)
		return models.DiagramStatusResponse{
			VideoID:         videoID,
			Status:          models.DiagramStatusProcessing,
			Message:         res.Message,
			ObjectCount:     res.ObjectCount,
			DetectedObjects: []models.DetectedObject{},
		}
	}

	if len(res.Objects) == 0 {
		msg := res.Message
		if msg == "" {
			msg = "detector finished without detected objects"
		}
		msg = models.ClipStatusMessage(msg)
		p.metrics.ObservePoll(outcomeEmpty)
		if _, err := p.store.TransitionVideoDiagrams(ctx, videoID, models.StatusError, msg); err != nil {
			log.Error("mark diagrams error failed", "error", err)
		}
		return errorResponse(videoID, msg)
	}

	if video.HistoryID == nil {
		p.metrics.ObservePoll(outcomeProcessing)
		return models.DiagramStatusResponse{
			VideoID:         videoID,
			Status:          models.DiagramStatusProcessing,
			Message:         "detection finished, waiting for a session to own the diagrams",
			ObjectCount:     len(res.Objects),
			DetectedObjects: res.Objects,
		}
	}

	rows := make([]models.Diagram, 0, len(res.Objects))
	for _, o := range res.Objects {
		rows = append(rows, models.Diagram{
			ID:        uuid.NewString(),
			HistoryID: *video.HistoryID,
			FileName:  o.FileName,
			FilePath:  o.Path,
		})
	}

	applied, err := p.store.CompleteVideoDiagrams(ctx, videoID, rows)
	if err != nil {
		log.Error("store diagrams failed", "error", err, "count", len(rows))
		p.metrics.ObservePoll(outcomeStorage)
		return errorResponse(videoID, "could not store diagrams")
	}
	if !applied {
		// A concurrent poll got there first; report what is stored.
		p.metrics.ObservePoll(outcomeCached)
		current, err := p.store.GetVideoByID(ctx, videoID)
		if err != nil || current == nil {
			return errorResponse(videoID, "could not load video")
		}
		return p.storedResponse(ctx, current, log)
	}

	p.metrics.ObservePoll(outcomeStored)
	log.Info("diagrams stored", "count", len(rows), "decode_tier", decoded.Tier.String())
	return models.DiagramStatusResponse{
		VideoID:         videoID,
		Status:          models.DiagramStatusCompleted,
		Message:         res.Message,
		ObjectCount:     len(rows),
		DetectedObjects: res.Objects,
	}
}

// GetDiagrams lists the diagrams owned by the video's session. Any miss or
// failure yields an empty list.
func (p *Poller) GetDiagrams(ctx context.Context, videoID string) []models.Diagram {
	video, err := p.store.GetVideoByID(ctx, videoID)
	if err != nil {
		p.log.Error("load video failed", "video_id", videoID, "error", err)
		return []models.Diagram{}
	}
	if video == nil || video.HistoryID == nil {
		return []models.Diagram{}
	}

	out, err := p.store.ListDiagramsByHistory(ctx, *video.HistoryID)
	if err != nil {
		p.log.Error("list diagrams failed", "video_id", videoID, "error", err)
		return []models.Diagram{}
	}
	if out == nil {
		out = []models.Diagram{}
	}
	return out
}

// storedResponse answers from the video row once detection is terminal.
func (p *Poller) storedResponse(ctx context.Context, video *models.Video, log *logger.Logger) models.DiagramStatusResponse {
	if video.DiagramExtractionStatus == models.StatusError {
		return errorResponse(video.ID, video.DiagramMessage)
	}

	objects := []models.DetectedObject{}
	if video.HistoryID != nil {
		rows, err := p.store.ListDiagramsByHistory(ctx, *video.HistoryID)
		if err != nil {
			log.Error("list diagrams failed", "error", err)
		}
		for _, d := range rows {
			objects = append(objects, models.DetectedObject{FileName: d.FileName, Path: d.FilePath})
		}
	}
	return models.DiagramStatusResponse{
		VideoID:         video.ID,
		Status:          models.DiagramStatusCompleted,
		Message:         video.DiagramMessage,
		ObjectCount:     video.DiagramCount,
		DetectedObjects: objects,
	}
}

func errorResponse(videoID, msg string) models.DiagramStatusResponse {
	return models.DiagramStatusResponse{
		VideoID:         videoID,
		Status:          models.DiagramStatusError,
		Message:         msg,
		DetectedObjects: []models.DetectedObject{},
	}
}

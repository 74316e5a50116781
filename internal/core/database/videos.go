package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/markdave123-py/Lumen/internal/models"
)

const videoColumns = `id, source_url, history_id, diagram_status, diagram_message, diagram_count,
	summarization_status, summarization_message, summarization, created_at, updated_at`

func (c *DatabaseClient) CreateVideo(ctx context.Context, v *models.Video) error {
	if v == nil {
		return errors.New("nil video")
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now()
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = v.CreatedAt
	}
	const q = `
		INSERT INTO videos (` + videoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := c.q.ExecContext(ctx, q,
		v.ID, v.SourceURL, nullString(v.HistoryID),
		string(v.DiagramExtractionStatus), v.DiagramMessage, v.DiagramCount,
		string(v.SummarizationStatus), v.SummarizationMessage, v.Summarization,
		v.CreatedAt, v.UpdatedAt)
	return err
}

func (c *DatabaseClient) GetVideoByID(ctx context.Context, id string) (*models.Video, error) {
	q := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`
	return getVideo(ctx, c.q, q, id)
}

func getVideo(ctx context.Context, q querier, query string, args ...any) (*models.Video, error) {
	var (
		v          models.Video
		historyID  sql.NullString
		diagStatus string
		sumStatus  string
	)
	err := q.QueryRowContext(ctx, query, args...).Scan(
		&v.ID, &v.SourceURL, &historyID, &diagStatus, &v.DiagramMessage, &v.DiagramCount,
		&sumStatus, &v.SummarizationMessage, &v.Summarization, &v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v.HistoryID = stringPtr(historyID)
	v.DiagramExtractionStatus = models.StageStatus(diagStatus)
	v.SummarizationStatus = models.StageStatus(sumStatus)
	return &v, nil
}

// TransitionVideoSummarization writes the summarization outcome only while
// the stage is still Processing; the diagram columns are never touched.
func (c *DatabaseClient) TransitionVideoSummarization(ctx context.Context, id string, to models.StageStatus, summary, message string) (bool, error) {
	if !models.StatusProcessing.CanTransition(to) {
		return false, fmt.Errorf("invalid summarization transition to %q", to)
	}
	const q = `
		UPDATE videos
		SET summarization_status = $2, summarization = $3, summarization_message = $4, updated_at = $5
		WHERE id = $1 AND summarization_status = $6
	`
	res, err := c.q.ExecContext(ctx, q, id, string(to), summary, message, now(), string(models.StatusProcessing))
	if err != nil {
		return false, err
	}
	return rowsAffected(res)
}

// TransitionVideoDiagrams writes a diagram-stage outcome without rows, used
// for failures. Successful completion goes through CompleteVideoDiagrams.
func (c *DatabaseClient) TransitionVideoDiagrams(ctx context.Context, id string, to models.StageStatus, message string) (bool, error) {
	if !models.StatusProcessing.CanTransition(to) {
		return false, fmt.Errorf("invalid diagram transition to %q", to)
	}
	return transitionDiagrams(ctx, c.q, id, to, message, 0)
}

func transitionDiagrams(ctx context.Context, q querier, id string, to models.StageStatus, message string, count int) (bool, error) {
	const stmt = `
		UPDATE videos
		SET diagram_status = $2, diagram_message = $3, diagram_count = $4, updated_at = $5
		WHERE id = $1 AND diagram_status = $6
	`
	res, err := q.ExecContext(ctx, stmt, id, string(to), message, count, now(), string(models.StatusProcessing))
	if err != nil {
		return false, err
	}
	return rowsAffected(res)
}

// CompleteVideoDiagrams moves the diagram stage to Completed and inserts one
// row per diagram. When the stage already left Processing nothing is written.
func (c *DatabaseClient) CompleteVideoDiagrams(ctx context.Context, id string, diagrams []models.Diagram) (bool, error) {
	var applied bool
	err := c.withTx(ctx, func(q querier) error {
		ok, err := transitionDiagrams(ctx, q, id, models.StatusCompleted, "", len(diagrams))
		if err != nil || !ok {
			return err
		}
		if err := insertDiagrams(ctx, q, diagrams); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func insertDiagrams(ctx context.Context, q querier, diagrams []models.Diagram) error {
	const stmt = `
		INSERT INTO diagrams (id, history_id, file_name, file_path, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	ts := now()
	for i := range diagrams {
		d := &diagrams[i]
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = ts
		}
		if _, err := q.ExecContext(ctx, stmt, d.ID, d.HistoryID, d.FileName, d.FilePath, d.CreatedAt); err != nil {
			return fmt.Errorf("insert diagram %d: %w", i, err)
		}
	}
	return nil
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/markdave123-py/Lumen/internal/models"
)

const documentColumns = `id, history_id, title, file_path, file_type, content_type,
	status, status_message, extracted_text, created_at, updated_at`

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now()
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	const q = `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := c.q.ExecContext(ctx, q,
		doc.ID, nullString(doc.HistoryID), doc.Title, doc.FilePath, doc.FileType, doc.ContentType,
		string(doc.Status), doc.StatusMessage, doc.ExtractedText, doc.CreatedAt, doc.UpdatedAt)
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	var (
		d         models.Document
		historyID sql.NullString
		status    string
	)
	err := c.q.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &historyID, &d.Title, &d.FilePath, &d.FileType, &d.ContentType,
		&status, &d.StatusMessage, &d.ExtractedText, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.HistoryID = stringPtr(historyID)
	d.Status = models.StageStatus(status)
	return &d, nil
}

// TransitionDocument records the OCR outcome while the document is Processing.
func (c *DatabaseClient) TransitionDocument(ctx context.Context, id string, to models.StageStatus, text, message string) (bool, error) {
	if !models.StatusProcessing.CanTransition(to) {
		return false, fmt.Errorf("invalid document transition to %q", to)
	}
	const q = `
		UPDATE documents
		SET status = $2, extracted_text = $3, status_message = $4, updated_at = $5
		WHERE id = $1 AND status = $6
	`
	res, err := c.q.ExecContext(ctx, q, id, string(to), text, message, now(), string(models.StatusProcessing))
	if err != nil {
		return false, err
	}
	return rowsAffected(res)
}

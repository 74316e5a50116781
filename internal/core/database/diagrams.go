package db

import (
	"context"

	"github.com/markdave123-py/Lumen/internal/models"
)

func (c *DatabaseClient) ListDiagramsByHistory(ctx context.Context, historyID string) ([]models.Diagram, error) {
	const q = `
		SELECT id, history_id, file_name, file_path, created_at
		FROM diagrams
		WHERE history_id = $1
		ORDER BY created_at ASC, file_path ASC
	`
	rows, err := c.q.QueryContext(ctx, q, historyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Diagram{}
	for rows.Next() {
		var d models.Diagram
		if err := rows.Scan(&d.ID, &d.HistoryID, &d.FileName, &d.FilePath, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

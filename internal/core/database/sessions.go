package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/models"
)

const sessionColumns = `id, user_id, video_id, document_id, user_messages, ai_responses, created_at`

func (c *DatabaseClient) CreateSessionForArtifact(ctx context.Context, s *models.Session, kind models.ArtifactKind, artifactID string) error {
	if s == nil {
		return errors.New("nil session")
	}
	var table string
	switch kind {
	case models.KindVideo:
		table = "videos"
		s.VideoID, s.DocumentID = &artifactID, nil
	case models.KindDocument:
		table = "documents"
		s.VideoID, s.DocumentID = nil, &artifactID
	default:
		return core.NewError(core.ErrInvalidInput, "create session", fmt.Sprintf("unknown artifact kind %q", kind))
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
	}

	userLog, aiLog, err := encodeLogs(s.UserMessages, s.AIResponses)
	if err != nil {
		return err
	}

	return c.withTx(ctx, func(q querier) error {
		var found int
		err := q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = $1`, artifactID).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return core.NewError(core.ErrNotFound, "create session", string(kind)+" "+artifactID+" does not exist")
		}
		if err != nil {
			return err
		}

		const insert = `
			INSERT INTO sessions (` + sessionColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := q.ExecContext(ctx, insert,
			s.ID, s.UserID, nullString(s.VideoID), nullString(s.DocumentID), userLog, aiLog, s.CreatedAt); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		if _, err := q.ExecContext(ctx,
			`UPDATE `+table+` SET history_id = $2, updated_at = $3 WHERE id = $1`,
			artifactID, s.ID, now()); err != nil {
			return fmt.Errorf("bind %s history: %w", kind, err)
		}
		return nil
	})
}

func (c *DatabaseClient) GetSessionByID(ctx context.Context, id string) (*models.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	rows, err := c.q.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	out, err := scanSessions(rows)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}

func (c *DatabaseClient) ListSessionsByUser(ctx context.Context, userID string) ([]models.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := c.q.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}

// DeleteSession removes only the session row. Artifacts keep their
// history_id and diagrams stay in place.
func (c *DatabaseClient) DeleteSession(ctx context.Context, id string) (bool, error) {
	res, err := c.q.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return rowsAffected(res)
}

// AppendSessionExchange adds one question and its answer to the session logs.
func (c *DatabaseClient) AppendSessionExchange(ctx context.Context, id, userMessage, aiResponse string) error {
	return c.withTx(ctx, func(q querier) error {
		var userRaw, aiRaw string
		err := q.QueryRowContext(ctx,
			`SELECT user_messages, ai_responses FROM sessions WHERE id = $1`, id).Scan(&userRaw, &aiRaw)
		if errors.Is(err, sql.ErrNoRows) {
			return core.NewError(core.ErrNotFound, "append exchange", "session "+id+" does not exist")
		}
		if err != nil {
			return err
		}

		userLog, err := decodeLog(userRaw)
		if err != nil {
			return err
		}
		aiLog, err := decodeLog(aiRaw)
		if err != nil {
			return err
		}

		userEnc, aiEnc, err := encodeLogs(append(userLog, userMessage), append(aiLog, aiResponse))
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx,
			`UPDATE sessions SET user_messages = $2, ai_responses = $3 WHERE id = $1`, id, userEnc, aiEnc)
		return err
	})
}

func scanSessions(rows *sql.Rows) ([]models.Session, error) {
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		var (
			s              models.Session
			videoID, docID sql.NullString
			userRaw, aiRaw string
		)
		if err := rows.Scan(&s.ID, &s.UserID, &videoID, &docID, &userRaw, &aiRaw, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.VideoID = stringPtr(videoID)
		s.DocumentID = stringPtr(docID)

		var err error
		if s.UserMessages, err = decodeLog(userRaw); err != nil {
			return nil, err
		}
		if s.AIResponses, err = decodeLog(aiRaw); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func encodeLogs(userLog, aiLog []string) (string, string, error) {
	if userLog == nil {
		userLog = []string{}
	}
	if aiLog == nil {
		aiLog = []string{}
	}
	u, err := json.Marshal(userLog)
	if err != nil {
		return "", "", fmt.Errorf("encode user messages: %w", err)
	}
	a, err := json.Marshal(aiLog)
	if err != nil {
		return "", "", fmt.Errorf("encode ai responses: %w", err)
	}
	return string(u), string(a), nil
}

func decodeLog(raw string) ([]string, error) {
	out := []string{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode message log: %w", err)
	}
	return out, nil
}

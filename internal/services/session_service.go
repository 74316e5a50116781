package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/models"
	"github.com/markdave123-py/Lumen/internal/pkg/logger"
)

// minSummaryRunes is the length a video summary must exceed to be used.
const minSummaryRunes = 2

// SessionService binds artifacts to sessions and builds merged session views.
type SessionService struct {
	db        core.DbClient
	validator core.CredentialValidator
	log       *logger.Logger
}

func NewSessionService(db core.DbClient, validator core.CredentialValidator, log *logger.Logger) *SessionService {
	if log == nil {
		log = logger.NewNop()
	}
	return &SessionService{db: db, validator: validator, log: log.With("component", "session_service")}
}

// CreateSessionForArtifact creates a session owned by the token's user and
// links the artifact to it.
func (s *SessionService) CreateSessionForArtifact(ctx context.Context, token, artifactID string, kind models.ArtifactKind) (*models.SessionView, error) {
	const op = "create session"

	user, err := resolveUser(ctx, s.db, s.validator, token)
	if err != nil {
		return nil, err
	}
	artifactID = strings.TrimSpace(artifactID)
	if artifactID == "" {
		return nil, core.NewError(core.ErrInvalidInput, op, "artifact_id is required")
	}
	if kind != models.KindVideo && kind != models.KindDocument {
		return nil, core.NewError(core.ErrInvalidInput, op, "kind must be video or document")
	}

	session := &models.Session{ID: uuid.NewString(), UserID: user.ID}
	if err := s.db.CreateSessionForArtifact(ctx, session, kind, artifactID); err != nil {
		if core.IsKind(err, core.ErrNotFound) {
			return nil, err
		}
		return nil, core.WrapError(core.ErrStorageFailure, op, err)
	}
	s.log.Info("session created", "session_id", session.ID, "kind", string(kind), "artifact_id", artifactID)

	return s.GetSession(ctx, session.ID)
}

// GetSession loads a session with its artifact and the merged summary.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*models.SessionView, error) {
	const op = "get session"

	session, err := s.db.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailure, op, err)
	}
	if session == nil {
		return nil, core.NewError(core.ErrNotFound, op, "no such session")
	}
	return s.buildView(ctx, session)
}

// GetSessionForUser is GetSession restricted to the token's own sessions.
// Another user's session is reported as not found.
func (s *SessionService) GetSessionForUser(ctx context.Context, token, sessionID string) (*models.SessionView, error) {
	user, err := resolveUser(ctx, s.db, s.validator, token)
	if err != nil {
		return nil, err
	}
	view, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if view.UserID != user.ID {
		return nil, core.NewError(core.ErrNotFound, "get session", "no such session")
	}
	return view, nil
}

// ListSessionsForUser returns the token owner's sessions, newest first. Any
// failure yields an empty list.
func (s *SessionService) ListSessionsForUser(ctx context.Context, token string) []models.SessionView {
	out := []models.SessionView{}

	user, err := resolveUser(ctx, s.db, s.validator, token)
	if err != nil {
		s.log.Debug("list sessions: identity unresolved", "error", err)
		return out
	}
	sessions, err := s.db.ListSessionsByUser(ctx, user.ID)
	if err != nil {
		s.log.Error("list sessions failed", "user_id", user.ID, "error", err)
		return out
	}

	for i := range sessions {
		view, err := s.buildView(ctx, &sessions[i])
		if err != nil {
			s.log.Error("list sessions: load artifact failed", "session_id", sessions[i].ID, "error", err)
			return []models.SessionView{}
		}
		out = append(out, *view)
	}
	return out
}

// DeleteSession removes one of the caller's sessions. Artifacts, diagrams
// and stored files are left in place.
func (s *SessionService) DeleteSession(ctx context.Context, token, sessionID string) error {
	const op = "delete session"

	user, err := resolveUser(ctx, s.db, s.validator, token)
	if err != nil {
		return err
	}
	session, err := s.db.GetSessionByID(ctx, sessionID)
	if err != nil {
		return core.WrapError(core.ErrStorageFailure, op, err)
	}
	if session == nil || session.UserID != user.ID {
		return core.NewError(core.ErrNotFound, op, "no such session")
	}

	deleted, err := s.db.DeleteSession(ctx, sessionID)
	if err != nil {
		return core.WrapError(core.ErrStorageFailure, op, err)
	}
	if !deleted {
		return core.NewError(core.ErrNotFound, op, "no such session")
	}
	s.log.Info("session deleted", "session_id", sessionID, "user_id", user.ID)
	return nil
}

func (s *SessionService) buildView(ctx context.Context, session *models.Session) (*models.SessionView, error) {
	const op = "load session artifact"

	view := &models.SessionView{
		ID:           session.ID,
		UserID:       session.UserID,
		UserMessages: nonNil(session.UserMessages),
		AIResponses:  nonNil(session.AIResponses),
		CreatedAt:    session.CreatedAt,
	}

	if session.VideoID != nil {
		v, err := s.db.GetVideoByID(ctx, *session.VideoID)
		if err != nil {
			return nil, core.WrapError(core.ErrStorageFailure, op, err)
		}
		view.Video = v
	}
	if session.DocumentID != nil {
		d, err := s.db.GetDocumentByID(ctx, *session.DocumentID)
		if err != nil {
			return nil, core.WrapError(core.ErrStorageFailure, op, err)
		}
		view.Document = d
	}

	view.SummaryText = MergeSummary(view.Video, view.Document)
	return view, nil
}

// MergeSummary prefers a non-trivial video summary, then the document's
// extracted text, then "".
func MergeSummary(video *models.Video, doc *models.Document) string {
	if video != nil && utf8.RuneCountInString(video.Summarization) > minSummaryRunes {
		return video.Summarization
	}
	if doc != nil && doc.ExtractedText != "" {
		return doc.ExtractedText
	}
	return ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

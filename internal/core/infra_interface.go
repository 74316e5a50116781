package core

import (
	"context"
	"io"

	"github.com/markdave123-py/Lumen/internal/models"
)

// DbClient defines all persistence operations the services need.
// Reads of a missing row return (nil, nil). Transition methods only move a
// stage out of Processing and report false when the row was not in that state.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateVideo(ctx context.Context, video *models.Video) error
	GetVideoByID(ctx context.Context, id string) (*models.Video, error)
	TransitionVideoSummarization(ctx context.Context, id string, to models.StageStatus, summary, message string) (bool, error)
	TransitionVideoDiagrams(ctx context.Context, id string, to models.StageStatus, message string) (bool, error)
	// CompleteVideoDiagrams marks detection Completed, stores the count and
	// inserts the rows in one transaction.
	CompleteVideoDiagrams(ctx context.Context, id string, diagrams []models.Diagram) (bool, error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	TransitionDocument(ctx context.Context, id string, to models.StageStatus, text, message string) (bool, error)

	// CreateSessionForArtifact inserts the session and points the artifact's
	// history_id at it in one transaction. A missing artifact yields ErrNotFound.
	CreateSessionForArtifact(ctx context.Context, session *models.Session, kind models.ArtifactKind, artifactID string) error
	GetSessionByID(ctx context.Context, id string) (*models.Session, error)
	ListSessionsByUser(ctx context.Context, userID string) ([]models.Session, error)
	DeleteSession(ctx context.Context, id string) (bool, error)
	AppendSessionExchange(ctx context.Context, id, userMessage, aiResponse string) error

	ListDiagramsByHistory(ctx context.Context, historyID string) ([]models.Diagram, error)

	Ping(ctx context.Context) error
	Close() error
}

// StoreProvider hands out store handles bound to a dedicated connection.
// Closing the handle releases the connection, never the pool.
type StoreProvider interface {
	Acquire(ctx context.Context) (DbClient, error)
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (location string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}

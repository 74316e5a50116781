package services

import (
	"bytes"
	"context"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/core/ingestion_engine"
	"github.com/markdave123-py/Lumen/internal/models"
	"github.com/markdave123-py/Lumen/internal/pkg/logger"
)

// allowedDocumentTypes are the extensions accepted for document upload.
var allowedDocumentTypes = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".docx": true,
}

// JobScheduler hands artifacts to the background pipeline without waiting.
type JobScheduler interface {
	Enqueue(job ingestion_engine.Job)
}

// UploadService persists new artifacts in Processing and schedules their
// background stages. It never waits on an AI endpoint.
type UploadService struct {
	db        core.DbClient
	storage   core.ObjectClient
	bucket    string
	validator core.CredentialValidator
	jobs      JobScheduler
	log       *logger.Logger
}

func NewUploadService(db core.DbClient, storage core.ObjectClient, bucket string, validator core.CredentialValidator, jobs JobScheduler, log *logger.Logger) *UploadService {
	if log == nil {
		log = logger.NewNop()
	}
	return &UploadService{
		db:        db,
		storage:   storage,
		bucket:    bucket,
		validator: validator,
		jobs:      jobs,
		log:       log.With("component", "upload_service"),
	}
}

// SubmitVideo records a video by source URL and returns its id.
func (s *UploadService) SubmitVideo(ctx context.Context, token, videoURL string) (string, error) {
	const op = "submit video"

	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return "", core.NewError(core.ErrInvalidInput, op, "video_url is required")
	}
	u, err := url.Parse(videoURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", core.NewError(core.ErrInvalidInput, op, "video_url must be an absolute http(s) URL")
	}

	user, err := resolveUser(ctx, s.db, s.validator, token)
	if err != nil {
		return "", err
	}

	video := &models.Video{
		ID:                      uuid.NewString(),
		SourceURL:               videoURL,
		DiagramExtractionStatus: models.StatusProcessing,
		SummarizationStatus:     models.StatusProcessing,
	}
	if err := s.db.CreateVideo(ctx, video); err != nil {
		return "", core.WrapError(core.ErrStorageFailure, op, err)
	}

	s.jobs.Enqueue(ingestion_engine.Job{Kind: models.KindVideo, ArtifactID: video.ID})
	s.log.Info("video submitted", "video_id", video.ID, "user_id", user.ID)
	return video.ID, nil
}

// DocumentUpload is one uploaded file.
type DocumentUpload struct {
	Title       string
	FileName    string
	ContentType string
	Data        []byte
}

// SubmitDocument stores the file, records the document and returns its id.
func (s *UploadService) SubmitDocument(ctx context.Context, token string, in DocumentUpload) (string, error) {
	const op = "submit document"

	if len(in.Data) == 0 {
		return "", core.NewError(core.ErrInvalidInput, op, "file is empty")
	}
	name := sanitizeFileName(in.FileName)
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedDocumentTypes[ext] {
		return "", core.NewError(core.ErrInvalidInput, op, "file type must be .pdf, .txt or .docx")
	}

	user, err := resolveUser(ctx, s.db, s.validator, token)
	if err != nil {
		return "", err
	}

	docID := uuid.NewString()
	key := objectKey(user.ID, docID, name)
	if _, err := s.storage.UploadFile(ctx, s.bucket, key, bytes.NewReader(in.Data), in.ContentType); err != nil {
		return "", core.WrapError(core.ErrStorageFailure, op, err)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSuffix(name, filepath.Ext(name))
	}
	doc := &models.Document{
		ID:          docID,
		Title:       title,
		FilePath:    key,
		FileType:    strings.TrimPrefix(ext, "."),
		ContentType: in.ContentType,
		Status:      models.StatusProcessing,
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		if derr := s.storage.DeleteFile(ctx, s.bucket, key); derr != nil {
			s.log.Warn("orphaned upload", "key", key, "error", derr)
		}
		return "", core.WrapError(core.ErrStorageFailure, op, err)
	}

	s.jobs.Enqueue(ingestion_engine.Job{Kind: models.KindDocument, ArtifactID: doc.ID})
	s.log.Info("document submitted", "document_id", doc.ID, "user_id", user.ID, "bytes", len(in.Data))
	return doc.ID, nil
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// objectKey lays out stored files per user and document.
func objectKey(userID, docID, filename string) string {
	return path.Join("users", userID, "documents", docID, filename)
}

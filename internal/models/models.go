package models

import (
	"time"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Session ties one artifact to its owner and carries the chat logs.
// Exactly one of VideoID and DocumentID is set.
type Session struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	VideoID      *string   `db:"video_id" json:"video_id,omitempty"`
	DocumentID   *string   `db:"document_id" json:"document_id,omitempty"`
	UserMessages []string  `db:"user_messages" json:"user_messages"`
	AIResponses  []string  `db:"ai_responses" json:"ai_responses"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Video is a submitted video URL and the state of its two analysis stages.
type Video struct {
	ID                      string      `db:"id" json:"id"`
	SourceURL               string      `db:"source_url" json:"source_url"`
	HistoryID               *string     `db:"history_id" json:"history_id,omitempty"`
	DiagramExtractionStatus StageStatus `db:"diagram_status" json:"diagram_extraction_status"`
	DiagramMessage          string      `db:"diagram_message" json:"diagram_message,omitempty"`
	DiagramCount            int         `db:"diagram_count" json:"diagram_count"`
	SummarizationStatus     StageStatus `db:"summarization_status" json:"summarization_status"`
	SummarizationMessage    string      `db:"summarization_message" json:"summarization_message,omitempty"`
	Summarization           string      `db:"summarization" json:"summarization"`
	CreatedAt               time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time   `db:"updated_at" json:"updated_at"`
}

// Document is an uploaded file and the state of its OCR stage.
type Document struct {
	ID            string      `db:"id" json:"id"`
	HistoryID     *string     `db:"history_id" json:"history_id,omitempty"`
	Title         string      `db:"title" json:"title"`
	FilePath      string      `db:"file_path" json:"file_path"` // object key
	FileType      string      `db:"file_type" json:"file_type"` // extension without the dot
	ContentType   string      `db:"content_type" json:"content_type"`
	Status        StageStatus `db:"status" json:"status"`
	StatusMessage string      `db:"status_message" json:"status_message,omitempty"`
	ExtractedText string      `db:"extracted_text" json:"extracted_text"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
}

// Diagram is one object detected in a video, owned by a session.
type Diagram struct {
	ID        string    `db:"id" json:"id"`
	HistoryID string    `db:"history_id" json:"history_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	FilePath  string    `db:"file_path" json:"file_path"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

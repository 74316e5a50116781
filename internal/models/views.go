package models

import "time"

// SessionView is a session with its artifact loaded and the summary merged.
type SessionView struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Video        *Video    `json:"video,omitempty"`
	Document     *Document `json:"document,omitempty"`
	UserMessages []string  `json:"user_messages"`
	AIResponses  []string  `json:"ai_responses"`
	SummaryText  string    `json:"summary_text"`
	CreatedAt    time.Time `json:"created_at"`
}

// Upstream status strings reported on the diagram status endpoint.
const (
	DiagramStatusProcessing = "processing"
	DiagramStatusCompleted  = "completed"
	DiagramStatusError      = "error"
	DiagramStatusNotFound   = "not_found"
)

// DetectedObject is one descriptor returned by the detection service.
type DetectedObject struct {
	FileName string `json:"filename"`
	Path     string `json:"path"`
}

// DiagramStatusResponse is the poller's view of a detection job.
type DiagramStatusResponse struct {
	VideoID         string           `json:"video_id"`
	Status          string           `json:"status"`
	Message         string           `json:"message"`
	ObjectCount     int              `json:"object_count"`
	DetectedObjects []DetectedObject `json:"detected_objects"`
}

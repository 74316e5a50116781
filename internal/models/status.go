package models

import (
	"strings"
	"unicode/utf8"
)

// StageStatus is the state of one asynchronous processing stage.
// The only legal transitions are Processing -> Completed and Processing -> Error.
type StageStatus string

const (
	StatusProcessing StageStatus = "Processing"
	StatusCompleted  StageStatus = "Completed"
	StatusError      StageStatus = "Error"
)

func (s StageStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

func (s StageStatus) Valid() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// CanTransition reports whether a stage may move from s to next.
func (s StageStatus) CanTransition(next StageStatus) bool {
	return s == StatusProcessing && next.IsTerminal()
}

// ArtifactKind distinguishes the two artifact tables a session can point at.
type ArtifactKind string

const (
	KindVideo    ArtifactKind = "video"
	KindDocument ArtifactKind = "document"
)

// ParseArtifactKind accepts the kind case-insensitively.
func ParseArtifactKind(v string) (ArtifactKind, bool) {
	switch ArtifactKind(strings.ToLower(strings.TrimSpace(v))) {
	case KindVideo:
		return KindVideo, true
	case KindDocument:
		return KindDocument, true
	}
	return "", false
}

// MaxStatusMessage bounds the diagnostic stored on a failed stage.
const MaxStatusMessage = 1000

// ClipStatusMessage makes msg safe for a TEXT column: invalid UTF-8 is
// replaced and the result is cut to MaxStatusMessage bytes on a rune boundary.
func ClipStatusMessage(msg string) string {
	msg = strings.ToValidUTF8(msg, "\uFFFD")
	if len(msg) <= MaxStatusMessage {
		return msg
	}
	cut := MaxStatusMessage
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

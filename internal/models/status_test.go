package models

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestStageStatusTransitions(t *testing.T) {
	if !StatusProcessing.CanTransition(StatusCompleted) {
		t.Fatalf("expected Processing -> Completed to be allowed")
	}
	if !StatusProcessing.CanTransition(StatusError) {
		t.Fatalf("expected Processing -> Error to be allowed")
	}
	if StatusCompleted.CanTransition(StatusError) {
		t.Fatalf("expected Completed to be terminal")
	}
	if StatusError.CanTransition(StatusCompleted) {
		t.Fatalf("expected Error to be terminal")
	}
	if StatusProcessing.CanTransition(StatusProcessing) {
		t.Fatalf("expected Processing -> Processing to be rejected")
	}
	if StageStatus("done").Valid() {
		t.Fatalf("expected unknown status to be invalid")
	}
}

func TestParseArtifactKind(t *testing.T) {
	if k, ok := ParseArtifactKind(" Video "); !ok || k != KindVideo {
		t.Fatalf("ParseArtifactKind(Video) = %q, %v", k, ok)
	}
	if k, ok := ParseArtifactKind("document"); !ok || k != KindDocument {
		t.Fatalf("ParseArtifactKind(document) = %q, %v", k, ok)
	}
	if _, ok := ParseArtifactKind("audio"); ok {
		t.Fatalf("expected audio to be rejected")
	}
}

func TestClipStatusMessageKeepsRunesWhole(t *testing.T) {
	msg := strings.Repeat("a", MaxStatusMessage-1) + "é" + "tail"
	got := ClipStatusMessage(msg)
	if !utf8.ValidString(got) {
		t.Fatalf("clipped message is not valid UTF-8: %q", got[len(got)-4:])
	}
	if len(got) != MaxStatusMessage-1 {
		t.Fatalf("expected cut before the split rune, got len %d", len(got))
	}

	if got := ClipStatusMessage("bad \xc3 body"); !utf8.ValidString(got) || !strings.HasPrefix(got, "bad ") {
		t.Fatalf("expected invalid bytes replaced, got %q", got)
	}
	if got := ClipStatusMessage("short"); got != "short" {
		t.Fatalf("short message changed: %q", got)
	}
}

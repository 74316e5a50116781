package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/models"
)

func openSQLite(t *testing.T) *DatabaseClient {
	t.Helper()
	dsn := withSQLitePragmas(filepath.Join(t.TempDir(), "lumen.db"))
	client, err := Open(context.Background(), DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func seedUser(t *testing.T, c *DatabaseClient, id string) {
	t.Helper()
	if err := c.CreateUser(context.Background(), &models.User{
		ID: id, Name: "Ada", Email: id + "@example.com", PasswordHash: "hash",
	}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
}

func seedVideo(t *testing.T, c *DatabaseClient, id string) {
	t.Helper()
	if err := c.CreateVideo(context.Background(), &models.Video{
		ID:                      id,
		SourceURL:               "https://x/video.mp4",
		DiagramExtractionStatus: models.StatusProcessing,
		SummarizationStatus:     models.StatusProcessing,
	}); err != nil {
		t.Fatalf("CreateVideo() error = %v", err)
	}
}

func TestSQLiteBootstrapIsIdempotent(t *testing.T) {
	client := openSQLite(t)
	if err := EnsureBootstrapped(context.Background(), client.db); err != nil {
		t.Fatalf("EnsureBootstrapped() error = %v", err)
	}
	if err := runBootstrap(context.Background(), client.db); err != nil {
		t.Fatalf("runBootstrap() second run error = %v", err)
	}
}

func TestSQLiteUsers(t *testing.T) {
	ctx := context.Background()
	client := openSQLite(t)
	seedUser(t, client, "u1")

	u, err := client.GetUserByEmail(ctx, "u1@example.com")
	if err != nil || u == nil {
		t.Fatalf("GetUserByEmail() = %v, %v", u, err)
	}
	if u.Name != "Ada" || u.CreatedAt.IsZero() {
		t.Fatalf("unexpected user %+v", u)
	}

	err = client.CreateUser(ctx, &models.User{ID: "u2", Name: "B", Email: "u1@example.com", PasswordHash: "x"})
	if !core.IsKind(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}

	missing, err := client.GetUserByID(ctx, "nobody")
	if err != nil || missing != nil {
		t.Fatalf("GetUserByID(nobody) = %v, %v", missing, err)
	}
}

func TestSQLiteSessionBindsHistoryAndDiagrams(t *testing.T) {
	ctx := context.Background()
	client := openSQLite(t)
	seedUser(t, client, "u1")
	seedVideo(t, client, "v1")

	s := &models.Session{ID: "s1", UserID: "u1"}
	if err := client.CreateSessionForArtifact(ctx, s, models.KindVideo, "v1"); err != nil {
		t.Fatalf("CreateSessionForArtifact() error = %v", err)
	}

	v, err := client.GetVideoByID(ctx, "v1")
	if err != nil || v == nil {
		t.Fatalf("GetVideoByID() = %v, %v", v, err)
	}
	if v.HistoryID == nil || *v.HistoryID != "s1" {
		t.Fatalf("expected history_id s1, got %v", v.HistoryID)
	}

	ok, err := client.CompleteVideoDiagrams(ctx, "v1", []models.Diagram{
		{HistoryID: "s1", FileName: "o1.png", FilePath: "/d/o1.png"},
		{HistoryID: "s1", FileName: "o2.png", FilePath: "/d/o2.png"},
	})
	if err != nil || !ok {
		t.Fatalf("CompleteVideoDiagrams() = %v, %v", ok, err)
	}

	again, err := client.CompleteVideoDiagrams(ctx, "v1", []models.Diagram{
		{HistoryID: "s1", FileName: "o3.png", FilePath: "/d/o3.png"},
	})
	if err != nil || again {
		t.Fatalf("expected second completion to be ignored, got %v, %v", again, err)
	}

	diagrams, err := client.ListDiagramsByHistory(ctx, "s1")
	if err != nil {
		t.Fatalf("ListDiagramsByHistory() error = %v", err)
	}
	if len(diagrams) != 2 {
		t.Fatalf("expected 2 diagrams, got %d", len(diagrams))
	}

	v, _ = client.GetVideoByID(ctx, "v1")
	if v.DiagramExtractionStatus != models.StatusCompleted || v.DiagramCount != 2 {
		t.Fatalf("unexpected diagram state %s/%d", v.DiagramExtractionStatus, v.DiagramCount)
	}
	if v.SummarizationStatus != models.StatusProcessing {
		t.Fatalf("summarization status must be untouched, got %s", v.SummarizationStatus)
	}
}

func TestSQLiteCreateSessionForMissingArtifact(t *testing.T) {
	ctx := context.Background()
	client := openSQLite(t)
	seedUser(t, client, "u1")

	err := client.CreateSessionForArtifact(ctx, &models.Session{ID: "s1", UserID: "u1"}, models.KindDocument, "nope")
	if !core.IsKind(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	s, err := client.GetSessionByID(ctx, "s1")
	if err != nil || s != nil {
		t.Fatalf("expected no session row, got %v, %v", s, err)
	}
}

func TestSQLiteDocumentTransitionAndSessionLogs(t *testing.T) {
	ctx := context.Background()
	client := openSQLite(t)
	seedUser(t, client, "u1")

	doc := &models.Document{ID: "d1", Title: "Notes", FilePath: "u1/d1/notes.txt", FileType: "txt", Status: models.StatusProcessing}
	if err := client.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}
	ok, err := client.TransitionDocument(ctx, "d1", models.StatusCompleted, "Hello", "")
	if err != nil || !ok {
		t.Fatalf("TransitionDocument() = %v, %v", ok, err)
	}
	ok, err = client.TransitionDocument(ctx, "d1", models.StatusError, "", "late failure")
	if err != nil || ok {
		t.Fatalf("expected terminal document to stay put, got %v, %v", ok, err)
	}

	if err := client.CreateSessionForArtifact(ctx, &models.Session{ID: "s1", UserID: "u1"}, models.KindDocument, "d1"); err != nil {
		t.Fatalf("CreateSessionForArtifact() error = %v", err)
	}
	if err := client.AppendSessionExchange(ctx, "s1", "what is it?", "a greeting"); err != nil {
		t.Fatalf("AppendSessionExchange() error = %v", err)
	}

	s, err := client.GetSessionByID(ctx, "s1")
	if err != nil || s == nil {
		t.Fatalf("GetSessionByID() = %v, %v", s, err)
	}
	if s.DocumentID == nil || *s.DocumentID != "d1" || s.VideoID != nil {
		t.Fatalf("unexpected artifact refs %+v", s)
	}
	if len(s.UserMessages) != 1 || s.AIResponses[0] != "a greeting" {
		t.Fatalf("unexpected logs %v / %v", s.UserMessages, s.AIResponses)
	}

	d, _ := client.GetDocumentByID(ctx, "d1")
	if d.ExtractedText != "Hello" || d.HistoryID == nil || *d.HistoryID != "s1" {
		t.Fatalf("unexpected document %+v", d)
	}

	deleted, err := client.DeleteSession(ctx, "s1")
	if err != nil || !deleted {
		t.Fatalf("DeleteSession() = %v, %v", deleted, err)
	}
	sessions, err := client.ListSessionsByUser(ctx, "u1")
	if err != nil || len(sessions) != 0 {
		t.Fatalf("ListSessionsByUser() = %v, %v", sessions, err)
	}
}

func TestSQLiteAcquireUsesDedicatedConnection(t *testing.T) {
	ctx := context.Background()
	client := openSQLite(t)
	seedVideo(t, client, "v1")

	handle, err := client.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	ok, err := handle.TransitionVideoSummarization(ctx, "v1", models.StatusError, "", "summarizer down")
	if err != nil || !ok {
		t.Fatalf("TransitionVideoSummarization() = %v, %v", ok, err)
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("handle Close() error = %v", err)
	}

	if err := client.Ping(ctx); err != nil {
		t.Fatalf("pool must stay open after handle close: %v", err)
	}
	v, err := client.GetVideoByID(ctx, "v1")
	if err != nil || v.SummarizationStatus != models.StatusError || v.SummarizationMessage != "summarizer down" {
		t.Fatalf("unexpected video %+v, %v", v, err)
	}
}

// Package dbtest opens throwaway SQLite stores for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	db "github.com/markdave123-py/Lumen/internal/core/database"
	"github.com/markdave123-py/Lumen/internal/models"
)

// NewSQLite returns a bootstrapped store backed by a file in t.TempDir().
func NewSQLite(t testing.TB) *db.DatabaseClient {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "lumen.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	client, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func SeedUser(t testing.TB, store *db.DatabaseClient, id string) *models.User {
	t.Helper()
	u := &models.User{ID: id, Name: "User " + id, Email: id + "@example.com", PasswordHash: "hash"}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedVideo(t testing.TB, store *db.DatabaseClient, id, sourceURL string) *models.Video {
	t.Helper()
	v := &models.Video{
		ID:                      id,
		SourceURL:               sourceURL,
		DiagramExtractionStatus: models.StatusProcessing,
		SummarizationStatus:     models.StatusProcessing,
	}
	if err := store.CreateVideo(context.Background(), v); err != nil {
		t.Fatalf("seed video: %v", err)
	}
	return v
}

func SeedDocument(t testing.TB, store *db.DatabaseClient, id, filePath string) *models.Document {
	t.Helper()
	d := &models.Document{
		ID:       id,
		Title:    "Doc " + id,
		FilePath: filePath,
		FileType: strings.TrimPrefix(filepath.Ext(filePath), "."),
		Status:   models.StatusProcessing,
	}
	if err := store.CreateDocument(context.Background(), d); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return d
}

// Bind creates a session for the artifact and returns its id.
func Bind(t testing.TB, store *db.DatabaseClient, sessionID, userID string, kind models.ArtifactKind, artifactID string) string {
	t.Helper()
	s := &models.Session{ID: sessionID, UserID: userID}
	if err := store.CreateSessionForArtifact(context.Background(), s, kind, artifactID); err != nil {
		t.Fatalf("bind session: %v", err)
	}
	return s.ID
}

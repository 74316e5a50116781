package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/core/credentials"
	db "github.com/markdave123-py/Lumen/internal/core/database"
	"github.com/markdave123-py/Lumen/internal/core/database/dbtest"
	"github.com/markdave123-py/Lumen/internal/core/ingestion_engine"
)

type recordingScheduler struct {
	mu   sync.Mutex
	jobs []ingestion_engine.Job
}

func (r *recordingScheduler) Enqueue(job ingestion_engine.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
}

func (r *recordingScheduler) list() []ingestion_engine.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ingestion_engine.Job(nil), r.jobs...)
}

type env struct {
	store  *db.DatabaseClient
	tokens *credentials.JWTManager
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return &env{store: dbtest.NewSQLite(t), tokens: credentials.NewJWTManager("test-secret", time.Hour)}
}

// tokenFor seeds the user and returns a valid token for it.
func (e *env) tokenFor(t *testing.T, userID string) string {
	t.Helper()
	dbtest.SeedUser(t, e.store, userID)
	return e.orphanToken(t, userID)
}

// orphanToken signs a token without creating the user.
func (e *env) orphanToken(t *testing.T, userID string) string {
	t.Helper()
	tok, err := e.tokens.Issue(core.Identity{UserID: userID})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return tok
}

func wantKind(t *testing.T, err, kind error) {
	t.Helper()
	if !core.IsKind(err, kind) {
		t.Fatalf("error = %v, want kind %v", err, kind)
	}
}

var ctx = context.Background()

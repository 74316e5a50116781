package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/markdave123-py/Lumen/internal/config"
	"github.com/markdave123-py/Lumen/internal/models"
	"github.com/markdave123-py/Lumen/internal/pkg/logger"
)

// fakeAI serves the summarizer and detector endpoints.
func fakeAI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/summarize", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"summary": "A talk about graphs."})
	})
	mux.HandleFunc("/process_video", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "started"})
	})
	mux.HandleFunc("/get_results/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"completed","message":"done","object_count":1,"detected_objects":[{"filename":"o1.png","path":"/d/o1.png"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, aiURL string) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Port:            "0",
		DatabaseDriver:  "sqlite",
		DatabaseURL:     filepath.Join(dir, "lumen.db"),
		JWTSecret:       "test-secret",
		JWTTTL:          time.Hour,
		StorageBackend:  "local",
		UploadDir:       filepath.Join(dir, "uploads"),
		BucketName:      "uploads",
		SummarizerURL:   aiURL + "/summarize",
		DetectorURL:     aiURL,
		OCRURL:          aiURL + "/process_file",
		OCRBackend:      "docconv",
		PollTimeout:     5 * time.Second,
		IngestWorkers:   2,
		IngestQueueSize: 8,
		BreakerEnabled:  true,
		CORSOrigins:     []string{"http://localhost:3000"},
		MetricsEnabled:  true,
	}
}

type client struct {
	t      *testing.T
	router http.Handler
	token  string
}

func (c *client) call(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func TestAppEndToEnd(t *testing.T) {
	ai := fakeAI(t)
	cfg := testConfig(t, ai.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := NewApp(ctx, cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	a.Start(ctx)
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := a.Shutdown(shutdownCtx); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	}()

	c := &client{t: t, router: a.Server.httpServer.Handler}

	if rec := c.call(http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}

	if rec := c.call(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "correct horse",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d body=%s", rec.Code, rec.Body.String())
	}
	rec := c.call(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ada@example.com", "password": "correct horse",
	})
	var login map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &login)
	c.token = login["token"]
	if c.token == "" {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = c.call(http.MethodPost, "/api/upload/video", map[string]string{"video_url": "https://x/video.mp4"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d body=%s", rec.Code, rec.Body.String())
	}
	var view models.SessionView
	_ = json.Unmarshal(rec.Body.Bytes(), &view)
	if view.Video == nil {
		t.Fatalf("no video in view: %s", rec.Body.String())
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = c.call(http.MethodGet, "/api/sessions/"+view.ID, nil)
		_ = json.Unmarshal(rec.Body.Bytes(), &view)
		if view.SummaryText == "A talk about graphs." {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("summary never arrived: %s", rec.Body.String())
		}
		time.Sleep(20 * time.Millisecond)
	}

	rec = c.call(http.MethodGet, "/api/videos/"+view.Video.ID+"/diagram-status", nil)
	var status models.DiagramStatusResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &status)
	if status.Status != models.DiagramStatusCompleted || status.ObjectCount != 1 {
		t.Fatalf("diagram status = %+v", status)
	}

	rec = c.call(http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "lumen_pipeline_stage_total") {
		t.Fatalf("metrics missing pipeline series: %d", rec.Code)
	}

	rec = c.call(http.MethodPost, "/api/sessions/"+view.ID+"/chat", map[string]string{"message": "hi"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("chat without llm status = %d", rec.Code)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	ai := fakeAI(t)
	cfg := testConfig(t, ai.URL)
	a, err := NewApp(context.Background(), cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer a.Close()

	c := &client{t: t, router: a.Server.httpServer.Handler}
	if rec := c.call(http.MethodGet, "/api/videos/v1/diagrams", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec := c.call(http.MethodGet, "/api/sessions", nil); rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("anonymous list = %d %s", rec.Code, rec.Body.String())
	}
}

func TestNewObjectClientRejectsUnknownBackend(t *testing.T) {
	if _, err := newObjectClient(context.Background(), &config.Config{StorageBackend: "ftp"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

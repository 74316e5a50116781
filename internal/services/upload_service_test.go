package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/core/ingestion_engine"
	objectclient "github.com/markdave123-py/Lumen/internal/core/object-client"
	"github.com/markdave123-py/Lumen/internal/models"
)

func newUploadService(t *testing.T, e *env, jobs JobScheduler) (*UploadService, *objectclient.LocalClient) {
	t.Helper()
	objects, err := objectclient.NewLocalClient(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalClient() error = %v", err)
	}
	return NewUploadService(e.store, objects, "uploads", e.tokens, jobs, nil), objects
}

func TestSubmitVideo(t *testing.T) {
	e := newEnv(t)
	jobs := &recordingScheduler{}
	svc, _ := newUploadService(t, e, jobs)
	token := e.tokenFor(t, "u1")

	id, err := svc.SubmitVideo(ctx, "Bearer "+token, " https://x/video.mp4 ")
	if err != nil {
		t.Fatalf("SubmitVideo() error = %v", err)
	}

	v, err := e.store.GetVideoByID(ctx, id)
	if err != nil || v == nil {
		t.Fatalf("GetVideoByID() = %v, %v", v, err)
	}
	if v.SourceURL != "https://x/video.mp4" || v.HistoryID != nil {
		t.Fatalf("unexpected video %+v", v)
	}
	if v.DiagramExtractionStatus != models.StatusProcessing || v.SummarizationStatus != models.StatusProcessing {
		t.Fatalf("statuses = %s/%s, want Processing", v.DiagramExtractionStatus, v.SummarizationStatus)
	}
	got := jobs.list()
	if len(got) != 1 || got[0].Kind != models.KindVideo || got[0].ArtifactID != id {
		t.Fatalf("unexpected jobs %+v", got)
	}
}

func TestSubmitVideoRejects(t *testing.T) {
	e := newEnv(t)
	jobs := &recordingScheduler{}
	svc, _ := newUploadService(t, e, jobs)
	token := e.tokenFor(t, "u1")

	_, err := svc.SubmitVideo(ctx, token, "")
	wantKind(t, err, core.ErrInvalidInput)

	_, err = svc.SubmitVideo(ctx, token, "ftp://x/video.mp4")
	wantKind(t, err, core.ErrInvalidInput)

	_, err = svc.SubmitVideo(ctx, "", "https://x/video.mp4")
	wantKind(t, err, core.ErrUnauthenticated)

	_, err = svc.SubmitVideo(ctx, "garbage", "https://x/video.mp4")
	wantKind(t, err, core.ErrUnauthenticated)

	_, err = svc.SubmitVideo(ctx, e.orphanToken(t, "ghost"), "https://x/video.mp4")
	wantKind(t, err, core.ErrIdentityNotFound)

	if n := len(jobs.list()); n != 0 {
		t.Fatalf("rejected submissions scheduled %d jobs", n)
	}
}

func TestSubmitDocument(t *testing.T) {
	e := newEnv(t)
	jobs := &recordingScheduler{}
	svc, objects := newUploadService(t, e, jobs)
	token := e.tokenFor(t, "u1")

	id, err := svc.SubmitDocument(ctx, token, DocumentUpload{
		FileName:    "My Notes.PDF",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4"),
	})
	if err != nil {
		t.Fatalf("SubmitDocument() error = %v", err)
	}

	d, err := e.store.GetDocumentByID(ctx, id)
	if err != nil || d == nil {
		t.Fatalf("GetDocumentByID() = %v, %v", d, err)
	}
	if d.Status != models.StatusProcessing || d.FileType != "pdf" || d.Title != "My_Notes" {
		t.Fatalf("unexpected document %+v", d)
	}
	if !strings.HasPrefix(d.FilePath, "users/u1/documents/"+id+"/") {
		t.Fatalf("unexpected object key %q", d.FilePath)
	}
	data, err := objects.GetFile(ctx, "uploads", d.FilePath)
	if err != nil || string(data) != "%PDF-1.4" {
		t.Fatalf("stored file = %q, %v", data, err)
	}
	if got := jobs.list(); len(got) != 1 || got[0].Kind != models.KindDocument {
		t.Fatalf("unexpected jobs %+v", got)
	}
}

func TestSubmitDocumentRejects(t *testing.T) {
	e := newEnv(t)
	svc, _ := newUploadService(t, e, &recordingScheduler{})
	token := e.tokenFor(t, "u1")

	_, err := svc.SubmitDocument(ctx, token, DocumentUpload{FileName: "a.pdf"})
	wantKind(t, err, core.ErrInvalidInput)

	_, err = svc.SubmitDocument(ctx, token, DocumentUpload{FileName: "a.exe", Data: []byte("MZ")})
	wantKind(t, err, core.ErrInvalidInput)

	_, err = svc.SubmitDocument(ctx, "", DocumentUpload{FileName: "a.txt", Data: []byte("hi")})
	wantKind(t, err, core.ErrUnauthenticated)
}

type blockingSummarizer struct{ release chan struct{} }

func (b blockingSummarizer) Summarize(ctx context.Context, _ string) (string, error) {
	<-b.release
	return "a slow summary", nil
}

type noopDetector struct{}

func (noopDetector) StartDetection(context.Context, string, string) error { return nil }
func (noopDetector) FetchDetection(context.Context, string) ([]byte, error) {
	return nil, nil
}

func TestSubmitReturnsBeforeStagesFinish(t *testing.T) {
	e := newEnv(t)
	release := make(chan struct{})
	ingestor := ingestion_engine.NewArtifactIngestor(ingestion_engine.Deps{
		Store:      e.store,
		Summarizer: blockingSummarizer{release: release},
		Detector:   noopDetector{},
	}, ingestion_engine.IngestConfig{Workers: 1, QueueSize: 4})
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ingestor.Start(runCtx, 1)

	svc, _ := newUploadService(t, e, ingestor)
	token := e.tokenFor(t, "u1")

	id, err := svc.SubmitVideo(ctx, token, "https://x/video.mp4")
	if err != nil {
		t.Fatalf("SubmitVideo() error = %v", err)
	}
	v, err := e.store.GetVideoByID(ctx, id)
	if err != nil || v == nil || v.SummarizationStatus != models.StatusProcessing {
		t.Fatalf("video after submit = %+v, %v", v, err)
	}

	close(release)
	deadline := time.Now().Add(5 * time.Second)
	for {
		v, _ = e.store.GetVideoByID(ctx, id)
		if v != nil && v.SummarizationStatus == models.StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("summarization never completed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	shutdownCtx, stop := context.WithTimeout(ctx, 5*time.Second)
	defer stop()
	if err := ingestor.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

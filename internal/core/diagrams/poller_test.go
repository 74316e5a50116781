package diagrams

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/markdave123-py/Lumen/internal/core"
	db "github.com/markdave123-py/Lumen/internal/core/database"
	"github.com/markdave123-py/Lumen/internal/core/database/dbtest"
	"github.com/markdave123-py/Lumen/internal/models"
)

type fakeDetector struct {
	body []byte
	err  error

	mu    sync.Mutex
	polls []string
}

func (f *fakeDetector) StartDetection(context.Context, string, string) error { return nil }

func (f *fakeDetector) FetchDetection(_ context.Context, jobKey string) ([]byte, error) {
	f.mu.Lock()
	f.polls = append(f.polls, jobKey)
	f.mu.Unlock()
	return f.body, f.err
}

func (f *fakeDetector) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.polls)
}

// boundVideo seeds a user, a video in Processing and a session owning it.
func boundVideo(t *testing.T, store *db.DatabaseClient) string {
	t.Helper()
	dbtest.SeedUser(t, store, "u1")
	dbtest.SeedVideo(t, store, "v1", "https://x/video.mp4")
	return dbtest.Bind(t, store, "s1", "u1", models.KindVideo, "v1")
}

func loadVideo(t *testing.T, store *db.DatabaseClient, id string) *models.Video {
	t.Helper()
	v, err := store.GetVideoByID(context.Background(), id)
	if err != nil || v == nil {
		t.Fatalf("GetVideoByID() = %v, %v", v, err)
	}
	return v
}

func TestCompletedResultStoresOneDiagramPerObject(t *testing.T) {
	store := dbtest.NewSQLite(t)
	boundVideo(t, store)
	det := &fakeDetector{body: []byte(`{"status":"completed","detected_objects":[{"filename":"o1.png","path":"/d/o1.png"}]}`)}
	p := NewPoller(store, det, nil, nil)
	ctx := context.Background()

	resp := p.FetchDiagramStatus(ctx, "v1")
	if resp.Status != models.DiagramStatusCompleted || resp.ObjectCount != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}

	v := loadVideo(t, store, "v1")
	if v.DiagramExtractionStatus != models.StatusCompleted || v.DiagramCount != 1 {
		t.Fatalf("unexpected video state %s count=%d", v.DiagramExtractionStatus, v.DiagramCount)
	}
	rows := p.GetDiagrams(ctx, "v1")
	if len(rows) != 1 || rows[0].FilePath != "/d/o1.png" || rows[0].HistoryID != "s1" {
		t.Fatalf("unexpected diagrams %+v", rows)
	}

	// A second poll answers from the store without another detector call.
	again := p.FetchDiagramStatus(ctx, "v1")
	if again.Status != models.DiagramStatusCompleted || len(again.DetectedObjects) != 1 {
		t.Fatalf("unexpected cached response %+v", again)
	}
	if det.calls() != 1 {
		t.Fatalf("detector polled %d times, want 1", det.calls())
	}
	if rows := p.GetDiagrams(ctx, "v1"); len(rows) != 1 {
		t.Fatalf("repeat poll duplicated diagrams: %d rows", len(rows))
	}
}

func TestCompletedWithoutObjectsMarksError(t *testing.T) {
	store := dbtest.NewSQLite(t)
	boundVideo(t, store)
	det := &fakeDetector{body: []byte(`{"status":"completed","detected_objects":[]}`)}
	p := NewPoller(store, det, nil, nil)

	resp := p.FetchDiagramStatus(context.Background(), "v1")
	if resp.Status != models.DiagramStatusError {
		t.Fatalf("Status = %q, want error", resp.Status)
	}
	if v := loadVideo(t, store, "v1"); v.DiagramExtractionStatus != models.StatusError {
		t.Fatalf("DiagramExtractionStatus = %s, want Error", v.DiagramExtractionStatus)
	}
	if rows := p.GetDiagrams(context.Background(), "v1"); len(rows) != 0 {
		t.Fatalf("expected no diagrams, got %d", len(rows))
	}
}

func TestProcessingPollIsIdempotent(t *testing.T) {
	store := dbtest.NewSQLite(t)
	boundVideo(t, store)
	det := &fakeDetector{body: []byte(`{"status":"processing","message":"working","object_count":0,"detected_objects":[]}`)}
	p := NewPoller(store, det, nil, nil)
	ctx := context.Background()

	before := loadVideo(t, store, "v1")
	for i := 0; i < 2; i++ {
		resp := p.FetchDiagramStatus(ctx, "v1")
		if resp.Status != models.DiagramStatusProcessing {
			t.Fatalf("poll %d: Status = %q, want processing", i, resp.Status)
		}
	}
	after := loadVideo(t, store, "v1")
	if after.DiagramExtractionStatus != models.StatusProcessing || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("processing poll wrote to the video: %+v", after)
	}
	if rows := p.GetDiagrams(ctx, "v1"); len(rows) != 0 {
		t.Fatalf("expected no diagrams, got %d", len(rows))
	}
}

func TestTolerantResponseIsUsable(t *testing.T) {
	store := dbtest.NewSQLite(t)
	boundVideo(t, store)
	det := &fakeDetector{body: []byte(`{"status":"completed","object_count":1,"detected_objects":[{"filename":"o1.png","path":"/d/o1.png"}]}`)}
	p := NewPoller(store, det, nil, nil)

	resp := p.FetchDiagramStatus(context.Background(), "v1")
	if resp.Status != models.DiagramStatusCompleted || resp.ObjectCount != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestDescriptorWithoutPathStillCompletes(t *testing.T) {
	store := dbtest.NewSQLite(t)
	boundVideo(t, store)
	det := &fakeDetector{body: []byte(`{"status":"completed","object_count":1,"detected_objects":[{"filename":"o1.png"}]}`)}
	p := NewPoller(store, det, nil, nil)
	ctx := context.Background()

	resp := p.FetchDiagramStatus(ctx, "v1")
	if resp.Status != models.DiagramStatusCompleted || resp.ObjectCount != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	rows := p.GetDiagrams(ctx, "v1")
	if len(rows) != 1 || rows[0].FileName != "o1.png" || rows[0].FilePath != "" {
		t.Fatalf("unexpected diagrams %+v", rows)
	}
}

func TestEmptyResultMessageStoredAsValidUTF8(t *testing.T) {
	store := dbtest.NewSQLite(t)
	boundVideo(t, store)
	msg := strings.Repeat("a", models.MaxStatusMessage-1) + "é"
	det := &fakeDetector{body: []byte(`{"status":"completed","message":"` + msg + `","object_count":0,"detected_objects":[]}`)}
	p := NewPoller(store, det, nil, nil)

	if resp := p.FetchDiagramStatus(context.Background(), "v1"); resp.Status != models.DiagramStatusError {
		t.Fatalf("Status = %q, want error", resp.Status)
	}
	v := loadVideo(t, store, "v1")
	if v.DiagramExtractionStatus != models.StatusError {
		t.Fatalf("DiagramExtractionStatus = %s, want Error", v.DiagramExtractionStatus)
	}
	if !utf8.ValidString(v.DiagramMessage) || len(v.DiagramMessage) > models.MaxStatusMessage {
		t.Fatalf("stored diagnostic not clipped on a rune boundary (len %d)", len(v.DiagramMessage))
	}
}

func TestMalformedResponseMarksError(t *testing.T) {
	store := dbtest.NewSQLite(t)
	boundVideo(t, store)
	det := &fakeDetector{body: []byte(`<html>bad gateway</html>`)}
	p := NewPoller(store, det, nil, nil)

	resp := p.FetchDiagramStatus(context.Background(), "v1")
	if resp.Status != models.DiagramStatusError || resp.VideoID != "v1" || resp.DetectedObjects == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	v := loadVideo(t, store, "v1")
	if v.DiagramExtractionStatus != models.StatusError {
		t.Fatalf("DiagramExtractionStatus = %s, want Error", v.DiagramExtractionStatus)
	}
	if !strings.Contains(v.DiagramMessage, core.ErrUpstreamMalformed.Error()) {
		t.Fatalf("unexpected diagnostic %q", v.DiagramMessage)
	}
}

func TestUnavailableDetectorLeavesStatus(t *testing.T) {
	store := dbtest.NewSQLite(t)
	boundVideo(t, store)
	det := &fakeDetector{err: core.WrapError(core.ErrUpstreamUnavailable, "detector.poll", errors.New("timeout"))}
	p := NewPoller(store, det, nil, nil)

	resp := p.FetchDiagramStatus(context.Background(), "v1")
	if resp.Status != models.DiagramStatusError {
		t.Fatalf("Status = %q, want error", resp.Status)
	}
	if v := loadVideo(t, store, "v1"); v.DiagramExtractionStatus != models.StatusProcessing {
		t.Fatalf("DiagramExtractionStatus = %s, want Processing", v.DiagramExtractionStatus)
	}
}

func TestUnknownVideoSkipsDetector(t *testing.T) {
	store := dbtest.NewSQLite(t)
	det := &fakeDetector{}
	p := NewPoller(store, det, nil, nil)

	resp := p.FetchDiagramStatus(context.Background(), "missing")
	if resp.Status != models.DiagramStatusNotFound {
		t.Fatalf("Status = %q, want not_found", resp.Status)
	}
	if det.calls() != 0 {
		t.Fatalf("detector called for unknown video")
	}
	if rows := p.GetDiagrams(context.Background(), "missing"); rows == nil || len(rows) != 0 {
		t.Fatalf("GetDiagrams() = %#v, want empty list", rows)
	}
}

func TestUnboundVideoWaitsForSession(t *testing.T) {
	store := dbtest.NewSQLite(t)
	dbtest.SeedVideo(t, store, "v1", "https://x/video.mp4")
	det := &fakeDetector{body: []byte(`{"status":"completed","message":"","object_count":1,"detected_objects":[{"filename":"o1.png","path":"/d/o1.png"}]}`)}
	p := NewPoller(store, det, nil, nil)
	ctx := context.Background()

	if rows := p.GetDiagrams(ctx, "v1"); rows == nil || len(rows) != 0 {
		t.Fatalf("GetDiagrams() = %#v, want empty list", rows)
	}

	resp := p.FetchDiagramStatus(ctx, "v1")
	if resp.Status != models.DiagramStatusProcessing {
		t.Fatalf("Status = %q, want processing", resp.Status)
	}
	if v := loadVideo(t, store, "v1"); v.DiagramExtractionStatus != models.StatusProcessing {
		t.Fatalf("DiagramExtractionStatus = %s, want Processing", v.DiagramExtractionStatus)
	}

	dbtest.SeedUser(t, store, "u1")
	dbtest.Bind(t, store, "s1", "u1", models.KindVideo, "v1")
	if resp := p.FetchDiagramStatus(ctx, "v1"); resp.Status != models.DiagramStatusCompleted {
		t.Fatalf("Status after binding = %q, want completed", resp.Status)
	}
	if rows := p.GetDiagrams(ctx, "v1"); len(rows) != 1 {
		t.Fatalf("expected 1 diagram, got %d", len(rows))
	}
}

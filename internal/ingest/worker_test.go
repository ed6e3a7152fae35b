package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Uttutt17/akari/internal/catalog"
)

type mockAssetChecker struct {
	mu      sync.Mutex
	checked []string
	checkFn func(ctx context.Context, url string) error
}

func (m *mockAssetChecker) Check(ctx context.Context, url string) error {
	m.mu.Lock()
	m.checked = append(m.checked, url)
	m.mu.Unlock()
	if m.checkFn != nil {
		return m.checkFn(ctx, url)
	}
	return nil
}

func (m *mockAssetChecker) urls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.checked...)
	sort.Strings(out)
	return out
}

func openTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	s, err := catalog.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func enqueueTestImport(t *testing.T, store *catalog.Store, docID, content string) {
	t.Helper()
	doc := catalog.ImportDoc{
		ID:        docID,
		Source:    "test",
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.SaveImportDoc(doc); err != nil {
		t.Fatalf("SaveImportDoc: %v", err)
	}
	payload, _ := json.Marshal(map[string]string{"import_doc_id": docID})
	job := catalog.Job{
		ID:          "job-" + docID,
		Type:        "import_catalog",
		PayloadJSON: string(payload),
	}
	if err := store.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
}

// resetRunAfter sets run_after to now so the job is immediately claimable after FailJob backoff.
func resetRunAfter(t *testing.T, store *catalog.Store, jobID string) {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := store.DB().Exec(`UPDATE jobs SET run_after = ? WHERE id = ?`, now, jobID)
	if err != nil {
		t.Fatalf("resetRunAfter: %v", err)
	}
}

const testCSV = `product_id,name,category,attr:price,attr:foldability,attr:usage_context,asset:main_image
airpods-max,AirPods Max,Headphones,549,false,home|office|travel,https://example.com/max.jpg
airpods-pro,AirPods Pro,Earbuds,249,true,travel|gym,https://example.com/pro.jpg
`

func TestWorker_ProcessesImport(t *testing.T) {
	store := openTestStore(t)
	enqueueTestImport(t, store, "doc-1", testCSV)

	checker := &mockAssetChecker{}
	w := NewWorker(store, checker, 0)

	didWork, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if !didWork {
		t.Fatal("RunOnce returned false, expected true")
	}

	p, err := store.GetProduct("airpods-max")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got := p.Attributes["price"]; got.Kind != catalog.KindNumber || got.Num != 549 {
		t.Errorf("price = %+v, want number 549", got)
	}
	if got := p.Attributes["foldability"]; got.Kind != catalog.KindBool || got.Bool {
		t.Errorf("foldability = %+v, want boolean false", got)
	}
	if got := p.Attributes["usage_context"]; !got.Contains("office") {
		t.Errorf("usage_context = %+v, want array containing office", got)
	}

	want := []string{"https://example.com/max.jpg", "https://example.com/pro.jpg"}
	got := checker.urls()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("checked urls = %v, want %v", got, want)
	}

	// Queue drained.
	job, err := store.ClaimNextJob("import_catalog")
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if job != nil {
		t.Errorf("unexpected runnable job %s after completion", job.ID)
	}
}

func TestWorker_NoJob(t *testing.T) {
	store := openTestStore(t)
	w := NewWorker(store, nil, 0)

	didWork, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if didWork {
		t.Fatal("RunOnce returned true with an empty queue")
	}
}

func TestWorker_BadPayloadFailsJob(t *testing.T) {
	store := openTestStore(t)
	job := catalog.Job{ID: "job-bad", Type: "import_catalog", PayloadJSON: "{invalid"}
	if err := store.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	w := NewWorker(store, nil, 0)
	didWork, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if !didWork {
		t.Fatal("RunOnce returned false, expected true")
	}

	// Job is backed off, not immediately claimable.
	next, err := store.ClaimNextJob("import_catalog")
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if next != nil {
		t.Fatalf("job claimable immediately after failure, want backoff")
	}

	resetRunAfter(t, store, "job-bad")
	next, err = store.ClaimNextJob("import_catalog")
	if err != nil {
		t.Fatalf("ClaimNextJob after reset: %v", err)
	}
	if next == nil {
		t.Fatal("job not claimable after backoff reset")
	}
	if next.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", next.Attempts)
	}
}

func TestWorker_InvalidCSVFailsJob(t *testing.T) {
	store := openTestStore(t)
	enqueueTestImport(t, store, "doc-bad", "not,a,catalog\nx,y,z\n")

	w := NewWorker(store, nil, 0)
	didWork, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if !didWork {
		t.Fatal("RunOnce returned false, expected true")
	}

	resetRunAfter(t, store, "job-doc-bad")
	next, err := store.ClaimNextJob("import_catalog")
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if next == nil {
		t.Fatal("failed job not rescheduled")
	}
	if next.LastError == "" {
		t.Error("last_error empty, want parse failure recorded")
	}
}

func TestWorker_UnreachableAssetDoesNotFailImport(t *testing.T) {
	store := openTestStore(t)
	enqueueTestImport(t, store, "doc-2", testCSV)

	checker := &mockAssetChecker{
		checkFn: func(_ context.Context, url string) error {
			return fmt.Errorf("host unreachable")
		},
	}
	w := NewWorker(store, checker, 0)

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}

	if _, err := store.GetProduct("airpods-pro"); err != nil {
		t.Errorf("product not saved despite asset failures: %v", err)
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	store := openTestStore(t)
	w := NewWorker(store, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

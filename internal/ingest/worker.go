package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Uttutt17/akari/internal/catalog"
)

const assetVerifyConcurrency = 4

// JobStore abstracts the job queue and catalog operations the worker needs.
type JobStore interface {
	ClaimNextJob(jobType string) (*catalog.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	GetImportDoc(id string) (catalog.ImportDoc, error)
	SaveProduct(p catalog.Product) error
}

// AssetChecker verifies a visual asset URL is reachable.
type AssetChecker interface {
	Check(ctx context.Context, url string) error
}

// HTTPAssetChecker verifies asset URLs with HEAD requests.
type HTTPAssetChecker struct {
	Client *http.Client
}

func (c *HTTPAssetChecker) Check(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("invalid asset url: %w", err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return fmt.Errorf("asset url returned status %d", resp.StatusCode)
	}
	return nil
}

// Worker processes import_catalog jobs from the SQLite job queue.
type Worker struct {
	store   JobStore
	checker AssetChecker
	poll    time.Duration
	logger  *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms. A nil checker disables
// asset URL verification.
func NewWorker(store JobStore, checker AssetChecker, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:   store,
		checker: checker,
		poll:    pollInterval,
		logger:  slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single import_catalog job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob("import_catalog")
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

type importPayload struct {
	ImportDocID string `json:"import_doc_id"`
}

func (w *Worker) processJob(ctx context.Context, job *catalog.Job) error {
	var payload importPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	doc, err := w.store.GetImportDoc(payload.ImportDocID)
	if err != nil {
		return fmt.Errorf("loading import doc %s: %w", payload.ImportDocID, err)
	}

	products, err := ParseCatalog(strings.NewReader(doc.Content))
	if err != nil {
		return fmt.Errorf("parsing catalog: %w", err)
	}
	if len(products) == 0 {
		return fmt.Errorf("catalog contains no products")
	}

	for _, p := range products {
		if err := w.store.SaveProduct(p); err != nil {
			return fmt.Errorf("saving product %s: %w", p.ProductID, err)
		}
	}

	w.verifyAssets(ctx, products)

	w.logger.Info("catalog imported", "import_doc_id", doc.ID, "products", len(products))
	return nil
}

// verifyAssets probes every asset URL concurrently. Unreachable assets are
// logged but do not fail the import; the readiness check surfaces missing
// asset types at decision time.
func (w *Worker) verifyAssets(ctx context.Context, products []catalog.Product) {
	if w.checker == nil {
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(assetVerifyConcurrency)

	for _, p := range products {
		for _, asset := range p.Assets {
			g.Go(func() error {
				if err := w.checker.Check(ctx, asset.URL); err != nil {
					w.logger.Warn("asset unreachable",
						"product_id", p.ProductID,
						"asset_type", asset.AssetType,
						"url", asset.URL,
						"error", err,
					)
				}
				return nil
			})
		}
	}

	g.Wait()
}

package catalog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a SQLite-backed product catalog. It implements Lookup and adds
// write paths used by the management API and the import worker.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the catalog database in dataDir and applies
// pending migrations. Pass ":memory:" as dataDir for an in-memory database
// (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "akari.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Single connection avoids "database is locked" under the import worker.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// DB exposes the underlying database handle, primarily for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var applied int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&applied); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// --- Products ---

// SaveProduct inserts or replaces a product together with its attributes
// and visual assets.
func (s *Store) SaveProduct(p Product) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(`
		INSERT INTO products (product_id, name, category, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET name = excluded.name, category = excluded.category`,
		p.ProductID, p.Name, p.Category, now,
	); err != nil {
		return fmt.Errorf("upserting product %s: %w", p.ProductID, err)
	}

	var ref int64
	if err := tx.QueryRow("SELECT id FROM products WHERE product_id = ?", p.ProductID).Scan(&ref); err != nil {
		return fmt.Errorf("resolving product %s: %w", p.ProductID, err)
	}

	if _, err := tx.Exec("DELETE FROM product_attributes WHERE product_ref = ?", ref); err != nil {
		return fmt.Errorf("clearing attributes for %s: %w", p.ProductID, err)
	}
	if _, err := tx.Exec("DELETE FROM visual_assets WHERE product_ref = ?", ref); err != nil {
		return fmt.Errorf("clearing assets for %s: %w", p.ProductID, err)
	}

	for name, value := range p.Attributes {
		text, err := value.StoredText()
		if err != nil {
			return fmt.Errorf("encoding attribute %s: %w", name, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO product_attributes (product_ref, attribute_name, attribute_type, attribute_value)
			VALUES (?, ?, ?, ?)`,
			ref, name, string(value.Kind), text,
		); err != nil {
			return fmt.Errorf("inserting attribute %s: %w", name, err)
		}
	}

	for _, asset := range p.Assets {
		if _, err := tx.Exec(`
			INSERT INTO visual_assets (product_ref, asset_type, asset_url) VALUES (?, ?, ?)`,
			ref, asset.AssetType, asset.URL,
		); err != nil {
			return fmt.Errorf("inserting asset %s: %w", asset.AssetType, err)
		}
	}

	return tx.Commit()
}

// GetProduct returns a product with its attributes and assets.
// Returns ErrNotFound for unknown ids.
func (s *Store) GetProduct(productID string) (Product, error) {
	var (
		ref      int64
		p        Product
		category sql.NullString
	)
	err := s.db.QueryRow(
		"SELECT id, product_id, name, category FROM products WHERE product_id = ?", productID,
	).Scan(&ref, &p.ProductID, &p.Name, &category)
	if err == sql.ErrNoRows {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	p.Category = category.String

	p.Attributes, err = s.attributesByRef(context.Background(), ref)
	if err != nil {
		return Product{}, err
	}
	p.Assets, err = s.assetsByRef(context.Background(), ref)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// DeleteProduct removes a product and its attributes and assets.
// Returns ErrNotFound for unknown ids.
func (s *Store) DeleteProduct(productID string) error {
	res, err := s.db.Exec("DELETE FROM products WHERE product_id = ?", productID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListProducts returns every product in the catalog, ordered by product id.
func (s *Store) ListProducts() ([]Product, error) {
	rows, err := s.db.Query("SELECT product_id FROM products ORDER BY product_id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetProduct(id)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (s *Store) attributesByRef(ctx context.Context, ref int64) (map[string]Value, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT attribute_name, attribute_type, attribute_value
		FROM product_attributes WHERE product_ref = ?`, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attrs := make(map[string]Value)
	for rows.Next() {
		var name, kind, text string
		if err := rows.Scan(&name, &kind, &text); err != nil {
			return nil, err
		}
		attrs[name] = ParseStored(Kind(kind), text)
	}
	return attrs, rows.Err()
}

func (s *Store) assetsByRef(ctx context.Context, ref int64) ([]VisualAsset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_type, asset_url FROM visual_assets WHERE product_ref = ? ORDER BY id ASC`, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []VisualAsset
	for rows.Next() {
		var a VisualAsset
		if err := rows.Scan(&a.AssetType, &a.URL); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// --- Lookup implementation ---

// Attributes returns the attribute map for a product; empty for unknown ids.
func (s *Store) Attributes(ctx context.Context, productID string) (map[string]Value, error) {
	var ref int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM products WHERE product_id = ?", productID).Scan(&ref)
	if err == sql.ErrNoRows {
		return map[string]Value{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.attributesByRef(ctx, ref)
}

// AttributesBatch returns attribute maps for each requested product id.
func (s *Store) AttributesBatch(ctx context.Context, productIDs []string) (map[string]map[string]Value, error) {
	result := make(map[string]map[string]Value, len(productIDs))
	for _, id := range productIDs {
		attrs, err := s.Attributes(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading attributes for %s: %w", id, err)
		}
		result[id] = attrs
	}
	return result, nil
}

// VisualAssets returns the asset records for a product; empty for unknown ids.
func (s *Store) VisualAssets(ctx context.Context, productID string) ([]VisualAsset, error) {
	var ref int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM products WHERE product_id = ?", productID).Scan(&ref)
	if err == sql.ErrNoRows {
		return []VisualAsset{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.assetsByRef(ctx, ref)
}

// --- Import docs ---

func (s *Store) SaveImportDoc(doc ImportDoc) error {
	_, err := s.db.Exec(`
		INSERT INTO import_docs (id, source, content, created_at) VALUES (?, ?, ?, ?)`,
		doc.ID, doc.Source, doc.Content, doc.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetImportDoc(id string) (ImportDoc, error) {
	var doc ImportDoc
	var createdAt string
	err := s.db.QueryRow(
		"SELECT id, source, content, created_at FROM import_docs WHERE id = ?", id,
	).Scan(&doc.ID, &doc.Source, &doc.Content, &createdAt)
	if err == sql.ErrNoRows {
		return ImportDoc{}, ErrNotFound
	}
	if err != nil {
		return ImportDoc{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return ImportDoc{}, fmt.Errorf("parsing created_at: %w", err)
	}
	doc.CreatedAt = t
	return doc, nil
}

// --- Jobs ---

// EnqueueJob adds a pending job to the work queue.
func (s *Store) EnqueueJob(job Job) error {
	now := time.Now().UTC().Format(time.RFC3339)
	runAfter := now
	if !job.RunAfter.IsZero() {
		runAfter = job.RunAfter.UTC().Format(time.RFC3339)
	}
	maxAttempts := job.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	_, err := s.db.Exec(`
		INSERT INTO jobs (id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', 0, ?, ?, ?, ?)`,
		job.ID, job.Type, job.PayloadJSON, maxAttempts, runAfter, now, now,
	)
	return err
}

// ClaimNextJob atomically claims the oldest runnable job of the given type.
// Returns (nil, nil) when nothing is due.
func (s *Store) ClaimNextJob(jobType string) (*Job, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning claim transaction: %w", err)
	}
	defer tx.Rollback()

	var j Job
	var runAfter, createdAt, updatedAt string
	var lastError sql.NullString
	err = tx.QueryRow(`
		SELECT id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at, last_error
		FROM jobs
		WHERE status = 'pending' AND run_after <= ? AND type = ?
		ORDER BY run_after ASC, created_at ASC
		LIMIT 1`, now, jobType,
	).Scan(&j.ID, &j.Type, &j.PayloadJSON, &j.Status, &j.Attempts, &j.MaxAttempts,
		&runAfter, &createdAt, &updatedAt, &lastError)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("selecting next job: %w", err)
	}

	res, err := tx.Exec(
		"UPDATE jobs SET status = 'running', updated_at = ? WHERE id = ? AND status = 'pending'", now, j.ID)
	if err != nil {
		return nil, fmt.Errorf("updating job status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	j.Status = "running"
	j.LastError = lastError.String
	if j.RunAfter, err = time.Parse(time.RFC3339, runAfter); err != nil {
		return nil, fmt.Errorf("parsing run_after for job %s: %w", j.ID, err)
	}
	if j.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for job %s: %w", j.ID, err)
	}
	j.UpdatedAt = time.Now().UTC()
	return &j, nil
}

// CompleteJob marks a running job as completed.
func (s *Store) CompleteJob(id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec("UPDATE jobs SET status = 'completed', updated_at = ? WHERE id = ?", now, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FailJob records a failure; the job is rescheduled with exponential backoff
// until max_attempts is exhausted, then marked failed permanently.
func (s *Store) FailJob(id string, errMsg string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning fail transaction: %w", err)
	}
	defer tx.Rollback()

	var attempts, maxAttempts int
	err = tx.QueryRow("SELECT attempts, max_attempts FROM jobs WHERE id = ?", id).Scan(&attempts, &maxAttempts)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	attempts++

	if attempts >= maxAttempts {
		_, err = tx.Exec(
			"UPDATE jobs SET status = 'failed', attempts = ?, last_error = ?, updated_at = ? WHERE id = ?",
			attempts, errMsg, now.Format(time.RFC3339), id)
	} else {
		backoff := time.Duration(math.Pow(2, float64(attempts))) * time.Second
		_, err = tx.Exec(
			"UPDATE jobs SET status = 'pending', attempts = ?, last_error = ?, run_after = ?, updated_at = ? WHERE id = ?",
			attempts, errMsg, now.Add(backoff).Format(time.RFC3339), now.Format(time.RFC3339), id)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

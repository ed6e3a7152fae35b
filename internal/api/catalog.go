package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Uttutt17/akari/internal/catalog"
)

const maxImportBodySize = 10 << 20 // 10MB
const maxURLFetchSize = 5 << 20    // 5MB

// ImportRequest is a catalog CSV upload. Exactly one of Content or URL must
// be set; Encoding "base64" marks Content as base64-encoded.
type ImportRequest struct {
	Source   string `json:"source"`
	Content  string `json:"content"`
	URL      string `json:"url"`
	Encoding string `json:"encoding"`
}

// CatalogDeps holds dependencies for the authenticated catalog management API.
type CatalogDeps struct {
	Store      *catalog.Store
	Token      string
	HTTPClient *http.Client
}

// NewCatalogHandler returns the bearer-authenticated handler for catalog
// management: product CRUD and asynchronous CSV imports.
func NewCatalogHandler(deps CatalogDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(BearerAuth(deps.Token))

	r.Post("/import", handleImport(deps))
	r.Post("/products", handleSaveProduct(deps))
	r.Get("/products", handleListProducts(deps))
	r.Get("/products/{id}", handleGetProduct(deps))
	r.Delete("/products/{id}", handleDeleteProduct(deps))

	return r
}

func handleImport(deps CatalogDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBodySize)
		defer r.Body.Close()

		var req ImportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if req.Content == "" && req.URL == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "at least one of content or url is required")
			return
		}
		if req.Source == "" {
			req.Source = "api"
		}

		var resolvedContent string
		switch {
		case req.URL != "":
			ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
			defer cancel()

			httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid url: %v", err)
				return
			}
			resp, err := deps.HTTPClient.Do(httpReq)
			if err != nil {
				httpError(w, http.StatusBadGateway, "api_error", "failed to fetch url: %v", err)
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				httpError(w, http.StatusBadGateway, "api_error", "url returned status %d", resp.StatusCode)
				return
			}

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxURLFetchSize))
			if err != nil {
				httpError(w, http.StatusBadGateway, "api_error", "failed to read url response: %v", err)
				return
			}
			resolvedContent = string(body)

		case req.Encoding == "base64":
			decoded, err := base64.StdEncoding.DecodeString(req.Content)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 content")
				return
			}
			resolvedContent = string(decoded)

		default:
			resolvedContent = req.Content
		}

		docID := uuid.New().String()
		doc := catalog.ImportDoc{
			ID:        docID,
			Source:    req.Source,
			Content:   resolvedContent,
			CreatedAt: time.Now().UTC(),
		}
		if err := deps.Store.SaveImportDoc(doc); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save import: %v", err)
			return
		}

		payload, err := json.Marshal(map[string]string{"import_doc_id": docID})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create job payload: %v", err)
			return
		}
		job := catalog.Job{
			ID:          uuid.New().String(),
			Type:        "import_catalog",
			PayloadJSON: string(payload),
		}
		if err := deps.Store.EnqueueJob(job); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to enqueue job: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"id":     docID,
			"status": "queued",
		})
	}
}

func handleSaveProduct(deps CatalogDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var p catalog.Product
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if p.ProductID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "product_id is required")
			return
		}
		if p.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}

		if err := deps.Store.SaveProduct(p); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save product: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"product_id": p.ProductID,
			"status":     "saved",
		})
	}
}

func handleListProducts(deps CatalogDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := deps.Store.ListProducts()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list products: %v", err)
			return
		}

		if products == nil {
			products = []catalog.Product{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(products)
	}
}

func handleGetProduct(deps CatalogDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		p, err := deps.Store.GetProduct(id)
		if errors.Is(err, catalog.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get product: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)
	}
}

func handleDeleteProduct(deps CatalogDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := deps.Store.DeleteProduct(id)
		if errors.Is(err, catalog.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete product: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

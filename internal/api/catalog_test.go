package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Uttutt17/akari/internal/catalog"
)

const testToken = "test-token"

func newCatalogHandler(t *testing.T) (http.Handler, *catalog.Store) {
	t.Helper()
	store := newTestStore(t)
	h := NewCatalogHandler(CatalogDeps{
		Store:      store,
		Token:      testToken,
		HTTPClient: http.DefaultClient,
	})
	return h, store
}

func authedRequest(method, path, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func TestCatalogAuth(t *testing.T) {
	h, _ := newCatalogHandler(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong token", "Bearer wrong", http.StatusUnauthorized},
		{"not bearer", "Basic " + testToken, http.StatusUnauthorized},
		{"valid token", "Bearer " + testToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/products", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestSaveAndGetProduct(t *testing.T) {
	h, _ := newCatalogHandler(t)

	body := `{
		"product_id": "B1",
		"name": "AeroTune Max",
		"category": "headphones",
		"attributes": {
			"price": 549,
			"noise_cancellation": true,
			"usage_context": ["travel", "commute"],
			"case_size": "large"
		},
		"visual_assets": [
			{"asset_type": "main_image", "asset_url": "https://cdn.example.com/b1.jpg"}
		]
	}`

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authedRequest(http.MethodPost, "/products", body))
	if rr.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authedRequest(http.MethodGet, "/products/B1", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d: %s", rr.Code, rr.Body.String())
	}

	var p catalog.Product
	if err := json.NewDecoder(rr.Body).Decode(&p); err != nil {
		t.Fatalf("decoding product: %v", err)
	}

	if p.Name != "AeroTune Max" {
		t.Errorf("name = %q, want %q", p.Name, "AeroTune Max")
	}
	if got := p.Attributes["price"]; got.Kind != catalog.KindNumber || got.Num != 549 {
		t.Errorf("price = %+v, want number 549", got)
	}
	if got := p.Attributes["usage_context"]; !got.Contains("travel") {
		t.Errorf("usage_context = %+v, want to contain travel", got)
	}
	if len(p.Assets) != 1 || p.Assets[0].AssetType != "main_image" {
		t.Errorf("assets = %+v, want one main_image", p.Assets)
	}
}

func TestSaveProduct_Validation(t *testing.T) {
	h, _ := newCatalogHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing product_id", `{"name":"X"}`},
		{"missing name", `{"product_id":"B9"}`},
		{"invalid json", "{invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, authedRequest(http.MethodPost, "/products", tt.body))
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	h, _ := newCatalogHandler(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authedRequest(http.MethodGet, "/products/nope", ""))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestDeleteProduct(t *testing.T) {
	h, store := newCatalogHandler(t)
	seedTestProducts(t, store)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authedRequest(http.MethodDelete, "/products/B1", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authedRequest(http.MethodGet, "/products/B1", ""))
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authedRequest(http.MethodDelete, "/products/B1", ""))
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestListProducts_Empty(t *testing.T) {
	h, _ := newCatalogHandler(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authedRequest(http.MethodGet, "/products", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestImport_QueuesJob(t *testing.T) {
	h, store := newCatalogHandler(t)

	body := `{"source":"test","content":"product_id,name\nB1,AeroTune Max\n"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authedRequest(http.MethodPost, "/import", body))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp["status"] != "queued" {
		t.Errorf("status = %q, want queued", resp["status"])
	}

	doc, err := store.GetImportDoc(resp["id"])
	if err != nil {
		t.Fatalf("fetching import doc: %v", err)
	}
	if !strings.Contains(doc.Content, "AeroTune Max") {
		t.Errorf("doc content = %q, missing uploaded row", doc.Content)
	}

	job, err := store.ClaimNextJob("import_catalog")
	if err != nil {
		t.Fatalf("claiming job: %v", err)
	}
	if job == nil {
		t.Fatal("no import_catalog job queued")
	}
	if !strings.Contains(job.PayloadJSON, resp["id"]) {
		t.Errorf("job payload = %q, missing doc id %q", job.PayloadJSON, resp["id"])
	}
}

func TestImport_Base64(t *testing.T) {
	h, store := newCatalogHandler(t)

	// "product_id,name\nB2,AeroTune Lite\n" base64-encoded
	body := `{"source":"test","encoding":"base64","content":"cHJvZHVjdF9pZCxuYW1lCkIyLEFlcm9UdW5lIExpdGUK"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authedRequest(http.MethodPost, "/import", body))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	json.NewDecoder(rr.Body).Decode(&resp)

	doc, err := store.GetImportDoc(resp["id"])
	if err != nil {
		t.Fatalf("fetching import doc: %v", err)
	}
	if !strings.Contains(doc.Content, "AeroTune Lite") {
		t.Errorf("doc content = %q, want decoded CSV", doc.Content)
	}
}

func TestImport_MissingContent(t *testing.T) {
	h, _ := newCatalogHandler(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authedRequest(http.MethodPost, "/import", `{"source":"test"}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestImport_FromURL(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("product_id,name\nB3,AeroTune Sport\n"))
	}))
	defer upstream.Close()

	h, store := newCatalogHandler(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authedRequest(http.MethodPost, "/import", `{"source":"url","url":"`+upstream.URL+`"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	json.NewDecoder(rr.Body).Decode(&resp)

	doc, err := store.GetImportDoc(resp["id"])
	if err != nil {
		t.Fatalf("fetching import doc: %v", err)
	}
	if !strings.Contains(doc.Content, "AeroTune Sport") {
		t.Errorf("doc content = %q, want fetched CSV", doc.Content)
	}
}

package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Uttutt17/akari/internal/explain"
	"github.com/Uttutt17/akari/internal/pipeline"
	"github.com/Uttutt17/akari/internal/viz"
)

const maxRequestBodySize = 1 << 20 // 1MB

// QueryRequest is the shared request body for intent endpoints. ProductIDs
// may be omitted entirely, which triggers extraction from the query text;
// an explicit empty list suppresses extraction.
type QueryRequest struct {
	Query      string   `json:"query"`
	ProductIDs []string `json:"product_ids"`
}

// NewIntentHandler returns an http.Handler implementing the public decision
// API. When explainer is non-nil, explanation endpoints are enabled; passing
// nil makes them report the feature as unavailable.
func NewIntentHandler(p *pipeline.Pipeline, explainer *explain.Explainer) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/api/v1/intent/detect", handleDetect(p))
	r.Post("/api/v1/intent/process", handleProcess(p))
	r.Post("/api/v1/intent/choose", handleChoose(p))
	r.Post("/api/v1/explanation/generate", handleExplainGenerate(explainer))
	r.Post("/api/v1/explanation/full", handleExplainFull(p, explainer))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func decodeQueryRequest(w http.ResponseWriter, r *http.Request) (QueryRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return QueryRequest{}, false
	}
	if req.Query == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
		return QueryRequest{}, false
	}
	return req, true
}

func handleDetect(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeQueryRequest(w, r)
		if !ok {
			return
		}

		result := p.DetectIntent(req.Query, req.ProductIDs)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func handleProcess(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeQueryRequest(w, r)
		if !ok {
			return
		}

		result, payload, err := p.ProcessIntent(r.Context(), req.Query, req.ProductIDs)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "processing query: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"intent":        result,
			"visualization": payload,
		})
	}
}

func handleChoose(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeQueryRequest(w, r)
		if !ok {
			return
		}

		result, payload, verdict, err := p.HandleChoose(r.Context(), req.Query, req.ProductIDs)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "processing query: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"intent":        result,
			"visualization": payload,
			"pre_decision":  verdict,
		})
	}
}

func handleExplainGenerate(explainer *explain.Explainer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if explainer == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "explanation service not configured")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req explain.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		resp := explainer.Generate(r.Context(), req)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func handleExplainFull(p *pipeline.Pipeline, explainer *explain.Explainer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if explainer == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "explanation service not configured")
			return
		}

		req, ok := decodeQueryRequest(w, r)
		if !ok {
			return
		}

		result, payload, err := p.ProcessIntent(r.Context(), req.Query, req.ProductIDs)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "processing query: %v", err)
			return
		}

		resp := explainer.Generate(r.Context(), explain.Request{
			UserIntent:         string(result.IntentType),
			SelectedAttributes: payload.Data.Products,
			VisualEffects:      effectNames(payload.VisualEffects),
			Products:           payload.ProductIDs,
			UserQuery:          req.Query,
		})

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"intent":        result,
			"visualization": payload,
			"explanation":   resp,
		})
	}
}

func effectNames(effects []viz.Effect) []string {
	names := make([]string, len(effects))
	for i, e := range effects {
		names[i] = string(e)
	}
	return names
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

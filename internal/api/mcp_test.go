package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Uttutt17/akari/internal/catalog"
	"github.com/Uttutt17/akari/internal/intent"
	"github.com/Uttutt17/akari/internal/pipeline"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T) MCPDeps {
	t.Helper()
	store := newTestStore(t)
	seedTestProducts(t, store)
	return MCPDeps{
		Store:    store,
		Pipeline: pipeline.New(intent.NewClassifier(), store),
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPDetectIntent(t *testing.T) {
	deps := newTestMCPDeps(t)
	handler := mcpDetectIntent(deps)

	req := makeCallToolRequest("detect_intent", map[string]interface{}{
		"query": "compare the difference in price between airpods pro and airpods max",
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var parsed intent.Result
	if err := json.Unmarshal([]byte(toolText(t, result)), &parsed); err != nil {
		t.Fatalf("parsing tool output: %v", err)
	}
	if parsed.IntentType != intent.Compare {
		t.Errorf("intent_type = %q, want %q", parsed.IntentType, intent.Compare)
	}
}

func TestMCPDetectIntent_MissingQuery(t *testing.T) {
	deps := newTestMCPDeps(t)
	handler := mcpDetectIntent(deps)

	req := makeCallToolRequest("detect_intent", map[string]interface{}{})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing query")
	}
}

func TestMCPProcessIntent(t *testing.T) {
	deps := newTestMCPDeps(t)
	handler := mcpProcessIntent(deps)

	req := makeCallToolRequest("process_intent", map[string]interface{}{
		"query":       "compare the difference in price and weight side by side",
		"product_ids": []interface{}{"B1", "B2"},
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var parsed struct {
		Visualization struct {
			ProductIDs         []string `json:"product_ids"`
			SelectedAttributes []string `json:"selected_attributes"`
		} `json:"visualization"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &parsed); err != nil {
		t.Fatalf("parsing tool output: %v", err)
	}
	if len(parsed.Visualization.ProductIDs) != 2 {
		t.Errorf("product_ids = %v, want 2 entries", parsed.Visualization.ProductIDs)
	}
	if len(parsed.Visualization.SelectedAttributes) == 0 {
		t.Error("selected_attributes is empty")
	}
}

func TestMCPChooseProduct(t *testing.T) {
	deps := newTestMCPDeps(t)
	handler := mcpChooseProduct(deps)

	req := makeCallToolRequest("choose_product", map[string]interface{}{
		"query":       "which one should i buy for travel use on long flights",
		"product_ids": []interface{}{"B1", "B2"},
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var parsed struct {
		PreDecision struct {
			Checks json.RawMessage `json:"checks"`
		} `json:"pre_decision"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &parsed); err != nil {
		t.Fatalf("parsing tool output: %v", err)
	}
	if string(parsed.PreDecision.Checks) == "null" {
		t.Error("pre_decision.checks is null, want populated checks")
	}
}

func TestMCPListProducts(t *testing.T) {
	deps := newTestMCPDeps(t)
	handler := mcpListProducts(deps)

	req := makeCallToolRequest("list_products", map[string]interface{}{})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var products []catalog.Product
	if err := json.Unmarshal([]byte(toolText(t, result)), &products); err != nil {
		t.Fatalf("parsing tool output: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("got %d products, want 2", len(products))
	}
}

func TestMCPResourceProducts(t *testing.T) {
	deps := newTestMCPDeps(t)
	handler := mcpResourceProducts(deps)

	contents, err := handler(context.Background(), makeReadResourceRequest("catalog://products"))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}

	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.MIMEType != "application/json" {
		t.Errorf("mime type = %q", tc.MIMEType)
	}
	if !strings.Contains(tc.Text, "AeroTune Max") {
		t.Errorf("resource text missing seeded product: %s", tc.Text)
	}
}

func TestNewMCPServer(t *testing.T) {
	deps := newTestMCPDeps(t)
	s := NewMCPServer(deps)
	if s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

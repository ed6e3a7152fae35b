package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Uttutt17/akari/internal/catalog"
	"github.com/Uttutt17/akari/internal/pipeline"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    *catalog.Store
	Pipeline *pipeline.Pipeline
}

// NewMCPServer creates an MCP server with the decision tools and catalog
// resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"akari",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("akari product decision support: classify query intent, compose attribute visualizations, and gate purchase decisions."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("detect_intent",
			mcp.WithDescription("Classify a free-text product query into an intent with confidence, detected products, and extracted context."),
			mcp.WithString("query", mcp.Description("The user query"), mcp.Required()),
			mcp.WithArray("product_ids", mcp.Description("Optional product ids; omit to extract from the query text")),
		),
		mcpDetectIntent(deps),
	)

	s.AddTool(
		mcp.NewTool("process_intent",
			mcp.WithDescription("Run the full pipeline: classify the query, map it to attributes and effects, and compose a visualization payload."),
			mcp.WithString("query", mcp.Description("The user query"), mcp.Required()),
			mcp.WithArray("product_ids", mcp.Description("Optional product ids; omit to extract from the query text")),
		),
		mcpProcessIntent(deps),
	)

	s.AddTool(
		mcp.NewTool("choose_product",
			mcp.WithDescription("Process a purchase-decision query and run the pre-decision readiness checks over the detected products."),
			mcp.WithString("query", mcp.Description("The user query"), mcp.Required()),
			mcp.WithArray("product_ids", mcp.Description("Optional product ids; omit to extract from the query text")),
		),
		mcpChooseProduct(deps),
	)

	s.AddTool(
		mcp.NewTool("list_products",
			mcp.WithDescription("List catalog products with their attributes and visual assets."),
		),
		mcpListProducts(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"catalog://products",
			"Product Catalog",
			mcp.WithResourceDescription("All catalog products as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProducts(deps),
	)

	return s
}

func toolQueryArgs(req mcp.CallToolRequest) (string, []string, *mcp.CallToolResult) {
	query, err := req.RequireString("query")
	if err != nil {
		return "", nil, mcpError("query is required")
	}
	// Absent product_ids means extract from the query text.
	productIDs := req.GetStringSlice("product_ids", nil)
	return query, productIDs, nil
}

func mcpDetectIntent(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, productIDs, errResult := toolQueryArgs(req)
		if errResult != nil {
			return errResult, nil
		}

		result := deps.Pipeline.DetectIntent(query, productIDs)

		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpProcessIntent(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, productIDs, errResult := toolQueryArgs(req)
		if errResult != nil {
			return errResult, nil
		}

		result, payload, err := deps.Pipeline.ProcessIntent(ctx, query, productIDs)
		if err != nil {
			return mcpError(fmt.Sprintf("processing failed: %v", err)), nil
		}

		b, err := json.Marshal(map[string]any{
			"intent":        result,
			"visualization": payload,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpChooseProduct(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, productIDs, errResult := toolQueryArgs(req)
		if errResult != nil {
			return errResult, nil
		}

		result, payload, verdict, err := deps.Pipeline.HandleChoose(ctx, query, productIDs)
		if err != nil {
			return mcpError(fmt.Sprintf("processing failed: %v", err)), nil
		}

		b, err := json.Marshal(map[string]any{
			"intent":        result,
			"visualization": payload,
			"pre_decision":  verdict,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListProducts(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		products, err := deps.Store.ListProducts()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list products: %v", err)), nil
		}
		if products == nil {
			products = []catalog.Product{}
		}

		b, err := json.Marshal(products)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal products: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceProducts(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		products, err := deps.Store.ListProducts()
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		if products == nil {
			products = []catalog.Product{}
		}

		b, err := json.Marshal(products)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal products: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

// Package gate implements the pre-decision check pipeline for choose-style
// queries. Four independent checks each produce a pass flag plus supporting
// metrics; the gate passes only when all four do. A failing gate never
// aborts anything; it is reported back to the caller as data.
package gate

import (
	"context"
	"fmt"

	"github.com/Uttutt17/akari/internal/catalog"
	"github.com/Uttutt17/akari/internal/intent"
)

// Checks holds the per-check breakdown of a gate evaluation.
type Checks struct {
	AttributeCompleteness CompletenessResult `json:"attribute_completeness"`
	UserContext           ContextResult      `json:"user_context"`
	VisualizationReady    ReadinessResult    `json:"visualization_ready"`
	DecisionConfidence    ConfidenceResult   `json:"decision_confidence"`
}

// Result is the overall gate verdict. Checks is nil when the gate was never
// evaluated (no products detected upstream).
type Result struct {
	Passed  bool    `json:"passed"`
	Checks  *Checks `json:"checks"`
	Message string  `json:"message"`
}

// NotEvaluated returns the short-circuit verdict used when there was nothing
// to gate.
func NotEvaluated(message string) Result {
	return Result{Passed: false, Checks: nil, Message: message}
}

// Gate evaluates the pre-decision checks against the catalog lookup.
type Gate struct {
	lookup         catalog.Lookup
	requiredAssets []string
}

// New creates a Gate requiring the default asset set (main_image) on every
// product.
func New(lookup catalog.Lookup) *Gate {
	return &Gate{lookup: lookup, requiredAssets: []string{"main_image"}}
}

// Evaluate runs all four checks. queryClarity is supplied by the caller
// (the pipeline derives it from query word count); the gate does not second-
// guess it. Only lookup failures surface as errors.
func (g *Gate) Evaluate(
	ctx context.Context,
	productIDs []string,
	requiredAttrs []string,
	userCtx intent.Context,
	queryClarity float64,
) (Result, error) {
	perProduct, err := g.lookup.AttributesBatch(ctx, productIDs)
	if err != nil {
		return Result{}, fmt.Errorf("loading product attributes: %w", err)
	}

	completeness := CheckCompleteness(productIDs, requiredAttrs, perProduct)
	contextMatch := CheckUserContext(productIDs, userCtx, perProduct)

	readiness, err := g.checkReadiness(ctx, productIDs)
	if err != nil {
		return Result{}, err
	}

	confidence := CheckConfidence(completeness, contextMatch, readiness, queryClarity)

	checks := &Checks{
		AttributeCompleteness: completeness,
		UserContext:           contextMatch,
		VisualizationReady:    readiness,
		DecisionConfidence:    confidence,
	}
	passed := completeness.Passed && contextMatch.Passed && readiness.Passed && confidence.Passed

	return Result{Passed: passed, Checks: checks, Message: confidence.Message}, nil
}

func (g *Gate) checkReadiness(ctx context.Context, productIDs []string) (ReadinessResult, error) {
	assetTypes := make(map[string]map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		assets, err := g.lookup.VisualAssets(ctx, id)
		if err != nil {
			return ReadinessResult{}, fmt.Errorf("loading assets for %s: %w", id, err)
		}
		types := make(map[string]struct{}, len(assets))
		for _, a := range assets {
			types[a.AssetType] = struct{}{}
		}
		assetTypes[id] = types
	}
	return CheckReadiness(productIDs, g.requiredAssets, assetTypes), nil
}

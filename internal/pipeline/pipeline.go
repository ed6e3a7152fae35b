// Package pipeline sequences the decision-support flow: classify the query,
// map the intent to attributes and effects, filter by catalog availability,
// compose the visualization, and (for choose-style queries) run the
// pre-decision gate. Every step is synchronous and deterministic given the
// same lookup responses.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Uttutt17/akari/internal/catalog"
	"github.com/Uttutt17/akari/internal/gate"
	"github.com/Uttutt17/akari/internal/intent"
	"github.com/Uttutt17/akari/internal/viz"
)

const noProductsMessage = "No products detected in query. Please specify product names or IDs."

// Pipeline wires the stateless core components to the catalog lookup.
// Safe for concurrent use; all request state lives on the stack.
type Pipeline struct {
	classifier *intent.Classifier
	lookup     catalog.Lookup
	gate       *gate.Gate
}

// New creates a Pipeline over the given lookup.
func New(classifier *intent.Classifier, lookup catalog.Lookup) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		lookup:     lookup,
		gate:       gate.New(lookup),
	}
}

// DetectIntent classifies a query without touching the catalog.
func (p *Pipeline) DetectIntent(query string, productIDs []string) intent.Result {
	return p.classifier.Detect(query, productIDs)
}

// ProcessIntent runs the standard flow. When no products can be resolved the
// returned payload is empty but valid, carrying an explanatory message; this
// is a degraded input, not an error.
func (p *Pipeline) ProcessIntent(ctx context.Context, query string, productIDs []string) (intent.Result, viz.Payload, error) {
	result := p.classifier.Detect(query, productIDs)

	ids := result.DetectedProducts
	if len(ids) == 0 {
		return result, viz.Empty(noProductsMessage), nil
	}

	requested := intent.AttributesFor(result.IntentType, result.ExtractedContext)
	effects := intent.EffectsFor(result.IntentType, result.ExtractedContext)

	perProduct, err := p.lookup.AttributesBatch(ctx, ids)
	if err != nil {
		return result, viz.Payload{}, err
	}

	available := FilterAvailable(requested, perProduct)
	payload := viz.Compose(ids, available, effects, perProduct)

	slog.Debug("intent processed",
		"intent", result.IntentType,
		"confidence", result.Confidence,
		"products", len(ids),
		"attributes", len(available),
	)
	return result, payload, nil
}

// HandleChoose runs the gated flow: the standard flow followed by the
// pre-decision checks. With no products resolved the gate is not evaluated
// at all and a short-circuit verdict is returned. A failing gate annotates
// the payload message but never suppresses the payload itself.
func (p *Pipeline) HandleChoose(ctx context.Context, query string, productIDs []string) (intent.Result, viz.Payload, gate.Result, error) {
	result, payload, err := p.ProcessIntent(ctx, query, productIDs)
	if err != nil {
		return result, payload, gate.Result{}, err
	}

	if len(payload.ProductIDs) == 0 {
		return result, payload, gate.NotEvaluated("No products detected"), nil
	}

	verdict, err := p.gate.Evaluate(
		ctx,
		payload.ProductIDs,
		payload.SelectedAttributes,
		result.ExtractedContext,
		QueryClarity(query),
	)
	if err != nil {
		return result, payload, gate.Result{}, err
	}

	if !verdict.Passed {
		payload.Message = verdict.Message
	}
	return result, payload, verdict, nil
}

// QueryClarity estimates how well-formed a query is from its word count:
// ten words or more counts as fully clear.
func QueryClarity(query string) float64 {
	clarity := float64(len(strings.Fields(query))) / 10.0
	if clarity > 1.0 {
		clarity = 1.0
	}
	return clarity
}

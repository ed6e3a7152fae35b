package gate

import (
	"fmt"
	"strings"

	"github.com/Uttutt17/akari/internal/catalog"
	"github.com/Uttutt17/akari/internal/intent"
)

const (
	coverageThreshold   = 0.8
	confidenceThreshold = 0.7

	attributeWeight     = 0.4
	contextWeight       = 0.2
	visualizationWeight = 0.2
	clarityWeight       = 0.2
)

// CompletenessResult reports how much of the requested attribute set is
// available across the product group.
type CompletenessResult struct {
	Passed            bool     `json:"passed"`
	MissingAttributes []string `json:"missing_attributes"`
	Coverage          float64  `json:"coverage"`
	AvailableCount    int      `json:"available_count"`
	TotalCount        int      `json:"total_count"`
	Message           string   `json:"message"`
}

// CheckCompleteness counts each required attribute as available when at
// least one product carries it. Degenerate input (no products or no
// required attributes) fails with coverage 0.
func CheckCompleteness(productIDs []string, required []string, perProduct map[string]map[string]catalog.Value) CompletenessResult {
	if len(productIDs) == 0 || len(required) == 0 {
		return CompletenessResult{
			Passed:            false,
			MissingAttributes: required,
			Coverage:          0.0,
			Message:           "No products or attributes specified",
		}
	}

	missing := []string{}
	available := 0
	for _, attr := range required {
		found := false
		for _, attrs := range perProduct {
			if _, ok := attrs[attr]; ok {
				found = true
				break
			}
		}
		if found {
			available++
		} else {
			missing = append(missing, attr)
		}
	}

	coverage := float64(available) / float64(len(required))
	passed := coverage >= coverageThreshold

	message := fmt.Sprintf("Missing attributes: %s", strings.Join(missing, ", "))
	if passed {
		message = fmt.Sprintf("Attribute coverage: %.1f%%", coverage*100)
	}

	return CompletenessResult{
		Passed:            passed,
		MissingAttributes: missing,
		Coverage:          coverage,
		AvailableCount:    available,
		TotalCount:        len(required),
		Message:           message,
	}
}

// ContextResult reports whether the user's extracted context lines up with
// the product data.
type ContextResult struct {
	Passed            bool     `json:"passed"`
	MatchedAttributes []string `json:"matched_attributes"`
	Message           string   `json:"message"`
}

// CheckUserContext validates the extracted usage setting and mentioned
// attributes against the product attribute maps. An empty context passes
// trivially: there is nothing to validate.
func CheckUserContext(productIDs []string, userCtx intent.Context, perProduct map[string]map[string]catalog.Value) ContextResult {
	if len(productIDs) == 0 {
		return ContextResult{
			Passed:            false,
			MatchedAttributes: []string{},
			Message:           "No products specified",
		}
	}

	if userCtx.Empty() {
		return ContextResult{
			Passed:            true,
			MatchedAttributes: []string{},
			Message:           "No specific context to validate",
		}
	}

	matched := []string{}
	seen := make(map[string]struct{})
	record := func(attr string) {
		if _, dup := seen[attr]; dup {
			return
		}
		seen[attr] = struct{}{}
		matched = append(matched, attr)
	}

	// The usage setting matches when any product's usage_context list
	// contains it.
	if userCtx.UsageContext != "" {
		for _, attrs := range perProduct {
			if attrs["usage_context"].Contains(userCtx.UsageContext) {
				record("usage_context")
				break
			}
		}
	}

	for _, attr := range userCtx.MentionedAttributes {
		for _, attrs := range perProduct {
			if _, ok := attrs[attr]; ok {
				record(attr)
				break
			}
		}
	}

	passed := len(matched) > 0
	message := "No matching attributes found"
	if len(matched) > 0 {
		message = fmt.Sprintf("Matched attributes: %s", strings.Join(matched, ", "))
	}

	return ContextResult{Passed: passed, MatchedAttributes: matched, Message: message}
}

// ReadinessResult reports which products are missing required visual assets.
type ReadinessResult struct {
	Passed        bool                `json:"passed"`
	MissingAssets map[string][]string `json:"missing_assets"`
	Message       string              `json:"message"`
}

// CheckReadiness verifies every product carries every required asset type.
// One incomplete product fails the whole check.
func CheckReadiness(productIDs []string, requiredTypes []string, assetTypes map[string]map[string]struct{}) ReadinessResult {
	if len(productIDs) == 0 {
		return ReadinessResult{
			Passed:        false,
			MissingAssets: map[string][]string{},
			Message:       "No products specified",
		}
	}

	missing := map[string][]string{}
	for _, id := range productIDs {
		var gaps []string
		for _, required := range requiredTypes {
			if _, ok := assetTypes[id][required]; !ok {
				gaps = append(gaps, required)
			}
		}
		if len(gaps) > 0 {
			missing[id] = gaps
		}
	}

	passed := len(missing) == 0
	message := "All products have required visual assets"
	if !passed {
		message = fmt.Sprintf("Missing assets: %v", missing)
	}

	return ReadinessResult{Passed: passed, MissingAssets: missing, Message: message}
}

// ConfidenceFactors breaks the composite score into its inputs.
type ConfidenceFactors struct {
	AttributeCompleteness float64 `json:"attribute_completeness"`
	UserContext           float64 `json:"user_context"`
	VisualizationReady    float64 `json:"visualization_ready"`
	QueryClarity          float64 `json:"query_clarity"`
}

// ConfidenceResult is the composite decision-readiness score.
type ConfidenceResult struct {
	Confidence float64           `json:"confidence"`
	Passed     bool              `json:"passed"`
	Factors    ConfidenceFactors `json:"factors"`
	Message    string            `json:"message"`
}

// CheckConfidence combines the other three checks with the caller-supplied
// query clarity into a weighted score. Boolean checks contribute 1.0 on
// pass and 0.5 on failure rather than zero: a failed soft check dampens
// confidence without zeroing it.
func CheckConfidence(completeness CompletenessResult, contextMatch ContextResult, readiness ReadinessResult, queryClarity float64) ConfidenceResult {
	factors := ConfidenceFactors{
		AttributeCompleteness: completeness.Coverage,
		UserContext:           0.5,
		VisualizationReady:    0.5,
		QueryClarity:          queryClarity,
	}
	if contextMatch.Passed {
		factors.UserContext = 1.0
	}
	if readiness.Passed {
		factors.VisualizationReady = 1.0
	}

	confidence := factors.AttributeCompleteness*attributeWeight +
		factors.UserContext*contextWeight +
		factors.VisualizationReady*visualizationWeight +
		factors.QueryClarity*clarityWeight

	passed := confidence >= confidenceThreshold

	verdict := " - Needs clarification"
	if passed {
		verdict = " - Ready to proceed"
	}

	return ConfidenceResult{
		Confidence: confidence,
		Passed:     passed,
		Factors:    factors,
		Message:    fmt.Sprintf("Decision confidence: %.1f%%%s", confidence*100, verdict),
	}
}

// Package intent classifies free-text product queries into a closed set of
// intent categories and maps each category to the attributes and visual
// effects relevant to it. The classifier is a transparent keyword-weight
// heuristic, not a statistical model: every score is reproducible from the
// tables in this file.
package intent

import (
	"regexp"
	"strings"
)

// Type is one of the closed set of query intent categories.
type Type string

const (
	Compare Type = "compare"
	Explain Type = "explain"
	Clarify Type = "clarify"
	Choose  Type = "choose"
	Unknown Type = "unknown"
)

// unknownThreshold clamps low-confidence classifications to Unknown.
// The raw score is still reported; only the category is clamped.
const unknownThreshold = 0.3

// Context carries the coarse signals extracted from a query alongside the
// intent category: a single usage setting and the attribute families the
// user mentioned.
type Context struct {
	UsageContext        string   `json:"usage_context,omitempty"`
	MentionedAttributes []string `json:"mentioned_attributes,omitempty"`
}

// Empty reports whether no context signal was extracted.
func (c Context) Empty() bool {
	return c.UsageContext == "" && len(c.MentionedAttributes) == 0
}

// Result is the classifier output for one query.
type Result struct {
	IntentType       Type     `json:"intent_type"`
	Confidence       float64  `json:"confidence"`
	DetectedProducts []string `json:"detected_products"`
	ExtractedContext Context  `json:"extracted_context"`
}

// scoring tables: a category's score is the sum of weights for every keyword
// appearing as a substring of the lower-cased query, capped at 1.0. The
// "good for" overlap between clarify and choose is deliberate; ties resolve
// to the category listed first here.
var scoringTables = []struct {
	intent   Type
	weight   float64
	keywords []string
}{
	{Compare, 0.3, []string{
		"compare", "comparison", "difference", "differences", "vs", "versus",
		"better", "which is", "which one", "side by side",
	}},
	{Explain, 0.25, []string{
		"explain", "why", "how", "what does", "what is", "tell me about",
		"reason", "because", "due to",
	}},
	{Clarify, 0.2, []string{
		"fit", "size", "comfort", "comfortable", "wear", "heavy", "light",
		"weight", "clamp", "padding", "suitable", "right for", "good for",
	}},
	{Choose, 0.25, []string{
		"which", "choose", "should i", "recommend", "best", "better for",
		"good for", "purchase", "buy", "decide", "decision",
	}},
}

var usageVocabulary = []string{"travel", "gym", "work", "home", "office", "commute"}

var attributeVocabulary = []string{"price", "weight", "battery", "noise", "comfort", "material"}

var productPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)airpods\s+(max|pro|mini)`),
	regexp.MustCompile(`(?i)product\s+(\w+)`),
	regexp.MustCompile(`(?i)(\w+)\s+headphones`),
}

// Classifier scores queries against the static keyword tables. It holds no
// per-request state and a single instance can be shared freely.
type Classifier struct{}

// NewClassifier returns the shared, stateless classifier value.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Detect classifies a query. When productIDs is nil the classifier attempts
// to extract product mentions from the query text itself; a non-nil (even
// empty) slice is taken as the caller's explicit answer and left untouched.
func (c *Classifier) Detect(query string, productIDs []string) Result {
	lower := strings.ToLower(query)

	if productIDs == nil {
		productIDs = extractProductIDs(query)
	}

	best := Unknown
	bestScore := -1.0
	for _, table := range scoringTables {
		score := 0.0
		for _, kw := range table.keywords {
			if strings.Contains(lower, kw) {
				score += table.weight
			}
		}
		if score > 1.0 {
			score = 1.0
		}
		// Strictly greater: exact ties keep the earlier category.
		if score > bestScore {
			best = table.intent
			bestScore = score
		}
	}

	intentType := best
	if bestScore <= unknownThreshold {
		intentType = Unknown
	}

	return Result{
		IntentType:       intentType,
		Confidence:       bestScore,
		DetectedProducts: productIDs,
		ExtractedContext: extractContext(lower),
	}
}

// extractProductIDs pulls product mentions out of the raw (not lower-cased)
// query. Matches are de-duplicated preserving first occurrence.
func extractProductIDs(query string) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, pattern := range productPatterns {
		for _, match := range pattern.FindAllStringSubmatch(query, -1) {
			id := match[1]
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func extractContext(lower string) Context {
	var ctx Context
	// Single-valued: the last matching vocabulary entry wins.
	for _, kw := range usageVocabulary {
		if strings.Contains(lower, kw) {
			ctx.UsageContext = kw
		}
	}
	for _, kw := range attributeVocabulary {
		if strings.Contains(lower, kw) {
			ctx.MentionedAttributes = append(ctx.MentionedAttributes, kw)
		}
	}
	return ctx
}

package intent

import (
	"fmt"
	"strings"

	"github.com/Uttutt17/akari/internal/viz"
)

// Mapping pairs the ordered attribute list and ordered effect list for one
// intent key. Order is significant: it defines display priority downstream.
type Mapping struct {
	Attributes []string
	Effects    []viz.Effect
}

// mappingTable is the static intent-key registry. Keys include both the raw
// intent categories and the refined sub-intent keys produced by the rule
// chain below.
var mappingTable = map[string]Mapping{
	"compare": {
		Attributes: []string{"price", "weight", "battery_life", "noise_cancellation", "usage_context"},
		Effects:    []viz.Effect{viz.SplitScreen, viz.HighlightDifferences},
	},
	"explain_price": {
		Attributes: []string{"material", "build_quality", "driver_type", "noise_cancellation_level"},
		Effects:    []viz.Effect{viz.HighlightMaterials, viz.ZoomEarcupFrame, viz.ShowSpecCallouts},
	},
	"explain": {
		Attributes: []string{"material", "build_quality", "driver_type", "noise_cancellation_level"},
		Effects:    []viz.Effect{viz.HighlightMaterials, viz.ShowSpecCallouts},
	},
	"clarify_comfort": {
		Attributes: []string{"weight", "clamp_force", "padding_material"},
		Effects:    []viz.Effect{viz.WeightLabel, viz.ComfortIndicator, viz.ComparisonVsLighter},
	},
	"clarify": {
		Attributes: []string{"weight", "clamp_force", "padding_material", "fit", "size"},
		Effects:    []viz.Effect{viz.WeightLabel, viz.ComfortIndicator},
	},
	"usage_context": {
		Attributes: []string{"weight", "foldability", "battery_life", "case_size"},
		Effects:    []viz.Effect{viz.HighlightTravelSpecs, viz.DimIrrelevantSpecs},
	},
	"choose": {
		Attributes: []string{"price", "weight", "battery_life", "noise_cancellation", "usage_context", "foldability", "case_size"},
		Effects:    []viz.Effect{viz.SplitScreen, viz.HighlightDifferences, viz.HighlightTravelSpecs},
	},
}

// refineRules is the sub-intent refinement chain, evaluated top to bottom
// with first match winning. The usage_context rule intentionally fires for
// any intent (including compare and choose) whenever a usage setting or the
// token "travel" shows up in the context.
var refineRules = []struct {
	key     string
	matches func(t Type, ctx Context) bool
}{
	{"explain_price", func(t Type, ctx Context) bool {
		return t == Explain && contains(ctx.MentionedAttributes, "price")
	}},
	{"clarify_comfort", func(t Type, ctx Context) bool {
		return t == Clarify && containsAny(contextText(ctx), "comfort", "fit", "weight")
	}},
	{"usage_context", func(t Type, ctx Context) bool {
		return ctx.UsageContext != "" || containsAny(contextText(ctx), "travel")
	}},
}

// resolveKey applies the refinement chain; unmatched intents fall back to
// their own key.
func resolveKey(t Type, ctx Context) string {
	for _, rule := range refineRules {
		if rule.matches(t, ctx) {
			return rule.key
		}
	}
	return string(t)
}

func lookupMapping(t Type, ctx Context) Mapping {
	if m, ok := mappingTable[resolveKey(t, ctx)]; ok {
		return m
	}
	// Refined key absent: fall back to the literal intent key. A miss there
	// too yields empty lists, silently.
	return mappingTable[string(t)]
}

// AttributesFor returns the ordered attribute list for an intent, after
// sub-intent refinement.
func AttributesFor(t Type, ctx Context) []string {
	return lookupMapping(t, ctx).Attributes
}

// EffectsFor returns the ordered visual-effect list for an intent, after
// sub-intent refinement.
func EffectsFor(t Type, ctx Context) []viz.Effect {
	return lookupMapping(t, ctx).Effects
}

// ValidateMappings checks at startup that every key the refinement rules can
// produce, and every classifiable intent category, exists in the table.
// Lookup itself stays permissive; this only catches table/rule drift early.
func ValidateMappings() error {
	for _, rule := range refineRules {
		if _, ok := mappingTable[rule.key]; !ok {
			return fmt.Errorf("refinement rule targets missing mapping key %q", rule.key)
		}
	}
	for _, t := range []Type{Compare, Explain, Clarify, Choose} {
		if _, ok := mappingTable[string(t)]; !ok {
			return fmt.Errorf("intent category %q has no mapping entry", t)
		}
	}
	return nil
}

// contextText flattens the context to a lower-cased blob for the substring
// checks the refinement rules perform.
func contextText(ctx Context) string {
	parts := append([]string{ctx.UsageContext}, ctx.MentionedAttributes...)
	return strings.ToLower(strings.Join(parts, " "))
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if strings.Contains(strings.ToLower(item), want) {
			return true
		}
	}
	return false
}

// Package viz assembles the visualization payload returned to the renderer:
// per-product attribute snapshots, a pairwise comparison table, and the
// expanded visual-effect directives.
package viz

import (
	"strings"

	"github.com/Uttutt17/akari/internal/catalog"
)

// Effect identifies an abstract rendering instruction. The renderer decides
// what each one looks like; the backend only parameterizes them.
type Effect string

const (
	SplitScreen          Effect = "split_screen"
	HighlightDifferences Effect = "highlight_differences"
	HighlightMaterials   Effect = "highlight_materials"
	ZoomEarcupFrame      Effect = "zoom_earcup_frame"
	ShowSpecCallouts     Effect = "show_spec_callouts"
	WeightLabel          Effect = "weight_label"
	ComfortIndicator     Effect = "comfort_indicator"
	ComparisonVsLighter  Effect = "comparison_vs_lighter"
	HighlightTravelSpecs Effect = "highlight_travel_specs"
	DimIrrelevantSpecs   Effect = "dim_irrelevant_specs"
)

// Descriptor is one concrete effect directive. The field set varies per
// effect type, so it stays schemaless on purpose.
type Descriptor map[string]any

// Data is the nested visualization body: per-product snapshots, a
// comparison table keyed by attribute, and expanded effect directives.
type Data struct {
	Products   map[string]map[string]catalog.Value `json:"products"`
	Comparison map[string]map[string]catalog.Value `json:"comparison"`
	Effects    []Descriptor                        `json:"effects,omitempty"`
}

// Payload is the full visualization response for one query.
type Payload struct {
	ProductIDs         []string `json:"product_ids"`
	SelectedAttributes []string `json:"selected_attributes"`
	VisualEffects      []Effect `json:"visual_effects"`
	Data               Data     `json:"visualization_data"`
	Message            string   `json:"message,omitempty"`
}

// Empty returns a payload carrying only an explanatory message, used when no
// products could be resolved for a query.
func Empty(message string) Payload {
	return Payload{
		ProductIDs:         []string{},
		SelectedAttributes: []string{},
		VisualEffects:      []Effect{},
		Data:               Data{Products: map[string]map[string]catalog.Value{}, Comparison: map[string]map[string]catalog.Value{}},
		Message:            message,
	}
}

// Compose builds the payload body for the given products and filtered
// attributes. Snapshots include only attributes present on that product;
// the comparison table is built only for multi-product requests, and
// attributes with no contributing product are omitted from it entirely.
func Compose(productIDs []string, attrs []string, effects []Effect, perProduct map[string]map[string]catalog.Value) Payload {
	products := make(map[string]map[string]catalog.Value, len(productIDs))
	for _, id := range productIDs {
		snapshot := make(map[string]catalog.Value)
		for _, attr := range attrs {
			if v, ok := perProduct[id][attr]; ok {
				snapshot[attr] = v
			}
		}
		products[id] = snapshot
	}

	comparison := make(map[string]map[string]catalog.Value)
	if len(productIDs) > 1 {
		for _, attr := range attrs {
			values := make(map[string]catalog.Value)
			for _, id := range productIDs {
				if v, ok := perProduct[id][attr]; ok {
					values[id] = v
				}
			}
			if len(values) > 0 {
				comparison[attr] = values
			}
		}
	}

	if effects == nil {
		effects = []Effect{}
	}
	return Payload{
		ProductIDs:         productIDs,
		SelectedAttributes: attrs,
		VisualEffects:      effects,
		Data:               Data{Products: products, Comparison: comparison},
	}
}

// ApplyEffects expands every effect id on the payload into a concrete
// descriptor. Unknown ids degrade to a generic descriptor instead of
// failing, so a newer mapping table cannot break an older renderer.
func ApplyEffects(p Payload) Payload {
	descriptors := make([]Descriptor, 0, len(p.VisualEffects))
	for _, effect := range p.VisualEffects {
		descriptors = append(descriptors, expand(effect, p.ProductIDs, p.SelectedAttributes))
	}
	p.Data.Effects = descriptors
	return p
}

func expand(effect Effect, productIDs []string, attrs []string) Descriptor {
	switch effect {
	case SplitScreen:
		return Descriptor{"type": "split_screen", "products": productIDs, "layout": "side_by_side"}
	case HighlightDifferences:
		return Descriptor{"type": "highlight", "target": "differences", "attributes": attrs}
	case HighlightMaterials:
		return Descriptor{"type": "highlight", "target": "materials", "attributes": keepMatching(attrs, func(a string) bool {
			return strings.Contains(strings.ToLower(a), "material")
		})}
	case ZoomEarcupFrame:
		return Descriptor{"type": "zoom", "target": "earcup_frame", "magnification": 1.5}
	case ShowSpecCallouts:
		return Descriptor{"type": "callout", "target": "specs", "attributes": attrs}
	case WeightLabel:
		return Descriptor{"type": "label", "target": "weight", "position": "top_right"}
	case ComfortIndicator:
		return Descriptor{"type": "indicator", "target": "comfort", "attributes": keepListed(attrs, "weight", "clamp_force", "padding_material")}
	case ComparisonVsLighter:
		return Descriptor{"type": "comparison", "target": "weight_comparison", "reference": "lighter_products"}
	case HighlightTravelSpecs:
		return Descriptor{"type": "highlight", "target": "travel_specs", "attributes": keepListed(attrs, "weight", "foldability", "battery_life", "case_size")}
	case DimIrrelevantSpecs:
		return Descriptor{"type": "dim", "target": "irrelevant", "keep_highlighted": attrs}
	default:
		return Descriptor{"type": "unknown", "effect": string(effect)}
	}
}

func keepMatching(attrs []string, match func(string) bool) []string {
	kept := []string{}
	for _, a := range attrs {
		if match(a) {
			kept = append(kept, a)
		}
	}
	return kept
}

func keepListed(attrs []string, allowed ...string) []string {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return keepMatching(attrs, func(a string) bool {
		_, ok := set[a]
		return ok
	})
}

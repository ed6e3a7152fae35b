package viz

import (
	"reflect"
	"testing"

	"github.com/Uttutt17/akari/internal/catalog"
)

func testProducts() map[string]map[string]catalog.Value {
	return map[string]map[string]catalog.Value{
		"airpods-max": {
			"price":  catalog.Number(549),
			"weight": catalog.Number(384.4),
		},
		"airpods-pro": {
			"price":       catalog.Number(249),
			"weight":      catalog.Number(56.1),
			"foldability": catalog.Boolean(false),
		},
	}
}

func TestCompose_Snapshots(t *testing.T) {
	p := Compose(
		[]string{"airpods-max", "airpods-pro"},
		[]string{"price", "weight", "foldability"},
		[]Effect{SplitScreen},
		testProducts(),
	)

	// Each snapshot carries only the attributes that product actually has.
	max := p.Data.Products["airpods-max"]
	if len(max) != 2 {
		t.Errorf("airpods-max snapshot = %v, want price and weight only", max)
	}
	pro := p.Data.Products["airpods-pro"]
	if _, ok := pro["foldability"]; !ok {
		t.Error("airpods-pro snapshot missing foldability")
	}

	if p.Data.Comparison["price"]["airpods-max"].Num != 549 {
		t.Errorf("comparison price = %v, want 549", p.Data.Comparison["price"]["airpods-max"])
	}
	// foldability exists on one product, so it still appears in the table
	// with a single entry.
	if len(p.Data.Comparison["foldability"]) != 1 {
		t.Errorf("foldability column = %v, want single entry", p.Data.Comparison["foldability"])
	}
}

func TestCompose_SingleProductSkipsComparison(t *testing.T) {
	p := Compose([]string{"airpods-pro"}, []string{"price"}, nil, testProducts())

	if len(p.Data.Comparison) != 0 {
		t.Errorf("comparison = %v, want empty for single product", p.Data.Comparison)
	}
	if p.VisualEffects == nil {
		t.Error("nil effects must normalize to an empty slice")
	}
}

func TestCompose_UnknownAttributeOmittedFromComparison(t *testing.T) {
	p := Compose(
		[]string{"airpods-max", "airpods-pro"},
		[]string{"price", "driver_type"},
		nil,
		testProducts(),
	)

	if _, ok := p.Data.Comparison["driver_type"]; ok {
		t.Error("attribute with no contributing product must be omitted from comparison")
	}
}

func TestEmpty(t *testing.T) {
	p := Empty("No products detected")
	if p.Message != "No products detected" {
		t.Errorf("message = %q", p.Message)
	}
	if p.ProductIDs == nil || p.SelectedAttributes == nil || p.VisualEffects == nil {
		t.Error("empty payload must use empty slices, not nil")
	}
	if p.Data.Products == nil || p.Data.Comparison == nil {
		t.Error("empty payload must use empty maps, not nil")
	}
}

func TestApplyEffects(t *testing.T) {
	p := Compose(
		[]string{"airpods-max", "airpods-pro"},
		[]string{"weight", "foldability", "padding_material"},
		[]Effect{SplitScreen, HighlightTravelSpecs, HighlightMaterials, Effect("future_effect")},
		testProducts(),
	)
	p = ApplyEffects(p)

	if len(p.Data.Effects) != 4 {
		t.Fatalf("expected 4 descriptors, got %d", len(p.Data.Effects))
	}

	split := p.Data.Effects[0]
	if split["type"] != "split_screen" || split["layout"] != "side_by_side" {
		t.Errorf("split_screen descriptor = %v", split)
	}

	travel := p.Data.Effects[1]
	wantTravel := []string{"weight", "foldability"}
	if !reflect.DeepEqual(travel["attributes"], wantTravel) {
		t.Errorf("travel attributes = %v, want %v", travel["attributes"], wantTravel)
	}

	materials := p.Data.Effects[2]
	wantMaterials := []string{"padding_material"}
	if !reflect.DeepEqual(materials["attributes"], wantMaterials) {
		t.Errorf("material attributes = %v, want %v", materials["attributes"], wantMaterials)
	}

	// Unknown effect ids degrade instead of failing.
	unknown := p.Data.Effects[3]
	if unknown["type"] != "unknown" || unknown["effect"] != "future_effect" {
		t.Errorf("unknown descriptor = %v", unknown)
	}
}

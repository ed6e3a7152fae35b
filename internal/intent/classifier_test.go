package intent

import (
	"reflect"
	"testing"
)

func TestDetect_Categories(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name  string
		query string
		want  Type
	}{
		{"compare", "compare the difference between airpods pro and airpods max", Compare},
		{"explain", "explain why these cost more due to materials", Explain},
		{"clarify", "are these comfortable and light enough to wear", Clarify},
		{"choose", "which should i buy for travel", Choose},
		{"no signal", "hello there", Unknown},
		{"single weak keyword", "this one is better", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Detect(tt.query, nil)
			if got.IntentType != tt.want {
				t.Errorf("Detect(%q) = %s (%.2f), want %s", tt.query, got.IntentType, got.Confidence, tt.want)
			}
		})
	}
}

func TestDetect_ThresholdKeepsRawConfidence(t *testing.T) {
	c := NewClassifier()

	// One compare keyword scores exactly 0.3, which is not enough to leave
	// Unknown, but the raw score must still be reported.
	got := c.Detect("this one is better", nil)
	if got.IntentType != Unknown {
		t.Errorf("intent = %s, want %s", got.IntentType, Unknown)
	}
	if got.Confidence != 0.3 {
		t.Errorf("confidence = %.2f, want 0.30", got.Confidence)
	}
}

func TestDetect_TieKeepsEarlierCategory(t *testing.T) {
	c := NewClassifier()

	// compare scores 0.6 (difference, side by side); clarify scores 0.6
	// (fit, size, comfort). compare is listed first and must win.
	got := c.Detect("side by side difference in fit size comfort", nil)
	if got.IntentType != Compare {
		t.Errorf("intent = %s, want %s", got.IntentType, Compare)
	}
	if got.Confidence != 0.6 {
		t.Errorf("confidence = %.2f, want 0.60", got.Confidence)
	}
}

func TestDetect_ScoreCappedAtOne(t *testing.T) {
	c := NewClassifier()

	got := c.Detect("compare comparison difference vs versus better side by side", nil)
	if got.Confidence != 1.0 {
		t.Errorf("confidence = %.2f, want 1.00", got.Confidence)
	}
	if got.IntentType != Compare {
		t.Errorf("intent = %s, want %s", got.IntentType, Compare)
	}
}

func TestDetect_ExplicitProductIDs(t *testing.T) {
	c := NewClassifier()

	got := c.Detect("compare the difference between airpods pro and airpods max", []string{"B1", "B2"})
	if !reflect.DeepEqual(got.DetectedProducts, []string{"B1", "B2"}) {
		t.Errorf("products = %v, want [B1 B2]", got.DetectedProducts)
	}

	// An explicit empty (non-nil) list suppresses extraction entirely.
	got = c.Detect("compare airpods pro and airpods max", []string{})
	if len(got.DetectedProducts) != 0 {
		t.Errorf("products = %v, want none", got.DetectedProducts)
	}
}

func TestExtractProductIDs(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"airpods variants", "compare airpods pro and airpods max", []string{"pro", "max"}},
		{"product id pattern", "tell me about product B7", []string{"B7"}},
		{"headphones pattern", "are sony headphones better", []string{"sony"}},
		{"dedup preserves first", "airpods pro or airpods pro", []string{"pro"}},
		{"no products", "which is better", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractProductIDs(tt.query)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractProductIDs(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestExtractContext(t *testing.T) {
	got := extractContext("good for the gym or at home with decent battery and a fair price")
	// Later vocabulary entries override earlier matches.
	if got.UsageContext != "home" {
		t.Errorf("usage = %q, want home", got.UsageContext)
	}
	// Mentioned attributes keep vocabulary order.
	want := []string{"price", "battery"}
	if !reflect.DeepEqual(got.MentionedAttributes, want) {
		t.Errorf("attributes = %v, want %v", got.MentionedAttributes, want)
	}

	empty := extractContext("which one")
	if !empty.Empty() {
		t.Errorf("expected empty context, got %+v", empty)
	}
}

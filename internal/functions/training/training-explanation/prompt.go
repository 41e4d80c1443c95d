// internal/functions/training/training-explanation/prompt.go
package trainingexplanation

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = "You are a maritime instructor. You explain audit non-conformities to ship crews in plain " +
	"language, citing the relevant convention or code, and answer with a single JSON object."

func buildPrompt(input *Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Explain the following non-conformity raised in the %s module.\n\n", input.Module)
	fmt.Fprintf(&b, "Non-conformity: %s\n", input.NonConformity)

	if input.Context != nil {
		ctx, err := json.Marshal(input.Context)
		if err == nil {
			fmt.Fprintf(&b, "Context: %s\n", ctx)
		}
	}

	b.WriteString(`
Respond with JSON in exactly this shape:
{
  "explanation": <string>,
  "key_points": [<string>],
  "corrective_actions": [<string>],
  "related_topics": [<string>]
}`)
	return b.String()
}

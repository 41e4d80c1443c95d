// internal/functions/training/drill-evaluation/prompt.go
package drillevaluation

import (
	"encoding/json"
	"fmt"
	"strings"

	"maritime-edge/internal/common/repository"
)

const systemPrompt = "You are a maritime safety training assessor. You evaluate shipboard emergency drills " +
	"against SOLAS and ISM Code expectations and always answer with a single JSON object."

func buildPrompt(input *Input, drill repository.Row) string {
	var parts []string

	parts = append(parts, "Evaluate the following emergency drill performed by a vessel crew.")
	parts = append(parts, fmt.Sprintf("\nDrill ID: %s", input.DrillID))

	if drill != nil {
		if t := drill.String("drill_type"); t != "" {
			parts = append(parts, fmt.Sprintf("Drill type: %s", t))
		}
		if s := drill.String("scenario"); s != "" {
			parts = append(parts, fmt.Sprintf("Scenario: %s", s))
		}
	}

	parts = append(parts, "\nCrew responses:")
	parts = append(parts, indent(input.Responses))

	if input.Observations != nil {
		parts = append(parts, "\nAssessor observations:")
		parts = append(parts, indent(input.Observations))
	}

	parts = append(parts, `
Respond with JSON in exactly this shape:
{
  "overall_score": <number 0-100>,
  "strengths": [<string>],
  "weaknesses": [<string>],
  "recommendations": [<string>],
  "corrective_plan": <string>,
  "detailed_analysis": {
    "response_time": <string>,
    "procedure_compliance": <string>,
    "communication": <string>,
    "teamwork": <string>,
    "equipment_handling": <string>
  }
}`)

	return strings.Join(parts, "\n")
}

func indent(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

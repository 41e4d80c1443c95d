// internal/functions/planning/generate-scheduled-tasks/prompt.go
package generatescheduledtasks

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const systemPrompt = "You are a ship management planner. You propose preventive maintenance, inspection " +
	"and compliance tasks and answer with a single JSON object."

func buildPrompt(input *Input, today time.Time) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Propose upcoming scheduled tasks for the %s module.", input.Module))
	parts = append(parts, fmt.Sprintf("Today is %s. Due dates must be on or after today.", today.Format("2006-01-02")))
	if input.VesselID != "" {
		parts = append(parts, fmt.Sprintf("Vessel: %s", input.VesselID))
	}
	if input.Context != nil {
		parts = append(parts, "\nOperational context:\n"+marshal(input.Context))
	}
	if input.HistoricalData != nil {
		parts = append(parts, "\nHistorical data:\n"+marshal(input.HistoricalData))
	}

	parts = append(parts, `
Respond with JSON in exactly this shape:
{
  "tasks": [
    {
      "title": <string>,
      "description": <string>,
      "module": <string>,
      "priority": "low" | "medium" | "high" | "critical",
      "due_date": <YYYY-MM-DD>,
      "metadata": {<optional key/value pairs>}
    }
  ],
  "confidence": <number 0-1>,
  "reasoning": <string>
}`)

	return strings.Join(parts, "\n")
}

func marshal(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

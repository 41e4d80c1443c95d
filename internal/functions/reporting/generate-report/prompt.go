// internal/functions/reporting/generate-report/prompt.go
package generatereport

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"maritime-edge/internal/common/repository"
)

const systemPrompt = "You are a maritime compliance analyst writing management reports for a ship operator. " +
	"Base every finding on the data provided and answer with a single JSON object."

func buildPrompt(input *Input, inspections, risks []repository.Row) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Generate a %s report titled %q.", input.ReportType, input.Title))
	if input.PeriodStart != "" || input.PeriodEnd != "" {
		parts = append(parts, fmt.Sprintf("Reporting period: %s to %s", orDash(input.PeriodStart), orDash(input.PeriodEnd)))
	}
	if input.VesselID != "" {
		parts = append(parts, fmt.Sprintf("Vessel: %s", input.VesselID))
	}
	if input.Module != "" {
		parts = append(parts, fmt.Sprintf("Module: %s", input.Module))
	}
	if len(input.Parameters) > 0 {
		parts = append(parts, "Parameters: "+compact(input.Parameters))
	}

	parts = append(parts, fmt.Sprintf("\nRecent inspections (%d):", len(inspections)))
	parts = append(parts, compact(inspections))
	parts = append(parts, fmt.Sprintf("\nRecent risk assessments (%d):", len(risks)))
	parts = append(parts, compact(risks))

	parts = append(parts, `
Respond with JSON in exactly this shape:
{
  "executive_summary": <string>,
  "key_findings": [<string>],
  "detailed_analysis": <string>,
  "recommendations": [<string>],
  "conclusion": <string>,
  "statistics": {<metric name>: <number>}
}`)

	return strings.Join(parts, "\n")
}

func compact(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return "[]"
	}
	return string(b)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func emailBodies(title string, content *ReportContent) (text, htmlBody string) {
	var t, h strings.Builder

	t.WriteString(title + "\n\n" + content.ExecutiveSummary + "\n")
	h.WriteString("<h2>" + html.EscapeString(title) + "</h2>")
	h.WriteString("<p>" + html.EscapeString(content.ExecutiveSummary) + "</p>")

	if len(content.KeyFindings) > 0 {
		t.WriteString("\nKey findings:\n")
		h.WriteString("<h3>Key findings</h3><ul>")
		for _, f := range content.KeyFindings {
			t.WriteString("- " + f + "\n")
			h.WriteString("<li>" + html.EscapeString(f) + "</li>")
		}
		h.WriteString("</ul>")
	}

	return t.String(), h.String()
}

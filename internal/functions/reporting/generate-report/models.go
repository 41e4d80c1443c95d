// internal/functions/reporting/generate-report/models.go
package generatereport

import "maritime-edge/internal/common/repository"

type Input struct {
	ReportType   string                 `json:"report_type"`
	Title        string                 `json:"title"`
	PeriodStart  string                 `json:"period_start,omitempty"`
	PeriodEnd    string                 `json:"period_end,omitempty"`
	VesselID     string                 `json:"vessel_id,omitempty"`
	Module       string                 `json:"module,omitempty"`
	Format       string                 `json:"format,omitempty"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
	NotifyEmails []string               `json:"notify_emails,omitempty"`
}

type ReportContent struct {
	ExecutiveSummary string                 `json:"executive_summary"`
	KeyFindings      []string               `json:"key_findings"`
	DetailedAnalysis string                 `json:"detailed_analysis"`
	Recommendations  []string               `json:"recommendations"`
	Conclusion       string                 `json:"conclusion"`
	Statistics       map[string]interface{} `json:"statistics"`
}

type Output struct {
	Report   repository.Row `json:"report"`
	Content  *ReportContent `json:"content"`
	Warnings []string       `json:"warnings,omitempty"`
}

// internal/functions/training/drill-evaluation/models.go
package drillevaluation

type Input struct {
	DrillID      string      `json:"drill_id"`
	Responses    interface{} `json:"responses"`
	Observations interface{} `json:"observations,omitempty"`
}

type Evaluation struct {
	OverallScore     float64          `json:"overall_score"`
	Strengths        []string         `json:"strengths"`
	Weaknesses       []string         `json:"weaknesses"`
	Recommendations  []string         `json:"recommendations"`
	CorrectivePlan   string           `json:"corrective_plan"`
	DetailedAnalysis DetailedAnalysis `json:"detailed_analysis"`
}

type DetailedAnalysis struct {
	ResponseTime        string `json:"response_time"`
	ProcedureCompliance string `json:"procedure_compliance"`
	Communication       string `json:"communication"`
	Teamwork            string `json:"teamwork"`
	EquipmentHandling   string `json:"equipment_handling"`
}

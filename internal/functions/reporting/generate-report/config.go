// internal/functions/reporting/generate-report/config.go
package generatereport

const (
	FunctionName = "generate-ai-report"

	TableReports         = "ai_reports"
	TableInspections     = "inspections"
	TableRiskAssessments = "risk_assessments"

	DefaultIndex = "maritime-reports"
	contextLimit = 20
)

type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// Index is the Elasticsearch index completed reports are copied into.
	Index string
}

func LoadConfig() *Config {
	return &Config{
		Temperature: 0.7,
		MaxTokens:   3000,
		Index:       DefaultIndex,
	}
}

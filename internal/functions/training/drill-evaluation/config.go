// internal/functions/training/drill-evaluation/config.go
package drillevaluation

const (
	FunctionName = "evaluate-drill"

	TableDrills      = "drills"
	TableEvaluations = "drill_evaluations"
)

type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

func LoadConfig() *Config {
	return &Config{
		Temperature: 0.7,
		MaxTokens:   2000,
	}
}

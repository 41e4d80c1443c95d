// internal/functions/training/training-explanation/config.go
package trainingexplanation

const (
	FunctionName = "explain-nonconformity"

	TableExplanations = "training_explanations"
)

type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

func LoadConfig() *Config {
	return &Config{
		Temperature: 0.7,
		MaxTokens:   1500,
	}
}

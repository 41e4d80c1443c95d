// internal/functions/training/training-quiz/config.go
package trainingquiz

const (
	FunctionName = "generate-training-quiz"

	TableQuizzes = "training_quizzes"

	DefaultDifficulty    = "intermediate"
	DefaultQuestionCount = 5
	MaxQuestionCount     = 20
)

type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

func LoadConfig() *Config {
	return &Config{
		Temperature: 0.8,
		MaxTokens:   2500,
	}
}

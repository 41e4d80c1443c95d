// internal/functions/planning/generate-scheduled-tasks/config.go
package generatescheduledtasks

const (
	FunctionName = "generate-scheduled-tasks"

	TableTasks = "scheduled_tasks"
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

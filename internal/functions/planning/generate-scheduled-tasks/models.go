// internal/functions/planning/generate-scheduled-tasks/models.go
package generatescheduledtasks

type Input struct {
	Module         string      `json:"module"`
	VesselID       string      `json:"vessel_id,omitempty"`
	Context        interface{} `json:"context,omitempty"`
	HistoricalData interface{} `json:"historical_data,omitempty"`
}

type Task struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Module      string                 `json:"module"`
	Priority    string                 `json:"priority"`
	DueDate     string                 `json:"due_date"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

type Plan struct {
	Tasks      []Task  `json:"tasks"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type Output struct {
	Plan
	TaskIDs []string `json:"task_ids"`
}

// Task priorities accepted by the scheduler.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

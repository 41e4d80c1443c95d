// internal/functions/training/training-explanation/models.go
package trainingexplanation

type Input struct {
	NonConformity string      `json:"non_conformity"`
	Module        string      `json:"module"`
	Context       interface{} `json:"context,omitempty"`
}

type Explanation struct {
	Explanation       string   `json:"explanation"`
	KeyPoints         []string `json:"key_points"`
	CorrectiveActions []string `json:"corrective_actions"`
	RelatedTopics     []string `json:"related_topics"`
}

// internal/functions/training/training-quiz/models.go
package trainingquiz

type Input struct {
	Topic         string `json:"topic"`
	Module        string `json:"module"`
	Difficulty    string `json:"difficulty,omitempty"`
	QuestionCount int    `json:"question_count,omitempty"`
}

type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

type quizCompletion struct {
	Questions []Question `json:"questions"`
}

type Output struct {
	QuizID     string     `json:"quiz_id"`
	Topic      string     `json:"topic"`
	Module     string     `json:"module"`
	Difficulty string     `json:"difficulty"`
	Questions  []Question `json:"questions"`
}

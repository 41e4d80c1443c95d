// internal/functions/training/training-quiz/prompt.go
package trainingquiz

import "fmt"

const systemPrompt = "You are a maritime training officer writing assessment questions for seafarers. " +
	"Answer with a single JSON object."

func buildPrompt(input *Input) string {
	return fmt.Sprintf(`Write %d multiple-choice questions on %q for the %s module at %s difficulty.
Each question has four options and exactly one correct answer, which must be copied verbatim from the options.

Respond with JSON in exactly this shape:
{
  "questions": [
    {
      "question": <string>,
      "options": [<string>, <string>, <string>, <string>],
      "correct_answer": <string>,
      "explanation": <string>
    }
  ]
}`, input.QuestionCount, input.Topic, input.Module, input.Difficulty)
}

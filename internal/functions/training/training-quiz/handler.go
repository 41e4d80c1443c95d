// internal/functions/training/training-quiz/handler.go
package trainingquiz

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"maritime-edge/internal/common/errors"
	"maritime-edge/internal/common/logger"
	"maritime-edge/internal/common/openai"
	"maritime-edge/internal/common/repository"
)

type ChatClient interface {
	ChatJSON(ctx context.Context, req openai.ChatRequest) (string, error)
}

var now = time.Now

type Handler struct {
	config *Config
	llm    ChatClient
	repo   repository.Repository
	logger logger.Logger
}

func NewHandler(config *Config, llm ChatClient, repo repository.Repository, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		llm:    llm,
		repo:   repo,
		logger: log.With(map[string]interface{}{
			"function": FunctionName,
		}),
	}
}

func (h *Handler) Name() string { return FunctionName }

func (h *Handler) RequiredFields() []string { return []string{"topic", "module"} }

func (h *Handler) Execute(ctx context.Context, raw []byte) (interface{}, error) {
	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewInvalidJSONError(err)
	}
	applyDefaults(&input)
	return h.execute(ctx, &input)
}

func applyDefaults(input *Input) {
	input.Difficulty = strings.TrimSpace(input.Difficulty)
	if input.Difficulty == "" {
		input.Difficulty = DefaultDifficulty
	}
	switch {
	case input.QuestionCount <= 0:
		input.QuestionCount = DefaultQuestionCount
	case input.QuestionCount > MaxQuestionCount:
		input.QuestionCount = MaxQuestionCount
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	completion, err := h.llm.ChatJSON(ctx, openai.ChatRequest{
		Model:       h.config.Model,
		Messages:    []openai.Message{openai.System(systemPrompt), openai.User(buildPrompt(input))},
		Temperature: h.config.Temperature,
		MaxTokens:   h.config.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	quiz, err := openai.ParseCompletion[quizCompletion](completion)
	if err != nil {
		return nil, err
	}
	if quiz.Questions == nil {
		quiz.Questions = []Question{}
	}

	out := &Output{
		QuizID:     uuid.New().String(),
		Topic:      input.Topic,
		Module:     input.Module,
		Difficulty: input.Difficulty,
		Questions:  quiz.Questions,
	}

	_, err = h.repo.Upsert(ctx, TableQuizzes, repository.Row{
		"id":             out.QuizID,
		"topic":          out.Topic,
		"module":         out.Module,
		"difficulty":     out.Difficulty,
		"question_count": len(out.Questions),
		"questions":      out.Questions,
		"created_at":     now().UTC().Format(time.RFC3339),
	}, "id")
	if err != nil {
		return nil, err
	}

	h.logger.Info("quiz generated", map[string]interface{}{
		"quizId":    out.QuizID,
		"topic":     out.Topic,
		"questions": len(out.Questions),
	})
	return out, nil
}

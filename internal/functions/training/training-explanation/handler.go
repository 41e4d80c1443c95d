// internal/functions/training/training-explanation/handler.go
package trainingexplanation

import (
	"context"
	"encoding/json"
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

func (h *Handler) RequiredFields() []string { return []string{"non_conformity", "module"} }

func (h *Handler) Execute(ctx context.Context, raw []byte) (interface{}, error) {
	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewInvalidJSONError(err)
	}

	completion, err := h.llm.ChatJSON(ctx, openai.ChatRequest{
		Model:       h.config.Model,
		Messages:    []openai.Message{openai.System(systemPrompt), openai.User(buildPrompt(&input))},
		Temperature: h.config.Temperature,
		MaxTokens:   h.config.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	result, err := openai.ParseCompletion[Explanation](completion)
	if err != nil {
		return nil, err
	}

	_, err = h.repo.Upsert(ctx, TableExplanations, repository.Row{
		"id":                 uuid.New().String(),
		"non_conformity":     input.NonConformity,
		"module":             input.Module,
		"explanation":        result.Explanation,
		"key_points":         result.KeyPoints,
		"corrective_actions": result.CorrectiveActions,
		"related_topics":     result.RelatedTopics,
		"created_at":         now().UTC().Format(time.RFC3339),
	}, "id")
	if err != nil {
		return nil, err
	}

	h.logger.Info("non-conformity explained", map[string]interface{}{"module": input.Module})
	return &result, nil
}

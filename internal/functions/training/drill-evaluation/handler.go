// internal/functions/training/drill-evaluation/handler.go
package drillevaluation

import (
	"context"
	"encoding/json"
	"time"

	"maritime-edge/internal/common/errors"
	"maritime-edge/internal/common/logger"
	"maritime-edge/internal/common/openai"
	"maritime-edge/internal/common/repository"
)

// ChatClient is the completion call the handler depends on.
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

func (h *Handler) RequiredFields() []string { return []string{"drill_id", "responses"} }

func (h *Handler) Execute(ctx context.Context, raw []byte) (interface{}, error) {
	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewInvalidJSONError(err)
	}
	return h.execute(ctx, &input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Evaluation, error) {
	drill, err := repository.First(ctx, h.repo, TableDrills, repository.Eq("id", input.DrillID))
	if err != nil {
		// Evaluation proceeds without drill context.
		h.logger.Warn("drill lookup failed", map[string]interface{}{
			"drillId": input.DrillID,
			"error":   err.Error(),
		})
	}

	content, err := h.llm.ChatJSON(ctx, openai.ChatRequest{
		Model:       h.config.Model,
		Messages:    []openai.Message{openai.System(systemPrompt), openai.User(buildPrompt(input, drill))},
		Temperature: h.config.Temperature,
		MaxTokens:   h.config.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	eval, err := openai.ParseCompletion[Evaluation](content)
	if err != nil {
		return nil, err
	}
	eval.OverallScore = clampScore(eval.OverallScore)

	_, err = h.repo.Upsert(ctx, TableEvaluations, repository.Row{
		"drill_id":          input.DrillID,
		"overall_score":     eval.OverallScore,
		"strengths":         eval.Strengths,
		"weaknesses":        eval.Weaknesses,
		"recommendations":   eval.Recommendations,
		"corrective_plan":   eval.CorrectivePlan,
		"detailed_analysis": eval.DetailedAnalysis,
		"evaluated_at":      now().UTC().Format(time.RFC3339),
	}, "drill_id")
	if err != nil {
		return nil, err
	}

	h.logger.Info("drill evaluated", map[string]interface{}{
		"drillId": input.DrillID,
		"score":   eval.OverallScore,
	})

	return &eval, nil
}

func clampScore(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

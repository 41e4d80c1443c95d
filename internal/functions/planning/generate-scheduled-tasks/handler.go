// internal/functions/planning/generate-scheduled-tasks/handler.go
package generatescheduledtasks

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

func (h *Handler) RequiredFields() []string { return []string{"module"} }

func (h *Handler) Execute(ctx context.Context, raw []byte) (interface{}, error) {
	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewInvalidJSONError(err)
	}
	return h.execute(ctx, &input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	completion, err := h.llm.ChatJSON(ctx, openai.ChatRequest{
		Model:       h.config.Model,
		Messages:    []openai.Message{openai.System(systemPrompt), openai.User(buildPrompt(input, now().UTC()))},
		Temperature: h.config.Temperature,
		MaxTokens:   h.config.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	plan, err := openai.ParseCompletion[Plan](completion)
	if err != nil {
		return nil, err
	}

	out := &Output{Plan: plan, TaskIDs: make([]string, 0, len(plan.Tasks))}
	createdAt := now().UTC().Format(time.RFC3339)

	for i := range out.Tasks {
		task := &out.Tasks[i]
		task.Priority = normalizePriority(task.Priority)
		if strings.TrimSpace(task.Module) == "" {
			task.Module = input.Module
		}

		id := uuid.New().String()
		record := repository.Row{
			"id":           id,
			"title":        task.Title,
			"description":  task.Description,
			"module":       task.Module,
			"priority":     task.Priority,
			"status":       "pending",
			"ai_generated": true,
			"created_at":   createdAt,
		}
		if task.DueDate != "" {
			record["due_date"] = task.DueDate
		}
		if input.VesselID != "" {
			record["vessel_id"] = input.VesselID
		}
		if len(task.Metadata) > 0 {
			record["metadata"] = task.Metadata
		}

		if _, err := h.repo.Upsert(ctx, TableTasks, record, "id"); err != nil {
			return nil, err
		}
		out.TaskIDs = append(out.TaskIDs, id)
	}

	h.logger.Info("scheduled tasks generated", map[string]interface{}{
		"module":     input.Module,
		"taskCount":  len(out.TaskIDs),
		"confidence": plan.Confidence,
	})
	return out, nil
}

func normalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	case PriorityCritical, "urgent":
		return PriorityCritical
	default:
		return PriorityMedium
	}
}

// internal/functions/reporting/generate-report/handler.go
package generatereport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"maritime-edge/internal/common/errors"
	"maritime-edge/internal/common/logger"
	"maritime-edge/internal/common/openai"
	"maritime-edge/internal/common/repository"
	"maritime-edge/internal/common/validation"
)

type ChatClient interface {
	ChatJSON(ctx context.Context, req openai.ChatRequest) (string, error)
}

// Indexer copies a stored report into the search index.
type Indexer interface {
	IndexDocument(ctx context.Context, index, id string, doc interface{}) error
}

// Mailer delivers the report summary to recipients.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, text, html string) error
}

var now = time.Now

type Handler struct {
	config  *Config
	llm     ChatClient
	repo    repository.Repository
	indexer Indexer
	mailer  Mailer
	logger  logger.Logger
}

// NewHandler wires the report generator. indexer and mailer are optional.
func NewHandler(config *Config, llm ChatClient, repo repository.Repository, indexer Indexer, mailer Mailer, log logger.Logger) *Handler {
	if config.Index == "" {
		config.Index = DefaultIndex
	}
	return &Handler{
		config:  config,
		llm:     llm,
		repo:    repo,
		indexer: indexer,
		mailer:  mailer,
		logger: log.With(map[string]interface{}{
			"function": FunctionName,
		}),
	}
}

func (h *Handler) Name() string { return FunctionName }

func (h *Handler) RequiredFields() []string { return []string{"report_type", "title"} }

func (h *Handler) Execute(ctx context.Context, raw []byte) (interface{}, error) {
	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewInvalidJSONError(err)
	}
	for _, addr := range input.NotifyEmails {
		if !validation.ValidateEmail(addr) {
			return nil, errors.NewInvalidFieldError("notify_emails", fmt.Sprintf("%q is not a valid email address", addr))
		}
	}
	return h.execute(ctx, &input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	inspections, err := h.recent(ctx, TableInspections, input.VesselID)
	if err != nil {
		return nil, err
	}
	risks, err := h.recent(ctx, TableRiskAssessments, input.VesselID)
	if err != nil {
		return nil, err
	}

	completion, err := h.llm.ChatJSON(ctx, openai.ChatRequest{
		Model:       h.config.Model,
		Messages:    []openai.Message{openai.System(systemPrompt), openai.User(buildPrompt(input, inspections, risks))},
		Temperature: h.config.Temperature,
		MaxTokens:   h.config.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	content, err := openai.ParseCompletion[ReportContent](completion)
	if err != nil {
		return nil, err
	}

	record := repository.Row{
		"id":           uuid.New().String(),
		"title":        input.Title,
		"report_type":  input.ReportType,
		"content":      content,
		"status":       "completed",
		"generated_at": now().UTC().Format(time.RFC3339),
	}
	setIfPresent(record, "vessel_id", input.VesselID)
	setIfPresent(record, "module", input.Module)
	setIfPresent(record, "format", input.Format)
	setIfPresent(record, "period_start", input.PeriodStart)
	setIfPresent(record, "period_end", input.PeriodEnd)
	if len(input.Parameters) > 0 {
		record["parameters"] = input.Parameters
	}

	stored, err := h.repo.Upsert(ctx, TableReports, record, "id")
	if err != nil {
		return nil, err
	}

	out := &Output{Report: stored, Content: &content}
	h.publish(ctx, input, record, out)

	h.logger.Info("report generated", map[string]interface{}{
		"reportId":   record["id"],
		"reportType": input.ReportType,
		"warnings":   len(out.Warnings),
	})
	return out, nil
}

func (h *Handler) recent(ctx context.Context, table, vesselID string) ([]repository.Row, error) {
	q := repository.Query{OrderBy: "created_at", Descending: true, Limit: contextLimit}
	if vesselID != "" {
		q.Filters = []repository.Filter{repository.Eq("vessel_id", vesselID)}
	}
	return h.repo.Select(ctx, table, q)
}

// publish runs the best-effort steps. Failures become warnings on the output.
func (h *Handler) publish(ctx context.Context, input *Input, record repository.Row, out *Output) {
	id, _ := record["id"].(string)

	if h.indexer != nil {
		if err := h.indexer.IndexDocument(ctx, h.config.Index, id, record); err != nil {
			h.logger.Warn("report indexing failed", map[string]interface{}{"reportId": id, "error": err.Error()})
			out.Warnings = append(out.Warnings, "search indexing failed: "+err.Error())
		}
	}

	if len(input.NotifyEmails) == 0 {
		return
	}
	if h.mailer == nil {
		out.Warnings = append(out.Warnings, "email notifications are not configured")
		return
	}
	text, html := emailBodies(input.Title, out.Content)
	if err := h.mailer.Send(ctx, input.NotifyEmails, "Report ready: "+input.Title, text, html); err != nil {
		h.logger.Warn("report email failed", map[string]interface{}{"reportId": id, "error": err.Error()})
		out.Warnings = append(out.Warnings, "email notification failed: "+err.Error())
	}
}

func setIfPresent(r repository.Row, key, value string) {
	if value != "" {
		r[key] = value
	}
}

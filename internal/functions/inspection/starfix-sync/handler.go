// internal/functions/inspection/starfix-sync/handler.go
package starfixsync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"maritime-edge/internal/common/errors"
	"maritime-edge/internal/common/logger"
	"maritime-edge/internal/common/repository"
	"maritime-edge/internal/common/starfix"
	"maritime-edge/internal/common/validation"
)

// InspectionSource looks up port state control history by IMO number.
type InspectionSource interface {
	FetchInspections(ctx context.Context, imo string) (*starfix.InspectionsResponse, error)
}

type AlertPublisher interface {
	Publish(ctx context.Context, subject, message string, attrs map[string]string) (string, error)
}

var now = time.Now

type Handler struct {
	source InspectionSource
	repo   repository.Repository
	alerts AlertPublisher
	logger logger.Logger
}

// NewHandler wires the sync. alerts may be nil, in which case detention alerts are skipped.
func NewHandler(source InspectionSource, repo repository.Repository, alerts AlertPublisher, log logger.Logger) *Handler {
	return &Handler{
		source: source,
		repo:   repo,
		alerts: alerts,
		logger: log.With(map[string]interface{}{
			"function": FunctionName,
		}),
	}
}

func (h *Handler) Name() string { return FunctionName }

func (h *Handler) RequiredFields() []string { return []string{"imo_number"} }

func (h *Handler) Execute(ctx context.Context, raw []byte) (interface{}, error) {
	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewInvalidJSONError(err)
	}
	if !validation.ValidateIMONumber(string(input.IMONumber)) {
		return nil, errors.NewInvalidFieldError("imo_number", "must be a 7-digit IMO number")
	}
	return h.execute(ctx, &input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	imo := string(input.IMONumber)
	log := h.logger.With(map[string]interface{}{"imoNumber": imo})
	out := &Output{IMONumber: imo, Steps: []StepResult{}, Errors: []string{}}

	resp, err := h.source.FetchInspections(ctx, imo)
	if err != nil {
		return nil, err
	}
	out.record(StepFetchInspections, nil)

	syncedAt := now().UTC().Format(time.RFC3339)

	_, err = h.repo.Upsert(ctx, TableVessels, vesselRow(imo, input.VesselID, resp.Vessel, len(resp.Inspections), syncedAt), "imo_number")
	out.VesselSynced = err == nil
	out.record(StepUpsertVessel, err)

	var detained []starfix.Inspection
	for _, insp := range resp.Inspections {
		step := StepUpsertInspection + ":" + insp.InspectionID
		if strings.TrimSpace(insp.InspectionID) == "" {
			out.record(step, fmt.Errorf("inspection has no id"))
			continue
		}
		if insp.Detained {
			detained = append(detained, insp)
		}

		_, err := h.repo.Upsert(ctx, TableInspections, inspectionRow(imo, input.VesselID, insp, syncedAt), "inspection_id")
		if err == nil {
			out.InspectionsSynced++
		}
		out.record(step, err)
	}
	out.Detentions = len(detained)

	if len(detained) > 0 {
		h.detentionAlert(ctx, imo, resp.Vessel, detained, out, log)
	}

	if len(out.Errors) > 0 {
		log.Warn("starfix sync completed with errors", map[string]interface{}{"errors": out.Errors})
	}
	log.Info("starfix sync completed", map[string]interface{}{
		"inspections": len(resp.Inspections),
		"synced":      out.InspectionsSynced,
		"detentions":  out.Detentions,
	})
	return out, nil
}

func (h *Handler) detentionAlert(ctx context.Context, imo string, vessel starfix.Vessel, detained []starfix.Inspection, out *Output, log logger.Logger) {
	if h.alerts == nil {
		log.Warn("detention found but alerts are not configured", map[string]interface{}{"detentions": len(detained)})
		return
	}

	name := vessel.Name
	if name == "" {
		name = "IMO " + imo
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (IMO %s) has %d detention(s) on record:\n", name, imo, len(detained))
	for _, d := range detained {
		fmt.Fprintf(&b, "- %s at %s by %s, %d deficiencies\n", d.InspectionDate, d.Port, d.Authority, d.DeficienciesCount)
	}

	_, err := h.alerts.Publish(ctx, "Port state detention: "+name, b.String(), map[string]string{
		"event_type": "psc_detention",
		"imo_number": imo,
	})
	if err != nil {
		log.Warn("detention alert failed", map[string]interface{}{"error": err.Error()})
	}
	out.record(StepDetentionAlert, err)
}

func vesselRow(imo, vesselID string, v starfix.Vessel, inspections int, syncedAt string) repository.Row {
	row := repository.Row{
		"imo_number":       imo,
		"name":             v.Name,
		"flag":             v.Flag,
		"vessel_type":      v.VesselType,
		"gross_tonnage":    v.GrossTonnage,
		"year_built":       v.YearBuilt,
		"inspection_count": inspections,
		"last_synced_at":   syncedAt,
	}
	if vesselID != "" {
		row["vessel_id"] = vesselID
	}
	return row
}

func inspectionRow(imo, vesselID string, insp starfix.Inspection, syncedAt string) repository.Row {
	row := repository.Row{
		"inspection_id":      insp.InspectionID,
		"imo_number":         imo,
		"inspection_date":    insp.InspectionDate,
		"port":               insp.Port,
		"authority":          insp.Authority,
		"inspection_type":    insp.InspectionType,
		"deficiencies_count": insp.DeficienciesCount,
		"deficiencies":       insp.Deficiencies,
		"detained":           insp.Detained,
		"synced_at":          syncedAt,
	}
	if vesselID != "" {
		row["vessel_id"] = vesselID
	}
	return row
}

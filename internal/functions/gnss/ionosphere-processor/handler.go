// internal/functions/gnss/ionosphere-processor/handler.go
package ionosphereprocessor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"maritime-edge/internal/common/errors"
	"maritime-edge/internal/common/logger"
	"maritime-edge/internal/common/repository"
	"maritime-edge/internal/common/terrastar"
)

// CorrectionSource fetches the ionospheric correction for a position.
type CorrectionSource interface {
	FetchCorrection(ctx context.Context, req terrastar.CorrectionRequest) (*terrastar.Correction, error)
}

// AlertPublisher sends geomagnetic storm notifications.
type AlertPublisher interface {
	Publish(ctx context.Context, subject, message string, attrs map[string]string) (string, error)
}

var now = time.Now

type Handler struct {
	config *Config
	source CorrectionSource
	repo   repository.Repository
	alerts AlertPublisher
	logger logger.Logger
}

// NewHandler wires the processor. alerts may be nil, in which case storm alerts are skipped.
func NewHandler(config *Config, source CorrectionSource, repo repository.Repository, alerts AlertPublisher, log logger.Logger) *Handler {
	if config.StormKpThreshold <= 0 {
		config.StormKpThreshold = DefaultStormKpThreshold
	}
	return &Handler{
		config: config,
		source: source,
		repo:   repo,
		alerts: alerts,
		logger: log.With(map[string]interface{}{
			"function": FunctionName,
		}),
	}
}

func (h *Handler) Name() string { return FunctionName }

func (h *Handler) RequiredFields() []string { return []string{"vessel_id", "latitude", "longitude"} }

func (h *Handler) Execute(ctx context.Context, raw []byte) (interface{}, error) {
	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewInvalidJSONError(err)
	}
	if err := validate(&input); err != nil {
		return nil, err
	}
	return h.execute(ctx, &input)
}

func validate(input *Input) error {
	if strings.TrimSpace(input.VesselID) == "" {
		return errors.NewInvalidFieldError("vessel_id", "must not be empty")
	}
	if input.Latitude == nil || *input.Latitude < -90 || *input.Latitude > 90 {
		return errors.NewInvalidFieldError("latitude", "must be a number between -90 and 90")
	}
	if input.Longitude == nil || *input.Longitude < -180 || *input.Longitude > 180 {
		return errors.NewInvalidFieldError("longitude", "must be a number between -180 and 180")
	}
	if input.Timestamp != "" {
		if _, err := time.Parse(time.RFC3339, input.Timestamp); err != nil {
			return errors.NewInvalidFieldError("timestamp", "must be an RFC 3339 timestamp")
		}
	}
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	out := &Output{Steps: []StepResult{}, Errors: []string{}}
	log := h.logger.With(map[string]interface{}{"vesselId": input.VesselID})

	timestamp := input.Timestamp
	if timestamp == "" {
		timestamp = now().UTC().Format(time.RFC3339)
	}

	correction, err := h.source.FetchCorrection(ctx, terrastar.CorrectionRequest{
		VesselID:  input.VesselID,
		Latitude:  *input.Latitude,
		Longitude: *input.Longitude,
		Timestamp: timestamp,
	})
	if err != nil {
		return nil, err
	}
	out.Correction = correction
	out.record(StepFetchCorrection, nil)

	if _, err := h.repo.Upsert(ctx, TableCorrections, correctionRow(input, correction), "vessel_id", "epoch"); err != nil {
		return nil, err
	}
	out.record(StepStoreCorrection, nil)

	_, err = h.repo.Upsert(ctx, TablePositions, repository.Row{
		"vessel_id":        input.VesselID,
		"latitude":         correction.CorrectedLatitude,
		"longitude":        correction.CorrectedLongitude,
		"raw_latitude":     *input.Latitude,
		"raw_longitude":    *input.Longitude,
		"accuracy_m":       correction.AccuracyM,
		"correction_epoch": correction.Epoch,
		"updated_at":       now().UTC().Format(time.RFC3339),
	}, "vessel_id")
	if err != nil {
		log.Warn("vessel position update failed", map[string]interface{}{"error": err.Error()})
	}
	out.record(StepUpdateVesselPosition, err)

	if correction.KpIndex >= h.config.StormKpThreshold {
		h.stormAlert(ctx, input, correction, out, log)
	}

	log.Info("ionosphere correction processed", map[string]interface{}{
		"epoch":   correction.Epoch,
		"kpIndex": correction.KpIndex,
		"errors":  len(out.Errors),
	})
	return out, nil
}

func (h *Handler) stormAlert(ctx context.Context, input *Input, c *terrastar.Correction, out *Output, log logger.Logger) {
	if h.alerts == nil {
		log.Warn("storm detected but alerts are not configured", map[string]interface{}{"kpIndex": c.KpIndex})
		return
	}

	subject := fmt.Sprintf("Geomagnetic storm alert: Kp %.1f near vessel %s", c.KpIndex, input.VesselID)
	message := fmt.Sprintf(
		"Kp index %.1f reached the alert threshold of %.1f at epoch %s.\n"+
			"Position %.5f, %.5f. Scintillation index %.2f, expected accuracy %.2f m.\n"+
			"GNSS positions may be degraded until %s.",
		c.KpIndex, h.config.StormKpThreshold, c.Epoch,
		c.CorrectedLatitude, c.CorrectedLongitude, c.ScintillationIndex, c.AccuracyM,
		orUnknown(c.ValidUntil))

	_, err := h.alerts.Publish(ctx, subject, message, map[string]string{
		"event_type": "geomagnetic_storm",
		"vessel_id":  input.VesselID,
		"kp_index":   fmt.Sprintf("%.1f", c.KpIndex),
	})
	if err != nil {
		log.Warn("storm alert failed", map[string]interface{}{"error": err.Error()})
	}
	out.record(StepStormAlert, err)
}

func correctionRow(input *Input, c *terrastar.Correction) repository.Row {
	row := repository.Row{
		"vessel_id":           input.VesselID,
		"epoch":               c.Epoch,
		"latitude":            *input.Latitude,
		"longitude":           *input.Longitude,
		"vtec":                c.VTEC,
		"slant_delay_m":       c.SlantDelayM,
		"kp_index":            c.KpIndex,
		"scintillation_index": c.ScintillationIndex,
		"accuracy_m":          c.AccuracyM,
		"corrected_latitude":  c.CorrectedLatitude,
		"corrected_longitude": c.CorrectedLongitude,
		"created_at":          now().UTC().Format(time.RFC3339),
	}
	if c.ValidUntil != "" {
		row["valid_until"] = c.ValidUntil
	}
	if c.Source != "" {
		row["source"] = c.Source
	}
	return row
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

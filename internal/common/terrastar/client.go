// Package terrastar fetches GNSS ionospheric corrections for a vessel position.
package terrastar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"maritime-edge/internal/common/errors"
	edgehttp "maritime-edge/internal/common/http"
	"maritime-edge/internal/common/metrics"
)

const serviceName = "terrastar"

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type CorrectionRequest struct {
	VesselID  string  `json:"vessel_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
}

// Correction is the ionospheric model for one epoch at the requested position.
type Correction struct {
	Epoch              string  `json:"epoch"`
	VTEC               float64 `json:"vtec"`
	SlantDelayM        float64 `json:"slant_delay_m"`
	KpIndex            float64 `json:"kp_index"`
	ScintillationIndex float64 `json:"scintillation_index"`
	AccuracyM          float64 `json:"accuracy_m"`
	CorrectedLatitude  float64 `json:"corrected_latitude"`
	CorrectedLongitude float64 `json:"corrected_longitude"`
	ValidUntil         string  `json:"valid_until,omitempty"`
	Source             string  `json:"source,omitempty"`
}

type Client struct {
	config     Config
	httpClient *edgehttp.Client
}

func NewClient(cfg Config) *Client {
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &Client{config: cfg, httpClient: edgehttp.NewClient(cfg.Timeout)}
}

// FetchCorrection posts the position and returns the decoded correction.
func (c *Client) FetchCorrection(ctx context.Context, req CorrectionRequest) (*Correction, error) {
	started := time.Now()
	reply, err := c.httpClient.DoJSON(ctx, http.MethodPost, c.config.URL+"/corrections", req, map[string]string{
		"Authorization": "Bearer " + c.config.APIKey,
	})
	if err != nil {
		if ctx.Err() != nil {
			metrics.ObserveExternalCall(serviceName, string(errors.ErrCodeTimeout), started)
			return nil, fmt.Errorf("terrastar request: %w", ctx.Err())
		}
		metrics.ObserveExternalCall(serviceName, string(errors.ErrCodeTerrastarAPI), started)
		return nil, errors.NewUpstreamError(errors.ErrCodeTerrastarAPI, "Terrastar", 0, err.Error()).WithCause(err)
	}
	if !reply.OK() {
		metrics.ObserveExternalCall(serviceName, string(errors.ErrCodeTerrastarAPI), started)
		return nil, errors.NewUpstreamError(errors.ErrCodeTerrastarAPI, "Terrastar", reply.StatusCode, string(reply.Body))
	}

	if len(bytes.TrimSpace(reply.Body)) == 0 {
		metrics.ObserveExternalCall(serviceName, string(errors.ErrCodeInvalidResponse), started)
		return nil, errors.NewInvalidResponseError("Terrastar", "Empty response body")
	}

	var correction Correction
	if err := json.Unmarshal(reply.Body, &correction); err != nil {
		metrics.ObserveExternalCall(serviceName, string(errors.ErrCodeInvalidResponse), started)
		return nil, errors.NewInvalidResponseError("Terrastar", err.Error())
	}
	if correction.Epoch == "" {
		metrics.ObserveExternalCall(serviceName, string(errors.ErrCodeInvalidResponse), started)
		return nil, errors.NewInvalidResponseError("Terrastar", "Missing correction epoch")
	}

	metrics.ObserveExternalCall(serviceName, "success", started)
	return &correction, nil
}

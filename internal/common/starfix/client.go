// Package starfix pulls port state control inspection history for a vessel.
package starfix

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

const serviceName = "starfix"

type Config struct {
	URL            string
	APIKey         string
	OrganizationID string
	Timeout        time.Duration
}

type Vessel struct {
	IMONumber    string  `json:"imo_number"`
	Name         string  `json:"name"`
	Flag         string  `json:"flag"`
	VesselType   string  `json:"vessel_type"`
	GrossTonnage float64 `json:"gross_tonnage"`
	YearBuilt    int     `json:"year_built"`
}

type Deficiency struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Detainable  bool   `json:"detainable"`
}

type Inspection struct {
	InspectionID      string       `json:"inspection_id"`
	InspectionDate    string       `json:"inspection_date"`
	Port              string       `json:"port"`
	Authority         string       `json:"authority"`
	InspectionType    string       `json:"inspection_type"`
	DeficienciesCount int          `json:"deficiencies_count"`
	Deficiencies      []Deficiency `json:"deficiencies"`
	Detained          bool         `json:"detained"`
}

type InspectionsResponse struct {
	Vessel      Vessel       `json:"vessel"`
	Inspections []Inspection `json:"inspections"`
}

type searchRequest struct {
	OrganizationID string `json:"organization_id"`
	IMONumber      string `json:"imo_number"`
}

type Client struct {
	config     Config
	httpClient *edgehttp.Client
}

func NewClient(cfg Config) *Client {
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &Client{config: cfg, httpClient: edgehttp.NewClient(cfg.Timeout)}
}

// FetchInspections searches the organisation's inspection records by IMO number.
func (c *Client) FetchInspections(ctx context.Context, imo string) (*InspectionsResponse, error) {
	started := time.Now()
	reply, err := c.httpClient.DoJSON(ctx, http.MethodPost, c.config.URL+"/inspections/search",
		searchRequest{OrganizationID: c.config.OrganizationID, IMONumber: imo},
		map[string]string{"X-API-Key": c.config.APIKey},
	)
	if err != nil {
		if ctx.Err() != nil {
			metrics.ObserveExternalCall(serviceName, string(errors.ErrCodeTimeout), started)
			return nil, fmt.Errorf("starfix request: %w", ctx.Err())
		}
		metrics.ObserveExternalCall(serviceName, string(errors.ErrCodeStarfixAPI), started)
		return nil, errors.NewUpstreamError(errors.ErrCodeStarfixAPI, "StarFix", 0, err.Error()).WithCause(err)
	}
	if !reply.OK() {
		metrics.ObserveExternalCall(serviceName, string(errors.ErrCodeStarfixAPI), started)
		return nil, errors.NewUpstreamError(errors.ErrCodeStarfixAPI, "StarFix", reply.StatusCode, string(reply.Body))
	}

	if len(bytes.TrimSpace(reply.Body)) == 0 {
		metrics.ObserveExternalCall(serviceName, string(errors.ErrCodeInvalidResponse), started)
		return nil, errors.NewInvalidResponseError("StarFix", "Empty response body")
	}

	var out InspectionsResponse
	if err := json.Unmarshal(reply.Body, &out); err != nil {
		metrics.ObserveExternalCall(serviceName, string(errors.ErrCodeInvalidResponse), started)
		return nil, errors.NewInvalidResponseError("StarFix", err.Error())
	}
	if out.Vessel.IMONumber == "" {
		out.Vessel.IMONumber = imo
	}

	metrics.ObserveExternalCall(serviceName, "success", started)
	return &out, nil
}

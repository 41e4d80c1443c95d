// internal/functions/inspection/starfix-sync/models.go
package starfixsync

import (
	"bytes"
	"encoding/json"
	"strings"
)

type Input struct {
	IMONumber IMONumber `json:"imo_number"`
	VesselID  string    `json:"vessel_id,omitempty"`
}

// IMONumber accepts the IMO number as a JSON string or integer.
type IMONumber string

func (n *IMONumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = IMONumber(strings.TrimSpace(strings.TrimPrefix(strings.ToUpper(s), "IMO")))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*n = IMONumber(num.String())
	return nil
}

type StepResult struct {
	Step    string `json:"step"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type Output struct {
	IMONumber         string       `json:"imo_number"`
	VesselSynced      bool         `json:"vessel_synced"`
	InspectionsSynced int          `json:"inspections_synced"`
	Detentions        int          `json:"detentions"`
	Steps             []StepResult `json:"steps"`
	Errors            []string     `json:"errors"`
}

func (o *Output) record(step string, err error) {
	if err == nil {
		o.Steps = append(o.Steps, StepResult{Step: step, Success: true})
		return
	}
	o.Steps = append(o.Steps, StepResult{Step: step, Success: false, Error: err.Error()})
	o.Errors = append(o.Errors, step+": "+err.Error())
}

// internal/functions/gnss/ionosphere-processor/models.go
package ionosphereprocessor

import "maritime-edge/internal/common/terrastar"

type Input struct {
	VesselID  string   `json:"vessel_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Timestamp string   `json:"timestamp,omitempty"`
}

type StepResult struct {
	Step    string `json:"step"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type Output struct {
	Correction *terrastar.Correction `json:"correction"`
	Steps      []StepResult          `json:"steps"`
	Errors     []string              `json:"errors"`
}

func (o *Output) record(step string, err error) {
	if err == nil {
		o.Steps = append(o.Steps, StepResult{Step: step, Success: true})
		return
	}
	o.Steps = append(o.Steps, StepResult{Step: step, Success: false, Error: err.Error()})
	o.Errors = append(o.Errors, step+": "+err.Error())
}

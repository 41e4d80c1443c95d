// Package response builds the uniform JSON envelope every function returns.
package response

import (
	"encoding/json"
	"net/http"
	"time"

	"maritime-edge/internal/common/errors"
)

// TimestampFormat is RFC 3339 in UTC with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

type ErrorDetail struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Details interface{}      `json:"details,omitempty"`
}

type Metadata struct {
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	RequestID string `json:"requestId,omitempty"`
}

// Response is the envelope. Data and Error are mutually exclusive.
type Response struct {
	Success  bool         `json:"success"`
	Data     interface{}  `json:"data,omitempty"`
	Error    *ErrorDetail `json:"error,omitempty"`
	Metadata Metadata     `json:"metadata"`
}

var now = time.Now

// CreateResponse builds the envelope and its HTTP status. When err is set, data is dropped.
func CreateResponse(data interface{}, err *errors.EdgeFunctionError, requestID, version string) (int, Response) {
	resp := Response{
		Success: err == nil,
		Metadata: Metadata{
			Timestamp: now().UTC().Format(TimestampFormat),
			Version:   version,
			RequestID: requestID,
		},
	}

	if err != nil {
		resp.Error = &ErrorDetail{
			Code:    err.Code,
			Message: err.Message,
			Details: err.Details,
		}
		return err.Status(), resp
	}

	resp.Data = data
	return http.StatusOK, resp
}

// Write serializes resp as JSON with the given status.
func Write(w http.ResponseWriter, status int, resp Response) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(resp)
}

// Package validation holds request and payload checks shared by every function.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"maritime-edge/internal/common/errors"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// ValidateRequestBody checks that every required top-level key is present.
// A key holding JSON null counts as present. The error lists all missing
// fields in the order they were requested.
func ValidateRequestBody(body map[string]interface{}, required []string) error {
	fields := unique(required)
	if len(fields) == 0 {
		return nil
	}
	if body == nil {
		body = map[string]interface{}{}
	}

	schema := map[string]interface{}{
		"type":     "object",
		"required": fields,
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(body))
	if err != nil {
		return errors.NewInternalError(fmt.Errorf("request schema validation: %w", err))
	}
	if result.Valid() {
		return nil
	}

	missingSet := make(map[string]bool)
	for _, resErr := range result.Errors() {
		if resErr.Type() != "required" {
			continue
		}
		if prop, ok := resErr.Details()["property"].(string); ok {
			missingSet[prop] = true
		}
	}

	missing := make([]string, 0, len(missingSet))
	for _, field := range fields {
		if missingSet[field] {
			missing = append(missing, field)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return errors.NewValidationError(missing)
}

func unique(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

var fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// SafeJSONParse decodes text into T. Surrounding markdown code fences are ignored.
// No shape validation is performed beyond what the JSON decoder does.
func SafeJSONParse[T any](text string) (T, error) {
	var out T
	trimmed := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
		trimmed = m[1]
	}
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return out, errors.NewInvalidJSONError(err)
	}
	return out, nil
}

// DecodeBody reads at most limit bytes and parses them as a JSON object.
// The raw bytes are returned so handlers can decode into their typed request.
func DecodeBody(r io.Reader, limit int64) (map[string]interface{}, []byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, nil, errors.NewInvalidJSONError(err)
	}
	if int64(len(raw)) > limit {
		return nil, nil, errors.New(errors.ErrCodeInvalidJSON,
			fmt.Sprintf("Request body exceeds %d bytes", limit),
			http.StatusRequestEntityTooLarge, nil)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil, errors.New(errors.ErrCodeInvalidJSON, "Request body is empty", http.StatusBadRequest, nil)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, nil, errors.NewInvalidJSONError(err)
	}
	if body == nil {
		return nil, nil, errors.New(errors.ErrCodeInvalidJSON, "Request body must be a JSON object", http.StatusBadRequest, nil)
	}
	return body, raw, nil
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

var imoPattern = regexp.MustCompile(`^\d{7}$`)

// ValidateIMONumber reports whether s is a seven digit IMO ship identifier.
func ValidateIMONumber(s string) bool {
	return imoPattern.MatchString(s)
}

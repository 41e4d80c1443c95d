package openai

import (
	"maritime-edge/internal/common/errors"
	"maritime-edge/internal/common/validation"
)

// ParseCompletion decodes completion content into T. Anything the decoder rejects
// is reported as INVALID_RESPONSE from OpenAI.
func ParseCompletion[T any](content string) (T, error) {
	out, err := validation.SafeJSONParse[T](content)
	if err != nil {
		return out, errors.NewInvalidResponseError("OpenAI", err.Error())
	}
	return out, nil
}

package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	warns  []map[string]interface{}
	errors []map[string]interface{}
}

func (l *recordingLogger) Warn(msg string, fields map[string]interface{}) {
	l.warns = append(l.warns, fields)
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.errors = append(l.errors, fields)
}

func TestEdgeFunctionError_DefaultStatus(t *testing.T) {
	err := &EdgeFunctionError{Code: ErrCodeValidation, Message: "bad"}
	assert.Equal(t, http.StatusBadRequest, err.Status())

	err.StatusCode = http.StatusBadGateway
	assert.Equal(t, http.StatusBadGateway, err.Status())
}

func TestNewValidationError_ListsMissingFields(t *testing.T) {
	err := NewValidationError([]string{"b", "c"})

	assert.Equal(t, ErrCodeValidation, err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status())
	assert.Equal(t, []string{"b", "c"}, err.Details.(map[string]interface{})["missing_fields"])
	assert.Contains(t, err.Message, "b, c")
}

func TestNormalize(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Normalize(nil))
	})

	t.Run("edge errors pass through, even wrapped", func(t *testing.T) {
		orig := NewUpstreamError(ErrCodeOpenAIAPI, "OpenAI", 500, "boom")
		got := Normalize(fmt.Errorf("calling model: %w", orig))
		assert.Same(t, orig, got)
		assert.Equal(t, http.StatusBadGateway, got.Status())
		assert.Equal(t, "boom", got.Details)
	})

	t.Run("deadline becomes timeout", func(t *testing.T) {
		got := Normalize(fmt.Errorf("select: %w", context.DeadlineExceeded))
		assert.Equal(t, ErrCodeTimeout, got.Code)
		assert.Equal(t, http.StatusGatewayTimeout, got.Status())
	})

	t.Run("anything else is internal", func(t *testing.T) {
		got := Normalize(stderrors.New("dial tcp db:5432 password=s3cret"))
		assert.Equal(t, ErrCodeInternal, got.Code)
		assert.Equal(t, http.StatusInternalServerError, got.Status())
		assert.Nil(t, got.Details)
		assert.Contains(t, got.Error(), "Internal server error")
		assert.True(t, stderrors.Is(got, got.Unwrap()))
	})
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewDatabaseError("upsert", stderrors.New("conn reset")))
	assert.True(t, Is(err, ErrCodeDatabase))
	assert.False(t, Is(err, ErrCodeInternal))
	assert.False(t, Is(stderrors.New("plain"), ErrCodeDatabase))
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeValidation, "CLIENT"},
		{ErrCodeInvalidJSON, "CLIENT"},
		{ErrCodeOpenAIAPI, "UPSTREAM"},
		{ErrCodeStarfixAPI, "UPSTREAM"},
		{ErrCodeDatabase, "DATABASE"},
		{ErrCodeRateLimitExceeded, "RATE_LIMIT"},
		{ErrCodeEnvVarMissing, "CONFIGURATION"},
		{ErrCodeInternal, "OTHER"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetErrorCategory(tt.code), string(tt.code))
	}
}

func TestErrorHandler_LogLevels(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	efe := h.Handle(NewValidationError([]string{"drill_id"}), map[string]interface{}{"function": "evaluate-drill"})
	require.NotNil(t, efe)
	assert.Len(t, log.warns, 1)
	assert.Empty(t, log.errors)
	assert.Equal(t, "evaluate-drill", log.warns[0]["function"])

	efe = h.Handle(stderrors.New("kaboom"), nil)
	assert.Equal(t, ErrCodeInternal, efe.Code)
	require.Len(t, log.errors, 1)
	assert.Equal(t, "kaboom", log.errors[0]["cause"])

	assert.Nil(t, h.Handle(nil, nil))
}

func TestIsKnownCode(t *testing.T) {
	for _, code := range []ErrorCode{ErrCodeValidation, ErrCodeStarfixAPI, ErrCodeTimeout, ErrCodeInternal} {
		assert.True(t, IsKnownCode(string(code)), string(code))
	}
	assert.False(t, IsKnownCode("SOMETHING_ELSE"))
	assert.False(t, IsKnownCode(""))
}

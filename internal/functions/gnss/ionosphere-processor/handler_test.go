// internal/functions/gnss/ionosphere-processor/handler_test.go
package ionosphereprocessor

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maritime-edge/internal/common/errors"
	"maritime-edge/internal/common/logger"
	"maritime-edge/internal/common/repository"
	"maritime-edge/internal/common/terrastar"
)

// ==========================
// Test Doubles
// ==========================

type publishedAlert struct {
	subject string
	message string
	attrs   map[string]string
}

type fakePublisher struct {
	err    error
	alerts []publishedAlert
}

func (f *fakePublisher) Publish(ctx context.Context, subject, message string, attrs map[string]string) (string, error) {
	f.alerts = append(f.alerts, publishedAlert{subject, message, attrs})
	if f.err != nil {
		return "", f.err
	}
	return "msg-1", nil
}

func correctionServer(t *testing.T, kp float64) (*httptest.Server, *terrastar.CorrectionRequest) {
	var got terrastar.CorrectionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/corrections", r.URL.Path)
		assert.Equal(t, "Bearer ts-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(terrastar.Correction{
			Epoch:              "2025-04-01T10:00:00Z",
			VTEC:               42.3,
			SlantDelayM:        6.1,
			KpIndex:            kp,
			ScintillationIndex: 0.3,
			AccuracyM:          0.08,
			CorrectedLatitude:  59.91271,
			CorrectedLongitude: 10.74612,
			ValidUntil:         "2025-04-01T10:05:00Z",
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func createTestHandler(t *testing.T, url string, repo repository.Repository, alerts AlertPublisher) *Handler {
	source := terrastar.NewClient(terrastar.Config{URL: url, APIKey: "ts-key", Timeout: 5 * time.Second})
	return NewHandler(LoadConfig(), source, repo, alerts, logger.NewTestLogger(t))
}

const request = `{"vessel_id":"v-1","latitude":59.9127,"longitude":10.7461,"timestamp":"2025-04-01T10:00:00Z"}`

// ==========================
// Execute
// ==========================

func TestExecute_QuietConditions(t *testing.T) {
	srv, got := correctionServer(t, 2)
	repo := repository.NewMemoryRepository()
	alerts := &fakePublisher{}
	h := createTestHandler(t, srv.URL, repo, alerts)

	out, err := h.Execute(context.Background(), []byte(request))
	require.NoError(t, err)

	result := out.(*Output)
	assert.Equal(t, "v-1", got.VesselID)
	assert.Equal(t, "2025-04-01T10:00:00Z", got.Timestamp)
	assert.Equal(t, 42.3, result.Correction.VTEC)
	assert.Equal(t, []StepResult{
		{Step: StepFetchCorrection, Success: true},
		{Step: StepStoreCorrection, Success: true},
		{Step: StepUpdateVesselPosition, Success: true},
	}, result.Steps)
	assert.Empty(t, result.Errors)
	assert.Empty(t, alerts.alerts)

	corrections := repo.Rows(TableCorrections)
	require.Len(t, corrections, 1)
	assert.Equal(t, "2025-04-01T10:00:00Z", corrections[0]["epoch"])
	assert.Equal(t, 59.9127, corrections[0]["latitude"])

	positions := repo.Rows(TablePositions)
	require.Len(t, positions, 1)
	assert.Equal(t, 59.91271, positions[0]["latitude"])
}

func TestExecute_RepeatedEpochUpdatesInPlace(t *testing.T) {
	srv, _ := correctionServer(t, 1)
	repo := repository.NewMemoryRepository()
	h := createTestHandler(t, srv.URL, repo, nil)

	for i := 0; i < 2; i++ {
		_, err := h.Execute(context.Background(), []byte(request))
		require.NoError(t, err)
	}
	assert.Len(t, repo.Rows(TableCorrections), 1)
	assert.Len(t, repo.Rows(TablePositions), 1)
}

func TestExecute_StormAlert(t *testing.T) {
	t.Run("published at threshold", func(t *testing.T) {
		srv, _ := correctionServer(t, 5)
		alerts := &fakePublisher{}
		h := createTestHandler(t, srv.URL, repository.NewMemoryRepository(), alerts)

		out, err := h.Execute(context.Background(), []byte(request))
		require.NoError(t, err)

		result := out.(*Output)
		require.Len(t, alerts.alerts, 1)
		assert.Equal(t, "geomagnetic_storm", alerts.alerts[0].attrs["event_type"])
		assert.Equal(t, "5.0", alerts.alerts[0].attrs["kp_index"])
		assert.Contains(t, alerts.alerts[0].subject, "v-1")
		assert.Equal(t, StepResult{Step: StepStormAlert, Success: true}, result.Steps[len(result.Steps)-1])
	})

	t.Run("publish failure is recorded", func(t *testing.T) {
		srv, _ := correctionServer(t, 7.3)
		alerts := &fakePublisher{err: stderrors.New("AuthorizationError")}
		h := createTestHandler(t, srv.URL, repository.NewMemoryRepository(), alerts)

		out, err := h.Execute(context.Background(), []byte(request))
		require.NoError(t, err)

		result := out.(*Output)
		last := result.Steps[len(result.Steps)-1]
		assert.Equal(t, StepStormAlert, last.Step)
		assert.False(t, last.Success)
		assert.Equal(t, []string{"storm_alert: AuthorizationError"}, result.Errors)
	})

	t.Run("skipped without publisher", func(t *testing.T) {
		srv, _ := correctionServer(t, 8)
		h := createTestHandler(t, srv.URL, repository.NewMemoryRepository(), nil)

		out, err := h.Execute(context.Background(), []byte(request))
		require.NoError(t, err)
		assert.Len(t, out.(*Output).Steps, 3)
	})
}

func TestExecute_PositionFailureIsRecorded(t *testing.T) {
	srv, _ := correctionServer(t, 1)
	repo := repository.NewMemoryRepository()
	repo.FailOn(TablePositions, stderrors.New("deadlock detected"))
	h := createTestHandler(t, srv.URL, repo, nil)

	out, err := h.Execute(context.Background(), []byte(request))
	require.NoError(t, err)

	result := out.(*Output)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "update_vessel_position")
	assert.False(t, result.Steps[2].Success)
	assert.Len(t, repo.Rows(TableCorrections), 1)
}

func TestExecute_Errors(t *testing.T) {
	t.Run("store failure is fatal", func(t *testing.T) {
		srv, _ := correctionServer(t, 1)
		repo := repository.NewMemoryRepository()
		repo.FailOn(TableCorrections, stderrors.New("disk full"))
		h := createTestHandler(t, srv.URL, repo, nil)

		_, err := h.Execute(context.Background(), []byte(request))
		assert.True(t, errors.Is(err, errors.ErrCodeDatabase))
		assert.Empty(t, repo.Rows(TablePositions))
	})

	t.Run("upstream failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
		}))
		defer srv.Close()
		h := createTestHandler(t, srv.URL, repository.NewMemoryRepository(), nil)

		_, err := h.Execute(context.Background(), []byte(request))
		assert.True(t, errors.Is(err, errors.ErrCodeTerrastarAPI))
	})

	invalid := []struct {
		name string
		body string
	}{
		{"latitude out of range", `{"vessel_id":"v","latitude":91,"longitude":0}`},
		{"longitude out of range", `{"vessel_id":"v","latitude":0,"longitude":-180.5}`},
		{"null latitude", `{"vessel_id":"v","latitude":null,"longitude":0}`},
		{"blank vessel", `{"vessel_id":" ","latitude":0,"longitude":0}`},
		{"bad timestamp", `{"vessel_id":"v","latitude":0,"longitude":0,"timestamp":"yesterday"}`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t, "http://127.0.0.1:1", repository.NewMemoryRepository(), nil)
			_, err := h.Execute(context.Background(), []byte(tt.body))
			assert.True(t, errors.Is(err, errors.ErrCodeValidation))
		})
	}

	t.Run("string coordinates", func(t *testing.T) {
		h := createTestHandler(t, "http://127.0.0.1:1", repository.NewMemoryRepository(), nil)
		_, err := h.Execute(context.Background(), []byte(`{"vessel_id":"v","latitude":"59.9","longitude":0}`))
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidJSON))
	})
}

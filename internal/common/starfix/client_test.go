package starfix

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maritime-edge/internal/common/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{URL: srv.URL + "/", APIKey: "sf-key", OrganizationID: "org-1", Timeout: 5 * time.Second})
}

func TestFetchInspections_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/inspections/search", r.URL.Path)
		assert.Equal(t, "sf-key", r.Header.Get("X-API-Key"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, map[string]string{"organization_id": "org-1", "imo_number": "9074729"}, req)

		_, _ = w.Write([]byte(`{
			"vessel": {"name": "Nordic Star", "flag": "NO"},
			"inspections": [
				{"inspection_id": "PSC-1", "port": "Rotterdam", "deficiencies_count": 2, "detained": false},
				{"inspection_id": "PSC-2", "port": "Hamburg", "deficiencies_count": 7, "detained": true}
			]
		}`))
	})

	out, err := client.FetchInspections(context.Background(), "9074729")
	require.NoError(t, err)
	assert.Equal(t, "9074729", out.Vessel.IMONumber)
	assert.Equal(t, "Nordic Star", out.Vessel.Name)
	require.Len(t, out.Inspections, 2)
	assert.True(t, out.Inspections[1].Detained)
}

func TestFetchInspections_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   errors.ErrorCode
	}{
		{"unauthorized", http.StatusUnauthorized, "bad key", errors.ErrCodeStarfixAPI},
		{"empty body", http.StatusOK, " ", errors.ErrCodeInvalidResponse},
		{"malformed", http.StatusOK, "[", errors.ErrCodeInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.FetchInspections(context.Background(), "9074729")
			require.Error(t, err)
			efe := errors.Normalize(err)
			assert.Equal(t, tt.code, efe.Code)
			assert.Equal(t, http.StatusBadGateway, efe.Status())
		})
	}
}

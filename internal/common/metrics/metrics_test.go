package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveExternalCall(t *testing.T) {
	before := testutil.ToFloat64(ExternalCalls.WithLabelValues("terrastar", "success"))

	ObserveExternalCall("terrastar", "success", time.Now().Add(-time.Second))

	assert.Equal(t, before+1, testutil.ToFloat64(ExternalCalls.WithLabelValues("terrastar", "success")))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(ExternalCallDuration), 1)
}

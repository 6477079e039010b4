package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	c := NewCollectors()

	t.Run("ObserveFetch", func(t *testing.T) {
		c.ObserveFetch("fixture", "transactions", OutcomeSuccess, 10*time.Millisecond)
		c.ObserveFetch("fixture", "transactions", OutcomeSuccess, 20*time.Millisecond)
		c.ObserveFetch("fixture", "transactions", OutcomeError, time.Millisecond)

		assert.Equal(t, 2.0, testutil.ToFloat64(c.LedgerFetches.WithLabelValues("fixture", "transactions", OutcomeSuccess)))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.LedgerFetches.WithLabelValues("fixture", "transactions", OutcomeError)))
	})

	t.Run("ObserveOperation", func(t *testing.T) {
		c.ObserveOperation("trace", OutcomeSuccess, time.Second)
		assert.Equal(t, 1.0, testutil.ToFloat64(c.Operations.WithLabelValues("trace", OutcomeSuccess)))
	})

	t.Run("Handler", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.True(t, strings.Contains(body, "flow_tracer_ledger_fetch_total"))
		assert.True(t, strings.Contains(body, "flow_tracer_operation_duration_seconds"))
	})
}

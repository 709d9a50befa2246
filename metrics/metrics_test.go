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

func TestMetrics(t *testing.T) {
	m := NewMetrics("issuance_factory")

	m.ObserveOperation("accept_payment", OutcomeOK, 10*time.Millisecond)
	m.ObserveOperation("accept_payment", OutcomeOK, 20*time.Millisecond)
	m.ObserveOperation("accept_payment", "supply_exhausted", time.Millisecond)
	m.IncrementItemsIssued()
	m.IncrementPaymentsRejected("supply_exhausted")
	m.IncrementDispatchFailures("kafka-factory")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("accept_payment", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("accept_payment", "supply_exhausted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsIssued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentsRejected.WithLabelValues("supply_exhausted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchFailures.WithLabelValues("kafka-factory")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))
}

func TestMetricsServer_Handler(t *testing.T) {
	srv, err := New("issuance_factory", "127.0.0.1:0")
	require.NoError(t, err)
	srv.Metrics().IncrementItemsIssued()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "issuance_factory_items_issued_total 1"), body)
	assert.True(t, strings.Contains(body, "go_goroutines"))
}

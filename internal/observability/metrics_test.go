package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordToolExecution(t *testing.T) {
	m := getMetrics()
	okBefore := testutil.ToFloat64(m.toolExecutionTotal.WithLabelValues("metrics_test_tool", "success"))
	errBefore := testutil.ToFloat64(m.toolErrorsTotal.WithLabelValues("metrics_test_tool"))

	RecordToolExecution("metrics_test_tool", 10*time.Millisecond, true)
	RecordToolExecution("metrics_test_tool", 10*time.Millisecond, false)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(m.toolExecutionTotal.WithLabelValues("metrics_test_tool", "success")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(m.toolErrorsTotal.WithLabelValues("metrics_test_tool")))
}

func TestRecordModelRequestAndTurn(t *testing.T) {
	m := getMetrics()

	RecordModelRequest("metrics_test", "initial", time.Second, false)
	RecordTurn("metrics_test", "transport_error", time.Second)
	RecordDroppedToolCalls("metrics_test", 2)
	RecordDroppedToolCalls("metrics_test", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelRequestTotal.WithLabelValues("metrics_test", "initial", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turnTotal.WithLabelValues("metrics_test", "transport_error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.droppedToolCalls.WithLabelValues("metrics_test")))
}

func TestActiveSessions(t *testing.T) {
	m := getMetrics()
	before := testutil.ToFloat64(m.activeSessions)

	SessionOpened()
	SessionOpened()
	SessionClosed()

	assert.Equal(t, before+1, testutil.ToFloat64(m.activeSessions))
	SessionClosed()
}

func TestHandler(t *testing.T) {
	RecordTurn("handler_test", "reply", time.Millisecond)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "architect_turn_total")
}

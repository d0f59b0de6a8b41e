package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("outcome", "created"),
		attribute.String("actor_id", "456"),
		attribute.String("org_id", "789"),
		attribute.String("view", "rollup"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.Contains(t, keys, attribute.Key("outcome"))
	assert.Contains(t, keys, attribute.Key("view"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordReportSubmission(ctx, "created")
		m.RecordLineMutation(ctx, "performance", "update")
		m.RecordRollup(ctx, "rollup", "organization", 3)
		m.RecordRateLimitAllowed(ctx, "/api/reports")
		m.RecordRateLimitDenied(ctx, "/api/reports", "actor-rate")
	})
}

func TestRecordReportSubmissionCounts(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := New(Config{ServiceName: "test"}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordReportSubmission(ctx, "created")
	m.RecordReportSubmission(ctx, "patched")
	m.RecordReportSubmission(ctx, "patched")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name != "fieldreport_report_submissions_total" {
				continue
			}
			sum, ok := metric.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(3), total)
}

func TestGinMiddlewareWithNoopProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, err := NewHTTPMetrics(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

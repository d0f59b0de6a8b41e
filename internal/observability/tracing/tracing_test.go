package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsIdentifiers(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/reports"),
		attribute.String("actor_id", "1"),
		attribute.String("org_id", "2"),
	)
	assert.Equal(t, []attribute.KeyValue{attribute.String("http.route", "/api/reports")}, attrs)
}

func TestSafeErrorKeepsOutermostMessage(t *testing.T) {
	err := fmt.Errorf("persistence: %w", errors.New("duplicate key value violates constraint"))
	assert.EqualError(t, SafeError(err), "persistence")
	assert.NoError(t, SafeError(nil))
	assert.EqualError(t, SafeError(errors.New("forbidden")), "forbidden")
}

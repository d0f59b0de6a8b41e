package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	reportSubmissions metric.Int64Counter
	lineMutations     metric.Int64Counter
	rollups           metric.Int64Counter
	rollupReports     metric.Int64Histogram
	rateLimitAllowed  metric.Int64Counter
	rateLimitDenied   metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "fieldreport"
	}
	meter := provider.Meter(name)

	reportSubmissions, err := meter.Int64Counter("fieldreport_report_submissions_total")
	if err != nil {
		return nil, err
	}
	lineMutations, err := meter.Int64Counter("fieldreport_line_mutations_total")
	if err != nil {
		return nil, err
	}
	rollups, err := meter.Int64Counter("fieldreport_rollups_total")
	if err != nil {
		return nil, err
	}
	rollupReports, err := meter.Int64Histogram("fieldreport_rollup_reports",
		metric.WithDescription("reports visited per rollup"),
	)
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("fieldreport_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("fieldreport_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		reportSubmissions: reportSubmissions,
		lineMutations:     lineMutations,
		rollups:           rollups,
		rollupReports:     rollupReports,
		rateLimitAllowed:  rateLimitAllowed,
		rateLimitDenied:   rateLimitDenied,
	}, nil
}

// RecordReportSubmission counts submissions by outcome (created, patched, failed).
func (m *Metrics) RecordReportSubmission(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.reportSubmissions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLineMutation counts single-line edits and deletes.
func (m *Metrics) RecordLineMutation(ctx context.Context, kind, operation string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("line_kind", strings.TrimSpace(kind)),
		attribute.String("operation", strings.TrimSpace(operation)),
	)
	m.lineMutations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRollup counts rollups and the number of reports they aggregated.
func (m *Metrics) RecordRollup(ctx context.Context, view, scope string, reports int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("view", strings.TrimSpace(view)),
		attribute.String("scope", strings.TrimSpace(scope)),
	)
	m.rollups.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.rollupReports.Record(ctx, int64(reports), metric.WithAttributes(attrs...))
}

// RecordRateLimitAllowed increments rate limit allow counts.
func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"outcome":     {},
	"line_kind":   {},
	"operation":   {},
	"view":        {},
	"scope":       {},
	"endpoint":    {},
	"method":      {},
	"status_code": {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// Actor, organization and report identifiers never become labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

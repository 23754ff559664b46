package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// BusinessMetrics records ledger, grant, emergency and authorization activity.
type BusinessMetrics interface {
	// RecordOperation counts one operation.
	// Domain examples: "ledger", "grant", "emergency"
	// Operation examples: "mint", "grant_issue", "emergency_request"
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records the operation duration in seconds.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordIntegrityCheck counts one chain verification by outcome.
	RecordIntegrityCheck(ctx context.Context, valid bool)

	// RecordAuthorization counts one access decision. Path is "grant", "emergency" or
	// "none" for denials.
	RecordAuthorization(ctx context.Context, allowed bool, path string)
}

type businessMetrics struct {
	operationCounter     metric.Int64Counter
	durationHisto        metric.Float64Histogram
	integrityCounter     metric.Int64Counter
	authorizationCounter metric.Int64Counter
}

// NewBusinessMetrics creates BusinessMetrics on the given meter provider. Every metric
// name is prefixed with namespace.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of business operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of business operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	integrityCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_integrity_checks_total", namespace),
		metric.WithDescription("Total number of chain verifications by outcome"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create integrity counter: %w", err)
	}

	authorizationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_authorization_decisions_total", namespace),
		metric.WithDescription("Total number of access decisions by outcome and path"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization counter: %w", err)
	}

	return &businessMetrics{
		operationCounter:     operationCounter,
		durationHisto:        durationHisto,
		integrityCounter:     integrityCounter,
		authorizationCounter: authorizationCounter,
	}, nil
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordIntegrityCheck(ctx context.Context, valid bool) {
	result := "valid"
	if !valid {
		result = "violation"
	}
	b.integrityCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (b *businessMetrics) RecordAuthorization(ctx context.Context, allowed bool, path string) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	b.authorizationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("decision", decision),
			attribute.String("path", path),
		),
	)
}

// Observe records count and duration of an operation that started at start and
// finished with err.
func Observe(ctx context.Context, m BusinessMetrics, domain, operation string, start time.Time, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.RecordOperation(ctx, domain, operation, status)
	m.RecordDuration(ctx, domain, operation, time.Since(start), status)
}

// NoOpBusinessMetrics discards everything. Used when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

func (n *NoOpBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {}

func (n *NoOpBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
}

func (n *NoOpBusinessMetrics) RecordIntegrityCheck(ctx context.Context, valid bool) {}

func (n *NoOpBusinessMetrics) RecordAuthorization(ctx context.Context, allowed bool, path string) {}

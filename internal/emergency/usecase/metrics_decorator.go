package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	emergencyDomain "github.com/allisson/medledger/internal/emergency/domain"
	"github.com/allisson/medledger/internal/metrics"
)

const metricsDomain = "emergency"

// emergencyUseCaseWithMetrics decorates EmergencyUseCase with metrics instrumentation.
type emergencyUseCaseWithMetrics struct {
	next    EmergencyUseCase
	metrics metrics.BusinessMetrics
}

// NewEmergencyUseCaseWithMetrics wraps an EmergencyUseCase with metrics recording.
func NewEmergencyUseCaseWithMetrics(useCase EmergencyUseCase, m metrics.BusinessMetrics) EmergencyUseCase {
	return &emergencyUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (e *emergencyUseCaseWithMetrics) RequestAccess(
	ctx context.Context,
	input *emergencyDomain.RequestAccessInput,
) (*emergencyDomain.RequestAccessOutput, error) {
	start := time.Now()
	output, err := e.next.RequestAccess(ctx, input)
	metrics.Observe(ctx, e.metrics, metricsDomain, "emergency_request", start, err)
	return output, err
}

func (e *emergencyUseCaseWithMetrics) IsActive(ctx context.Context, recordID uuid.UUID) (bool, error) {
	start := time.Now()
	active, err := e.next.IsActive(ctx, recordID)
	metrics.Observe(ctx, e.metrics, metricsDomain, "emergency_status", start, err)
	return active, err
}

func (e *emergencyUseCaseWithMetrics) ActiveGrantsFor(
	ctx context.Context,
	artifactID string,
) ([]*emergencyDomain.EmergencyAccessRecord, error) {
	start := time.Now()
	records, err := e.next.ActiveGrantsFor(ctx, artifactID)
	metrics.Observe(ctx, e.metrics, metricsDomain, "emergency_list", start, err)
	return records, err
}

func (e *emergencyUseCaseWithMetrics) Redeem(
	ctx context.Context,
	recordID uuid.UUID,
	code string,
) (*emergencyDomain.EmergencyAccessRecord, error) {
	start := time.Now()
	record, err := e.next.Redeem(ctx, recordID, code)
	metrics.Observe(ctx, e.metrics, metricsDomain, "emergency_redeem", start, err)
	return record, err
}

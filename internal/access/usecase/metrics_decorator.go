package usecase

import (
	"context"
	"time"

	accessDomain "github.com/allisson/medledger/internal/access/domain"
	"github.com/allisson/medledger/internal/metrics"
)

const metricsDomain = "access"

// accessUseCaseWithMetrics decorates AccessUseCase with metrics instrumentation.
type accessUseCaseWithMetrics struct {
	next    AccessUseCase
	metrics metrics.BusinessMetrics
}

// NewAccessUseCaseWithMetrics wraps an AccessUseCase with metrics recording, including
// an allow/deny counter labelled by decision path.
func NewAccessUseCaseWithMetrics(useCase AccessUseCase, m metrics.BusinessMetrics) AccessUseCase {
	return &accessUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (a *accessUseCaseWithMetrics) Authorize(
	ctx context.Context,
	request *accessDomain.Request,
) (*accessDomain.Decision, error) {
	start := time.Now()
	decision, err := a.next.Authorize(ctx, request)
	metrics.Observe(ctx, a.metrics, metricsDomain, "authorize", start, err)
	if err == nil {
		a.metrics.RecordAuthorization(ctx, decision.Allowed, string(decision.Path))
	}
	return decision, err
}

func (a *accessUseCaseWithMetrics) Reject(
	ctx context.Context,
	request *accessDomain.Request,
	reason string,
) (*accessDomain.Decision, error) {
	start := time.Now()
	decision, err := a.next.Reject(ctx, request, reason)
	metrics.Observe(ctx, a.metrics, metricsDomain, "reject", start, err)
	if err == nil {
		a.metrics.RecordAuthorization(ctx, false, string(decision.Path))
	}
	return decision, err
}

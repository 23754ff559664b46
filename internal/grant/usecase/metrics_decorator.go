package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	grantDomain "github.com/allisson/medledger/internal/grant/domain"
	"github.com/allisson/medledger/internal/metrics"
)

const metricsDomain = "grant"

// grantUseCaseWithMetrics decorates GrantUseCase with metrics instrumentation.
type grantUseCaseWithMetrics struct {
	next    GrantUseCase
	metrics metrics.BusinessMetrics
}

// NewGrantUseCaseWithMetrics wraps a GrantUseCase with metrics recording.
func NewGrantUseCaseWithMetrics(useCase GrantUseCase, m metrics.BusinessMetrics) GrantUseCase {
	return &grantUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (g *grantUseCaseWithMetrics) Grant(
	ctx context.Context,
	input *grantDomain.GrantInput,
) (*grantDomain.AccessGrant, error) {
	start := time.Now()
	grant, err := g.next.Grant(ctx, input)
	metrics.Observe(ctx, g.metrics, metricsDomain, "grant_issue", start, err)
	return grant, err
}

func (g *grantUseCaseWithMetrics) Revoke(ctx context.Context, grantID uuid.UUID, actorID string) error {
	start := time.Now()
	err := g.next.Revoke(ctx, grantID, actorID)
	metrics.Observe(ctx, g.metrics, metricsDomain, "grant_revoke", start, err)
	return err
}

func (g *grantUseCaseWithMetrics) CheckAccess(ctx context.Context, artifactID, granteeID string) (bool, error) {
	start := time.Now()
	ok, err := g.next.CheckAccess(ctx, artifactID, granteeID)
	metrics.Observe(ctx, g.metrics, metricsDomain, "grant_check", start, err)
	return ok, err
}

func (g *grantUseCaseWithMetrics) Get(ctx context.Context, grantID uuid.UUID) (*grantDomain.AccessGrant, error) {
	start := time.Now()
	grant, err := g.next.Get(ctx, grantID)
	metrics.Observe(ctx, g.metrics, metricsDomain, "grant_get", start, err)
	return grant, err
}

func (g *grantUseCaseWithMetrics) ListByArtifact(
	ctx context.Context,
	artifactID string,
) ([]*grantDomain.AccessGrant, error) {
	start := time.Now()
	grants, err := g.next.ListByArtifact(ctx, artifactID)
	metrics.Observe(ctx, g.metrics, metricsDomain, "grant_list", start, err)
	return grants, err
}

package usecase

import (
	"context"
	"time"

	ledgerDomain "github.com/allisson/medledger/internal/ledger/domain"
	"github.com/allisson/medledger/internal/metrics"
)

const metricsDomain = "ledger"

// ledgerUseCaseWithMetrics decorates LedgerUseCase with metrics instrumentation.
type ledgerUseCaseWithMetrics struct {
	next    LedgerUseCase
	metrics metrics.BusinessMetrics
}

// NewLedgerUseCaseWithMetrics wraps a LedgerUseCase with metrics recording. Verify also
// counts integrity check outcomes for known artifacts.
func NewLedgerUseCaseWithMetrics(useCase LedgerUseCase, m metrics.BusinessMetrics) LedgerUseCase {
	return &ledgerUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (l *ledgerUseCaseWithMetrics) Mint(
	ctx context.Context,
	input *ledgerDomain.MintInput,
) (*ledgerDomain.Block, error) {
	start := time.Now()
	block, err := l.next.Mint(ctx, input)
	metrics.Observe(ctx, l.metrics, metricsDomain, "mint", start, err)
	return block, err
}

func (l *ledgerUseCaseWithMetrics) AppendRecord(
	ctx context.Context,
	artifactID string,
	payload []byte,
	actorID string,
) (*ledgerDomain.Block, error) {
	start := time.Now()
	block, err := l.next.AppendRecord(ctx, artifactID, payload, actorID)
	metrics.Observe(ctx, l.metrics, metricsDomain, "append_record", start, err)
	return block, err
}

func (l *ledgerUseCaseWithMetrics) GetChainFor(
	ctx context.Context,
	artifactID string,
) ([]*ledgerDomain.Block, error) {
	start := time.Now()
	blocks, err := l.next.GetChainFor(ctx, artifactID)
	metrics.Observe(ctx, l.metrics, metricsDomain, "get_chain", start, err)
	return blocks, err
}

func (l *ledgerUseCaseWithMetrics) Verify(
	ctx context.Context,
	artifactID string,
) (*ledgerDomain.VerificationResult, error) {
	start := time.Now()
	result, err := l.next.Verify(ctx, artifactID)
	metrics.Observe(ctx, l.metrics, metricsDomain, "verify", start, err)
	if err == nil && result.BlockCount > 0 {
		l.metrics.RecordIntegrityCheck(ctx, result.IsValid)
	}
	return result, err
}

func (l *ledgerUseCaseWithMetrics) ConfirmIntegrity(
	ctx context.Context,
	artifactID, actorID string,
) (*ledgerDomain.VerificationResult, error) {
	start := time.Now()
	result, err := l.next.ConfirmIntegrity(ctx, artifactID, actorID)
	metrics.Observe(ctx, l.metrics, metricsDomain, "confirm_integrity", start, err)
	return result, err
}

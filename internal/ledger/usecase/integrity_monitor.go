package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/allisson/medledger/internal/errors"
)

// MonitorConfig holds integrity monitor configuration.
type MonitorConfig struct {
	Interval      time.Duration
	RatePerSecond float64
	PageSize      int
}

// SweepResult summarizes one pass over the registry.
type SweepResult struct {
	Checked    int
	Violations int
}

// IntegrityMonitor periodically re-verifies every minted artifact so tampering is
// detected even for artifacts nobody reads. Grants and emergency records are not swept;
// they expire lazily.
type IntegrityMonitor struct {
	config   MonitorConfig
	ledger   LedgerUseCase
	registry ArtifactRegistry
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewIntegrityMonitor creates an IntegrityMonitor. Verify calls are paced by a token
// bucket of RatePerSecond with a burst of one.
func NewIntegrityMonitor(
	config MonitorConfig,
	ledger LedgerUseCase,
	registry ArtifactRegistry,
	logger *slog.Logger,
) *IntegrityMonitor {
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	limit := rate.Inf
	if config.RatePerSecond > 0 {
		limit = rate.Limit(config.RatePerSecond)
	}
	return &IntegrityMonitor{
		config:   config,
		ledger:   ledger,
		registry: registry,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

// Start runs a sweep every interval until ctx is done.
func (m *IntegrityMonitor) Start(ctx context.Context) error {
	m.logger.Info("starting integrity monitor",
		slog.Duration("interval", m.config.Interval),
		slog.Float64("rate_per_second", m.config.RatePerSecond),
	)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("stopping integrity monitor")
			return ctx.Err()
		case <-ticker.C:
			result, err := m.Sweep(ctx)
			if err != nil {
				m.logger.Error("integrity sweep failed", slog.Any("error", err))
				continue
			}
			m.logger.Info("integrity sweep finished",
				slog.Int("checked", result.Checked),
				slog.Int("violations", result.Violations),
			)
		}
	}
}

// Sweep verifies every registered artifact once, in mint order. A failing Verify call is
// logged and skipped; only registry paging errors and cancellation abort the sweep.
func (m *IntegrityMonitor) Sweep(ctx context.Context) (*SweepResult, error) {
	result := &SweepResult{}

	for offset := 0; ; offset += m.config.PageSize {
		page, err := m.registry.List(ctx, offset, m.config.PageSize)
		if err != nil {
			return result, apperrors.Wrap(err, "failed to list artifacts")
		}

		for _, artifact := range page {
			if err := m.limiter.Wait(ctx); err != nil {
				return result, err
			}

			verification, err := m.ledger.Verify(ctx, artifact.ArtifactID)
			if err != nil {
				m.logger.Error("failed to verify artifact",
					slog.String("artifact_id", artifact.ArtifactID),
					slog.Any("error", err),
				)
				continue
			}

			result.Checked++
			if !verification.IsValid {
				result.Violations++
				m.logger.Warn("chain integrity violation",
					slog.String("artifact_id", artifact.ArtifactID),
					slog.Int64("failed_sequence", verification.FailedSequence),
					slog.String("reason", verification.Reason),
				)
			}
		}

		if len(page) < m.config.PageSize {
			return result, nil
		}
	}
}

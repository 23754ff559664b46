package app

import (
	"database/sql"
	"fmt"

	ledgerRepository "github.com/allisson/medledger/internal/ledger/repository"
	ledgerService "github.com/allisson/medledger/internal/ledger/service"
	ledgerUseCase "github.com/allisson/medledger/internal/ledger/usecase"
	registryRepository "github.com/allisson/medledger/internal/registry/repository"
	registryUseCase "github.com/allisson/medledger/internal/registry/usecase"
)

type ledgerComponents struct {
	blockRepo    lazy[ledgerUseCase.BlockRepository]
	artifactRepo lazy[registryUseCase.ArtifactRepository]
	registry     lazy[registryUseCase.RegistryUseCase]
	ledger       lazy[ledgerUseCase.LedgerUseCase]
	monitor      lazy[*ledgerUseCase.IntegrityMonitor]
}

// BlockRepository returns the block store for the configured backend.
func (c *Container) BlockRepository() (ledgerUseCase.BlockRepository, error) {
	return c.blockRepo.get(func() (ledgerUseCase.BlockRepository, error) {
		return pick(c, "block repository",
			func() ledgerUseCase.BlockRepository { return ledgerRepository.NewMemoryBlockRepository() },
			func(db *sql.DB) ledgerUseCase.BlockRepository {
				return ledgerRepository.NewPostgreSQLBlockRepository(db)
			},
			func(db *sql.DB) ledgerUseCase.BlockRepository { return ledgerRepository.NewMySQLBlockRepository(db) },
		)
	})
}

// ArtifactRepository returns the registry store for the configured backend.
func (c *Container) ArtifactRepository() (registryUseCase.ArtifactRepository, error) {
	return c.artifactRepo.get(func() (registryUseCase.ArtifactRepository, error) {
		return pick(c, "artifact repository",
			func() registryUseCase.ArtifactRepository { return registryRepository.NewMemoryArtifactRepository() },
			func(db *sql.DB) registryUseCase.ArtifactRepository {
				return registryRepository.NewPostgreSQLArtifactRepository(db)
			},
			func(db *sql.DB) registryUseCase.ArtifactRepository {
				return registryRepository.NewMySQLArtifactRepository(db)
			},
		)
	})
}

// RegistryUseCase returns the asset registry.
func (c *Container) RegistryUseCase() (registryUseCase.RegistryUseCase, error) {
	return c.registry.get(func() (registryUseCase.RegistryUseCase, error) {
		artifactRepo, err := c.ArtifactRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get artifact repository for registry use case: %w", err)
		}
		return registryUseCase.NewRegistryUseCase(artifactRepo), nil
	})
}

// LedgerUseCase returns the ledger, wrapped with metrics when enabled.
func (c *Container) LedgerUseCase() (ledgerUseCase.LedgerUseCase, error) {
	return c.ledger.get(c.initLedgerUseCase)
}

// IntegrityMonitor returns the background chain verifier.
func (c *Container) IntegrityMonitor() (*ledgerUseCase.IntegrityMonitor, error) {
	return c.monitor.get(func() (*ledgerUseCase.IntegrityMonitor, error) {
		ledger, err := c.LedgerUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get ledger use case for integrity monitor: %w", err)
		}
		registry, err := c.RegistryUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get registry use case for integrity monitor: %w", err)
		}

		monitorConfig := ledgerUseCase.MonitorConfig{
			Interval:      c.config.IntegrityCheckInterval,
			RatePerSecond: c.config.IntegrityCheckRatePerSec,
		}
		return ledgerUseCase.NewIntegrityMonitor(monitorConfig, ledger, registry, c.Logger()), nil
	})
}

func (c *Container) initLedgerUseCase() (ledgerUseCase.LedgerUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for ledger use case: %w", err)
	}
	blockRepo, err := c.BlockRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get block repository for ledger use case: %w", err)
	}
	registry, err := c.RegistryUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get registry use case for ledger use case: %w", err)
	}
	audit, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for ledger use case: %w", err)
	}

	keyedLocker, err := c.Locker()
	if err != nil {
		return nil, fmt.Errorf("failed to get locker for ledger use case: %w", err)
	}

	baseUseCase := ledgerUseCase.NewLedgerUseCase(
		txManager,
		keyedLocker,
		blockRepo,
		registry,
		audit,
		ledgerService.NewHashChain(),
		c.clock,
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for ledger use case: %w", err)
		}
		return ledgerUseCase.NewLedgerUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}
	return baseUseCase, nil
}

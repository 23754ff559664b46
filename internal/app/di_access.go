package app

import (
	"database/sql"
	"fmt"

	accessUseCase "github.com/allisson/medledger/internal/access/usecase"
	emergencyRepository "github.com/allisson/medledger/internal/emergency/repository"
	emergencyService "github.com/allisson/medledger/internal/emergency/service"
	emergencyUseCase "github.com/allisson/medledger/internal/emergency/usecase"
	grantRepository "github.com/allisson/medledger/internal/grant/repository"
	grantUseCase "github.com/allisson/medledger/internal/grant/usecase"
)

type accessComponents struct {
	grantRepo     lazy[grantUseCase.GrantRepository]
	grants        lazy[grantUseCase.GrantUseCase]
	emergencyRepo lazy[emergencyUseCase.EmergencyRepository]
	emergency     lazy[emergencyUseCase.EmergencyUseCase]
	access        lazy[accessUseCase.AccessUseCase]
}

// GrantRepository returns the grant store for the configured backend.
func (c *Container) GrantRepository() (grantUseCase.GrantRepository, error) {
	return c.grantRepo.get(func() (grantUseCase.GrantRepository, error) {
		return pick(c, "grant repository",
			func() grantUseCase.GrantRepository { return grantRepository.NewMemoryGrantRepository() },
			func(db *sql.DB) grantUseCase.GrantRepository { return grantRepository.NewPostgreSQLGrantRepository(db) },
			func(db *sql.DB) grantUseCase.GrantRepository { return grantRepository.NewMySQLGrantRepository(db) },
		)
	})
}

// EmergencyRepository returns the emergency record store for the configured backend.
func (c *Container) EmergencyRepository() (emergencyUseCase.EmergencyRepository, error) {
	return c.emergencyRepo.get(func() (emergencyUseCase.EmergencyRepository, error) {
		return pick(c, "emergency repository",
			func() emergencyUseCase.EmergencyRepository { return emergencyRepository.NewMemoryEmergencyRepository() },
			func(db *sql.DB) emergencyUseCase.EmergencyRepository {
				return emergencyRepository.NewPostgreSQLEmergencyRepository(db)
			},
			func(db *sql.DB) emergencyUseCase.EmergencyRepository {
				return emergencyRepository.NewMySQLEmergencyRepository(db)
			},
		)
	})
}

// GrantUseCase returns the grant store, wrapped with metrics when enabled.
func (c *Container) GrantUseCase() (grantUseCase.GrantUseCase, error) {
	return c.grants.get(func() (grantUseCase.GrantUseCase, error) {
		txManager, err := c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("failed to get tx manager for grant use case: %w", err)
		}
		grantRepo, err := c.GrantRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get grant repository for grant use case: %w", err)
		}
		registry, err := c.RegistryUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get registry use case for grant use case: %w", err)
		}
		audit, err := c.AuditUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get audit use case for grant use case: %w", err)
		}

		keyedLocker, err := c.Locker()
		if err != nil {
			return nil, fmt.Errorf("failed to get locker for grant use case: %w", err)
		}

		baseUseCase := grantUseCase.NewGrantUseCase(txManager, keyedLocker, grantRepo, registry, audit, c.clock)

		if c.config.MetricsEnabled {
			businessMetrics, err := c.BusinessMetrics()
			if err != nil {
				return nil, fmt.Errorf("failed to get business metrics for grant use case: %w", err)
			}
			return grantUseCase.NewGrantUseCaseWithMetrics(baseUseCase, businessMetrics), nil
		}
		return baseUseCase, nil
	})
}

// EmergencyUseCase returns the emergency access controller, wrapped with metrics when
// enabled.
func (c *Container) EmergencyUseCase() (emergencyUseCase.EmergencyUseCase, error) {
	return c.emergency.get(func() (emergencyUseCase.EmergencyUseCase, error) {
		txManager, err := c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("failed to get tx manager for emergency use case: %w", err)
		}
		emergencyRepo, err := c.EmergencyRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get emergency repository for emergency use case: %w", err)
		}
		audit, err := c.AuditUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get audit use case for emergency use case: %w", err)
		}

		keyedLocker, err := c.Locker()
		if err != nil {
			return nil, fmt.Errorf("failed to get locker for emergency use case: %w", err)
		}

		baseUseCase := emergencyUseCase.NewEmergencyUseCase(
			txManager,
			keyedLocker,
			emergencyRepo,
			emergencyService.NewCodeService(),
			audit,
			c.clock,
			c.config.EmergencyAccessDuration,
		)

		if c.config.MetricsEnabled {
			businessMetrics, err := c.BusinessMetrics()
			if err != nil {
				return nil, fmt.Errorf("failed to get business metrics for emergency use case: %w", err)
			}
			return emergencyUseCase.NewEmergencyUseCaseWithMetrics(baseUseCase, businessMetrics), nil
		}
		return baseUseCase, nil
	})
}

// AccessUseCase returns the access authorizer combining grants and emergency records.
func (c *Container) AccessUseCase() (accessUseCase.AccessUseCase, error) {
	return c.access.get(func() (accessUseCase.AccessUseCase, error) {
		grants, err := c.GrantUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get grant use case for access use case: %w", err)
		}
		emergency, err := c.EmergencyUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get emergency use case for access use case: %w", err)
		}
		audit, err := c.AuditUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get audit use case for access use case: %w", err)
		}

		baseUseCase := accessUseCase.NewAccessUseCase(grants, emergency, audit)

		if c.config.MetricsEnabled {
			businessMetrics, err := c.BusinessMetrics()
			if err != nil {
				return nil, fmt.Errorf("failed to get business metrics for access use case: %w", err)
			}
			return accessUseCase.NewAccessUseCaseWithMetrics(baseUseCase, businessMetrics), nil
		}
		return baseUseCase, nil
	})
}

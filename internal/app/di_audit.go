package app

import (
	"database/sql"
	"fmt"

	auditRepository "github.com/allisson/medledger/internal/audit/repository"
	auditService "github.com/allisson/medledger/internal/audit/service"
	auditUseCase "github.com/allisson/medledger/internal/audit/usecase"
)

type auditComponents struct {
	auditRepo lazy[auditUseCase.AuditEntryRepository]
	audit     lazy[auditUseCase.AuditUseCase]
}

// AuditEntryRepository returns the audit store for the configured backend. The memory
// store is capped by AUDIT_MEMORY_CAPACITY.
func (c *Container) AuditEntryRepository() (auditUseCase.AuditEntryRepository, error) {
	return c.auditRepo.get(func() (auditUseCase.AuditEntryRepository, error) {
		return pick(c, "audit entry repository",
			func() auditUseCase.AuditEntryRepository {
				return auditRepository.NewMemoryAuditEntryRepository(c.config.AuditMemoryCapacity)
			},
			func(db *sql.DB) auditUseCase.AuditEntryRepository {
				return auditRepository.NewPostgreSQLAuditEntryRepository(db)
			},
			func(db *sql.DB) auditUseCase.AuditEntryRepository {
				return auditRepository.NewMySQLAuditEntryRepository(db)
			},
		)
	})
}

// AuditUseCase returns the audit trail. Entries are signed when AUDIT_SIGNING_KEY is set.
func (c *Container) AuditUseCase() (auditUseCase.AuditUseCase, error) {
	return c.audit.get(func() (auditUseCase.AuditUseCase, error) {
		repo, err := c.AuditEntryRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get audit entry repository for audit use case: %w", err)
		}

		txManager, err := c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("failed to get tx manager for audit use case: %w", err)
		}

		var signingKey []byte
		if c.config.AuditSigningKey != "" {
			signingKey = []byte(c.config.AuditSigningKey)
		}

		return auditUseCase.NewAuditUseCase(
			txManager,
			repo,
			auditService.NewAuditSigner(),
			c.clock,
			auditUseCase.Config{
				SigningKey: signingKey,
				PageSize:   c.config.AuditPageSize,
			},
		), nil
	})
}

package usecase

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/medledger/internal/audit/domain"
	"github.com/allisson/medledger/internal/clock"
	"github.com/allisson/medledger/internal/database"
	apperrors "github.com/allisson/medledger/internal/errors"
	grantDomain "github.com/allisson/medledger/internal/grant/domain"
	"github.com/allisson/medledger/internal/locker"
)

type grantUseCase struct {
	txManager database.TxManager
	locker    locker.KeyedLocker
	grantRepo GrantRepository
	artifacts ArtifactLookup
	audit     AuditRecorder
	clock     clock.Clock
}

// NewGrantUseCase creates a GrantUseCase.
func NewGrantUseCase(
	txManager database.TxManager,
	keyedLocker locker.KeyedLocker,
	grantRepo GrantRepository,
	artifacts ArtifactLookup,
	audit AuditRecorder,
	clk clock.Clock,
) GrantUseCase {
	return &grantUseCase{
		txManager: txManager,
		locker:    keyedLocker,
		grantRepo: grantRepo,
		artifacts: artifacts,
		audit:     audit,
		clock:     clk,
	}
}

func (g *grantUseCase) Grant(
	ctx context.Context,
	input *grantDomain.GrantInput,
) (*grantDomain.AccessGrant, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	unlock, err := g.locker.Lock(ctx, input.ArtifactID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var grant *grantDomain.AccessGrant
	err = g.txManager.WithTx(ctx, func(ctx context.Context) error {
		if _, err := g.artifacts.Get(ctx, input.ArtifactID); err != nil {
			return err
		}

		now := g.clock.Now().UTC().Truncate(time.Microsecond)

		existing, err := g.grantRepo.ListActiveByPair(ctx, input.ArtifactID, input.GranteeID)
		if err != nil {
			return apperrors.Wrap(err, "failed to list active grants")
		}

		superseded := make([]string, 0, len(existing))
		for _, prior := range existing {
			status := grantDomain.StatusRevoked
			if prior.EffectiveStatus(now) == grantDomain.StatusExpired {
				status = grantDomain.StatusExpired
			}
			if err := g.grantRepo.UpdateStatus(ctx, prior.ID, status); err != nil {
				return apperrors.Wrap(err, "failed to supersede grant")
			}
			superseded = append(superseded, prior.ID.String())
		}

		grant = &grantDomain.AccessGrant{
			ID:         uuid.Must(uuid.NewV7()),
			ArtifactID: input.ArtifactID,
			GranteeID:  input.GranteeID,
			IssuedAt:   now,
			ExpiresAt:  now.Add(time.Duration(input.DurationDays) * 24 * time.Hour),
			Status:     grantDomain.StatusActive,
		}
		if err := g.grantRepo.Create(ctx, grant); err != nil {
			return apperrors.Wrap(err, "failed to create grant")
		}

		detail := map[string]string{
			"grant_id":      grant.ID.String(),
			"grantee_id":    grant.GranteeID,
			"duration_days": strconv.Itoa(input.DurationDays),
			"expires_at":    grant.ExpiresAt.Format(time.RFC3339Nano),
		}
		if len(superseded) > 0 {
			detail["superseded"] = strings.Join(superseded, ",")
		}

		return g.audit.Record(ctx, &auditDomain.AuditEntry{
			ActorID:          input.ActorID,
			Action:           auditDomain.ActionGrant,
			TargetArtifactID: input.ArtifactID,
			Detail:           detail,
		})
	})
	if err != nil {
		return nil, err
	}

	return grant, nil
}

func (g *grantUseCase) Revoke(ctx context.Context, grantID uuid.UUID, actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "actor id is required")
	}

	// The artifact id is immutable, so it can be read before taking the lock.
	grant, err := g.grantRepo.Get(ctx, grantID)
	if err != nil {
		return err
	}

	unlock, err := g.locker.Lock(ctx, grant.ArtifactID)
	if err != nil {
		return err
	}
	defer unlock()

	return g.txManager.WithTx(ctx, func(ctx context.Context) error {
		current, err := g.grantRepo.Get(ctx, grantID)
		if err != nil {
			return err
		}

		prior := current.EffectiveStatus(g.clock.Now())
		outcome := "revoked"
		if prior == grantDomain.StatusActive {
			if err := g.grantRepo.UpdateStatus(ctx, grantID, grantDomain.StatusRevoked); err != nil {
				return apperrors.Wrap(err, "failed to revoke grant")
			}
		} else {
			outcome = "no_effect"
		}

		return g.audit.Record(ctx, &auditDomain.AuditEntry{
			ActorID:          actorID,
			Action:           auditDomain.ActionRevoke,
			TargetArtifactID: current.ArtifactID,
			Detail: map[string]string{
				"grant_id":     grantID.String(),
				"grantee_id":   current.GranteeID,
				"prior_status": string(prior),
				"outcome":      outcome,
			},
		})
	})
}

func (g *grantUseCase) CheckAccess(ctx context.Context, artifactID, granteeID string) (bool, error) {
	grants, err := g.grantRepo.ListActiveByPair(ctx, artifactID, granteeID)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check access")
	}

	now := g.clock.Now()
	for _, grant := range grants {
		if grant.IsActive(now) {
			return true, nil
		}
	}
	return false, nil
}

func (g *grantUseCase) Get(ctx context.Context, grantID uuid.UUID) (*grantDomain.AccessGrant, error) {
	grant, err := g.grantRepo.Get(ctx, grantID)
	if err != nil {
		return nil, err
	}
	grant.Status = grant.EffectiveStatus(g.clock.Now())
	return grant, nil
}

func (g *grantUseCase) ListByArtifact(
	ctx context.Context,
	artifactID string,
) ([]*grantDomain.AccessGrant, error) {
	grants, err := g.grantRepo.ListByArtifact(ctx, artifactID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list grants")
	}

	now := g.clock.Now()
	for _, grant := range grants {
		grant.Status = grant.EffectiveStatus(now)
	}
	return grants, nil
}

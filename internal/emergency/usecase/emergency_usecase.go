package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/medledger/internal/audit/domain"
	"github.com/allisson/medledger/internal/clock"
	"github.com/allisson/medledger/internal/database"
	emergencyDomain "github.com/allisson/medledger/internal/emergency/domain"
	"github.com/allisson/medledger/internal/emergency/service"
	apperrors "github.com/allisson/medledger/internal/errors"
	"github.com/allisson/medledger/internal/locker"
)

type emergencyUseCase struct {
	txManager     database.TxManager
	locker        locker.KeyedLocker
	emergencyRepo EmergencyRepository
	codeService   service.CodeService
	audit         AuditRecorder
	clock         clock.Clock
	duration      time.Duration
}

// NewEmergencyUseCase creates an EmergencyUseCase. A non-positive duration falls back to
// DefaultDuration.
func NewEmergencyUseCase(
	txManager database.TxManager,
	keyedLocker locker.KeyedLocker,
	emergencyRepo EmergencyRepository,
	codeService service.CodeService,
	audit AuditRecorder,
	clk clock.Clock,
	duration time.Duration,
) EmergencyUseCase {
	if duration <= 0 {
		duration = emergencyDomain.DefaultDuration
	}
	return &emergencyUseCase{
		txManager:     txManager,
		locker:        keyedLocker,
		emergencyRepo: emergencyRepo,
		codeService:   codeService,
		audit:         audit,
		clock:         clk,
		duration:      duration,
	}
}

func (e *emergencyUseCase) RequestAccess(
	ctx context.Context,
	input *emergencyDomain.RequestAccessInput,
) (*emergencyDomain.RequestAccessOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	plainCode, codeHash, err := e.codeService.GenerateCode()
	if err != nil {
		return nil, err
	}

	now := e.clock.Now().UTC().Truncate(time.Microsecond)
	record := &emergencyDomain.EmergencyAccessRecord{
		ID:          uuid.Must(uuid.NewV7()),
		ArtifactID:  input.ArtifactID,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		IssuedAt:    now,
		ExpiresAt:   now.Add(e.duration),
		CodeHash:    codeHash,
	}

	err = e.txManager.WithTx(ctx, func(ctx context.Context) error {
		// The audit entry goes first: an emergency record must never exist unaudited.
		err := e.audit.Record(ctx, &auditDomain.AuditEntry{
			ActorID:          record.RequestedBy,
			Action:           auditDomain.ActionEmergencyAccess,
			TargetArtifactID: record.ArtifactID,
			Detail: map[string]string{
				"record_id":  record.ID.String(),
				"reason":     record.Reason,
				"expires_at": record.ExpiresAt.Format(time.RFC3339Nano),
			},
		})
		if err != nil {
			return err
		}

		if err := e.emergencyRepo.Create(ctx, record); err != nil {
			return apperrors.Wrap(err, "failed to create emergency access record")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &emergencyDomain.RequestAccessOutput{Record: record, PlainCode: plainCode}, nil
}

func (e *emergencyUseCase) IsActive(ctx context.Context, recordID uuid.UUID) (bool, error) {
	record, err := e.emergencyRepo.Get(ctx, recordID)
	if err != nil {
		return false, err
	}
	return record.IsActive(e.clock.Now()), nil
}

func (e *emergencyUseCase) ActiveGrantsFor(
	ctx context.Context,
	artifactID string,
) ([]*emergencyDomain.EmergencyAccessRecord, error) {
	records, err := e.emergencyRepo.ListActiveByArtifact(ctx, artifactID, e.clock.Now())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list emergency access records")
	}
	return records, nil
}

func (e *emergencyUseCase) Redeem(
	ctx context.Context,
	recordID uuid.UUID,
	code string,
) (*emergencyDomain.EmergencyAccessRecord, error) {
	unlock, err := e.locker.Lock(ctx, "emergency:"+recordID.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	var record *emergencyDomain.EmergencyAccessRecord
	var rejected error
	err = e.txManager.WithTx(ctx, func(ctx context.Context) error {
		record, err = e.emergencyRepo.Get(ctx, recordID)
		if err != nil {
			return err
		}

		now := e.clock.Now().UTC().Truncate(time.Microsecond)
		switch {
		case !record.IsActive(now):
			rejected = emergencyDomain.ErrRecordExpired
		case record.IsRedeemed():
			rejected = emergencyDomain.ErrCodeAlreadyRedeemed
		case !e.codeService.CompareCode(code, record.CodeHash):
			rejected = emergencyDomain.ErrCodeInvalid
		}

		if rejected != nil {
			// The rejection is committed so that failed attempts stay on record.
			return e.audit.Record(ctx, &auditDomain.AuditEntry{
				ActorID:          record.RequestedBy,
				Action:           auditDomain.ActionEmergencyCodeRejected,
				TargetArtifactID: record.ArtifactID,
				Detail: map[string]string{
					"record_id": record.ID.String(),
					"reason":    rejectionReason(rejected),
				},
			})
		}

		if err := e.emergencyRepo.MarkRedeemed(ctx, record.ID, now); err != nil {
			return err
		}
		record.RedeemedAt = &now

		return e.audit.Record(ctx, &auditDomain.AuditEntry{
			ActorID:          record.RequestedBy,
			Action:           auditDomain.ActionEmergencyCodeRedeemed,
			TargetArtifactID: record.ArtifactID,
			Detail: map[string]string{
				"record_id": record.ID.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		return nil, rejected
	}

	return record, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, emergencyDomain.ErrRecordExpired):
		return "expired"
	case errors.Is(err, emergencyDomain.ErrCodeAlreadyRedeemed):
		return "already_redeemed"
	default:
		return "invalid_code"
	}
}

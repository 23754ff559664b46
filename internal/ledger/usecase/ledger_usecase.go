package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	auditDomain "github.com/allisson/medledger/internal/audit/domain"
	"github.com/allisson/medledger/internal/clock"
	"github.com/allisson/medledger/internal/database"
	apperrors "github.com/allisson/medledger/internal/errors"
	ledgerDomain "github.com/allisson/medledger/internal/ledger/domain"
	"github.com/allisson/medledger/internal/ledger/service"
	"github.com/allisson/medledger/internal/locker"
	registryDomain "github.com/allisson/medledger/internal/registry/domain"
)

// SystemActorID attributes audit entries written by integrity checks.
const SystemActorID = "system"

type ledgerUseCase struct {
	txManager database.TxManager
	locker    locker.KeyedLocker
	blockRepo BlockRepository
	registry  ArtifactRegistry
	audit     AuditRecorder
	hashChain service.HashChain
	clock     clock.Clock
}

// NewLedgerUseCase creates a LedgerUseCase.
func NewLedgerUseCase(
	txManager database.TxManager,
	keyedLocker locker.KeyedLocker,
	blockRepo BlockRepository,
	registry ArtifactRegistry,
	audit AuditRecorder,
	hashChain service.HashChain,
	clk clock.Clock,
) LedgerUseCase {
	return &ledgerUseCase{
		txManager: txManager,
		locker:    keyedLocker,
		blockRepo: blockRepo,
		registry:  registry,
		audit:     audit,
		hashChain: hashChain,
		clock:     clk,
	}
}

func (l *ledgerUseCase) Mint(ctx context.Context, input *ledgerDomain.MintInput) (*ledgerDomain.Block, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	unlock, err := l.locker.Lock(ctx, input.ArtifactID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var block *ledgerDomain.Block
	err = l.txManager.WithTx(ctx, func(ctx context.Context) error {
		_, err := l.blockRepo.Latest(ctx, input.ArtifactID)
		if err == nil {
			return registryDomain.ErrDuplicateArtifact
		}
		if !errors.Is(err, registryDomain.ErrUnknownArtifact) {
			return apperrors.Wrap(err, "failed to look up artifact")
		}

		block = l.newBlock(input.ArtifactID, input.OwnerID, input.Payload, ledgerDomain.GenesisSentinel)
		if err := l.blockRepo.Append(ctx, block); err != nil {
			return apperrors.Wrap(err, "failed to append genesis block")
		}

		classification := input.Classification
		if classification == "" {
			classification = registryDomain.ClassificationGeneral
		}
		err = l.registry.Register(ctx, &registryDomain.ArtifactMetadata{
			ArtifactID:           input.ArtifactID,
			OwnerID:              input.OwnerID,
			IssuingInstitutionID: input.IssuingInstitutionID,
			Classification:       classification,
			MintedAt:             block.CreatedAt,
			CurrentFingerprint:   string(block.BlockFingerprint),
			Verified:             true,
		})
		if err != nil {
			return err
		}

		return l.audit.Record(ctx, &auditDomain.AuditEntry{
			ActorID:           input.ActorID,
			Action:            auditDomain.ActionMint,
			TargetArtifactID:  input.ArtifactID,
			LinkedFingerprint: string(block.BlockFingerprint),
			Detail: map[string]string{
				"sequence_number": strconv.FormatInt(block.SequenceNumber, 10),
				"owner_id":        input.OwnerID,
				"classification":  string(classification),
				"payload_digest":  block.PayloadDigest,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return block, nil
}

func (l *ledgerUseCase) AppendRecord(
	ctx context.Context,
	artifactID string,
	payload []byte,
	actorID string,
) (*ledgerDomain.Block, error) {
	if strings.TrimSpace(artifactID) == "" || strings.TrimSpace(actorID) == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "artifact id and actor id are required")
	}
	if len(payload) == 0 {
		return nil, ledgerDomain.ErrEmptyPayload
	}

	unlock, err := l.locker.Lock(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var block *ledgerDomain.Block
	err = l.txManager.WithTx(ctx, func(ctx context.Context) error {
		latest, err := l.blockRepo.Latest(ctx, artifactID)
		if err != nil {
			return err
		}

		metadata, err := l.registry.Get(ctx, artifactID)
		if err != nil {
			return err
		}
		if !metadata.Verified {
			return ledgerDomain.ErrWritesHalted
		}

		block = l.newBlock(artifactID, metadata.OwnerID, payload, latest.BlockFingerprint)
		if err := l.blockRepo.Append(ctx, block); err != nil {
			return apperrors.Wrap(err, "failed to append block")
		}

		if err := l.registry.UpdateFingerprint(ctx, artifactID, string(block.BlockFingerprint)); err != nil {
			return err
		}

		return l.audit.Record(ctx, &auditDomain.AuditEntry{
			ActorID:           actorID,
			Action:            auditDomain.ActionRecordUpdate,
			TargetArtifactID:  artifactID,
			LinkedFingerprint: string(block.BlockFingerprint),
			Detail: map[string]string{
				"sequence_number":      strconv.FormatInt(block.SequenceNumber, 10),
				"previous_fingerprint": string(block.PreviousFingerprint),
				"payload_digest":       block.PayloadDigest,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return block, nil
}

func (l *ledgerUseCase) GetChainFor(ctx context.Context, artifactID string) ([]*ledgerDomain.Block, error) {
	blocks, err := l.blockRepo.ListByArtifact(ctx, artifactID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get chain")
	}
	return blocks, nil
}

func (l *ledgerUseCase) Verify(ctx context.Context, artifactID string) (*ledgerDomain.VerificationResult, error) {
	// The lock keeps a concurrent append from being observed half applied.
	unlock, err := l.locker.Lock(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result, metadata, err := l.inspect(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	if result.IsValid || result.BlockCount == 0 {
		return result, nil
	}

	// Already quarantined artifacts were audited when the violation was first seen.
	if metadata != nil && !metadata.Verified {
		return result, nil
	}

	err = l.txManager.WithTx(ctx, func(ctx context.Context) error {
		if metadata != nil {
			if err := l.registry.SetVerified(ctx, artifactID, false); err != nil {
				return err
			}
		}
		return l.audit.Record(ctx, &auditDomain.AuditEntry{
			ActorID:           SystemActorID,
			Action:            auditDomain.ActionIntegrityViolation,
			TargetArtifactID:  artifactID,
			LinkedFingerprint: string(result.LatestFingerprint),
			Detail: map[string]string{
				"failed_sequence": strconv.FormatInt(result.FailedSequence, 10),
				"reason":          result.Reason,
			},
		})
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to quarantine artifact")
	}

	return result, nil
}

func (l *ledgerUseCase) ConfirmIntegrity(
	ctx context.Context,
	artifactID, actorID string,
) (*ledgerDomain.VerificationResult, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "actor id is required")
	}

	unlock, err := l.locker.Lock(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result, metadata, err := l.inspect(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	if result.BlockCount == 0 {
		return nil, registryDomain.ErrUnknownArtifact
	}
	if !result.IsValid {
		return nil, &ledgerDomain.IntegrityError{
			ArtifactID:     artifactID,
			SequenceNumber: result.FailedSequence,
			Reason:         result.Reason,
		}
	}
	if metadata.Verified {
		return result, nil
	}

	err = l.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := l.registry.SetVerified(ctx, artifactID, true); err != nil {
			return err
		}
		return l.audit.Record(ctx, &auditDomain.AuditEntry{
			ActorID:           actorID,
			Action:            auditDomain.ActionIntegrityConfirmed,
			TargetArtifactID:  artifactID,
			LinkedFingerprint: string(result.LatestFingerprint),
			Detail: map[string]string{
				"block_count": strconv.Itoa(result.BlockCount),
			},
		})
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to confirm integrity")
	}

	return result, nil
}

// inspect verifies the chain and its registry row without side effects. metadata is nil
// when the artifact has blocks but no registry row.
func (l *ledgerUseCase) inspect(
	ctx context.Context,
	artifactID string,
) (*ledgerDomain.VerificationResult, *registryDomain.ArtifactMetadata, error) {
	blocks, err := l.blockRepo.ListByArtifact(ctx, artifactID)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to load chain")
	}

	result := &ledgerDomain.VerificationResult{ArtifactID: artifactID}
	if len(blocks) == 0 {
		result.Reason = "unknown artifact"
		return result, nil, nil
	}

	latest := blocks[len(blocks)-1]
	result.BlockCount = len(blocks)
	result.MintedAt = blocks[0].CreatedAt
	result.LatestFingerprint = latest.BlockFingerprint

	metadata, err := l.registry.Get(ctx, artifactID)
	if err != nil && !errors.Is(err, registryDomain.ErrUnknownArtifact) {
		return nil, nil, apperrors.Wrap(err, "failed to load artifact metadata")
	}

	var integrityErr *ledgerDomain.IntegrityError
	if err := l.hashChain.VerifyChain(blocks); err != nil {
		if !errors.As(err, &integrityErr) {
			return nil, nil, err
		}
	} else if metadata == nil {
		integrityErr = &ledgerDomain.IntegrityError{
			ArtifactID:     artifactID,
			SequenceNumber: latest.SequenceNumber,
			Reason:         "artifact missing from registry",
		}
	} else if metadata.CurrentFingerprint != string(latest.BlockFingerprint) {
		integrityErr = &ledgerDomain.IntegrityError{
			ArtifactID:     artifactID,
			SequenceNumber: latest.SequenceNumber,
			Reason:         "registry fingerprint does not match latest block",
		}
	}

	if integrityErr != nil {
		result.FailedSequence = integrityErr.SequenceNumber
		result.Reason = integrityErr.Reason
		return result, metadata, nil
	}

	result.IsValid = true
	return result, metadata, nil
}

func (l *ledgerUseCase) newBlock(
	artifactID, ownerID string,
	payload []byte,
	previous ledgerDomain.Fingerprint,
) *ledgerDomain.Block {
	createdAt := l.clock.Now().UTC().Truncate(time.Microsecond)
	digest := l.hashChain.Digest(payload)

	return &ledgerDomain.Block{
		ArtifactID:          artifactID,
		OwnerID:             ownerID,
		PayloadDigest:       digest,
		BlockFingerprint:    l.hashChain.Fingerprint(artifactID, digest, createdAt, previous),
		CreatedAt:           createdAt,
		PreviousFingerprint: previous,
	}
}

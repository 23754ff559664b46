package usecase

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/medledger/internal/audit/domain"
	auditService "github.com/allisson/medledger/internal/audit/service"
	"github.com/allisson/medledger/internal/clock"
	"github.com/allisson/medledger/internal/database"
	apperrors "github.com/allisson/medledger/internal/errors"
)

// DefaultPageSize is the number of entries fetched per page when none is configured.
const DefaultPageSize = 100

type auditUseCase struct {
	txManager  database.TxManager
	repo       AuditEntryRepository
	signer     auditService.AuditSigner
	signingKey []byte
	clock      clock.Clock
	pageSize   int
}

// Config holds the optional audit trail settings.
type Config struct {
	// SigningKey enables HMAC signing of every entry when non-empty.
	SigningKey []byte
	PageSize   int
}

// NewAuditUseCase creates the audit trail.
func NewAuditUseCase(
	txManager database.TxManager,
	repo AuditEntryRepository,
	signer auditService.AuditSigner,
	clk clock.Clock,
	cfg Config,
) AuditUseCase {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &auditUseCase{
		txManager:  txManager,
		repo:       repo,
		signer:     signer,
		signingKey: cfg.SigningKey,
		clock:      clk,
		pageSize:   pageSize,
	}
}

func (a *auditUseCase) Record(ctx context.Context, entry *auditDomain.AuditEntry) error {
	if entry.ActorID == "" || entry.Action == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "audit entry requires actor and action")
	}

	// The tail lock spans the insert and, on SQL stores, the caller's transaction, so
	// every writer sharing the store sees the previous entry before stamping its own.
	return a.txManager.WithTx(ctx, func(ctx context.Context) error {
		last, release, err := a.repo.LockTail(ctx)
		defer release()
		if err != nil {
			return apperrors.Wrap(err, "failed to load audit trail position")
		}

		ts := a.clock.Now().UTC().Truncate(time.Microsecond)
		if !ts.After(last) {
			ts = last.Add(time.Microsecond)
		}

		entry.ID = uuid.Must(uuid.NewV7())
		entry.Timestamp = ts

		if len(a.signingKey) > 0 {
			signature, err := a.signer.Sign(a.signingKey, entry)
			if err != nil {
				return apperrors.Wrap(err, "failed to sign audit entry")
			}
			entry.Signature = signature
			entry.IsSigned = true
		}

		if err := a.repo.Create(ctx, entry); err != nil {
			return apperrors.Wrap(err, "failed to record audit entry")
		}

		return nil
	})
}

type pageFunc func(ctx context.Context, after time.Time, limit int) ([]*auditDomain.AuditEntry, error)

// paginate walks the pages returned by fetch. Each range starts from the beginning of
// the trail, so the sequence is restartable.
func (a *auditUseCase) paginate(ctx context.Context, fetch pageFunc) iter.Seq2[*auditDomain.AuditEntry, error] {
	return func(yield func(*auditDomain.AuditEntry, error) bool) {
		var after time.Time
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			page, err := fetch(ctx, after, a.pageSize)
			if err != nil {
				yield(nil, apperrors.Wrap(err, "failed to query audit trail"))
				return
			}

			for _, entry := range page {
				if !yield(entry, nil) {
					return
				}
			}

			if len(page) < a.pageSize {
				return
			}
			after = page[len(page)-1].Timestamp
		}
	}
}

func (a *auditUseCase) QueryByArtifact(
	ctx context.Context,
	artifactID string,
) iter.Seq2[*auditDomain.AuditEntry, error] {
	return a.paginate(ctx, func(ctx context.Context, after time.Time, limit int) ([]*auditDomain.AuditEntry, error) {
		return a.repo.ListByArtifact(ctx, artifactID, after, limit)
	})
}

func (a *auditUseCase) QueryByActor(ctx context.Context, actorID string) iter.Seq2[*auditDomain.AuditEntry, error] {
	return a.paginate(ctx, func(ctx context.Context, after time.Time, limit int) ([]*auditDomain.AuditEntry, error) {
		return a.repo.ListByActor(ctx, actorID, after, limit)
	})
}

func (a *auditUseCase) VerifyByArtifact(
	ctx context.Context,
	artifactID string,
) (*auditDomain.VerificationReport, error) {
	if len(a.signingKey) == 0 {
		return nil, auditDomain.ErrSigningKeyMissing
	}

	report := &auditDomain.VerificationReport{InvalidEntries: make([]uuid.UUID, 0)}
	for entry, err := range a.QueryByArtifact(ctx, artifactID) {
		if err != nil {
			return nil, err
		}

		report.TotalChecked++
		if !entry.IsSigned {
			report.UnsignedCount++
			continue
		}

		report.SignedCount++
		if err := a.signer.Verify(a.signingKey, entry); err != nil {
			report.InvalidEntries = append(report.InvalidEntries, entry.ID)
			continue
		}
		report.ValidCount++
	}

	return report, nil
}

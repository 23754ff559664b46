// Package usecase implements the append-only audit trail: recording entries in strict
// timestamp order and reading them back as lazy, restartable sequences.
package usecase

import (
	"context"
	"iter"
	"time"

	auditDomain "github.com/allisson/medledger/internal/audit/domain"
)

// AuditEntryRepository defines persistence operations for audit entries. There is no
// update or delete operation.
type AuditEntryRepository interface {
	// Create appends the entry. Returns ErrStorageExhausted when the store is full.
	Create(ctx context.Context, entry *auditDomain.AuditEntry) error

	// ListByArtifact returns up to limit entries targeting the artifact with a timestamp
	// strictly after the given one, ordered by timestamp ascending.
	ListByArtifact(
		ctx context.Context,
		artifactID string,
		after time.Time,
		limit int,
	) ([]*auditDomain.AuditEntry, error)

	// ListByActor is ListByArtifact keyed by actor.
	ListByActor(ctx context.Context, actorID string, after time.Time, limit int) ([]*auditDomain.AuditEntry, error)

	// LockTail blocks every other writer of the store until release is called and the
	// transaction carried by ctx ends, then returns the newest stored timestamp, or the
	// zero time. release is never nil, even when err is not.
	LockTail(ctx context.Context) (last time.Time, release func(), err error)
}

// AuditUseCase is the audit trail. Every other component writes to it; none reads from it.
type AuditUseCase interface {
	// Record appends the entry, assigning its ID and a timestamp strictly after every
	// previously recorded one. The entry is signed when a signing key is configured.
	// The only failure besides malformed input is storage exhaustion, which is fatal.
	Record(ctx context.Context, entry *auditDomain.AuditEntry) error

	// QueryByArtifact lazily yields the artifact's entries in timestamp order. The
	// sequence fetches pages on demand and can be ranged over again from the start.
	QueryByArtifact(ctx context.Context, artifactID string) iter.Seq2[*auditDomain.AuditEntry, error]

	// QueryByActor lazily yields the actor's entries in timestamp order.
	QueryByActor(ctx context.Context, actorID string) iter.Seq2[*auditDomain.AuditEntry, error]

	// VerifyByArtifact checks the signature of every signed entry for the artifact.
	// Returns ErrSigningKeyMissing when no signing key is configured.
	VerifyByArtifact(ctx context.Context, artifactID string) (*auditDomain.VerificationReport, error)
}

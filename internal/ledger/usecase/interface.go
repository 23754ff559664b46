// Package usecase implements the ledger: minting artifacts, appending record updates and
// verifying each artifact's hash chain, with the registry and audit trail kept in step.
package usecase

import (
	"context"

	auditDomain "github.com/allisson/medledger/internal/audit/domain"
	ledgerDomain "github.com/allisson/medledger/internal/ledger/domain"
	registryDomain "github.com/allisson/medledger/internal/registry/domain"
)

// BlockRepository defines persistence operations for the global block sequence.
type BlockRepository interface {
	// Append stores the block and sets its global SequenceNumber. Returns ErrConflict
	// if another block already extends the same predecessor.
	Append(ctx context.Context, block *ledgerDomain.Block) error

	// Latest returns the artifact's most recent block. Returns ErrUnknownArtifact if none.
	Latest(ctx context.Context, artifactID string) (*ledgerDomain.Block, error)

	ListByArtifact(ctx context.Context, artifactID string) ([]*ledgerDomain.Block, error)
}

// ArtifactRegistry keeps the current metadata of minted artifacts.
type ArtifactRegistry interface {
	Register(ctx context.Context, metadata *registryDomain.ArtifactMetadata) error
	UpdateFingerprint(ctx context.Context, artifactID, fingerprint string) error
	SetVerified(ctx context.Context, artifactID string, verified bool) error
	Get(ctx context.Context, artifactID string) (*registryDomain.ArtifactMetadata, error)
	List(ctx context.Context, offset, limit int) ([]*registryDomain.ArtifactMetadata, error)
}

// AuditRecorder appends entries to the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry *auditDomain.AuditEntry) error
}

// LedgerUseCase is the single writer of the block sequence. Writes are serialized per
// artifact; a returned Block is committed.
type LedgerUseCase interface {
	// Mint appends the artifact's genesis block, registers its metadata and audits the
	// mint. Returns ErrDuplicateArtifact if the artifact already has a block.
	Mint(ctx context.Context, input *ledgerDomain.MintInput) (*ledgerDomain.Block, error)

	// AppendRecord links a new block to the artifact's latest one. Returns
	// ErrUnknownArtifact if the artifact was never minted and ErrWritesHalted while it
	// is quarantined.
	AppendRecord(ctx context.Context, artifactID string, payload []byte, actorID string) (*ledgerDomain.Block, error)

	// GetChainFor returns the artifact's blocks in append order, empty if unknown.
	GetChainFor(ctx context.Context, artifactID string) ([]*ledgerDomain.Block, error)

	// Verify recomputes the artifact's chain and compares the registry's current
	// fingerprint with the latest block. A detected violation quarantines the artifact
	// and is audited; it is never repaired. Unknown artifacts are reported invalid.
	Verify(ctx context.Context, artifactID string) (*ledgerDomain.VerificationResult, error)

	// ConfirmIntegrity re-verifies a quarantined artifact and lifts the quarantine when
	// the chain checks out. Returns the *IntegrityError otherwise.
	ConfirmIntegrity(ctx context.Context, artifactID, actorID string) (*ledgerDomain.VerificationResult, error)
}

// Package usecase defines the asset registry operations: the current metadata of every
// minted artifact and its owner index.
package usecase

import (
	"context"

	registryDomain "github.com/allisson/medledger/internal/registry/domain"
)

// ArtifactRepository defines persistence operations for artifact metadata.
// Implementations must join the caller's transaction via context propagation.
type ArtifactRepository interface {
	// Create stores new metadata. Returns ErrDuplicateArtifact if the id exists.
	Create(ctx context.Context, metadata *registryDomain.ArtifactMetadata) error

	// Get retrieves metadata by artifact id. Returns ErrUnknownArtifact if not found.
	Get(ctx context.Context, artifactID string) (*registryDomain.ArtifactMetadata, error)

	UpdateFingerprint(ctx context.Context, artifactID, fingerprint string) error
	SetVerified(ctx context.Context, artifactID string, verified bool) error
	ListByOwner(ctx context.Context, ownerID string) ([]*registryDomain.ArtifactMetadata, error)
	List(ctx context.Context, offset, limit int) ([]*registryDomain.ArtifactMetadata, error)
}

// RegistryUseCase maps each minted artifact to its current metadata. Writes are driven
// by the ledger and happen inside the ledger's transaction so the current fingerprint is
// never observed stale after a committed append.
type RegistryUseCase interface {
	// Register records the metadata of a newly minted artifact. An empty classification
	// defaults to general. Returns ErrDuplicateArtifact if the artifact is already known.
	Register(ctx context.Context, metadata *registryDomain.ArtifactMetadata) error

	// UpdateFingerprint advances the current fingerprint to the latest block's.
	// Returns ErrUnknownArtifact if the artifact is not registered.
	UpdateFingerprint(ctx context.Context, artifactID, fingerprint string) error

	// SetVerified quarantines (false) or releases (true) the artifact.
	SetVerified(ctx context.Context, artifactID string, verified bool) error

	// Get returns the artifact's metadata. Returns ErrUnknownArtifact if not found.
	Get(ctx context.Context, artifactID string) (*registryDomain.ArtifactMetadata, error)

	// FindByOwner returns every artifact owned by ownerID, ordered by artifact id.
	FindByOwner(ctx context.Context, ownerID string) ([]*registryDomain.ArtifactMetadata, error)

	// List returns a page of artifacts in mint order.
	List(ctx context.Context, offset, limit int) ([]*registryDomain.ArtifactMetadata, error)
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/medledger/internal/database"
	apperrors "github.com/allisson/medledger/internal/errors"
	registryDomain "github.com/allisson/medledger/internal/registry/domain"
)

// PostgreSQLArtifactRepository implements artifact metadata persistence for PostgreSQL.
// Writes join the caller's transaction via database.GetTx().
type PostgreSQLArtifactRepository struct {
	db *sql.DB
}

// Create inserts new metadata. Returns ErrDuplicateArtifact on primary key conflict.
func (p *PostgreSQLArtifactRepository) Create(ctx context.Context, metadata *registryDomain.ArtifactMetadata) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO artifacts (artifact_id, owner_id, issuing_institution_id, classification, minted_at, current_fingerprint, verified)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		metadata.ArtifactID,
		metadata.OwnerID,
		metadata.IssuingInstitutionID,
		string(metadata.Classification),
		metadata.MintedAt,
		metadata.CurrentFingerprint,
		metadata.Verified,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return registryDomain.ErrDuplicateArtifact
		}
		return apperrors.Wrap(err, "failed to create artifact")
	}

	return nil
}

// Get retrieves metadata by artifact id. Returns ErrUnknownArtifact if not found.
func (p *PostgreSQLArtifactRepository) Get(
	ctx context.Context,
	artifactID string,
) (*registryDomain.ArtifactMetadata, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT artifact_id, owner_id, issuing_institution_id, classification, minted_at, current_fingerprint, verified
			  FROM artifacts
			  WHERE artifact_id = $1`

	metadata, err := scanArtifact(querier.QueryRowContext(ctx, query, artifactID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, registryDomain.ErrUnknownArtifact
		}
		return nil, apperrors.Wrap(err, "failed to get artifact")
	}

	return metadata, nil
}

// UpdateFingerprint advances the current fingerprint in place.
func (p *PostgreSQLArtifactRepository) UpdateFingerprint(ctx context.Context, artifactID, fingerprint string) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE artifacts SET current_fingerprint = $1 WHERE artifact_id = $2`

	result, err := querier.ExecContext(ctx, query, fingerprint, artifactID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update artifact fingerprint")
	}

	return requireAffected(result)
}

// SetVerified sets the verified flag in place.
func (p *PostgreSQLArtifactRepository) SetVerified(ctx context.Context, artifactID string, verified bool) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE artifacts SET verified = $1 WHERE artifact_id = $2`

	result, err := querier.ExecContext(ctx, query, verified, artifactID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update artifact verification")
	}

	return requireAffected(result)
}

// ListByOwner returns the owner's artifacts ordered by artifact id.
func (p *PostgreSQLArtifactRepository) ListByOwner(
	ctx context.Context,
	ownerID string,
) ([]*registryDomain.ArtifactMetadata, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT artifact_id, owner_id, issuing_institution_id, classification, minted_at, current_fingerprint, verified
			  FROM artifacts
			  WHERE owner_id = $1
			  ORDER BY artifact_id ASC`

	rows, err := querier.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list artifacts by owner")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanArtifacts(rows)
}

// List returns a page of artifacts in mint order.
func (p *PostgreSQLArtifactRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*registryDomain.ArtifactMetadata, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT artifact_id, owner_id, issuing_institution_id, classification, minted_at, current_fingerprint, verified
			  FROM artifacts
			  ORDER BY minted_at ASC, artifact_id ASC
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list artifacts")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanArtifacts(rows)
}

// NewPostgreSQLArtifactRepository creates a new PostgreSQL artifact repository.
func NewPostgreSQLArtifactRepository(db *sql.DB) *PostgreSQLArtifactRepository {
	return &PostgreSQLArtifactRepository{db: db}
}
